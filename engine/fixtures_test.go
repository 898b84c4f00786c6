package engine

import (
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

var refNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

// daysAgo renders a timestamp n days before refNow the way PostgreSQL returns timestamptz text.
func daysAgo(n int) *string {
	return ptr(refNow.AddDate(0, 0, -n).Format("2006-01-02 15:04:05-07"))
}

func daysAhead(n int) *string {
	return ptr(refNow.AddDate(0, 0, n).Format(time.RFC3339))
}

func order(id string, date *string, species string, qty, value string) domain.OrderRecord {
	return domain.OrderRecord{
		ID:             id,
		OrderNumber:    "SO-" + id,
		OrderDate:      date,
		Species:        species,
		Quantity:       ptr(qty),
		TotalValue:     ptr(value),
		ShipmentStatus: "delivered",
		QualityFlag:    "ok",
	}
}

func invoice(id, status, amount string, issued, paid *string) domain.InvoiceRecord {
	return domain.InvoiceRecord{
		ID:         id,
		Amount:     ptr(amount),
		Currency:   "usd",
		Status:     status,
		IssuedDate: issued,
		PaidDate:   paid,
	}
}
