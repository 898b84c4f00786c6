package repository

import (
	"github.com/fastygo/crm-analytics/domain"
)

// RowScanner is the subset of pgx.Rows, pgx.Row, *sql.Rows and *sql.Row the
// history stores need.
type RowScanner interface {
	Scan(dest ...any) error
}

// Column lists shared by every SQL history store. Dates and numerics are
// selected as text; the stores wrap them in their dialect's cast.
var (
	OrderColumns      = []string{"id", "order_number", "order_date", "species", "strain", "quantity", "total_value", "shipment_status", "quality_flag", "shipment_date", "shipped_date"}
	InvoiceColumns    = []string{"id", "amount", "currency", "status", "issued_date", "paid_date"}
	CredentialColumns = []string{"id", "type", "number", "issued_date", "expiry_date"}
	AuditColumns      = []string{"id", "entity_type", "entity_id", "action", "occurred_at", "actor"}
)

// ScanOrder reads one row selected with OrderColumns.
func ScanOrder(row RowScanner) (domain.OrderRecord, error) {
	var (
		r                             domain.OrderRecord
		number, species, status, flag *string
	)
	err := row.Scan(&r.ID, &number, &r.OrderDate, &species, &r.Strain, &r.Quantity, &r.TotalValue,
		&status, &flag, &r.ShipmentDate, &r.ShippedDate)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	r.OrderNumber = text(number)
	r.Species = text(species)
	r.ShipmentStatus = text(status)
	r.QualityFlag = text(flag)
	return r, nil
}

// ScanInvoice reads one row selected with InvoiceColumns.
func ScanInvoice(row RowScanner) (domain.InvoiceRecord, error) {
	var (
		r                domain.InvoiceRecord
		currency, status *string
	)
	if err := row.Scan(&r.ID, &r.Amount, &currency, &status, &r.IssuedDate, &r.PaidDate); err != nil {
		return domain.InvoiceRecord{}, err
	}
	r.Currency = text(currency)
	r.Status = text(status)
	return r, nil
}

// ScanCredential reads one row selected with CredentialColumns.
func ScanCredential(row RowScanner) (domain.CredentialRecord, error) {
	var (
		r        domain.CredentialRecord
		id, kind *string
	)
	if err := row.Scan(&id, &kind, &r.Number, &r.IssuedDate, &r.ExpiryDate); err != nil {
		return domain.CredentialRecord{}, err
	}
	r.ID = text(id)
	r.Type = text(kind)
	return r, nil
}

// ScanAuditEntry reads one row selected with AuditColumns.
func ScanAuditEntry(row RowScanner) (domain.AuditRecord, error) {
	var (
		r                                domain.AuditRecord
		id, entityType, entityID, action *string
	)
	if err := row.Scan(&id, &entityType, &entityID, &action, &r.Timestamp, &r.Actor); err != nil {
		return domain.AuditRecord{}, err
	}
	r.ID = text(id)
	r.EntityType = text(entityType)
	r.EntityID = text(entityID)
	r.Action = text(action)
	return r, nil
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
