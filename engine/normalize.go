package engine

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastygo/crm-analytics/domain"
)

// Normalized holds typed, date-parsed sequences, each sorted ascending by its natural date.
type Normalized struct {
	Orders       []domain.Order
	Invoices     []domain.Invoice
	Credentials  []domain.Credential
	AuditEntries []domain.AuditEntry
}

const (
	secondsPerDay     = 24 * 60 * 60
	minAmountExponent = -28
	maxAmountExponent = 18
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts stored rows into the engine's working shape. Bad values
// become absent or zero; no single row can fail the whole history.
func Normalize(h domain.CustomerHistory) Normalized {
	n := Normalized{
		Orders:       make([]domain.Order, 0, len(h.Orders)),
		Invoices:     make([]domain.Invoice, 0, len(h.Invoices)),
		Credentials:  make([]domain.Credential, 0, len(h.Credentials)),
		AuditEntries: make([]domain.AuditEntry, 0, len(h.AuditEntries)),
	}

	for _, r := range h.Orders {
		n.Orders = append(n.Orders, normalizeOrder(r))
	}
	for _, r := range h.Invoices {
		n.Invoices = append(n.Invoices, normalizeInvoice(r))
	}
	for _, r := range h.Credentials {
		n.Credentials = append(n.Credentials, normalizeCredential(r))
	}
	for _, r := range h.AuditEntries {
		n.AuditEntries = append(n.AuditEntries, normalizeAudit(r))
	}

	slices.SortStableFunc(n.Orders, func(a, b domain.Order) int {
		return cmp.Or(compareDates(a.OrderDate, b.OrderDate), cmp.Compare(a.ID, b.ID), cmp.Compare(a.OrderNumber, b.OrderNumber))
	})
	slices.SortStableFunc(n.Invoices, func(a, b domain.Invoice) int {
		return cmp.Or(compareDates(a.IssuedDate, b.IssuedDate), cmp.Compare(a.ID, b.ID))
	})
	slices.SortStableFunc(n.Credentials, func(a, b domain.Credential) int {
		return cmp.Or(compareDates(a.ExpiryDate, b.ExpiryDate), cmp.Compare(a.ID, b.ID),
			compareDates(a.IssuedDate, b.IssuedDate), cmp.Compare(a.Type, b.Type), cmp.Compare(a.Number, b.Number))
	})
	slices.SortStableFunc(n.AuditEntries, func(a, b domain.AuditEntry) int {
		return cmp.Or(compareDates(a.Timestamp, b.Timestamp), cmp.Compare(a.ID, b.ID), cmp.Compare(a.Actor, b.Actor))
	})

	uniqueIDs(n.Credentials, func(c *domain.Credential) *string { return &c.ID })
	uniqueIDs(n.AuditEntries, func(e *domain.AuditEntry) *string { return &e.ID })

	return n
}

// uniqueIDs suffixes repeated ids with #2, #3 and so on in sorted order, so
// every row still yields its own timeline event.
func uniqueIDs[T any](items []T, id func(*T) *string) {
	seen := make(map[string]int, len(items))
	for i := range items {
		p := id(&items[i])
		seen[*p]++
		if n := seen[*p]; n > 1 {
			*p += "#" + strconv.Itoa(n)
		}
	}
}

func normalizeOrder(r domain.OrderRecord) domain.Order {
	status := domain.ShipmentStatus(strings.ToLower(strings.TrimSpace(r.ShipmentStatus)))
	if status == "" {
		status = domain.ShipmentPending
	}
	flag := domain.QualityFlag(strings.ToLower(strings.TrimSpace(r.QualityFlag)))
	switch flag {
	case domain.QualityMinorIssue, domain.QualityCriticalIssue:
	default:
		flag = domain.QualityOK
	}

	return domain.Order{
		ID:             r.ID,
		OrderNumber:    r.OrderNumber,
		OrderDate:      ParseDate(r.OrderDate),
		Species:        r.Species,
		Strain:         deref(r.Strain),
		Quantity:       parseQuantity(r.Quantity),
		TotalValue:     parseAmount(r.TotalValue),
		ShipmentStatus: status,
		QualityFlag:    flag,
		ShipmentDate:   ParseDate(r.ShipmentDate),
		ShippedDate:    ParseDate(r.ShippedDate),
	}
}

func normalizeInvoice(r domain.InvoiceRecord) domain.Invoice {
	return domain.Invoice{
		ID:         r.ID,
		Amount:     parseAmount(r.Amount),
		Currency:   strings.ToUpper(strings.TrimSpace(r.Currency)),
		Status:     domain.InvoiceStatus(strings.ToLower(strings.TrimSpace(r.Status))),
		IssuedDate: ParseDate(r.IssuedDate),
		PaidDate:   ParseDate(r.PaidDate),
	}
}

func normalizeCredential(r domain.CredentialRecord) domain.Credential {
	c := domain.Credential{
		ID:         r.ID,
		Type:       r.Type,
		Number:     deref(r.Number),
		IssuedDate: ParseDate(r.IssuedDate),
		ExpiryDate: ParseDate(r.ExpiryDate),
	}
	if c.ID == "" {
		c.ID = strings.Join([]string{c.Type, c.Number, formatDay(c.IssuedDate), formatDay(c.ExpiryDate)}, ":")
	}
	return c
}

func normalizeAudit(r domain.AuditRecord) domain.AuditEntry {
	e := domain.AuditEntry{
		ID:         r.ID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     domain.AuditAction(strings.ToLower(strings.TrimSpace(r.Action))),
		Timestamp:  ParseDate(r.Timestamp),
		Actor:      deref(r.Actor),
	}
	if e.ID == "" {
		ts := ""
		if e.Timestamp != nil {
			ts = strconv.FormatInt(e.Timestamp.UnixNano(), 10)
		}
		e.ID = strings.Join([]string{e.EntityType, e.EntityID, string(e.Action), ts}, ":")
	}
	return e
}

// ParseDate accepts the textual date shapes the supported stores emit and
// returns nil for anything it cannot read.
func ParseDate(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func parseAmount(raw *string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil || !saneExponent(d) {
		return decimal.Zero
	}
	return d
}

// saneExponent rejects values like 1e2147483647 whose rescaling in later
// arithmetic would allocate enormous integers.
func saneExponent(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= minAmountExponent && exp <= maxAmountExponent
}

func parseQuantity(raw *string) int64 {
	if raw == nil {
		return 0
	}
	value := strings.TrimSpace(*raw)
	if q, err := strconv.ParseInt(value, 10, 64); err == nil {
		return q
	}
	if d, err := decimal.NewFromString(value); err == nil && saneExponent(d) {
		return d.IntPart()
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// compareDates sorts known dates ascending and unknown dates last.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts UTC calendar days from a to b; negative when b is earlier.
// It works on day numbers rather than a Duration, which saturates after ~292 years.
func daysBetween(a, b time.Time) int {
	return int(epochDay(b) - epochDay(a))
}

// epochDay is the UTC calendar day of t counted from 1970-01-01, floored for earlier dates.
func epochDay(t time.Time) int64 {
	secs := startOfDay(t).Unix()
	day := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		day--
	}
	return day
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
