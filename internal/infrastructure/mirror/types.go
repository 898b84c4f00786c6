package mirror

import (
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

// Entry is the last history that could be read in full for one customer.
type Entry struct {
	TenantID   string                 `json:"tenant_id"`
	CustomerID string                 `json:"customer_id"`
	History    domain.CustomerHistory `json:"history"`
	MirroredAt time.Time              `json:"mirrored_at"`
}

func (e *Entry) normalize(now time.Time) {
	if e.MirroredAt.IsZero() {
		e.MirroredAt = now
	}
	// Partial histories are never mirrored, so the marker would only be stale.
	e.History.Unavailable = nil
}

func buildKey(tenantID, customerID string) []byte {
	return []byte(tenantID + "\x00" + customerID)
}
