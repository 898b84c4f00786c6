package usecase

import (
	"context"
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

// HistoryMirror abstracts the local copy of complete histories so use cases stay storage-agnostic.
// Load returns domain.ErrMirrorEntryNotFound when nothing was mirrored.
type HistoryMirror interface {
	Save(ctx context.Context, tenantID, customerID string, history domain.CustomerHistory) error
	Load(ctx context.Context, tenantID, customerID string) (domain.CustomerHistory, time.Time, error)
}
