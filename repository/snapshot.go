package repository

import (
	"context"

	"github.com/fastygo/crm-analytics/domain"
)

// SnapshotCache keeps recently computed snapshots for a short time.
// Get returns domain.ErrSnapshotNotCached on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, tenantID, customerID string) (*domain.CustomerAnalytics, error)
	Save(ctx context.Context, tenantID string, snapshot *domain.CustomerAnalytics) error
	Invalidate(ctx context.Context, tenantID, customerID string) error
}
