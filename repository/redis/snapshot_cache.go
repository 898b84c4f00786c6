package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/repository"
)

type snapshotCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache creates a Redis-backed cache of analytics snapshots.
func NewSnapshotCache(client *redislib.Client, ttl time.Duration) repository.SnapshotCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &snapshotCache{
		client: client,
		prefix: "analytics:",
		ttl:    ttl,
	}
}

func (c *snapshotCache) Get(ctx context.Context, tenantID, customerID string) (*domain.CustomerAnalytics, error) {
	result, err := c.client.Get(ctx, c.key(tenantID, customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSnapshotNotCached
		}
		return nil, err
	}

	var snapshot domain.CustomerAnalytics
	if err := json.Unmarshal(result, &snapshot); err != nil {
		// An entry written by an older schema is treated as a miss.
		_ = c.client.Del(ctx, c.key(tenantID, customerID)).Err()
		return nil, domain.ErrSnapshotNotCached
	}
	return &snapshot, nil
}

func (c *snapshotCache) Save(ctx context.Context, tenantID string, snapshot *domain.CustomerAnalytics) error {
	if snapshot == nil || snapshot.CustomerID == "" || tenantID == "" {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tenantID, snapshot.CustomerID), payload, c.ttl).Err()
}

func (c *snapshotCache) Invalidate(ctx context.Context, tenantID, customerID string) error {
	return c.client.Del(ctx, c.key(tenantID, customerID)).Err()
}

// key length-prefixes the tenant so no tenant/customer pair can spell another's key.
func (c *snapshotCache) key(tenantID, customerID string) string {
	return fmt.Sprintf("%s%d:%s:%s", c.prefix, len(tenantID), tenantID, customerID)
}
