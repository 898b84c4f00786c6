package redis

import (
	"context"
	"errors"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"github.com/fastygo/crm-analytics/internal/config"
)

// ErrDisabled is returned when the snapshot cache is switched off.
var ErrDisabled = errors.New("redis disabled")

// NewClient creates a Redis client for the snapshot cache and performs a health check.
func NewClient(ctx context.Context, cfg config.RedisConfig, clientName string) (*goRedis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.ClientName = clientName

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
