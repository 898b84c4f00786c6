package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/crm-analytics/internal/metrics"
)

// MirrorSweeper is the part of the mirror store the janitor needs.
type MirrorSweeper interface {
	Cleanup(olderThan time.Time) (int, error)
	Size() (int, error)
}

// JanitorConfig controls how often the mirror is swept and what is kept.
type JanitorConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// MirrorJanitor drops mirrored histories that are too old to be trusted as a fallback.
type MirrorJanitor struct {
	store   MirrorSweeper
	metrics *metrics.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     JanitorConfig
	now     func() time.Time
}

func NewMirrorJanitor(store MirrorSweeper, m *metrics.Metrics, logger *zap.Logger, cfg JanitorConfig) *MirrorJanitor {
	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &MirrorJanitor{
		store:   store,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
		now:     time.Now,
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = j.cron.AddFunc(schedule, func() {
		if _, err := j.Sweep(); err != nil {
			j.logger.Error("mirror sweep failed", zap.Error(err))
		}
	})

	return j
}

// Start launches the cron scheduler.
func (j *MirrorJanitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("mirror janitor started", zap.Duration("interval", j.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (j *MirrorJanitor) Stop(ctx context.Context) {
	if j == nil || j.cron == nil {
		return
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("mirror janitor stopped")
}

// Sweep removes expired entries synchronously and returns how many were dropped.
func (j *MirrorJanitor) Sweep() (int, error) {
	if j == nil || j.store == nil {
		return 0, nil
	}
	removed, err := j.store.Cleanup(j.now().Add(-j.cfg.Retention))
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		j.logger.Info("expired mirror entries removed", zap.Int("removed", removed))
	}
	if size, err := j.store.Size(); err == nil {
		j.metrics.SetMirrorEntries(size)
	}
	return removed, nil
}
