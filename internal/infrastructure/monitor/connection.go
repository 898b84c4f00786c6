package monitor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/crm-analytics/internal/infrastructure/mirror"
	"github.com/fastygo/crm-analytics/internal/metrics"
)

// Pinger is satisfied by *pgxpool.Pool and by SQLPinger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SQLPinger adapts *sql.DB to Pinger.
type SQLPinger struct{ DB *sql.DB }

func (p SQLPinger) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

// Dependencies are the components probed by the monitor. Redis and Mirror may be nil.
type Dependencies struct {
	Database Pinger
	Driver   string
	Redis    *redislib.Client
	Mirror   *mirror.Store
}

type Monitor struct {
	deps    Dependencies
	metrics *metrics.Metrics

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(deps Dependencies, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		deps:     deps,
		metrics:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the primary history store answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Database
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and publishes the result.
func (m *Monitor) Refresh() {
	mirrorOK, mirrorSize := m.checkMirror()
	status := Status{
		Database:     m.checkDatabase(),
		Driver:       m.deps.Driver,
		Redis:        m.checkRedis(),
		RedisEnabled: m.deps.Redis != nil,
		Mirror:       mirrorOK,
		MirrorSize:   mirrorSize,
		LastCheck:    time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.Database != status.Database && !previous.LastCheck.IsZero() {
		m.logger.Warn("history store availability changed", zap.Bool("online", status.Database))
	}
	m.metrics.SetDependency("database", status.Database)
	if status.RedisEnabled {
		m.metrics.SetDependency("redis", status.Redis)
	}
	if m.deps.Mirror != nil {
		m.metrics.SetDependency("mirror", status.Mirror)
		m.metrics.SetMirrorEntries(status.MirrorSize)
	}
}

func (m *Monitor) checkDatabase() bool {
	if m.deps.Database == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.deps.Database.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	if m.deps.Redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.deps.Redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkMirror() (bool, int) {
	if m.deps.Mirror == nil {
		return false, 0
	}
	size, err := m.deps.Mirror.Size()
	if err != nil {
		m.logger.Warn("mirror size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
