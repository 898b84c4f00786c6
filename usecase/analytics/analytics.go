package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/engine"
	"github.com/fastygo/crm-analytics/internal/metrics"
	"github.com/fastygo/crm-analytics/pkg/logger"
	"github.com/fastygo/crm-analytics/repository"
	"github.com/fastygo/crm-analytics/usecase"
)

var errMissingCustomer = domain.NewError(domain.ErrCodeInvalid, "customer id is required")

// UseCase assembles a customer's history and turns it into an analytics snapshot.
// The cache and the mirror are optional.
type UseCase struct {
	history repository.HistoryRepository
	cache   repository.SnapshotCache
	mirror  usecase.HistoryMirror
	metrics *metrics.Metrics
	opts    engine.Options
	logger  *zap.Logger
	now     func() time.Time
}

func New(
	history repository.HistoryRepository,
	cache repository.SnapshotCache,
	mirror usecase.HistoryMirror,
	opts engine.Options,
	m *metrics.Metrics,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		history: history,
		cache:   cache,
		mirror:  mirror,
		metrics: m,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// CustomerAnalytics returns the snapshot of one customer. With asOf nil the
// snapshot is taken now and may be served from the cache; a pinned asOf always
// recomputes.
func (uc *UseCase) CustomerAnalytics(ctx context.Context, tenantID, customerID string, asOf *time.Time) (*domain.CustomerAnalytics, error) {
	started := time.Now()
	tenantID, customerID = strings.TrimSpace(tenantID), strings.TrimSpace(customerID)
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}
	if customerID == "" {
		return nil, errMissingCustomer
	}
	log := logger.FromContext(ctx, uc.logger).With(zap.String("customer_id", customerID))

	pinned := asOf != nil
	if !pinned && uc.cache != nil {
		cached, err := uc.cache.Get(ctx, tenantID, customerID)
		switch {
		case err == nil:
			uc.metrics.ObserveSnapshot(metrics.OutcomeCached, time.Since(started))
			return cached, nil
		case !errors.Is(err, domain.ErrSnapshotNotCached):
			log.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	history, mirroredAt, err := uc.loadHistory(ctx, log, tenantID, customerID)
	if err != nil {
		uc.metrics.ObserveSnapshot(metrics.OutcomeFailed, time.Since(started))
		return nil, err
	}

	now := uc.now()
	if pinned {
		now = *asOf
	}
	snapshot := engine.Compute(customerID, history, now, uc.opts)

	outcome := metrics.OutcomeComputed
	if mirroredAt != nil {
		outcome = metrics.OutcomeMirror
		snapshot.HistoryAsOf = mirroredAt
	}
	uc.metrics.WarningsRaised(snapshot.Warnings)
	uc.metrics.ObserveSnapshot(outcome, time.Since(started))

	if !pinned && mirroredAt == nil && uc.cache != nil {
		if err := uc.cache.Save(ctx, tenantID, &snapshot); err != nil {
			log.Warn("snapshot cache write failed", zap.Error(err))
		}
	}

	log.Debug("customer analytics computed",
		zap.String("outcome", outcome),
		zap.Int("orders", snapshot.Summary.TotalOrders),
		zap.Int("warnings", len(snapshot.Warnings)),
		zap.Strings("unavailable", snapshot.UnavailableSources))
	return &snapshot, nil
}

// loadHistory reads the live history. Orders and invoices are required; when
// either is unreadable the mirrored copy is used instead and its capture time
// is returned. Credentials and audit entries degrade to unavailable sources.
func (uc *UseCase) loadHistory(ctx context.Context, log *zap.Logger, tenantID, customerID string) (domain.CustomerHistory, *time.Time, error) {
	if _, err := uc.history.GetCustomer(ctx, tenantID, customerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.CustomerHistory{}, nil, err
		}
		log.Warn("customer lookup failed", zap.Error(err))
		return uc.fromMirror(ctx, log, tenantID, customerID, err)
	}

	var (
		history domain.CustomerHistory
		mu      sync.Mutex
		failed  = map[string]error{}
		g       errgroup.Group
	)
	fetch := func(source string, load func() error) {
		g.Go(func() error {
			if err := load(); err != nil {
				mu.Lock()
				failed[source] = err
				mu.Unlock()
			}
			return nil
		})
	}
	fetch(domain.SourceOrders, func() (err error) {
		history.Orders, err = uc.history.ListOrders(ctx, tenantID, customerID)
		return err
	})
	fetch(domain.SourceInvoices, func() (err error) {
		history.Invoices, err = uc.history.ListInvoices(ctx, tenantID, customerID)
		return err
	})
	fetch(domain.SourceCredentials, func() (err error) {
		history.Credentials, err = uc.history.ListCredentials(ctx, tenantID, customerID)
		return err
	})
	fetch(domain.SourceAuditEntries, func() (err error) {
		history.AuditEntries, err = uc.history.ListAuditEntries(ctx, tenantID, customerID)
		return err
	})
	_ = g.Wait()

	for _, source := range []string{domain.SourceOrders, domain.SourceInvoices} {
		if err, ok := failed[source]; ok {
			uc.metrics.SourceFailed(source)
			log.Warn("required history source failed", zap.String("source", source), zap.Error(err))
			return uc.fromMirror(ctx, log, tenantID, customerID, err)
		}
	}
	for _, source := range []string{domain.SourceCredentials, domain.SourceAuditEntries} {
		if err, ok := failed[source]; ok {
			uc.metrics.SourceFailed(source)
			log.Warn("optional history source failed", zap.String("source", source), zap.Error(err))
			history.Unavailable = append(history.Unavailable, source)
		}
	}

	if len(history.Unavailable) == 0 && uc.mirror != nil {
		if err := uc.mirror.Save(ctx, tenantID, customerID, history); err != nil {
			log.Warn("history mirror write failed", zap.Error(err))
		}
	}
	return history, nil, nil
}

func (uc *UseCase) fromMirror(ctx context.Context, log *zap.Logger, tenantID, customerID string, cause error) (domain.CustomerHistory, *time.Time, error) {
	if uc.mirror == nil {
		return domain.CustomerHistory{}, nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrHistoryUnavailable.Message, cause)
	}
	history, mirroredAt, err := uc.mirror.Load(ctx, tenantID, customerID)
	if err != nil {
		if !errors.Is(err, domain.ErrMirrorEntryNotFound) {
			log.Error("history mirror read failed", zap.Error(err))
		}
		return domain.CustomerHistory{}, nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrHistoryUnavailable.Message, cause)
	}
	log.Info("serving mirrored history", zap.Time("mirrored_at", mirroredAt))
	return history, &mirroredAt, nil
}

// CustomerIDs lists every customer of a tenant.
func (uc *UseCase) CustomerIDs(ctx context.Context, tenantID string) ([]string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}
	return uc.history.ListCustomerIDs(ctx, tenantID)
}

// BatchResultFunc receives every batch outcome, one call at a time. Returning an
// error stops the batch.
type BatchResultFunc func(customerID string, snapshot *domain.CustomerAnalytics, err error) error

// BatchCompute computes the snapshots of the given customers with at most
// workers in flight. Every snapshot shares one reference instant: asOf, or the
// moment the batch started. Per-customer failures are handed to fn and do not
// stop the batch.
func (uc *UseCase) BatchCompute(ctx context.Context, tenantID string, customerIDs []string, asOf *time.Time, workers int, fn BatchResultFunc) error {
	if workers <= 0 {
		workers = 1
	}
	if asOf == nil {
		now := uc.now()
		asOf = &now
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, id := range customerIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			snapshot, err := uc.CustomerAnalytics(gctx, tenantID, id, asOf)
			mu.Lock()
			defer mu.Unlock()
			return fn(id, snapshot, err)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
