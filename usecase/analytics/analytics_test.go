package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/engine"
	"github.com/fastygo/crm-analytics/internal/metrics"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

type fakeHistory struct {
	mu        sync.Mutex
	customers map[string]bool
	failures  map[string]error
	calls     map[string]int
}

func newFakeHistory(customers ...string) *fakeHistory {
	f := &fakeHistory{customers: map[string]bool{}, failures: map[string]error{}, calls: map[string]int{}}
	for _, c := range customers {
		f.customers[c] = true
	}
	return f
}

func (f *fakeHistory) fail(source string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[source] = err
}

func (f *fakeHistory) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[string]error{}
}

func (f *fakeHistory) hit(source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[source]++
	return f.failures[source]
}

func (f *fakeHistory) count(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

func (f *fakeHistory) GetCustomer(_ context.Context, tenantID, customerID string) (*domain.Customer, error) {
	if err := f.hit("customer"); err != nil {
		return nil, err
	}
	if !f.customers[customerID] {
		return nil, domain.ErrCustomerNotFound
	}
	return &domain.Customer{ID: customerID, TenantID: tenantID}, nil
}

func (f *fakeHistory) ListCustomerIDs(context.Context, string) ([]string, error) {
	ids := make([]string, 0, len(f.customers))
	for id := range f.customers {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeHistory) ListOrders(context.Context, string, string) ([]domain.OrderRecord, error) {
	if err := f.hit(domain.SourceOrders); err != nil {
		return nil, err
	}
	return []domain.OrderRecord{{
		ID:             "o1",
		OrderNumber:    "SO-1",
		OrderDate:      ptr("2026-02-01T10:00:00Z"),
		Species:        "Litopenaeus vannamei",
		Quantity:       ptr("100"),
		TotalValue:     ptr("250.00"),
		ShipmentStatus: "delivered",
		QualityFlag:    "ok",
	}}, nil
}

func (f *fakeHistory) ListInvoices(context.Context, string, string) ([]domain.InvoiceRecord, error) {
	if err := f.hit(domain.SourceInvoices); err != nil {
		return nil, err
	}
	return []domain.InvoiceRecord{{ID: "i1", Amount: ptr("250.00"), Status: "paid", IssuedDate: ptr("2026-02-01"), PaidDate: ptr("2026-02-10")}}, nil
}

func (f *fakeHistory) ListCredentials(context.Context, string, string) ([]domain.CredentialRecord, error) {
	if err := f.hit(domain.SourceCredentials); err != nil {
		return nil, err
	}
	return []domain.CredentialRecord{{ID: "cr1", Type: "health_certificate", ExpiryDate: ptr("2027-01-01")}}, nil
}

func (f *fakeHistory) ListAuditEntries(context.Context, string, string) ([]domain.AuditRecord, error) {
	if err := f.hit(domain.SourceAuditEntries); err != nil {
		return nil, err
	}
	return nil, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.CustomerAnalytics
}

func (c *fakeCache) Get(_ context.Context, tenantID, customerID string) (*domain.CustomerAnalytics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[tenantID+"/"+customerID]; ok {
		return s, nil
	}
	return nil, domain.ErrSnapshotNotCached
}

func (c *fakeCache) Save(_ context.Context, tenantID string, s *domain.CustomerAnalytics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]*domain.CustomerAnalytics{}
	}
	c.entries[tenantID+"/"+s.CustomerID] = s
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, tenantID, customerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID+"/"+customerID)
	return nil
}

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type mirrored struct {
	history domain.CustomerHistory
	at      time.Time
}

type fakeMirror struct {
	mu      sync.Mutex
	entries map[string]mirrored
	saves   int
}

func (m *fakeMirror) Save(_ context.Context, tenantID, customerID string, history domain.CustomerHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]mirrored{}
	}
	m.saves++
	m.entries[tenantID+"/"+customerID] = mirrored{history: history, at: fixedNow.Add(-time.Hour)}
	return nil
}

func (m *fakeMirror) Load(_ context.Context, tenantID, customerID string) (domain.CustomerHistory, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tenantID+"/"+customerID]
	if !ok {
		return domain.CustomerHistory{}, time.Time{}, domain.ErrMirrorEntryNotFound
	}
	return e.history, e.at, nil
}

func newUseCase(t *testing.T, history *fakeHistory, cache *fakeCache, mirror *fakeMirror, m *metrics.Metrics) *UseCase {
	t.Helper()
	var uc *UseCase
	switch {
	case cache != nil && mirror != nil:
		uc = New(history, cache, mirror, engine.DefaultOptions(), m, zaptest.NewLogger(t))
	case cache != nil:
		uc = New(history, cache, nil, engine.DefaultOptions(), m, zaptest.NewLogger(t))
	case mirror != nil:
		uc = New(history, nil, mirror, engine.DefaultOptions(), m, zaptest.NewLogger(t))
	default:
		uc = New(history, nil, nil, engine.DefaultOptions(), m, zaptest.NewLogger(t))
	}
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func TestCustomerAnalyticsValidatesIdentifiers(t *testing.T) {
	uc := newUseCase(t, newFakeHistory("c1"), nil, nil, nil)

	_, err := uc.CustomerAnalytics(context.Background(), "  ", "c1", nil)
	assert.ErrorIs(t, err, domain.ErrMissingTenant)

	_, err = uc.CustomerAnalytics(context.Background(), "t1", "", nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestCustomerAnalyticsComputesAndCaches(t *testing.T) {
	history := newFakeHistory("c1")
	cache := &fakeCache{}
	m := metrics.New("crm")
	uc := newUseCase(t, history, cache, nil, m)
	ctx := context.Background()

	first, err := uc.CustomerAnalytics(ctx, "t1", " c1 ", nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", first.CustomerID)
	assert.Equal(t, fixedNow, first.GeneratedAt)
	assert.Equal(t, 1, first.Summary.TotalOrders)
	assert.Empty(t, first.UnavailableSources)
	assert.Nil(t, first.HistoryAsOf)
	assert.Equal(t, 1, cache.size())

	second, err := uc.CustomerAnalytics(ctx, "t1", "c1", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, history.count(domain.SourceOrders), "cached snapshot must not reread the history")

	expected := `
# HELP crm_snapshots_total Analytics snapshots served, by outcome.
# TYPE crm_snapshots_total counter
crm_snapshots_total{outcome="cached"} 1
crm_snapshots_total{outcome="computed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "crm_snapshots_total"))
}

func TestCustomerAnalyticsPinnedInstantBypassesCache(t *testing.T) {
	history := newFakeHistory("c1")
	cache := &fakeCache{}
	uc := newUseCase(t, history, cache, nil, nil)
	asOf := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)

	for range 2 {
		snapshot, err := uc.CustomerAnalytics(context.Background(), "t1", "c1", &asOf)
		require.NoError(t, err)
		assert.Equal(t, asOf, snapshot.GeneratedAt)
		require.NotNil(t, snapshot.Summary.DaysSinceLastOrder)
		assert.Equal(t, 14, *snapshot.Summary.DaysSinceLastOrder)
	}
	assert.Zero(t, cache.size())
	assert.Equal(t, 2, history.count(domain.SourceOrders))
}

func TestCustomerAnalyticsUnknownCustomer(t *testing.T) {
	history := newFakeHistory("c1")
	mirror := &fakeMirror{}
	uc := newUseCase(t, history, nil, mirror, nil)

	_, err := uc.CustomerAnalytics(context.Background(), "t1", "ghost", nil)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Zero(t, history.count(domain.SourceOrders))
}

func TestCustomerAnalyticsOptionalSourceFailure(t *testing.T) {
	history := newFakeHistory("c1")
	history.fail(domain.SourceCredentials, errors.New("credentials table locked"))
	mirror := &fakeMirror{}
	m := metrics.New("crm")
	uc := newUseCase(t, history, nil, mirror, m)

	snapshot, err := uc.CustomerAnalytics(context.Background(), "t1", "c1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.SourceCredentials}, snapshot.UnavailableSources)
	assert.Zero(t, snapshot.CredentialStatus.Total)
	assert.Equal(t, 1, snapshot.Summary.TotalOrders)
	assert.Zero(t, mirror.saves, "partial histories are not mirrored")

	expected := `
# HELP crm_history_source_failures_total History sources that could not be read.
# TYPE crm_history_source_failures_total counter
crm_history_source_failures_total{source="credentials"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "crm_history_source_failures_total"))
}

func TestCustomerAnalyticsFallsBackToMirror(t *testing.T) {
	history := newFakeHistory("c1")
	cache := &fakeCache{}
	mirror := &fakeMirror{}
	uc := newUseCase(t, history, cache, mirror, nil)
	ctx := context.Background()
	asOf := fixedNow

	_, err := uc.CustomerAnalytics(ctx, "t1", "c1", &asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.saves)

	history.fail(domain.SourceInvoices, errors.New("invoices: connection refused"))
	snapshot, err := uc.CustomerAnalytics(ctx, "t1", "c1", nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot.HistoryAsOf)
	assert.Equal(t, fixedNow.Add(-time.Hour), *snapshot.HistoryAsOf)
	assert.Equal(t, 1, snapshot.Summary.TotalOrders)
	assert.Zero(t, cache.size(), "mirrored snapshots are not cached")

	history.heal()
	history.fail("customer", errors.New("too many connections"))
	snapshot, err = uc.CustomerAnalytics(ctx, "t1", "c1", nil)
	require.NoError(t, err)
	assert.NotNil(t, snapshot.HistoryAsOf)
}

func TestCustomerAnalyticsUnavailableWithoutMirror(t *testing.T) {
	history := newFakeHistory("c1")
	history.fail(domain.SourceOrders, errors.New("orders: timeout"))
	m := metrics.New("crm")

	_, err := newUseCase(t, history, nil, nil, m).CustomerAnalytics(context.Background(), "t1", "c1", nil)
	assert.ErrorIs(t, err, domain.ErrHistoryUnavailable)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.Contains(t, err.Error(), "orders: timeout")

	_, err = newUseCase(t, history, nil, &fakeMirror{}, m).CustomerAnalytics(context.Background(), "t1", "c1", nil)
	assert.ErrorIs(t, err, domain.ErrHistoryUnavailable)

	expected := `
# HELP crm_snapshots_total Analytics snapshots served, by outcome.
# TYPE crm_snapshots_total counter
crm_snapshots_total{outcome="failed"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "crm_snapshots_total"))
}

func TestCustomerIDs(t *testing.T) {
	uc := newUseCase(t, newFakeHistory("c1", "c2"), nil, nil, nil)

	ids, err := uc.CustomerIDs(context.Background(), "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)

	_, err = uc.CustomerIDs(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
}

func TestBatchComputeSharesReferenceInstant(t *testing.T) {
	history := newFakeHistory("c1", "c2", "c3")
	cache := &fakeCache{}
	uc := newUseCase(t, history, cache, nil, nil)

	var (
		generated = map[string]time.Time{}
		failed    []string
	)
	err := uc.BatchCompute(context.Background(), "t1", []string{"c1", "c2", "ghost", "c3"}, nil, 3,
		func(id string, snapshot *domain.CustomerAnalytics, err error) error {
			if err != nil {
				failed = append(failed, id)
				return nil
			}
			generated[id] = snapshot.GeneratedAt
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"ghost"}, failed)
	require.Len(t, generated, 3)
	for id, at := range generated {
		assert.Equal(t, fixedNow, at, id)
	}
	assert.Zero(t, cache.size(), "batch runs are pinned and skip the cache")
}

func TestBatchComputeStopsOnCallbackError(t *testing.T) {
	uc := newUseCase(t, newFakeHistory("c1", "c2", "c3", "c4"), nil, nil, nil)
	stop := errors.New("disk full")

	calls := 0
	err := uc.BatchCompute(context.Background(), "t1", []string{"c1", "c2", "c3", "c4"}, nil, 1,
		func(string, *domain.CustomerAnalytics, error) error {
			calls++
			return stop
		})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestBatchComputeHonoursCancellation(t *testing.T) {
	uc := newUseCase(t, newFakeHistory("c1"), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uc.BatchCompute(ctx, "t1", []string{"c1"}, nil, 2, func(string, *domain.CustomerAnalytics, error) error {
		t.Fatal("no customer should be computed after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
