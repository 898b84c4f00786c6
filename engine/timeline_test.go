package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm-analytics/domain"
)

func timelineFor(h domain.CustomerHistory) []domain.TimelineEvent {
	n := Normalize(h)
	return BuildTimeline(n, EvaluateCredentials(n.Credentials, refNow))
}

func eventIDs(events []domain.TimelineEvent) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func TestTimelineTieBreaksOnTypePriority(t *testing.T) {
	at := ptr("2026-02-10T09:00:00Z")
	events := timelineFor(domain.CustomerHistory{
		Orders:   []domain.OrderRecord{order("o1", at, "x", "1", "1")},
		Invoices: []domain.InvoiceRecord{invoice("i1", "pending", "10", at, nil)},
		AuditEntries: []domain.AuditRecord{
			{ID: "a1", EntityType: "order", EntityID: "o1", Action: "create", Timestamp: at},
		},
		Credentials: []domain.CredentialRecord{{ID: "c1", Type: "permit", IssuedDate: at, ExpiryDate: daysAhead(365)}},
	})

	assert.Equal(t, []string{"invoice:i1", "order:o1", "credential:c1", "audit:a1"}, eventIDs(events))
}

func TestTimelinePaymentPrecedesOrderAtSameInstant(t *testing.T) {
	at := ptr("2026-02-10T09:00:00Z")
	events := timelineFor(domain.CustomerHistory{
		Orders:   []domain.OrderRecord{order("o1", at, "x", "1", "1")},
		Invoices: []domain.InvoiceRecord{invoice("i1", "paid", "10", daysAgo(40), at)},
	})

	assert.Equal(t, []string{"payment:i1", "order:o1", "invoice:i1"}, eventIDs(events))
}

func TestTimelineSortsNewestFirstThenByID(t *testing.T) {
	events := timelineFor(domain.CustomerHistory{Orders: []domain.OrderRecord{
		order("b", daysAgo(1), "x", "1", "1"),
		order("a", daysAgo(1), "x", "1", "1"),
		order("c", daysAgo(9), "x", "1", "1"),
		order("z", daysAgo(0), "x", "1", "1"),
		order("undated", nil, "x", "1", "1"),
	}})

	assert.Equal(t, []string{"order:z", "order:a", "order:b", "order:c"}, eventIDs(events))
}

func TestTimelineInvoicePaidSameDayYieldsSinglePayment(t *testing.T) {
	events := timelineFor(domain.CustomerHistory{Invoices: []domain.InvoiceRecord{
		invoice("i1", "paid", "10", ptr("2026-02-10T09:00:00Z"), ptr("2026-02-10T17:30:00Z")),
	}})

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPayment, events[0].Type)
	assert.Equal(t, "payment:i1", events[0].ID)
	assert.Equal(t, "invoice", events[0].RelatedEntity)
}

func TestTimelineOrderSeverities(t *testing.T) {
	critical := order("o1", daysAgo(3), "x", "1", "1")
	critical.QualityFlag = "critical_issue"
	minor := order("o2", daysAgo(2), "x", "1", "1")
	minor.QualityFlag = "minor_issue"
	problem := order("o3", daysAgo(1), "x", "1", "1")
	problem.ShipmentStatus = "problem"
	problem.ShippedDate = daysAgo(0)

	events := timelineFor(domain.CustomerHistory{Orders: []domain.OrderRecord{critical, minor, problem}})

	bySource := map[string]domain.Severity{}
	for _, ev := range events {
		bySource[ev.ID] = ev.Severity
	}
	assert.Equal(t, domain.SeverityCritical, bySource["order:o1"])
	assert.Equal(t, domain.SeverityWarning, bySource["order:o2"])
	assert.Equal(t, domain.SeverityWarning, bySource["order:o3"])
	assert.Equal(t, domain.SeverityWarning, bySource["shipment:o3"])
	assert.Equal(t, "shipment:o3", events[0].ID)
	assert.Equal(t, "Shipment problem on order SO-o3", events[0].Title)
}

func TestTimelineInvoiceAndCredentialSeverities(t *testing.T) {
	events := timelineFor(domain.CustomerHistory{
		Invoices: []domain.InvoiceRecord{invoice("i1", "overdue", "10", daysAgo(50), nil)},
		Credentials: []domain.CredentialRecord{
			{ID: "expired", Type: "import_license", ExpiryDate: daysAhead(-2)},
			{ID: "soon", Type: "health_certificate", Number: ptr("HC-7"), ExpiryDate: daysAhead(7)},
			{ID: "fine", Type: "export_permit", IssuedDate: daysAgo(30), ExpiryDate: daysAhead(300)},
			{ID: "undated", Type: "farm_registration"},
		},
	})

	byID := map[string]domain.TimelineEvent{}
	for _, ev := range events {
		byID[ev.ID] = ev
	}
	require.Len(t, byID, 4)
	assert.Equal(t, domain.SeverityWarning, byID["invoice:i1"].Severity)
	assert.Equal(t, domain.SeverityCritical, byID["credential:expired"].Severity)
	assert.Equal(t, domain.SeverityWarning, byID["credential:soon"].Severity)
	assert.Equal(t, "health_certificate HC-7 expires in 7 days", byID["credential:soon"].Title)
	assert.Equal(t, domain.SeverityInfo, byID["credential:fine"].Severity)
	assert.Equal(t, refNow.AddDate(0, 0, -30).Unix(), byID["credential:fine"].Timestamp.Unix())
}

func TestTimelineAuditEvents(t *testing.T) {
	events := timelineFor(domain.CustomerHistory{AuditEntries: []domain.AuditRecord{
		{ID: "a1", EntityType: "invoice", EntityID: "i9", Action: "delete", Timestamp: daysAgo(1), Actor: ptr("ops@farm.example")},
		{ID: "a2", EntityType: "invoice", EntityID: "i9", Action: "update", Timestamp: ptr("broken")},
	}})

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "audit:a1", ev.ID)
	assert.Equal(t, "invoice deleted", ev.Title)
	assert.Equal(t, "by ops@farm.example", ev.Description)
	assert.Equal(t, "i9", ev.RelatedID)
	assert.Equal(t, "invoice", ev.RelatedEntity)
	assert.Equal(t, domain.SeverityInfo, ev.Severity)
}
