package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm-analytics/domain"
)

func warningsFor(h domain.CustomerHistory, window int) []domain.Warning {
	n := Normalize(h)
	credentials := EvaluateCredentials(n.Credentials, refNow)
	summary := Summarize(n.Orders, n.Invoices, refNow)
	return SynthesizeWarnings(summary, credentials, BuildTimeline(n, credentials), window)
}

func warningCodes(warnings []domain.Warning) []domain.WarningCode {
	codes := make([]domain.WarningCode, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestWarningsHealthyCustomer(t *testing.T) {
	warnings := warningsFor(domain.CustomerHistory{
		Orders: []domain.OrderRecord{
			order("o1", daysAgo(30), "x", "1", "10"),
			order("o2", daysAgo(15), "x", "1", "10"),
			order("o3", daysAgo(2), "x", "1", "10"),
		},
		Invoices:    []domain.InvoiceRecord{invoice("i1", "paid", "10", daysAgo(20), daysAgo(12))},
		Credentials: []domain.CredentialRecord{{ID: "c1", Type: "permit", ExpiryDate: daysAhead(200)}},
	}, defaultTimelineWindow)

	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestWarningsFollowRuleOrder(t *testing.T) {
	critical := order("o2", daysAgo(400), "x", "1", "10")
	critical.QualityFlag = "critical_issue"

	warnings := warningsFor(domain.CustomerHistory{
		Orders: []domain.OrderRecord{order("o1", daysAgo(500), "x", "1", "10"), critical},
		Invoices: []domain.InvoiceRecord{
			invoice("i1", "overdue", "40", daysAgo(90), nil),
			invoice("i2", "pending", "60", daysAgo(10), nil),
		},
		Credentials: []domain.CredentialRecord{
			{ID: "c1", Type: "health_certificate", ExpiryDate: daysAhead(-5)},
			{ID: "c2", Type: "export_permit", ExpiryDate: daysAhead(10)},
		},
	}, defaultTimelineWindow)

	assert.Equal(t, []domain.WarningCode{
		domain.WarnRetentionRiskHigh,
		domain.WarnCredentialExpired,
		domain.WarnCredentialExpiring,
		domain.WarnInvoicesOverdue,
		domain.WarnQualityIssuesOpen,
		domain.WarnRecentCriticalActivity,
	}, warningCodes(warnings))

	assert.Equal(t, domain.SeverityCritical, warnings[0].Severity)
	assert.Equal(t, "No order for 400 days, usual gap is 100.0 days", warnings[0].Message)
	assert.Equal(t, "1 credential expiring within 30 days, next on 2026-03-11", warnings[2].Message)
	assert.Equal(t, "1 invoice overdue, 100 outstanding across 2 invoices", warnings[3].Message)
	assert.Equal(t, "Critical activity in recent history: Order SO-o2 placed", warnings[5].Message)
}

func TestWarningsNoOrders(t *testing.T) {
	warnings := warningsFor(domain.CustomerHistory{}, defaultTimelineWindow)

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnRetentionRiskHigh, warnings[0].Code)
	assert.Equal(t, "No orders on record", warnings[0].Message)
}

func TestWarningsCriticalActivityOutsideWindow(t *testing.T) {
	critical := order("old", daysAgo(20), "x", "1", "10")
	critical.QualityFlag = "critical_issue"
	orders := []domain.OrderRecord{critical}
	for _, id := range []string{"a", "b", "c"} {
		orders = append(orders, order(id, daysAgo(5), "x", "1", "10"))
	}
	h := domain.CustomerHistory{Orders: orders}

	assert.NotContains(t, warningCodes(warningsFor(h, 3)), domain.WarnRecentCriticalActivity)
	assert.Contains(t, warningCodes(warningsFor(h, 4)), domain.WarnRecentCriticalActivity)
}

func TestWarningsOverdueNeedsOutstandingBalance(t *testing.T) {
	summary := domain.Summary{RetentionRisk: domain.RetentionLow, OverdueInvoiceCount: 1}
	warnings := SynthesizeWarnings(summary, domain.CredentialStatus{}, nil, defaultTimelineWindow)
	assert.Empty(t, warnings)
}
