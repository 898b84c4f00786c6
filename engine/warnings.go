package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/fastygo/crm-analytics/domain"
)

// ruleOrder is the evaluation order of the warning rules and the primary output order.
var ruleOrder = map[domain.WarningCode]int{
	domain.WarnRetentionRiskHigh:      0,
	domain.WarnCredentialExpired:      1,
	domain.WarnCredentialExpiring:     2,
	domain.WarnInvoicesOverdue:        3,
	domain.WarnQualityIssuesOpen:      4,
	domain.WarnRecentCriticalActivity: 5,
}

// SynthesizeWarnings inspects the derived summary, credential status and the
// most recent window of the timeline. Inputs are only read.
func SynthesizeWarnings(summary domain.Summary, credentials domain.CredentialStatus, timeline []domain.TimelineEvent, window int) []domain.Warning {
	warnings := make([]domain.Warning, 0, len(ruleOrder))

	if summary.RetentionRisk == domain.RetentionHigh {
		warnings = append(warnings, domain.Warning{
			Code:     domain.WarnRetentionRiskHigh,
			Message:  retentionMessage(summary),
			Severity: domain.SeverityCritical,
		})
	}

	if credentials.Expired > 0 {
		warnings = append(warnings, domain.Warning{
			Code:     domain.WarnCredentialExpired,
			Message:  pluralize(credentials.Expired, "credential") + " expired",
			Severity: domain.SeverityCritical,
		})
	}

	if credentials.Expiring > 0 {
		msg := fmt.Sprintf("%s expiring within %d days", pluralize(credentials.Expiring, "credential"), expiringWindowDays)
		if credentials.NextExpiryDate != nil {
			msg += ", next on " + formatDay(credentials.NextExpiryDate)
		}
		warnings = append(warnings, domain.Warning{
			Code:     domain.WarnCredentialExpiring,
			Message:  msg,
			Severity: domain.SeverityWarning,
		})
	}

	if summary.OutstandingInvoiceCount > 0 && summary.OverdueInvoiceCount > 0 {
		warnings = append(warnings, domain.Warning{
			Code: domain.WarnInvoicesOverdue,
			Message: fmt.Sprintf("%s overdue, %s outstanding across %s",
				pluralize(summary.OverdueInvoiceCount, "invoice"),
				summary.OutstandingInvoiceValue.String(),
				pluralize(summary.OutstandingInvoiceCount, "invoice")),
			Severity: domain.SeverityWarning,
		})
	}

	if summary.OpenIssuesCount > 0 {
		warnings = append(warnings, domain.Warning{
			Code:     domain.WarnQualityIssuesOpen,
			Message:  pluralize(summary.OpenIssuesCount, "order") + " with open quality issues",
			Severity: domain.SeverityWarning,
		})
	}

	if ev, ok := recentCriticalActivity(timeline, window); ok {
		warnings = append(warnings, domain.Warning{
			Code:     domain.WarnRecentCriticalActivity,
			Message:  "Critical activity in recent history: " + ev.Title,
			Severity: domain.SeverityCritical,
		})
	}

	slices.SortStableFunc(warnings, func(a, b domain.Warning) int {
		return cmp.Or(
			cmp.Compare(ruleOrder[a.Code], ruleOrder[b.Code]),
			cmp.Compare(b.Severity.Rank(), a.Severity.Rank()),
		)
	})
	return warnings
}

func retentionMessage(s domain.Summary) string {
	switch {
	case s.TotalOrders == 0:
		return "No orders on record"
	case s.DaysSinceLastOrder == nil:
		return "No dated orders on record"
	case s.AverageDaysBetweenOrders != nil:
		return fmt.Sprintf("No order for %s, usual gap is %.1f days",
			pluralize(*s.DaysSinceLastOrder, "day"), *s.AverageDaysBetweenOrders)
	default:
		return fmt.Sprintf("No order for %s", pluralize(*s.DaysSinceLastOrder, "day"))
	}
}

// recentCriticalActivity finds the newest critical order or shipment event in the window.
// Credential events are left to the credential rules.
func recentCriticalActivity(timeline []domain.TimelineEvent, window int) (domain.TimelineEvent, bool) {
	if window > len(timeline) {
		window = len(timeline)
	}
	for _, ev := range timeline[:window] {
		if ev.Severity != domain.SeverityCritical {
			continue
		}
		if ev.Type == domain.EventOrder || ev.Type == domain.EventShipment {
			return ev, true
		}
	}
	return domain.TimelineEvent{}, false
}
