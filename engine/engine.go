package engine

import (
	"slices"
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

// Compute builds the full analytics snapshot for one customer at instant now.
// It always returns a snapshot: empty or partially unreadable histories yield
// zeroed and null fields rather than errors.
func Compute(customerID string, history domain.CustomerHistory, now time.Time, opts Options) domain.CustomerAnalytics {
	opts = opts.withDefaults()
	now = now.UTC()

	n := Normalize(history)
	summary := Summarize(n.Orders, n.Invoices, now)
	credentials := EvaluateCredentials(n.Credentials, now)

	species := RankSpecies(n.Orders)
	if opts.TopSpeciesLimit > 0 && len(species) > opts.TopSpeciesLimit {
		species = species[:opts.TopSpeciesLimit]
	}

	timeline := BuildTimeline(n, credentials)
	warnings := SynthesizeWarnings(summary, credentials, timeline, opts.TimelineWindow)
	if opts.TimelineLimit > 0 && len(timeline) > opts.TimelineLimit {
		timeline = timeline[:opts.TimelineLimit]
	}

	var unavailable []string
	if len(history.Unavailable) > 0 {
		unavailable = slices.Clone(history.Unavailable)
		slices.Sort(unavailable)
		unavailable = slices.Compact(unavailable)
	}

	return domain.CustomerAnalytics{
		CustomerID:          customerID,
		GeneratedAt:         now,
		Summary:             summary,
		PerformanceByPeriod: PerformanceByPeriod(n.Orders, now, opts.PeriodMonths),
		TopSpecies:          species,
		RecentOrders:        RecentOrders(n.Orders, opts.RecentLimit),
		RecentInvoices:      RecentInvoices(n.Invoices, opts.RecentLimit),
		CredentialStatus:    credentials,
		Timeline:            timeline,
		Warnings:            warnings,
		UnavailableSources:  unavailable,
	}
}
