// Package engine derives the customer analytics snapshot from a customer's raw history.
//
// Every function in this package is pure: results depend only on the arguments,
// including the reference instant, so the same history always yields the same
// snapshot. Nothing here performs I/O or keeps state between calls.
package engine

const (
	defaultRecentLimit     = 5
	defaultTopSpecies      = 5
	defaultPeriodMonths    = 12
	defaultTimelineWindow  = 10
	expiringWindowDays     = 30
	quarterDays            = 90
	highRiskGapMultiplier  = 2.0
	mediumRiskGapMultiple  = 1.5
	highRiskFallbackDays   = 180
	mediumRiskFallbackDays = 90
)

// Options bounds the presentation-sized parts of the snapshot.
type Options struct {
	// RecentLimit caps recentOrders and recentInvoices.
	RecentLimit int
	// TopSpeciesLimit caps topSpecies; zero keeps the full ranking.
	TopSpeciesLimit int
	// PeriodMonths is the number of trailing calendar months in performanceByPeriod.
	PeriodMonths int
	// TimelineLimit caps the timeline; zero keeps every event.
	TimelineLimit int
	// TimelineWindow is how many of the most recent events the warning rules inspect.
	TimelineWindow int
}

// DefaultOptions matches what the dashboard panel renders.
func DefaultOptions() Options {
	return Options{
		RecentLimit:     defaultRecentLimit,
		TopSpeciesLimit: defaultTopSpecies,
		PeriodMonths:    defaultPeriodMonths,
		TimelineWindow:  defaultTimelineWindow,
	}
}

func (o Options) withDefaults() Options {
	if o.RecentLimit <= 0 {
		o.RecentLimit = defaultRecentLimit
	}
	if o.PeriodMonths <= 0 {
		o.PeriodMonths = defaultPeriodMonths
	}
	if o.TimelineWindow <= 0 {
		o.TimelineWindow = defaultTimelineWindow
	}
	if o.TopSpeciesLimit < 0 {
		o.TopSpeciesLimit = 0
	}
	if o.TimelineLimit < 0 {
		o.TimelineLimit = 0
	}
	return o
}
