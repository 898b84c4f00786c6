package engine

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastygo/crm-analytics/domain"
)

// Summarize computes the headline KPIs and the retention classification.
func Summarize(orders []domain.Order, invoices []domain.Invoice, now time.Time) domain.Summary {
	s := domain.Summary{
		TotalOrders:             len(orders),
		TotalValue:              decimal.Zero,
		AverageOrderValue:       decimal.Zero,
		OutstandingInvoiceValue: decimal.Zero,
	}

	dated := make([]time.Time, 0, len(orders))
	for _, o := range orders {
		s.TotalValue = s.TotalValue.Add(o.TotalValue)
		if o.ShipmentStatus.IsOpen() {
			s.OpenShipmentCount++
		}
		if o.QualityFlag != domain.QualityOK {
			s.OpenIssuesCount++
		}
		if o.OrderDate != nil {
			dated = append(dated, *o.OrderDate)
		}
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalValue.Div(decimal.NewFromInt(int64(s.TotalOrders)))
	}

	slices.SortFunc(dated, func(a, b time.Time) int { return a.Compare(b) })
	if len(dated) > 0 {
		last := dated[len(dated)-1]
		days := daysBetween(last, now)
		s.LastOrderDate = &last
		s.DaysSinceLastOrder = &days
	}
	if len(dated) >= 2 {
		gaps := 0
		for i := 1; i < len(dated); i++ {
			gaps += daysBetween(dated[i-1], dated[i])
		}
		avg := float64(gaps) / float64(len(dated)-1)
		s.AverageDaysBetweenOrders = &avg

		span := daysBetween(dated[0], dated[len(dated)-1])
		if span > 0 && s.TotalOrders >= 2 {
			freq := float64(s.TotalOrders) / (float64(span) / quarterDays)
			s.OrderFrequencyPerQuarter = &freq
		}
	}

	for _, inv := range invoices {
		if inv.Status.IsOutstanding() {
			s.OutstandingInvoiceValue = s.OutstandingInvoiceValue.Add(inv.Amount)
			s.OutstandingInvoiceCount++
		}
		if inv.Status == domain.InvoiceOverdue {
			s.OverdueInvoiceCount++
		}
	}

	s.RetentionRisk = ClassifyRetention(s.TotalOrders, s.DaysSinceLastOrder, s.AverageDaysBetweenOrders)
	return s
}

// ClassifyRetention applies the recency ladder: the first matching rung wins.
// A customer without any dated order has no recency signal and is high risk.
func ClassifyRetention(totalOrders int, daysSinceLastOrder *int, averageGap *float64) domain.RetentionRisk {
	if totalOrders == 0 || daysSinceLastOrder == nil {
		return domain.RetentionHigh
	}
	days := float64(*daysSinceLastOrder)

	if averageGap != nil {
		if days > highRiskGapMultiplier*(*averageGap) {
			return domain.RetentionHigh
		}
	} else if days > highRiskFallbackDays {
		return domain.RetentionHigh
	}

	if (averageGap != nil && days > mediumRiskGapMultiple*(*averageGap)) || days > mediumRiskFallbackDays {
		return domain.RetentionMedium
	}
	return domain.RetentionLow
}

// PerformanceByPeriod buckets dated orders into the trailing calendar months
// ending with the month of now. Empty months are kept so the series is continuous.
func PerformanceByPeriod(orders []domain.Order, now time.Time, months int) []domain.PeriodPerformance {
	if months <= 0 {
		months = defaultPeriodMonths
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]domain.PeriodPerformance, months)
	index := make(map[string]int, months)
	for i := range out {
		period := first.AddDate(0, i, 0)
		label := periodLabel(period)
		out[i] = domain.PeriodPerformance{Period: label, TotalValue: decimal.Zero, AverageValue: decimal.Zero}
		index[label] = i
	}

	for _, o := range orders {
		if o.OrderDate == nil || o.OrderDate.Before(first) || !o.OrderDate.Before(end) {
			continue
		}
		i := index[periodLabel(*o.OrderDate)]
		out[i].TotalValue = out[i].TotalValue.Add(o.TotalValue)
		out[i].OrderCount++
	}
	for i := range out {
		if out[i].OrderCount > 0 {
			out[i].AverageValue = out[i].TotalValue.Div(decimal.NewFromInt(int64(out[i].OrderCount)))
		}
	}
	return out
}

func periodLabel(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// RecentOrders returns up to limit orders, newest first, undated last.
func RecentOrders(orders []domain.Order, limit int) []domain.Order {
	out := slices.Clone(orders)
	if out == nil {
		out = []domain.Order{}
	}
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		return cmp.Or(compareDatesDesc(a.OrderDate, b.OrderDate), cmp.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecentInvoices returns up to limit invoices, most recently issued first.
func RecentInvoices(invoices []domain.Invoice, limit int) []domain.Invoice {
	out := slices.Clone(invoices)
	if out == nil {
		out = []domain.Invoice{}
	}
	slices.SortStableFunc(out, func(a, b domain.Invoice) int {
		return cmp.Or(compareDatesDesc(a.IssuedDate, b.IssuedDate), cmp.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// compareDatesDesc sorts known dates newest first and unknown dates last.
func compareDatesDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}
