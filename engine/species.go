package engine

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fastygo/crm-analytics/domain"
)

// RankSpecies groups orders by exact species name and ranks the groups by total
// value, breaking ties alphabetically. The full ranking is returned.
func RankSpecies(orders []domain.Order) []domain.SpeciesStat {
	groups := make(map[string]*domain.SpeciesStat)
	for _, o := range orders {
		stat, ok := groups[o.Species]
		if !ok {
			stat = &domain.SpeciesStat{Species: o.Species, TotalValue: decimal.Zero}
			groups[o.Species] = stat
		}
		stat.OrderCount++
		stat.TotalQuantity += o.Quantity
		stat.TotalValue = stat.TotalValue.Add(o.TotalValue)
	}

	out := make([]domain.SpeciesStat, 0, len(groups))
	for _, stat := range groups {
		out = append(out, *stat)
	}
	slices.SortFunc(out, func(a, b domain.SpeciesStat) int {
		if c := b.TotalValue.Cmp(a.TotalValue); c != 0 {
			return c
		}
		return strings.Compare(a.Species, b.Species)
	})
	return out
}
