package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm-analytics/domain"
)

func TestRankSpecies(t *testing.T) {
	n := Normalize(domain.CustomerHistory{Orders: []domain.OrderRecord{
		order("o1", daysAgo(5), "Penaeus monodon", "100", "250"),
		order("o2", daysAgo(4), "Litopenaeus vannamei", "200", "400"),
		order("o3", daysAgo(3), "Penaeus monodon", "50", "150"),
		order("o4", daysAgo(2), "Macrobrachium rosenbergii", "10", "90"),
	}})

	ranked := RankSpecies(n.Orders)

	require.Len(t, ranked, 3)
	assert.Equal(t, "Litopenaeus vannamei", ranked[0].Species)
	assert.Equal(t, "Penaeus monodon", ranked[1].Species)
	assert.Equal(t, 2, ranked[1].OrderCount)
	assert.Equal(t, int64(150), ranked[1].TotalQuantity)
	assert.True(t, decimal.NewFromInt(400).Equal(ranked[1].TotalValue))
	assert.Equal(t, "Macrobrachium rosenbergii", ranked[2].Species)
}

func TestRankSpeciesTiesAreAlphabetical(t *testing.T) {
	n := Normalize(domain.CustomerHistory{Orders: []domain.OrderRecord{
		order("o1", daysAgo(5), "Tilapia", "1", "100.0"),
		order("o2", daysAgo(4), "Barramundi", "1", "100"),
		order("o3", daysAgo(3), "tilapia", "1", "100"),
	}})

	ranked := RankSpecies(n.Orders)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"Barramundi", "Tilapia", "tilapia"},
		[]string{ranked[0].Species, ranked[1].Species, ranked[2].Species})
}

func TestRankSpeciesEmpty(t *testing.T) {
	ranked := RankSpecies(nil)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}
