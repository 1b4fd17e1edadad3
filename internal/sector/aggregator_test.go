package sector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t2dlabs/pulse/internal/contracts"
)

var testDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func TestAggregate(t *testing.T) {
	sectors := []contracts.Sector{
		{Name: "Cloud", Members: []string{"AAA", "BBB"}},
		{Name: "AdTech", Members: []string{"CCC"}},
	}
	resolved := map[string]contracts.Quote{
		"AAA": {MarketCap: 100},
		"BBB": {MarketCap: 250},
		"CCC": {MarketCap: 40},
	}

	result := Aggregate(sectors, resolved, testDate)
	require.Len(t, result.Observations, 2)

	// Ordered by sector name.
	assert.Equal(t, "AdTech", result.Observations[0].Sector)
	assert.InDelta(t, 40, result.Observations[0].MarketCap, 1e-9)
	assert.Equal(t, "Cloud", result.Observations[1].Sector)
	assert.InDelta(t, 350, result.Observations[1].MarketCap, 1e-9)
	assert.Empty(t, result.Missing)
}

func TestAggregateSharedMemberCountsInBothSectors(t *testing.T) {
	sectors := []contracts.Sector{
		{Name: "A", Members: []string{"XXX", "YYY"}},
		{Name: "B", Members: []string{"YYY"}},
	}
	resolved := map[string]contracts.Quote{
		"XXX": {MarketCap: 5},
		"YYY": {MarketCap: 10},
	}

	result := Aggregate(sectors, resolved, testDate)
	require.Len(t, result.Observations, 2)
	assert.InDelta(t, 15, result.Observations[0].MarketCap, 1e-9)
	assert.InDelta(t, 10, result.Observations[1].MarketCap, 1e-9)
}

func TestAggregateMissingMembers(t *testing.T) {
	sectors := []contracts.Sector{
		{Name: "Fintech", Members: []string{"AAA", "GONE", "ALSO_GONE"}},
	}
	resolved := map[string]contracts.Quote{
		"AAA": {MarketCap: 100},
	}

	result := Aggregate(sectors, resolved, testDate)
	require.Len(t, result.Observations, 1)
	assert.InDelta(t, 100, result.Observations[0].MarketCap, 1e-9)
	assert.Equal(t, []string{"GONE", "ALSO_GONE"}, result.Missing["Fintech"])
}

func TestAggregateEmptyResolution(t *testing.T) {
	sectors := []contracts.Sector{
		{Name: "Semis", Members: []string{"AAA"}},
	}

	result := Aggregate(sectors, nil, testDate)
	require.Len(t, result.Observations, 1)
	assert.Zero(t, result.Observations[0].MarketCap)
	assert.Nil(t, result.Observations[0].Sentiment)
}
