package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/market-intel/internal/model"
)

func TestConsolidateMedianOddCount(t *testing.T) {
	insights := []model.Insight{
		{MarketSizeUSDBillion: model.Float(100), CAGRPercent: model.Float(8)},
		{MarketSizeUSDBillion: model.Float(110), CAGRPercent: model.Float(9)},
		{MarketSizeUSDBillion: model.Float(90), CAGRPercent: model.Float(7)},
	}

	out := Consolidate(insights)

	require.NotNil(t, out.MarketSizeUSDBillion)
	require.NotNil(t, out.CAGRPercent)
	assert.Equal(t, 100.0, *out.MarketSizeUSDBillion)
	assert.Equal(t, 8.0, *out.CAGRPercent)
	assert.Empty(t, out.Inconsistencies)
}

func TestConsolidateMedianEvenCount(t *testing.T) {
	insights := []model.Insight{
		{MarketSizeUSDBillion: model.Float(100)},
		{MarketSizeUSDBillion: model.Float(110)},
	}

	out := Consolidate(insights)

	require.NotNil(t, out.MarketSizeUSDBillion)
	assert.Equal(t, 105.0, *out.MarketSizeUSDBillion)
	assert.Nil(t, out.CAGRPercent)
}

func TestConsolidateAllNil(t *testing.T) {
	insights := []model.Insight{
		{Drivers: []string{"cloud adoption"}},
		{Trends: []string{"consolidation"}},
	}

	out := Consolidate(insights)

	assert.Nil(t, out.MarketSizeUSDBillion)
	assert.Nil(t, out.CAGRPercent)
	assert.NotNil(t, out.Inconsistencies)
	assert.Empty(t, out.Inconsistencies)
}

func TestConsolidateEmptyInput(t *testing.T) {
	out := Consolidate(nil)

	assert.Nil(t, out.MarketSizeUSDBillion)
	assert.Nil(t, out.CAGRPercent)
	assert.Empty(t, out.Inconsistencies)
}

func TestConsolidateFlagsHighMarketSizeVariance(t *testing.T) {
	// Median 100, outlier 150 deviates 50% > 30% threshold.
	insights := []model.Insight{
		{MarketSizeUSDBillion: model.Float(95)},
		{MarketSizeUSDBillion: model.Float(100)},
		{MarketSizeUSDBillion: model.Float(150)},
	}

	out := Consolidate(insights)

	assert.Contains(t, out.Inconsistencies,
		"High variance in market size estimates across sources")
}

func TestConsolidateNoVarianceFlagWithinThreshold(t *testing.T) {
	insights := []model.Insight{
		{MarketSizeUSDBillion: model.Float(90)},
		{MarketSizeUSDBillion: model.Float(100)},
		{MarketSizeUSDBillion: model.Float(110)},
	}

	out := Consolidate(insights)
	assert.Empty(t, out.Inconsistencies)
}

func TestConsolidateFlagsWideCAGRSpread(t *testing.T) {
	insights := []model.Insight{
		{CAGRPercent: model.Float(4)},
		{CAGRPercent: model.Float(8)},
		{CAGRPercent: model.Float(14)},
	}

	out := Consolidate(insights)

	assert.Contains(t, out.Inconsistencies,
		"Wide CAGR spread detected across sources")
}

func TestConsolidateCAGRSpreadNeedsThreeSamples(t *testing.T) {
	// Spread is 12pp but only two samples, so no flag.
	insights := []model.Insight{
		{CAGRPercent: model.Float(2)},
		{CAGRPercent: model.Float(14)},
	}

	out := Consolidate(insights)
	assert.Empty(t, out.Inconsistencies)
}

func TestConsolidateRounding(t *testing.T) {
	insights := []model.Insight{
		{MarketSizeUSDBillion: model.Float(100.123)},
		{MarketSizeUSDBillion: model.Float(100.129)},
	}

	out := Consolidate(insights)

	require.NotNil(t, out.MarketSizeUSDBillion)
	assert.Equal(t, 100.13, *out.MarketSizeUSDBillion)
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
