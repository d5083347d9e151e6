// Package consensus reconciles numeric disagreement across per-source
// insights into a single median-based estimate.
package consensus

import (
	"math"
	"sort"

	"github.com/insightforge/market-intel/internal/model"
)

// Fixed inconsistency thresholds: relative deviation above which market
// size estimates are flagged, and the percentage-point CAGR spread flagged
// when at least minCAGRSamples values are present.
const (
	maxRelativeDeviation = 0.3
	maxCAGRSpread        = 8.0
	minCAGRSamples       = 3
)

// Consolidate computes the median consensus over all non-nil insight
// values. Consensus fields are nil only when no insight supplied a value.
func Consolidate(insights []model.Insight) model.Consensus {
	var marketSizes, cagrs []float64
	for _, ins := range insights {
		if ins.MarketSizeUSDBillion != nil {
			marketSizes = append(marketSizes, *ins.MarketSizeUSDBillion)
		}
		if ins.CAGRPercent != nil {
			cagrs = append(cagrs, *ins.CAGRPercent)
		}
	}

	out := model.Consensus{Inconsistencies: []string{}}

	if len(marketSizes) > 0 {
		out.MarketSizeUSDBillion = model.Float(round2(median(marketSizes)))
	}
	if len(cagrs) > 0 {
		out.CAGRPercent = model.Float(round2(median(cagrs)))
	}

	if out.MarketSizeUSDBillion != nil && *out.MarketSizeUSDBillion != 0 {
		consensusSize := *out.MarketSizeUSDBillion
		maxDev := 0.0
		for _, v := range marketSizes {
			dev := math.Abs(v-consensusSize) / consensusSize
			if dev > maxDev {
				maxDev = dev
			}
		}
		if maxDev > maxRelativeDeviation {
			out.Inconsistencies = append(out.Inconsistencies,
				"High variance in market size estimates across sources")
		}
	}

	if len(cagrs) >= minCAGRSamples {
		lo, hi := cagrs[0], cagrs[0]
		for _, v := range cagrs[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > maxCAGRSpread {
			out.Inconsistencies = append(out.Inconsistencies,
				"Wide CAGR spread detected across sources")
		}
	}

	return out
}

// median returns the statistical median without mutating its input.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
