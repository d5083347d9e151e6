package compose

import "github.com/insightforge/market-intel/internal/model"

// topItems returns the most frequent values of one insight field across all
// insights, best-first, with ties broken by first-seen order. An empty
// aggregate yields a single no-signal placeholder.
func topItems(insights []model.Insight, field func(model.Insight) []string, limit int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, ins := range insights {
		for _, item := range field(ins) {
			if item == "" {
				continue
			}
			if _, ok := counts[item]; !ok {
				firstSeen[item] = order
				order++
			}
			counts[item]++
		}
	}

	if len(counts) == 0 {
		return []string{"No reliable signal available"}
	}

	items := make([]string, 0, len(counts))
	for item := range counts {
		items = append(items, item)
	}
	// Selection by (count desc, first-seen asc); the list is small.
	for i := 0; i < len(items); i++ {
		best := i
		for j := i + 1; j < len(items); j++ {
			ci, cj := counts[items[best]], counts[items[j]]
			if cj > ci || (cj == ci && firstSeen[items[j]] < firstSeen[items[best]]) {
				best = j
			}
		}
		items[i], items[best] = items[best], items[i]
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// avgConfidence averages confidence scores across insights, defaulting to
// 0.6 for a zero score and returning 0.6 for an empty set.
func avgConfidence(insights []model.Insight) float64 {
	if len(insights) == 0 {
		return 0.6
	}
	sum := 0.0
	for _, ins := range insights {
		conf := ins.ConfidenceScore
		if conf == 0 {
			conf = 0.6
		}
		sum += conf
	}
	return sum / float64(len(insights))
}

// historicalSeries discounts the consensus market size backward year by
// year at the consensus CAGR, producing a years-long back-series ending at
// baseYear. Pure deterministic math.
func historicalSeries(marketSize, cagr float64, baseYear, years int) []model.ForecastRow {
	out := make([]model.ForecastRow, 0, years+1)
	for offset := years; offset >= 0; offset-- {
		value := marketSize
		for i := 0; i < offset; i++ {
			value /= 1 + cagr/100
		}
		out = append(out, model.ForecastRow{
			Year:                 baseYear - offset,
			MarketSizeUSDBillion: round2(value),
		})
	}
	return out
}
