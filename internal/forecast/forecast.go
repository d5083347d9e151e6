// Package forecast projects a consensus market size forward as a
// deterministic compound-growth table.
package forecast

import (
	"math"
	"time"

	"github.com/insightforge/market-intel/internal/model"
)

// Defaults used when the consensus could not supply a value. A defaulted
// input marks the whole forecast as estimated.
const (
	DefaultBaseValue = 50.0
	DefaultCAGR      = 7.5
)

// Project builds a years+1 row table from the base year (current calendar
// year) through the horizon, compounding at cagr. Nil inputs take the
// defaults and set Estimated.
func Project(marketSize, cagrPercent *float64, years int) model.Forecast {
	estimated := false

	baseValue := DefaultBaseValue
	if marketSize != nil {
		baseValue = *marketSize
	} else {
		estimated = true
	}

	cagr := DefaultCAGR
	if cagrPercent != nil {
		cagr = *cagrPercent
	} else {
		estimated = true
	}

	baseYear := time.Now().UTC().Year()
	table := make([]model.ForecastRow, 0, years+1)
	for offset := 0; offset <= years; offset++ {
		value := baseValue * math.Pow(1+cagr/100, float64(offset))
		table = append(table, model.ForecastRow{
			Year:                 baseYear + offset,
			MarketSizeUSDBillion: round2(value),
		})
	}

	return model.Forecast{
		BaseYear:    baseYear,
		BaseValue:   round2(baseValue),
		CAGRPercent: round2(cagr),
		Years:       years,
		Table:       table,
		Estimated:   estimated,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
