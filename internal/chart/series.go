package chart

import (
	"github.com/guregu/null/v6"

	"github.com/volaengine/vola/internal/formatter"
	"github.com/volaengine/vola/internal/model"
)

// BuildVolatilitySeries projects a 30-day volatility into the three bars of
// the comparison chart. The 3 and 6 month values are fixed multiples of the
// current value: the series is illustrative, not a forecast or history.
func BuildVolatilitySeries(v30d float64) []model.SeriesPoint {
	return []model.SeriesPoint{
		{Period: "Current", Volatility: v30d},
		{Period: "3 Month", Volatility: v30d * 0.9},
		{Period: "6 Month", Volatility: v30d * 1.1},
	}
}

// SeriesFor returns nil when the volatility is absent.
func SeriesFor(v null.Float) []model.SeriesPoint {
	f, ok := formatter.Value(v)
	if !ok {
		return nil
	}
	return BuildVolatilitySeries(f)
}
