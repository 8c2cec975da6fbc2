package model

// DashboardState is everything the view needs for one query cycle.
// Stock and Sentiment are never mutated after they are stored, so copies of
// the state may share them.
type DashboardState struct {
	Symbol    string
	Stock     *StockSnapshot
	Sentiment *SentimentSnapshot
	Loading   bool
	Error     string // empty means no error
}

// HasError reports whether the primary fetch left a user-visible error.
func (d DashboardState) HasError() bool { return d.Error != "" }

// SeriesPoint is one bar of the volatility comparison chart.
type SeriesPoint struct {
	Period     string  `json:"period"`
	Volatility float64 `json:"volatility"`
}
