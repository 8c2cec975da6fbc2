package model

import (
	"strings"

	"github.com/guregu/null/v6"
)

// StockSnapshot is the payload of the primary analytics endpoint.
// Numeric fields are nullable: a JSON null or a missing key decodes as absent.
type StockSnapshot struct {
	Ticker             string     `json:"ticker"`
	CurrentPrice       null.Float `json:"current_price"`
	PriceChange        null.Float `json:"price_change"`
	PriceChangePercent null.Float `json:"price_change_percent"`
	MarketCap          null.Float `json:"market_cap"`
	Volume             null.Float `json:"volume"`
	AvgVolume          null.Float `json:"avg_volume"`
	High               null.Float `json:"high"`
	Low                null.Float `json:"low"`
	Open               null.Float `json:"open"`
	Volatility30d      null.Float `json:"volatility_30d"`
	VolatilityRating   string     `json:"volatility_rating"`
	NextEarnings       string     `json:"next_earnings"`
	EarningsDate       string     `json:"earnings_date"`
	DataSource         string     `json:"data_source"`
	Timestamp          string     `json:"timestamp"`
	Success            null.Bool  `json:"success"`
	Error              string     `json:"error,omitempty"`
}

// Failed reports whether the payload carries an explicit success=false.
// An absent success field counts as success.
func (s *StockSnapshot) Failed() bool {
	return s.Success.Valid && !s.Success.Bool
}

// Normalize uppercases the ticker and, for failed payloads, drops every
// numeric field so nothing downstream can render the transport's zeros.
func (s *StockSnapshot) Normalize() {
	s.Ticker = strings.ToUpper(strings.TrimSpace(s.Ticker))
	if !s.Failed() {
		return
	}
	for _, f := range []*null.Float{
		&s.CurrentPrice, &s.PriceChange, &s.PriceChangePercent,
		&s.MarketCap, &s.Volume, &s.AvgVolume,
		&s.High, &s.Low, &s.Open, &s.Volatility30d,
	} {
		*f = null.Float{}
	}
}
