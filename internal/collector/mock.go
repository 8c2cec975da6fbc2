package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/guregu/null/v6"

	"github.com/volaengine/vola/internal/model"
)

// MockClient returns deterministic canned data for development and demos.
// The same symbol always yields the same snapshot.
type MockClient struct {
	StockErr     error
	SentimentErr error
	Now          func() time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{Now: time.Now}
}

func (m *MockClient) Name() string { return "mock" }

var mockSentiments = []model.SentimentSnapshot{
	{
		OverallSentiment: "Positive",
		SentimentScore:   null.FloatFrom(0.75),
		KeyPhrases:       []string{"strong performance", "growth potential", "market leader"},
		RiskIndicators:   []string{},
	},
	{
		OverallSentiment: "Neutral",
		SentimentScore:   null.FloatFrom(0.50),
		KeyPhrases:       []string{"stable performance", "market average", "steady growth"},
		RiskIndicators:   []string{"moderate volatility"},
	},
	{
		OverallSentiment: "Negative",
		SentimentScore:   null.FloatFrom(0.25),
		KeyPhrases:       []string{"declining performance", "market concerns", "volatility"},
		RiskIndicators:   []string{"high volatility", "earnings risk"},
	},
}

func (m *MockClient) FetchStock(ctx context.Context, symbol string) (*model.StockSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.StockErr != nil {
		return nil, m.StockErr
	}
	h := symbolHash(symbol)
	now := m.now()

	price := 50 + float64(h%45000)/100
	changePct := (float64(h%1000) - 500) / 100
	change := round2(price * changePct / 100)
	volatility := round2(15 + float64(h%2000)/100)
	volume := float64(1_000_000 + h%90_000_000)

	quarter := (int(now.Month())-1)/3 + 1
	nextQuarter := quarter%4 + 1
	year := now.Year()
	if nextQuarter == 1 {
		year++
	}

	return &model.StockSnapshot{
		Ticker:             symbol,
		CurrentPrice:       null.FloatFrom(round2(price)),
		PriceChange:        null.FloatFrom(change),
		PriceChangePercent: null.FloatFrom(round2(changePct)),
		MarketCap:          null.FloatFrom(price * float64(100_000_000+h%3_000_000_000)),
		Volume:             null.FloatFrom(volume),
		AvgVolume:          null.FloatFrom(math.Round(volume * 1.08)),
		High:               null.FloatFrom(round2(price * 1.012)),
		Low:                null.FloatFrom(round2(price * 0.988)),
		Open:               null.FloatFrom(round2(price - change)),
		Volatility30d:      null.FloatFrom(volatility),
		VolatilityRating:   volatilityRating(volatility),
		NextEarnings:       fmt.Sprintf("Q%d %d", nextQuarter, year),
		EarningsDate:       now.AddDate(0, 0, 90).Format("2006-01-02"),
		DataSource:         "mock",
		Timestamp:          now.Format(time.RFC3339),
		Success:            null.BoolFrom(true),
	}, nil
}

func (m *MockClient) FetchSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SentimentErr != nil {
		return nil, m.SentimentErr
	}
	s := mockSentiments[symbolHash(symbol)%uint32(len(mockSentiments))]
	s.Ticker = symbol
	s.Timestamp = m.now().Format(time.RFC3339)
	s.Success = null.BoolFrom(true)
	return &s, nil
}

func (m *MockClient) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// volatilityRating mirrors the backend's rating bands for annualized volatility.
func volatilityRating(pct float64) string {
	switch {
	case pct < 15:
		return "Low"
	case pct < 25:
		return "Medium"
	case pct < 35:
		return "High"
	default:
		return "Very High"
	}
}

func symbolHash(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
