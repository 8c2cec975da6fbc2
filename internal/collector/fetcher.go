package collector

import (
	"context"

	"github.com/volaengine/vola/internal/model"
)

// AnalyticsClient fetches the two snapshots behind a dashboard query.
// Implementations return the decoded payload as-is; interpreting
// success=false is left to the caller.
type AnalyticsClient interface {
	FetchStock(ctx context.Context, symbol string) (*model.StockSnapshot, error)
	FetchSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error)
	Name() string
}
