package summary

import (
	"fmt"
	"strings"

	"github.com/volaengine/vola/internal/formatter"
	"github.com/volaengine/vola/internal/model"
)

// Compose builds the analysis paragraph shown under the metrics grid.
// The volatility adjective uses the narrative thresholds, not the display
// bands. An absent volatility reads as "low" with an N/A figure.
func Compose(stock *model.StockSnapshot) string {
	if stock == nil {
		return ""
	}
	vol, _ := formatter.Value(stock.Volatility30d)

	var b strings.Builder
	fmt.Fprintf(&b, "%s is currently trading at %s with a %s volatility of %s.",
		strings.ToUpper(stock.Ticker),
		formatter.FormatPrice(stock.CurrentPrice),
		formatter.NarrativeVolatility(vol).Adjective(),
		formatter.FormatVolatility(stock.Volatility30d))
	fmt.Fprintf(&b, " The stock has a market cap of %s and average volume of %s shares.",
		formatter.FormatMagnitudeOrNA(stock.MarketCap),
		formatter.FormatMagnitudeOrNA(stock.AvgVolume))

	if next := strings.TrimSpace(stock.NextEarnings); next != "" && next != formatter.NotAvailable {
		fmt.Fprintf(&b, " Next earnings are expected %s.", next)
	}
	return b.String()
}
