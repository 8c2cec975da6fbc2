// Package view renders DashboardState for the terminal: a plain report used
// by -once mode and the interactive bubbletea model built on top of it.
package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/volaengine/vola/internal/chart"
	"github.com/volaengine/vola/internal/formatter"
	"github.com/volaengine/vola/internal/model"
	"github.com/volaengine/vola/internal/summary"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	loadingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("14"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	grayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const barWidth = 30

// now is swapped in tests.
var now = time.Now

func bandStyle(b formatter.Band) lipgloss.Style {
	switch b {
	case formatter.BandHigh:
		return redStyle
	case formatter.BandModerate:
		return yellowStyle
	default:
		return greenStyle
	}
}

func deltaStyle(s formatter.Sign) lipgloss.Style {
	switch s {
	case formatter.SignPositive:
		return greenStyle
	case formatter.SignNegative:
		return redStyle
	default:
		return grayStyle
	}
}

func sentimentStyle(s formatter.Sign) lipgloss.Style {
	switch s {
	case formatter.SignPositive:
		return greenStyle
	case formatter.SignNegative:
		return redStyle
	default:
		return yellowStyle
	}
}

// RenderReport formats the full dashboard for one state.
func RenderReport(st model.DashboardState) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VOLA Market Analytics"))
	b.WriteString("\n\n")

	if st.Loading {
		b.WriteString(loadingStyle.Render(fmt.Sprintf("Analyzing %s...", st.Symbol)))
		b.WriteString("\n\n")
	}
	if st.HasError() {
		b.WriteString(errorStyle.Render("Error: " + st.Error))
		b.WriteString("\n\n")
	}
	if st.Stock == nil {
		if !st.Loading && !st.HasError() {
			b.WriteString(labelStyle.Render("Enter a ticker symbol to begin."))
			b.WriteString("\n")
		}
		return b.String()
	}

	writeStock(&b, st.Stock)
	if st.Sentiment != nil {
		writeSentiment(&b, st.Sentiment)
	}
	writeFooter(&b, st.Stock)
	return b.String()
}

func writeStock(b *strings.Builder, s *model.StockSnapshot) {
	header := sectionStyle.Render(strings.ToUpper(s.Ticker))
	if s.DataSource != "" {
		header += labelStyle.Render("  source: " + s.DataSource)
	}
	b.WriteString(header + "\n")

	delta, _ := formatter.Value(s.PriceChange)
	change := fmt.Sprintf("%s (%s)",
		formatter.FormatSignedDelta(s.PriceChange),
		formatter.FormatSignedPercent(s.PriceChangePercent))
	fmt.Fprintf(b, "%s %s  %s\n",
		label("Price"), formatter.FormatPrice(s.CurrentPrice),
		deltaStyle(formatter.PriceChangeSign(delta)).Render(change))
	fmt.Fprintf(b, "%s H %s  L %s  O %s\n",
		label("Day Range"),
		formatter.FormatPrice(s.High), formatter.FormatPrice(s.Low), formatter.FormatPrice(s.Open))
	fmt.Fprintf(b, "%s %s\n\n", label("Volume"), formatter.FormatMagnitudeOrNA(s.Volume))

	// Metric cards.
	vol, _ := formatter.Value(s.Volatility30d)
	band := formatter.VolatilityBand(vol)
	volText := formatter.FormatVolatility(s.Volatility30d)
	if _, ok := formatter.Value(s.Volatility30d); ok {
		volText += " [" + band.String() + "]"
	}
	fmt.Fprintf(b, "%s %s", label("Volatility"), bandStyle(band).Render(volText))
	if s.VolatilityRating != "" {
		fmt.Fprintf(b, "  %s", labelStyle.Render("rating: "+s.VolatilityRating))
	}
	b.WriteString("\n")

	earnings := orNA(s.NextEarnings)
	if s.EarningsDate != "" && s.EarningsDate != formatter.NotAvailable {
		earnings += " (" + s.EarningsDate + ")"
	}
	fmt.Fprintf(b, "%s %s\n", label("Next Earnings"), earnings)
	fmt.Fprintf(b, "%s %s\n", label("Market Cap"), formatter.FormatMagnitudeOrNA(s.MarketCap))
	fmt.Fprintf(b, "%s %s\n\n", label("Avg Volume"), formatter.FormatMagnitudeOrNA(s.AvgVolume))

	b.WriteString(sectionStyle.Render("Analysis Summary") + "\n")
	b.WriteString(summary.Compose(s) + "\n\n")

	if series := chart.SeriesFor(s.Volatility30d); series != nil {
		b.WriteString(sectionStyle.Render("Volatility Comparison") + "\n")
		writeBars(b, series)
		b.WriteString("\n")
	}
}

func writeBars(b *strings.Builder, series []model.SeriesPoint) {
	top := 0.0
	for _, p := range series {
		top = math.Max(top, p.Volatility)
	}
	for _, p := range series {
		n := 0
		if top > 0 {
			n = int(math.Round(p.Volatility / top * barWidth))
		}
		fmt.Fprintf(b, "  %-8s %s %.1f%%\n", p.Period, barStyle.Render(strings.Repeat("█", n)), p.Volatility)
	}
}

func writeSentiment(b *strings.Builder, s *model.SentimentSnapshot) {
	b.WriteString(sectionStyle.Render("Sentiment Analysis") + "\n")
	overall := orNA(s.OverallSentiment)
	fmt.Fprintf(b, "%s %s  Score: %s\n",
		label("Overall"),
		sentimentStyle(formatter.SentimentPolarity(s.OverallSentiment)).Render(overall),
		formatter.FormatScore(s.SentimentScore))
	if len(s.KeyPhrases) > 0 {
		fmt.Fprintf(b, "%s %s\n", label("Key Phrases"), strings.Join(s.KeyPhrases, ", "))
	}
	if len(s.RiskIndicators) > 0 {
		b.WriteString(label("Risk Indicators") + "\n")
		for _, r := range s.RiskIndicators {
			b.WriteString("  " + yellowStyle.Render("Warning: "+r) + "\n")
		}
	}
	b.WriteString("\n")
}

func writeFooter(b *strings.Builder, s *model.StockSnapshot) {
	if s.Timestamp == "" {
		return
	}
	b.WriteString(labelStyle.Render("Last updated " + humanTime(s.Timestamp)))
	b.WriteString("\n")
}

// humanTime renders an RFC 3339 timestamp as relative time. Unparseable
// values are shown verbatim.
func humanTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", ts)
		if err != nil {
			return ts
		}
	}
	return humanize.RelTime(t, now(), "ago", "from now")
}

func label(s string) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", s+":"))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return formatter.NotAvailable
	}
	return s
}
