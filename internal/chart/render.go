package chart

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/volaengine/vola/internal/model"
)

// RenderVolatilityChart renders the series as a PNG bar chart.
// Returns raw PNG bytes.
func RenderVolatilityChart(series []model.SeriesPoint) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series points to render")
	}

	bars := make([]gochart.Value, len(series))
	for i, p := range series {
		bars[i] = gochart.Value{
			Label: p.Period,
			Value: p.Volatility,
			Style: gochart.Style{
				FillColor:   drawing.ColorFromHex("8B5CF6"), // violet-500
				StrokeColor: drawing.ColorFromHex("8B5CF6"),
				StrokeWidth: 0,
			},
		}
	}

	graph := gochart.BarChart{
		Title:  "Volatility Comparison",
		Width:  640,
		Height: 400,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: 80,
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteVolatilityChart renders the series to <dir>/<TICKER>_volatility.png
// and returns the written path.
func WriteVolatilityChart(dir, ticker string, series []model.SeriesPoint) (string, error) {
	png, err := RenderVolatilityChart(series)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	name := strings.ToUpper(filepath.Base(ticker)) + "_volatility.png"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}
