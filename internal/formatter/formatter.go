// Package formatter turns raw snapshot numbers into display strings and
// color classifications.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

// NotAvailable is rendered for absent numeric fields.
const NotAvailable = "N/A"

// Band is a volatility severity.
type Band int

const (
	BandLow Band = iota
	BandModerate
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandHigh:
		return "High"
	case BandModerate:
		return "Moderate"
	default:
		return "Low"
	}
}

// Adjective is the lowercase word used inside narrative text.
func (b Band) Adjective() string { return strings.ToLower(b.String()) }

// Sign classifies a delta or a sentiment label.
type Sign int

const (
	SignNeutral Sign = iota
	SignPositive
	SignNegative
)

func (s Sign) String() string {
	switch s {
	case SignPositive:
		return "Positive"
	case SignNegative:
		return "Negative"
	default:
		return "Neutral"
	}
}

var magnitudeUnits = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatMagnitude scales n by powers of 1000 with one decimal and a unit
// suffix. Values below 1000 are returned as-is. The sign is kept apart from
// unit selection, so -1500 becomes "-1.5K".
func FormatMagnitude(n float64) string {
	if !finite(n) {
		return NotAvailable
	}
	if n == 0 {
		return "0"
	}
	sign, abs := "", n
	if n < 0 {
		sign, abs = "-", -n
	}
	for _, u := range magnitudeUnits {
		if abs >= u.threshold {
			return sign + strconv.FormatFloat(abs/u.threshold, 'f', 1, 64) + u.suffix
		}
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// FormatMagnitudeOrNA is FormatMagnitude for a nullable field.
func FormatMagnitudeOrNA(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return FormatMagnitude(f)
}

// VolatilityBand is the display (color) classification:
// above 30 high, above 20 moderate, otherwise low.
func VolatilityBand(v float64) Band {
	switch {
	case v > 30:
		return BandHigh
	case v > 20:
		return BandModerate
	default:
		return BandLow
	}
}

// NarrativeVolatility is the classification used in the analysis summary.
// Its cut points (25 and 15) differ from VolatilityBand on purpose; the two
// tables drive different text and must not be merged.
func NarrativeVolatility(v float64) Band {
	switch {
	case v > 25:
		return BandHigh
	case v > 15:
		return BandModerate
	default:
		return BandLow
	}
}

// PriceChangeSign drives the delta color and the leading "+".
func PriceChangeSign(delta float64) Sign {
	switch {
	case delta > 0:
		return SignPositive
	case delta < 0:
		return SignNegative
	default:
		return SignNeutral
	}
}

// SentimentPolarity matches "positive" before "negative". The match is case
// sensitive, so a label of "Positive" is Neutral.
func SentimentPolarity(label string) Sign {
	switch {
	case strings.Contains(label, "positive"):
		return SignPositive
	case strings.Contains(label, "negative"):
		return SignNegative
	default:
		return SignNeutral
	}
}

// FormatPrice renders "$123.45" or N/A.
func FormatPrice(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("$%.2f", f)
}

// FormatSignedDelta renders a two-decimal delta with "+" for gains.
func FormatSignedDelta(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return signPrefix(f) + strconv.FormatFloat(f, 'f', 2, 64)
}

// FormatSignedPercent renders "+1.23%" or N/A.
func FormatSignedPercent(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return signPrefix(f) + strconv.FormatFloat(f, 'f', 2, 64) + "%"
}

// FormatVolatility renders a one-decimal percentage, e.g. "23.4%".
func FormatVolatility(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

// FormatScore renders a sentiment score with two decimals.
func FormatScore(v null.Float) string {
	f, ok := Value(v)
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Value unwraps a nullable number. NaN and infinities count as absent.
func Value(v null.Float) (float64, bool) {
	if !v.Valid || !finite(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}

func signPrefix(f float64) string {
	if PriceChangeSign(f) == SignPositive {
		return "+"
	}
	return ""
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
