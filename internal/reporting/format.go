package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// formatNum rounds v to places decimals. NaN and infinities are spelled out.
func formatNum(v float64, places int32) string {
	if s, ok := nonFinite(v); ok {
		return s
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// formatPct renders a fraction as a percentage with two decimals.
func formatPct(v float64) string {
	if s, ok := nonFinite(v); ok {
		return s
	}
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "+Inf", true
	case math.IsInf(v, -1):
		return "-Inf", true
	}
	return "", false
}

// formatTime renders epoch seconds as RFC3339 UTC. NaN renders as empty.
func formatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return ""
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC().Format(time.RFC3339)
}

// formatDate renders days since epoch as YYYY-MM-DD.
func formatDate(days int64) string {
	return time.Unix(days*86400, 0).UTC().Format(time.DateOnly)
}
