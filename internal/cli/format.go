package cli

import (
	"fmt"
	"math"

	"github.com/fatih/color"
)

// FormatCurrency formats a dollar amount with thousands separators.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	cents := int64(math.Round((amount - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	grouped := groupThousands(whole)
	result := fmt.Sprintf("$%s.%02d", grouped, cents)
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out string
	for len(s) > 3 {
		out = "," + s[len(s)-3:] + out
		s = s[:len(s)-3]
	}
	return s + out
}

// FormatPnL formats P&L with sign and red/green coloring.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	switch {
	case pnl > 0:
		return color.GreenString("+" + formatted)
	case pnl < 0:
		return color.RedString(formatted)
	default:
		return formatted
	}
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatRatio renders a float metric, collapsing non-finite values.
func FormatRatio(value float64) string {
	if math.IsInf(value, 1) {
		return "inf"
	}
	if math.IsInf(value, -1) || math.IsNaN(value) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", value)
}

// BiasString colors a directional bias label.
func BiasString(bias string) string {
	switch bias {
	case "BULLISH", "STRONG_BULLISH":
		return color.GreenString(bias)
	case "BEARISH", "STRONG_BEARISH":
		return color.RedString(bias)
	default:
		return color.YellowString(bias)
	}
}
