package cli

import (
	"math"
	"testing"

	"github.com/fatih/color"
)

func init() {
	// Keep assertions free of ANSI escapes.
	color.NoColor = true
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1234567.89, "$1,234,567.89"},
		{-50000, "-$50,000.00"},
		{999.999, "$1,000.00"},
		{0.004, "$0.00"},
	}

	for _, tt := range tests {
		if got := FormatCurrency(tt.amount); got != tt.expected {
			t.Errorf("FormatCurrency(%f) = %q, want %q", tt.amount, got, tt.expected)
		}
	}
}

func TestFormatPnL(t *testing.T) {
	if got := FormatPnL(250); got != "+$250.00" {
		t.Errorf("positive pnl = %q", got)
	}
	if got := FormatPnL(-250); got != "-$250.00" {
		t.Errorf("negative pnl = %q", got)
	}
	if got := FormatPnL(0); got != "$0.00" {
		t.Errorf("flat pnl = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(12.345); got != "+12.35%" {
		t.Errorf("got %q", got)
	}
	if got := FormatPercent(-3.2); got != "-3.20%" {
		t.Errorf("got %q", got)
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(math.Inf(1)); got != "inf" {
		t.Errorf("got %q", got)
	}
	if got := FormatRatio(math.NaN()); got != "n/a" {
		t.Errorf("got %q", got)
	}
	if got := FormatRatio(1.234); got != "1.23" {
		t.Errorf("got %q", got)
	}
}
