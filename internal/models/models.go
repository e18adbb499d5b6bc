// Package models provides domain models for the pattern detection and
// backtesting engine.
package models

import (
	"time"
)

// Side represents the direction of a trade or signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Bar represents OHLCV data for a single time period. Bars are the atomic
// analysis unit; callers supply them ordered by strictly increasing timestamp.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// Body returns the absolute size of the bar's body.
func (b Bar) Body() float64 {
	body := b.Close - b.Open
	if body < 0 {
		body = -body
	}
	return body
}

// Range returns the high-low range of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// PivotKind distinguishes pivot highs from pivot lows.
type PivotKind string

const (
	PivotHigh PivotKind = "HIGH"
	PivotLow  PivotKind = "LOW"
)

// Pivot is a windowed local extremum in a price or indicator series.
type Pivot struct {
	Index int
	Value float64
	Kind  PivotKind
}

// Closes extracts close prices from a bar series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices from a bar series.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices from a bar series.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// MeanVolume returns the arithmetic mean volume of a bar series.
func MeanVolume(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var total int64
	for _, b := range bars {
		total += b.Volume
	}
	return float64(total) / float64(len(bars))
}
