// Package ict provides ICT concept detectors: fair value gaps, order
// blocks, liquidity pools and market structure. Detected records are value
// types; lifecycle passes return updated copies instead of mutating shared
// state, so repeated analysis passes never alias each other.
package ict

import (
	"time"

	"ictrader/internal/models"
)

// FVGType distinguishes bullish from bearish gaps.
type FVGType string

const (
	FVGBullish FVGType = "BULLISH"
	FVGBearish FVGType = "BEARISH"
)

// FairValueGap is a 3-bar price imbalance. Upper > Lower always holds and
// Size is exactly Upper - Lower. Gaps are never deleted, only marked filled.
type FairValueGap struct {
	Type           FVGType
	Upper          float64
	Lower          float64
	Size           float64
	Index          int // bar index the gap was confirmed at
	CreatedAt      time.Time
	Filled         bool
	FillPercentage float64 // 0-100, best overlap seen so far
	FilledAt       time.Time
}

// fillThreshold is the fill percentage at which a gap counts as filled.
const fillThreshold = 50.0

// FVGDetector finds and tracks fair value gaps.
type FVGDetector struct {
	minGapSize float64
}

// NewFVGDetector creates a detector that ignores gaps smaller than
// minGapSize points.
func NewFVGDetector(minGapSize float64) *FVGDetector {
	return &FVGDetector{minGapSize: minGapSize}
}

// Detect scans a bar series for 3-bar imbalances. A bullish gap exists at
// index i when bar[i-2].High < bar[i].Low by at least the minimum gap size;
// bearish is the mirror.
func (d *FVGDetector) Detect(bars []models.Bar) []FairValueGap {
	if len(bars) < 3 {
		return nil
	}

	var gaps []FairValueGap
	for i := 2; i < len(bars); i++ {
		if gap := bars[i].Low - bars[i-2].High; gap >= d.minGapSize {
			gaps = append(gaps, FairValueGap{
				Type:      FVGBullish,
				Upper:     bars[i].Low,
				Lower:     bars[i-2].High,
				Size:      gap,
				Index:     i,
				CreatedAt: bars[i].Timestamp,
			})
		}
		if gap := bars[i-2].Low - bars[i].High; gap >= d.minGapSize {
			gaps = append(gaps, FairValueGap{
				Type:      FVGBearish,
				Upper:     bars[i-2].Low,
				Lower:     bars[i].High,
				Size:      gap,
				Index:     i,
				CreatedAt: bars[i].Timestamp,
			})
		}
	}

	return gaps
}

// Update runs the fill lifecycle over bars that came after each gap's
// creation and returns the updated gaps. Fill percentage is monotonic: it
// records the best overlap any single bar has achieved, and a gap marked
// filled stays filled. Re-running over an unchanged window is a no-op.
func (d *FVGDetector) Update(gaps []FairValueGap, bars []models.Bar) []FairValueGap {
	out := make([]FairValueGap, len(gaps))
	copy(out, gaps)

	for g := range out {
		gap := &out[g]
		for i := gap.Index + 1; i < len(bars); i++ {
			overlap := overlapAmount(bars[i].Low, bars[i].High, gap.Lower, gap.Upper)
			if overlap <= 0 || gap.Size <= 0 {
				continue
			}
			pct := overlap / gap.Size * 100
			if pct > 100 {
				pct = 100
			}
			if pct > gap.FillPercentage {
				gap.FillPercentage = pct
			}
			if !gap.Filled && gap.FillPercentage >= fillThreshold {
				gap.Filled = true
				gap.FilledAt = bars[i].Timestamp
			}
		}
	}

	return out
}

// overlapAmount returns the size of the intersection of [aLow, aHigh] and
// [bLow, bHigh], or 0 when they do not overlap.
func overlapAmount(aLow, aHigh, bLow, bHigh float64) float64 {
	low := aLow
	if bLow > low {
		low = bLow
	}
	high := aHigh
	if bHigh < high {
		high = bHigh
	}
	if high <= low {
		return 0
	}
	return high - low
}

// Unfilled returns the gaps not yet marked filled.
func Unfilled(gaps []FairValueGap) []FairValueGap {
	var out []FairValueGap
	for _, g := range gaps {
		if !g.Filled {
			out = append(out, g)
		}
	}
	return out
}
