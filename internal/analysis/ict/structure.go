package ict

import (
	"ictrader/internal/analysis/patterns"
	"ictrader/internal/models"
)

// StructureBias classifies the current market structure.
type StructureBias string

const (
	StructureBullish StructureBias = "BULLISH"
	StructureBearish StructureBias = "BEARISH"
	StructureRanging StructureBias = "RANGING"
)

// MarketStructure is the structural read of a bar window: ordered swing
// points plus a classification. Recomputed per analysis pass, never
// persisted incrementally.
type MarketStructure struct {
	Bias       StructureBias
	SwingHighs []models.Pivot
	SwingLows  []models.Pivot
}

// AnalyzeStructure finds swing highs/lows with the windowed-extremum rule
// and classifies the trend from the last up-to-3 swings on each side:
// strictly increasing highs and lows mean bullish, strictly decreasing mean
// bearish, anything else is ranging.
func AnalyzeStructure(bars []models.Bar, window int) MarketStructure {
	highs, lows := patterns.FindPricePivots(bars, window)

	ms := MarketStructure{
		Bias:       StructureRanging,
		SwingHighs: highs,
		SwingLows:  lows,
	}

	recentHighs := lastN(highs, 3)
	recentLows := lastN(lows, 3)
	if len(recentHighs) < 2 || len(recentLows) < 2 {
		return ms
	}

	switch {
	case strictlyIncreasing(recentHighs) && strictlyIncreasing(recentLows):
		ms.Bias = StructureBullish
	case strictlyDecreasing(recentHighs) && strictlyDecreasing(recentLows):
		ms.Bias = StructureBearish
	}

	return ms
}

// AlignsWith reports whether the structure supports a trade in the given
// direction.
func (ms MarketStructure) AlignsWith(side models.Side) bool {
	if side == models.SideLong {
		return ms.Bias == StructureBullish
	}
	return ms.Bias == StructureBearish
}

func lastN(pivots []models.Pivot, n int) []models.Pivot {
	if len(pivots) <= n {
		return pivots
	}
	return pivots[len(pivots)-n:]
}

func strictlyIncreasing(pivots []models.Pivot) bool {
	for i := 1; i < len(pivots); i++ {
		if pivots[i].Value <= pivots[i-1].Value {
			return false
		}
	}
	return true
}

func strictlyDecreasing(pivots []models.Pivot) bool {
	for i := 1; i < len(pivots); i++ {
		if pivots[i].Value >= pivots[i-1].Value {
			return false
		}
	}
	return true
}
