// Package patterns provides pivot search and divergence detection.
package patterns

import (
	"ictrader/internal/models"
)

// FindPivots locates windowed local extrema in a value series. Index i is a
// pivot high when values[i] is the maximum (inclusive) over the ±window
// neighborhood; pivot lows are symmetric. Series shorter than 2*window+1
// yield empty results.
func FindPivots(values []float64, window int) (highs, lows []models.Pivot) {
	if window <= 0 || len(values) < 2*window+1 {
		return nil, nil
	}

	for i := window; i < len(values)-window; i++ {
		isHigh := true
		isLow := true
		for j := i - window; j <= i+window; j++ {
			if values[j] > values[i] {
				isHigh = false
			}
			if values[j] < values[i] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, models.Pivot{Index: i, Value: values[i], Kind: models.PivotHigh})
		}
		if isLow {
			lows = append(lows, models.Pivot{Index: i, Value: values[i], Kind: models.PivotLow})
		}
	}

	return highs, lows
}

// FindPricePivots locates swing highs on bar highs and swing lows on bar
// lows.
func FindPricePivots(bars []models.Bar, window int) (highs, lows []models.Pivot) {
	highs, _ = FindPivots(models.Highs(bars), window)
	_, lows = FindPivots(models.Lows(bars), window)
	return highs, lows
}

// nearestPivot returns the pivot closest to targetIndex by absolute index
// distance, or nil when none lies within maxDistance.
func nearestPivot(pivots []models.Pivot, targetIndex, maxDistance int) *models.Pivot {
	var nearest *models.Pivot
	best := maxDistance + 1

	for i := range pivots {
		dist := pivots[i].Index - targetIndex
		if dist < 0 {
			dist = -dist
		}
		if dist < best {
			best = dist
			nearest = &pivots[i]
		}
	}

	return nearest
}
