package patterns

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ictrader/internal/models"
)

// DivergenceType represents the type of divergence.
type DivergenceType string

const (
	DivergenceRegularBullish DivergenceType = "REGULAR_BULLISH"
	DivergenceRegularBearish DivergenceType = "REGULAR_BEARISH"
	DivergenceHiddenBullish  DivergenceType = "HIDDEN_BULLISH"
	DivergenceHiddenBearish  DivergenceType = "HIDDEN_BEARISH"
)

// IsBullish reports whether the divergence type is bullish.
func (t DivergenceType) IsBullish() bool {
	return t == DivergenceRegularBullish || t == DivergenceHiddenBullish
}

// IsBearish reports whether the divergence type is bearish.
func (t DivergenceType) IsBearish() bool {
	return t == DivergenceRegularBearish || t == DivergenceHiddenBearish
}

// BiasLabel is the aggregate directional reading over a set of divergences.
type BiasLabel string

const (
	BiasStrongBullish BiasLabel = "STRONG_BULLISH"
	BiasBullish       BiasLabel = "BULLISH"
	BiasNeutral       BiasLabel = "NEUTRAL"
	BiasBearish       BiasLabel = "BEARISH"
	BiasStrongBearish BiasLabel = "STRONG_BEARISH"
)

// Divergence is a detected price/indicator pivot mismatch. Immutable once
// emitted.
type Divergence struct {
	Type            DivergenceType
	Indicator       string
	Strength        float64 // 0-100
	PricePivots     [2]int  // bar indexes of the price pivot pair
	IndicatorPivots [2]int  // bar indexes of the matched indicator pivots
	StartTime       time.Time
	EndTime         time.Time
	Description     string
}

// Stochastic zone bounds for zone-restricted divergence detection.
const (
	stochOverbought = 70.0
	stochOversold   = 30.0
)

// DivergenceDetector finds price/indicator divergences over a bar window.
type DivergenceDetector struct {
	window      int     // pivot confirmation window
	maxDistance int     // max price-to-indicator pivot index distance
	minStrength float64 // results below this are dropped
}

// NewDivergenceDetector creates a detector with the given pivot window,
// pivot matching distance and minimum strength filter.
func NewDivergenceDetector(window, maxDistance int, minStrength float64) *DivergenceDetector {
	return &DivergenceDetector{
		window:      window,
		maxDistance: maxDistance,
		minStrength: minStrength,
	}
}

// Detect finds divergences between price and a single indicator series. The
// indicator series must be index-aligned with the bars. Windows too short
// for pivot confirmation return no results.
func (d *DivergenceDetector) Detect(bars []models.Bar, indicator []float64, indicatorName string) []Divergence {
	if len(bars) != len(indicator) || len(bars) < 2*d.window+1 {
		return nil
	}

	priceHighs, priceLows := FindPricePivots(bars, d.window)
	indHighs, indLows := FindPivots(indicator, d.window)

	var out []Divergence
	out = append(out, d.scanLows(bars, indicatorName, priceLows, indLows)...)
	out = append(out, d.scanHighs(bars, indicatorName, priceHighs, indHighs)...)

	filtered := out[:0]
	for _, div := range out {
		if div.Strength >= d.minStrength {
			filtered = append(filtered, div)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Strength > filtered[j].Strength
	})

	return filtered
}

// scanLows examines consecutive price pivot lows for bullish divergences.
func (d *DivergenceDetector) scanLows(bars []models.Bar, name string, priceLows, indLows []models.Pivot) []Divergence {
	var out []Divergence

	for i := 0; i+1 < len(priceLows); i++ {
		first, second := priceLows[i], priceLows[i+1]

		indFirst := nearestPivot(indLows, first.Index, d.maxDistance)
		indSecond := nearestPivot(indLows, second.Index, d.maxDistance)
		if indFirst == nil || indSecond == nil {
			continue
		}
		if !d.zoneOK(name, indFirst.Value, indSecond.Value, models.PivotLow) {
			continue
		}

		var divType DivergenceType
		switch {
		case second.Value < first.Value && indSecond.Value > indFirst.Value:
			divType = DivergenceRegularBullish
		case second.Value > first.Value && indSecond.Value < indFirst.Value:
			divType = DivergenceHiddenBullish
		default:
			continue
		}

		out = append(out, d.build(bars, name, divType, first, second, indFirst, indSecond))
	}

	return out
}

// scanHighs examines consecutive price pivot highs for bearish divergences.
func (d *DivergenceDetector) scanHighs(bars []models.Bar, name string, priceHighs, indHighs []models.Pivot) []Divergence {
	var out []Divergence

	for i := 0; i+1 < len(priceHighs); i++ {
		first, second := priceHighs[i], priceHighs[i+1]

		indFirst := nearestPivot(indHighs, first.Index, d.maxDistance)
		indSecond := nearestPivot(indHighs, second.Index, d.maxDistance)
		if indFirst == nil || indSecond == nil {
			continue
		}
		if !d.zoneOK(name, indFirst.Value, indSecond.Value, models.PivotHigh) {
			continue
		}

		var divType DivergenceType
		switch {
		case second.Value > first.Value && indSecond.Value < indFirst.Value:
			divType = DivergenceRegularBearish
		case second.Value < first.Value && indSecond.Value > indFirst.Value:
			divType = DivergenceHiddenBearish
		default:
			continue
		}

		out = append(out, d.build(bars, name, divType, first, second, indFirst, indSecond))
	}

	return out
}

// zoneOK enforces the stochastic zone restriction: pivot highs must sit in
// the overbought zone and pivot lows in the oversold zone. Other indicators
// are unrestricted.
func (d *DivergenceDetector) zoneOK(name string, firstVal, secondVal float64, kind models.PivotKind) bool {
	if !strings.HasPrefix(name, "Stochastic") {
		return true
	}
	if kind == models.PivotHigh {
		return firstVal > stochOverbought && secondVal > stochOverbought
	}
	return firstVal < stochOversold && secondVal < stochOversold
}

func (d *DivergenceDetector) build(bars []models.Bar, name string, divType DivergenceType, first, second models.Pivot, indFirst, indSecond *models.Pivot) Divergence {
	strength := divergenceStrength(first.Value, second.Value, indFirst.Value, indSecond.Value, name)

	return Divergence{
		Type:            divType,
		Indicator:       name,
		Strength:        strength,
		PricePivots:     [2]int{first.Index, second.Index},
		IndicatorPivots: [2]int{indFirst.Index, indSecond.Index},
		StartTime:       bars[first.Index].Timestamp,
		EndTime:         bars[second.Index].Timestamp,
		Description: fmt.Sprintf("%s divergence on %s: price %.2f->%.2f, indicator %.2f->%.2f",
			strings.ToLower(string(divType)), name, first.Value, second.Value, indFirst.Value, indSecond.Value),
	}
}

// divergenceStrength scores a divergence from the magnitudes of the price
// and indicator moves. Volume-based (OBV) divergences score 10% higher as
// stronger reversal evidence. Result is always within [0, 100].
func divergenceStrength(priceStart, priceEnd, indStart, indEnd float64, indicatorName string) float64 {
	priceChange := percentChange(priceStart, priceEnd)
	indChange := percentChange(indStart, indEnd)

	strength := (abs(priceChange) + abs(indChange)) / 2 * 10
	if strength > 80 {
		strength = 80
	}

	if abs(priceChange) > 2 && abs(indChange) > 2 {
		strength += 10
	}
	if abs(priceChange) > 5 || abs(indChange) > 5 {
		strength += 10
	}

	if strings.HasPrefix(indicatorName, "OBV") {
		strength *= 1.1
	}

	if strength > 100 {
		strength = 100
	}
	if strength < 0 {
		strength = 0
	}
	return strength
}

func percentChange(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	return (end - start) / start * 100
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Bias derives an aggregate directional label from bullish vs bearish
// divergence counts. The strong tiers require a 2x majority.
func Bias(divergences []Divergence) BiasLabel {
	var bullish, bearish int
	for _, d := range divergences {
		if d.Type.IsBullish() {
			bullish++
		} else {
			bearish++
		}
	}

	switch {
	case bullish > 2*bearish && bullish > 0:
		return BiasStrongBullish
	case bullish > bearish:
		return BiasBullish
	case bearish > 2*bullish && bearish > 0:
		return BiasStrongBearish
	case bearish > bullish:
		return BiasBearish
	default:
		return BiasNeutral
	}
}
