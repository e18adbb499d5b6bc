package patterns

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ictrader/internal/models"
)

func barsFromLows(lows []float64) []models.Bar {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]models.Bar, len(lows))
	for i, l := range lows {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      l + 1,
			High:      l + 2,
			Low:       l,
			Close:     l + 1,
			Volume:    1000,
		}
	}
	return bars
}

func TestFindPivotsShortSeries(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
	}{
		{"empty", nil, 5},
		{"below confirmation length", []float64{1, 2, 3, 4, 5}, 5},
		{"exactly one short", make([]float64, 10), 5},
		{"zero window", []float64{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			highs, lows := FindPivots(tt.values, tt.window)
			if len(highs) != 0 || len(lows) != 0 {
				t.Errorf("expected no pivots, got %d highs, %d lows", len(highs), len(lows))
			}
		})
	}
}

func TestFindPivotsLocatesExtrema(t *testing.T) {
	// Single peak at index 5, single trough at index 11.
	values := []float64{5, 6, 7, 8, 9, 10, 9, 8, 7, 6, 5, 4, 5, 6, 7, 8, 9}
	highs, lows := FindPivots(values, 3)

	if len(highs) != 1 || highs[0].Index != 5 {
		t.Fatalf("expected single pivot high at 5, got %+v", highs)
	}
	if highs[0].Value != 10 || highs[0].Kind != models.PivotHigh {
		t.Errorf("bad pivot high: %+v", highs[0])
	}
	if len(lows) != 1 || lows[0].Index != 11 {
		t.Fatalf("expected single pivot low at 11, got %+v", lows)
	}
}

// interpolate fills values[from..to] linearly between the endpoints
// already stored there.
func interpolate(values []float64, from, to int) {
	span := float64(to - from)
	for i := from + 1; i < to; i++ {
		frac := float64(i-from) / span
		values[i] = values[from] + (values[to]-values[from])*frac
	}
}

// vShaped builds a series with troughs at indexes 20 and 60 and peaks at
// the ends and midpoint, so pivot lows appear only at the troughs.
func vShaped(n int, start, trough1, mid, trough2, end float64) []float64 {
	values := make([]float64, n)
	values[0] = start
	values[20] = trough1
	values[40] = mid
	values[60] = trough2
	values[n-1] = end
	interpolate(values, 0, 20)
	interpolate(values, 20, 40)
	interpolate(values, 40, 60)
	interpolate(values, 60, n-1)
	return values
}

// Regular bullish divergence: price makes a lower low while the indicator
// makes a higher low.
func TestDetectRegularBullish(t *testing.T) {
	n := 81
	lows := vShaped(n, 100, 95, 100, 90, 95)
	indicator := vShaped(n, 55, 32, 60, 38, 50)

	bars := barsFromLows(lows)
	detector := NewDivergenceDetector(5, 20, 0)
	divs := detector.Detect(bars, indicator, "RSI_14")

	var found *Divergence
	for i := range divs {
		if divs[i].Type == DivergenceRegularBullish {
			found = &divs[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected REGULAR_BULLISH divergence, got %+v", divs)
	}
	if found.PricePivots != [2]int{20, 60} {
		t.Errorf("wrong price pivots: %v", found.PricePivots)
	}
	if found.Strength <= 0 {
		t.Errorf("expected positive strength, got %f", found.Strength)
	}
	if found.StartTime != bars[20].Timestamp || found.EndTime != bars[60].Timestamp {
		t.Errorf("wrong time span: %v - %v", found.StartTime, found.EndTime)
	}
}

func TestDetectLengthMismatch(t *testing.T) {
	bars := barsFromLows(make([]float64, 50))
	detector := NewDivergenceDetector(5, 20, 0)
	if divs := detector.Detect(bars, make([]float64, 49), "RSI_14"); divs != nil {
		t.Errorf("expected nil on length mismatch, got %d", len(divs))
	}
}

func TestStochasticZoneRestriction(t *testing.T) {
	n := 81
	// Divergent shape, but the indicator troughs sit mid-range, outside
	// the oversold zone required for stochastic lows.
	lows := vShaped(n, 100, 95, 100, 90, 95)
	indicator := vShaped(n, 55, 45, 60, 48, 52)

	bars := barsFromLows(lows)
	detector := NewDivergenceDetector(5, 20, 0)

	if divs := detector.Detect(bars, indicator, "Stochastic_14_3"); len(divs) != 0 {
		t.Errorf("expected zone restriction to drop stochastic divergence, got %+v", divs)
	}
	if divs := detector.Detect(bars, indicator, "RSI_14"); len(divs) == 0 {
		t.Errorf("expected unrestricted indicator to keep the divergence")
	}
}

func TestProperty_StrengthWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("divergence strength is within [0, 100]", prop.ForAll(
		func(priceStart, priceEnd, indStart, indEnd float64, obv bool) bool {
			name := "RSI_14"
			if obv {
				name = "OBV"
			}
			s := divergenceStrength(priceStart, priceEnd, indStart, indEnd, name)
			return s >= 0 && s <= 100
		},
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0.01, 100),
		gen.Float64Range(0.01, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestBias(t *testing.T) {
	mk := func(bullish, bearish int) []Divergence {
		var out []Divergence
		for i := 0; i < bullish; i++ {
			out = append(out, Divergence{Type: DivergenceRegularBullish})
		}
		for i := 0; i < bearish; i++ {
			out = append(out, Divergence{Type: DivergenceRegularBearish})
		}
		return out
	}

	tests := []struct {
		name     string
		bullish  int
		bearish  int
		expected BiasLabel
	}{
		{"empty", 0, 0, BiasNeutral},
		{"balanced", 2, 2, BiasNeutral},
		{"bullish majority", 2, 1, BiasBullish},
		{"strong bullish", 3, 1, BiasStrongBullish},
		{"bearish majority", 1, 2, BiasBearish},
		{"strong bearish", 0, 1, BiasStrongBearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bias(mk(tt.bullish, tt.bearish)); got != tt.expected {
				t.Errorf("Bias(%d bull, %d bear) = %s, want %s", tt.bullish, tt.bearish, got, tt.expected)
			}
		})
	}
}
