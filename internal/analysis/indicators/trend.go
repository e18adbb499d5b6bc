package indicators

import (
	"fmt"

	"ictrader/internal/errors"
	"ictrader/internal/models"
)

// SMA calculates the Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(bars []models.Bar) ([]float64, error) {
	if s.period <= 0 {
		return nil, errors.NewValidationError("period", s.period, "must be positive")
	}
	if len(bars) < s.period {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	closes := closePrices(bars)

	var windowSum float64
	for i := 0; i < n; i++ {
		windowSum += closes[i]
		if i >= s.period {
			windowSum -= closes[i-s.period]
		}
		if i >= s.period-1 {
			result[i] = windowSum / float64(s.period)
		}
	}

	return result, nil
}

// EMA calculates the Exponential Moving Average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(bars []models.Bar) ([]float64, error) {
	if e.period <= 0 {
		return nil, errors.NewValidationError("period", e.period, "must be positive")
	}
	if len(bars) < e.period {
		return nil, errors.ErrInsufficientData
	}

	closes := closePrices(bars)
	return emaSeries(closes, e.period), nil
}

// emaSeries computes an EMA over raw values, seeding with the SMA of the
// first period values.
func emaSeries(values []float64, period int) []float64 {
	n := len(values)
	result := make([]float64, n)
	if n < period {
		return result
	}

	result[period-1] = mean(values[:period])
	multiplier := 2.0 / float64(period+1)
	for i := period; i < n; i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}

	return result
}

// MACD calculates the Moving Average Convergence Divergence line, signal
// line and histogram.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod
}

func (m *MACD) Calculate(bars []models.Bar) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= m.fastPeriod || m.signalPeriod <= 0 {
		return nil, errors.NewValidationError("periods", fmt.Sprintf("%d/%d/%d", m.fastPeriod, m.slowPeriod, m.signalPeriod), "require 0 < fast < slow and signal > 0")
	}
	if len(bars) < m.Period() {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	closes := closePrices(bars)

	fast := emaSeries(closes, m.fastPeriod)
	slow := emaSeries(closes, m.slowPeriod)

	macdLine := make([]float64, n)
	for i := m.slowPeriod - 1; i < n; i++ {
		macdLine[i] = fast[i] - slow[i]
	}

	// Signal line is an EMA of the MACD line from where it becomes defined.
	signal := make([]float64, n)
	defined := macdLine[m.slowPeriod-1:]
	signalTail := emaSeries(defined, m.signalPeriod)
	copy(signal[m.slowPeriod-1:], signalTail)

	histogram := make([]float64, n)
	for i := m.slowPeriod + m.signalPeriod - 2; i < n; i++ {
		histogram[i] = macdLine[i] - signal[i]
	}

	return map[string][]float64{
		"macd":      macdLine,
		"signal":    signal,
		"histogram": histogram,
	}, nil
}
