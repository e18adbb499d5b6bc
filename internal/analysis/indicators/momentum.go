package indicators

import (
	"fmt"

	"ictrader/internal/errors"
	"ictrader/internal/models"
)

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(bars []models.Bar) ([]float64, error) {
	if r.period <= 0 {
		return nil, errors.NewValidationError("period", r.period, "must be positive")
	}
	if len(bars) < r.period+1 {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	closes := closePrices(bars)

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// First average using SMA, then Wilder smoothing.
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])
	result[r.period] = rsiValue(avgGain, avgLoss)

	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)
		result[i] = rsiValue(avgGain, avgLoss)
	}

	return result, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Stochastic calculates the Stochastic Oscillator %K smoothed by a %D SMA.
type Stochastic struct {
	kPeriod int
	dPeriod int
}

// NewStochastic creates a new Stochastic indicator.
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{kPeriod: kPeriod, dPeriod: dPeriod}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("Stochastic_%d_%d", s.kPeriod, s.dPeriod)
}

func (s *Stochastic) Period() int {
	return s.kPeriod + s.dPeriod
}

func (s *Stochastic) Calculate(bars []models.Bar) (map[string][]float64, error) {
	if s.kPeriod <= 0 || s.dPeriod <= 0 {
		return nil, errors.NewValidationError("periods", fmt.Sprintf("%d/%d", s.kPeriod, s.dPeriod), "must be positive")
	}
	if len(bars) < s.Period() {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	highs := highPrices(bars)
	lows := lowPrices(bars)
	closes := closePrices(bars)

	percentK := make([]float64, n)
	for i := s.kPeriod - 1; i < n; i++ {
		hh := highest(highs[i-s.kPeriod+1 : i+1])
		ll := lowest(lows[i-s.kPeriod+1 : i+1])
		if hh == ll {
			percentK[i] = 50 // flat window, undefined %K
			continue
		}
		percentK[i] = (closes[i] - ll) / (hh - ll) * 100
	}

	percentD := make([]float64, n)
	for i := s.kPeriod + s.dPeriod - 2; i < n; i++ {
		percentD[i] = mean(percentK[i-s.dPeriod+1 : i+1])
	}

	return map[string][]float64{
		"k": percentK,
		"d": percentD,
	}, nil
}
