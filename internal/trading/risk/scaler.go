package risk

import (
	"math"

	"ictrader/internal/config"
	"ictrader/internal/models"
)

// Recommendation is the scaler's sizing output.
type Recommendation struct {
	Contracts       int
	StreakContracts int
	KellyContracts  int // 0 when the Kelly sample is too small
	Confidence      float64
	Multiplier      float64
}

// Scaler recommends contract sizes from trade history. It is stateless: a
// pure function of the history and configuration.
type Scaler struct {
	cfg config.SizingConfig
}

// NewScaler creates a position scaler.
func NewScaler(cfg config.SizingConfig) *Scaler {
	return &Scaler{cfg: cfg}
}

// StreakContracts sizes from the current win/loss streak. The loss rule
// wins: a streak of losses at or past the scale-down threshold forces base
// size regardless of any earlier win run. Wins scale up at the threshold
// and again at double the threshold.
func (s *Scaler) StreakContracts(trades []models.Trade) int {
	wins, losses := currentStreak(trades)

	if losses >= s.cfg.ScaleDownThreshold {
		return s.cfg.BaseContracts
	}
	if wins >= 2*s.cfg.ScaleUpThreshold {
		return s.clamp(4 * s.cfg.BaseContracts)
	}
	if wins >= s.cfg.ScaleUpThreshold {
		return s.clamp(2 * s.cfg.BaseContracts)
	}
	return s.cfg.BaseContracts
}

// KellyContracts sizes from the fractional Kelly criterion. Returns
// (0, false) when the sample is smaller than the configured minimum or the
// payoff ratio is undefined.
func (s *Scaler) KellyContracts(trades []models.Trade, capital float64) (int, bool) {
	if len(trades) < s.cfg.MinKellySample || capital <= 0 {
		return 0, false
	}

	var wins, losses int
	var winTotal, lossTotal float64
	for _, t := range trades {
		if t.Win {
			wins++
			winTotal += t.PnL
		} else {
			losses++
			lossTotal += t.PnL
		}
	}
	if wins == 0 || losses == 0 {
		return 0, false
	}

	avgWin := winTotal / float64(wins)
	avgLoss := lossTotal / float64(losses)
	if avgLoss == 0 {
		return 0, false
	}

	p := float64(wins) / float64(len(trades))
	b := math.Abs(avgWin / avgLoss)
	if b == 0 {
		return 0, false
	}

	kelly := (b*p - (1 - p)) / b
	if kelly < 0 {
		kelly = 0
	}
	if kelly > 1 {
		kelly = 1
	}
	kelly *= s.cfg.KellyFraction

	contracts := int(math.Floor(capital * kelly / s.cfg.MarginPerContract))
	return contracts, true
}

// Recommend combines streak and Kelly sizing. The smaller of the two wins
// (conservative by design), clamped to [base, max], then scaled down by a
// confidence multiplier for weak setups.
func (s *Scaler) Recommend(trades []models.Trade, capital, signalStrength float64) Recommendation {
	streak := s.StreakContracts(trades)

	contracts := streak
	kelly, ok := s.KellyContracts(trades, capital)
	if ok && kelly < contracts {
		contracts = kelly
	}
	contracts = s.clamp(contracts)

	conf := s.confidence(trades, signalStrength)
	mult := confidenceMultiplier(conf)

	scaled := int(math.Floor(float64(contracts) * mult))
	if scaled < 1 {
		scaled = 1
	}

	return Recommendation{
		Contracts:       scaled,
		StreakContracts: streak,
		KellyContracts:  kelly,
		Confidence:      conf,
		Multiplier:      mult,
	}
}

// confidence composites win rate, sample size, streak quality and the
// externally supplied signal strength into a 0-100 score.
func (s *Scaler) confidence(trades []models.Trade, signalStrength float64) float64 {
	var winRate float64
	if len(trades) > 0 {
		var wins int
		for _, t := range trades {
			if t.Win {
				wins++
			}
		}
		winRate = float64(wins) / float64(len(trades)) * 100
	}

	sampleScore := float64(len(trades)) / 30 * 100
	if sampleScore > 100 {
		sampleScore = 100
	}

	wins, losses := currentStreak(trades)
	streakScore := 50 + float64(wins)*15 - float64(losses)*25
	if streakScore > 100 {
		streakScore = 100
	}
	if streakScore < 0 {
		streakScore = 0
	}

	score := 0.35*winRate + 0.15*sampleScore + 0.20*streakScore + 0.30*signalStrength
	if score > 100 {
		score = 100
	}
	return score
}

// confidenceMultiplier maps a composite confidence score onto tiered size
// multipliers.
func confidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 80:
		return 1.0
	case confidence >= 70:
		return 0.75
	case confidence >= 60:
		return 0.5
	default:
		return 0.25
	}
}

// currentStreak counts consecutive wins or losses from the most recent
// trade backward. Exactly one of the results is nonzero for a non-empty
// history.
func currentStreak(trades []models.Trade) (wins, losses int) {
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Win {
			if losses > 0 {
				break
			}
			wins++
		} else {
			if wins > 0 {
				break
			}
			losses++
		}
	}
	return wins, losses
}

func (s *Scaler) clamp(n int) int {
	if n > s.cfg.MaxContracts {
		return s.cfg.MaxContracts
	}
	if n < s.cfg.BaseContracts {
		return s.cfg.BaseContracts
	}
	return n
}
