package risk

import (
	"testing"

	"ictrader/internal/config"
	"ictrader/internal/models"
)

func testSizingConfig() config.SizingConfig {
	return config.SizingConfig{
		BaseContracts:      1,
		MaxContracts:       4,
		ScaleUpThreshold:   3,
		ScaleDownThreshold: 2,
		KellyFraction:      0.25,
		MinKellySample:     10,
		MarginPerContract:  500,
	}
}

func trades(outcomes ...float64) []models.Trade {
	out := make([]models.Trade, len(outcomes))
	for i, pnl := range outcomes {
		out[i] = models.Trade{PnL: pnl, Win: pnl > 0}
	}
	return out
}

func TestStreakContracts(t *testing.T) {
	s := NewScaler(testSizingConfig())

	tests := []struct {
		name     string
		history  []models.Trade
		expected int
	}{
		{"no history", nil, 1},
		{"two wins", trades(100, 100), 1},
		{"three wins scales up", trades(100, 100, 100), 2},
		{"six wins scales to four", trades(100, 100, 100, 100, 100, 100), 4},
		{"two losses force base", trades(100, 100, 100, -50, -50), 1},
		{"one loss breaks the win run", trades(100, 100, 100, -50), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.StreakContracts(tt.history); got != tt.expected {
				t.Errorf("StreakContracts = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestKellyContracts(t *testing.T) {
	s := NewScaler(testSizingConfig())

	t.Run("small sample declines", func(t *testing.T) {
		if _, ok := s.KellyContracts(trades(100, -50, 100), 50000); ok {
			t.Errorf("expected no recommendation under the minimum sample")
		}
	})

	t.Run("all winners declines", func(t *testing.T) {
		history := trades(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
		if _, ok := s.KellyContracts(history, 50000); ok {
			t.Errorf("payoff ratio undefined without losers")
		}
	})

	t.Run("balanced history sizes up", func(t *testing.T) {
		// 6 wins of $200, 4 losses of $100: p=0.6, b=2.
		history := trades(200, 200, 200, -100, 200, -100, 200, -100, 200, -100)
		contracts, ok := s.KellyContracts(history, 50000)
		if !ok {
			t.Fatalf("expected a recommendation")
		}
		// kelly = (2*0.6 - 0.4)/2 = 0.4, fractional 0.1.
		// floor(50000 * 0.1 / 500) = 10.
		if contracts != 10 {
			t.Errorf("kelly contracts = %d, want 10", contracts)
		}
	})

	t.Run("negative edge floors at zero", func(t *testing.T) {
		// 2 wins of $50, 8 losses of $100: negative expectancy.
		history := trades(50, -100, -100, -100, 50, -100, -100, -100, -100, -100)
		contracts, ok := s.KellyContracts(history, 50000)
		if !ok {
			t.Fatalf("expected a (zero) recommendation")
		}
		if contracts != 0 {
			t.Errorf("kelly contracts = %d, want 0", contracts)
		}
	})
}

func TestRecommendCombinesConservatively(t *testing.T) {
	s := NewScaler(testSizingConfig())

	// Three straight wins: streak sizing says 2. Kelly has no sample, so
	// the streak result stands.
	rec := s.Recommend(trades(100, 100, 100), 50000, 90)
	if rec.StreakContracts != 2 {
		t.Errorf("streak contracts = %d, want 2", rec.StreakContracts)
	}
	if rec.KellyContracts != 0 {
		t.Errorf("kelly contracts = %d, want 0 (no sample)", rec.KellyContracts)
	}
	if rec.Contracts < 1 {
		t.Errorf("recommendation must be at least 1, got %d", rec.Contracts)
	}

	// A profitable large sample where the Kelly floor comes out at zero:
	// min() pulls the combined size down to base.
	history := trades(60, -50, 60, -50, 60, -50, 60, -50, 60, 60)
	rec = s.Recommend(history, 3000, 90)
	if rec.Contracts != 1 {
		t.Errorf("contracts = %d, want 1 (kelly-limited, clamped to base)", rec.Contracts)
	}
}

func TestRecommendConfidenceMultiplier(t *testing.T) {
	s := NewScaler(testSizingConfig())

	// Six straight wins: streak sizing says 4. A weak signal cuts it down.
	history := trades(100, 100, 100, 100, 100, 100)
	strong := s.Recommend(history, 50000, 95)
	weak := s.Recommend(history, 50000, 5)

	if strong.Contracts <= weak.Contracts {
		t.Errorf("stronger signal should size at least as large: strong %d, weak %d",
			strong.Contracts, weak.Contracts)
	}
	if weak.Contracts < 1 {
		t.Errorf("weak recommendation must still be at least 1, got %d", weak.Contracts)
	}
}

func TestConfidenceMultiplierTiers(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   float64
	}{
		{85, 1.0},
		{80, 1.0},
		{75, 0.75},
		{65, 0.5},
		{59, 0.25},
		{0, 0.25},
	}

	for _, tt := range tests {
		if got := confidenceMultiplier(tt.confidence); got != tt.expected {
			t.Errorf("confidenceMultiplier(%f) = %f, want %f", tt.confidence, got, tt.expected)
		}
	}
}

func TestCurrentStreak(t *testing.T) {
	wins, losses := currentStreak(trades(100, -50, -50))
	if wins != 0 || losses != 2 {
		t.Errorf("got %d wins, %d losses, want 0/2", wins, losses)
	}

	wins, losses = currentStreak(trades(-50, 100, 100, 100))
	if wins != 3 || losses != 0 {
		t.Errorf("got %d wins, %d losses, want 3/0", wins, losses)
	}

	wins, losses = currentStreak(nil)
	if wins != 0 || losses != 0 {
		t.Errorf("empty history must have no streak")
	}
}
