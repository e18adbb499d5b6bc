package risk

import (
	"reflect"
	"strings"
	"testing"

	"ictrader/internal/config"
	"ictrader/internal/models"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxDailyLoss:         1000,
		MaxPositionRisk:      500,
		MinRiskReward:        1.5,
		MaxConsecutiveLosses: 3,
		MaxPortfolioHeat:     1500,
		MaxPositions:         3,
		MaxContractsPerTrade: 5,
		PointValue:           20,
	}
}

func longProposal() TradeProposal {
	// 5 points risk, 10 points reward: $100 risk, 2:1 at one contract.
	return TradeProposal{
		Symbol:         "NQ",
		Side:           models.SideLong,
		Entry:          15000,
		Stop:           14995,
		Target:         15010,
		Contracts:      1,
		AccountBalance: 50000,
	}
}

func TestValidateApprovesCleanProposal(t *testing.T) {
	m := NewManager(testRiskConfig())
	v := m.Validate(longProposal())

	if !v.Approved {
		t.Fatalf("expected approval, got reason %q", v.Reason)
	}
	if v.Risk.RiskAmount != 100 {
		t.Errorf("risk amount = %f, want 100", v.Risk.RiskAmount)
	}
	if v.Risk.RiskRewardRatio != 2 {
		t.Errorf("risk:reward = %f, want 2", v.Risk.RiskRewardRatio)
	}
	if len(v.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", v.Warnings)
	}
}

func TestValidateInvalidParameters(t *testing.T) {
	m := NewManager(testRiskConfig())

	tests := []struct {
		name   string
		mutate func(*TradeProposal)
	}{
		{"long stop above entry", func(p *TradeProposal) { p.Stop = 15001 }},
		{"long target below entry", func(p *TradeProposal) { p.Target = 14999 }},
		{"short stop below entry", func(p *TradeProposal) {
			p.Side = models.SideShort
			p.Stop = 14999
			p.Target = 14990
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := longProposal()
			tt.mutate(&p)
			if v := m.Validate(p); v.Approved {
				t.Errorf("expected rejection")
			}
		})
	}
}

func TestValidateDailyLossLimitHit(t *testing.T) {
	cfg := testRiskConfig()
	cfg.MaxDailyLoss = 500
	m := NewManager(cfg)
	m.RecordResult(-500)

	v := m.Validate(longProposal())
	if v.Approved {
		t.Fatalf("expected rejection after daily loss limit hit")
	}
	if !strings.Contains(v.Reason, "daily loss limit") {
		t.Errorf("wrong reason: %q", v.Reason)
	}
}

func TestValidateDailyBudgetBreach(t *testing.T) {
	m := NewManager(testRiskConfig())
	m.RecordResult(-950) // $50 of budget left

	p := longProposal() // $100 risk per contract
	v := m.Validate(p)
	if v.Approved {
		t.Fatalf("expected rejection, trade risk exceeds remaining budget")
	}
	// floor(50/100) = 0, bumped to the 1-contract minimum.
	if v.SuggestedContracts != 1 {
		t.Errorf("suggested contracts = %d, want 1", v.SuggestedContracts)
	}
}

func TestValidatePositionRiskSuggestion(t *testing.T) {
	m := NewManager(testRiskConfig())

	p := longProposal()
	p.Contracts = 2
	p.Stop = 14985 // 15 points, $300/contract, $600 total
	v := m.Validate(p)

	if v.Approved {
		t.Fatalf("expected rejection on position risk cap")
	}
	// floor(500/300) = 1 contract fits the cap.
	if v.SuggestedContracts != 1 {
		t.Errorf("suggested contracts = %d, want 1", v.SuggestedContracts)
	}
}

func TestValidateMinRiskReward(t *testing.T) {
	m := NewManager(testRiskConfig())
	p := longProposal()
	p.Target = 15005 // 1:1
	if v := m.Validate(p); v.Approved {
		t.Errorf("expected rejection below minimum risk:reward")
	}
}

func TestValidateConsecutiveLossHalt(t *testing.T) {
	m := NewManager(testRiskConfig())
	for i := 0; i < 3; i++ {
		m.RecordResult(-50)
	}

	if v := m.Validate(longProposal()); v.Approved {
		t.Errorf("expected halt at 3 consecutive losses")
	}

	// A winner resets the streak.
	m.RecordResult(100)
	if v := m.Validate(longProposal()); !v.Approved {
		t.Errorf("expected approval after streak reset, got %q", v.Reason)
	}
}

func TestValidatePortfolioHeatAndMaxPositions(t *testing.T) {
	m := NewManager(testRiskConfig())
	m.AddPosition(models.Position{Symbol: "NQ", RiskAmount: 1450})

	if v := m.Validate(longProposal()); v.Approved {
		t.Errorf("expected rejection on portfolio heat")
	}

	m.RemovePosition("NQ")
	for _, s := range []string{"A", "B", "C"} {
		m.AddPosition(models.Position{Symbol: s, RiskAmount: 10})
	}
	if v := m.Validate(longProposal()); v.Approved {
		t.Errorf("expected rejection at max open positions")
	}
}

func TestValidateIsPure(t *testing.T) {
	m := NewManager(testRiskConfig())
	m.RecordResult(-200)
	m.AddPosition(models.Position{Symbol: "NQ", RiskAmount: 100})

	p := longProposal()
	first := m.Validate(p)
	second := m.Validate(p)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate mutated state between identical calls:\n%+v\n%+v", first, second)
	}
}

func TestValidateWarnings(t *testing.T) {
	m := NewManager(testRiskConfig())
	m.RecordResult(-50) // one-loss streak

	p := longProposal()
	p.AccountBalance = 2000 // $100 risk is 5% of account
	p.Target = 15008        // 1.6:1, above minimum but below 2:1

	v := m.Validate(p)
	if !v.Approved {
		t.Fatalf("expected approval with warnings, got %q", v.Reason)
	}
	if len(v.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", v.Warnings)
	}
}

func TestResetDailyStatsKeepsStreak(t *testing.T) {
	m := NewManager(testRiskConfig())
	m.RecordResult(-100)
	m.RecordResult(-100)
	m.ResetDailyStats()

	if m.DailyPnL() != 0 {
		t.Errorf("daily pnl should reset, got %f", m.DailyPnL())
	}
	if m.ConsecutiveLosses() != 2 {
		t.Errorf("loss streak must survive the daily reset, got %d", m.ConsecutiveLosses())
	}
}

func TestPositionSize(t *testing.T) {
	m := NewManager(testRiskConfig())

	tests := []struct {
		name     string
		budget   float64
		points   float64
		expected int
	}{
		{"exact fit", 400, 5, 4},
		{"rounds down", 399, 5, 3},
		{"clamped to max", 10000, 5, 5},
		{"minimum one", 10, 5, 1},
		{"zero stop distance", 400, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.PositionSize(tt.budget, tt.points); got != tt.expected {
				t.Errorf("PositionSize(%f, %f) = %d, want %d", tt.budget, tt.points, got, tt.expected)
			}
		})
	}
}
