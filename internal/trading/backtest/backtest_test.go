package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ictrader/internal/config"
	"ictrader/internal/models"
)

func testBacktestConfig() config.BacktestConfig {
	return config.BacktestConfig{
		InitialCapital:        50000,
		Lookback:              30,
		MaxForwardBars:        50,
		Contracts:             1,
		PointValue:            20,
		MarginPerContract:     500,
		MinDivergenceStrength: 40,
	}
}

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		PivotWindow:           5,
		MaxPivotDistance:      20,
		MinDivergenceStrength: 30,
		MinGapSize:            2,
		MinDisplacement:       10,
		LiquidityLookback:     10,
		LiquidityTolerance:    1,
	}
}

func flatBars(n int) []models.Bar {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100,
			High:      100,
			Low:       100,
			Close:     100,
			Volume:    1000,
		}
	}
	return bars
}

func randomishBars(seeds []float64) []models.Bar {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]models.Bar, len(seeds))
	for i, s := range seeds {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      s,
			High:      s + 4,
			Low:       s - 4,
			Close:     s + 1,
			Volume:    1000 + int64(i%17)*100,
		}
	}
	return bars
}

func TestRunEmptyInput(t *testing.T) {
	engine := NewEngine(testBacktestConfig(), testDetectionConfig())

	for _, bars := range [][]models.Bar{nil, flatBars(10)} {
		result := engine.Run(context.Background(), "NQ", bars)
		if result.TotalTrades != 0 {
			t.Errorf("expected zero trades, got %d", result.TotalTrades)
		}
		if result.FinalBalance != 50000 {
			t.Errorf("balance must stay at initial capital, got %f", result.FinalBalance)
		}
		if result.NetPnL != 0 || result.WinRate != 0 || result.SharpeRatio != 0 {
			t.Errorf("zero-trade metrics must be zero: %+v", result)
		}
	}
}

func TestRunFlatSeriesProducesNoTrades(t *testing.T) {
	// A perfectly flat series has no gaps, no pivots, no divergences.
	engine := NewEngine(testBacktestConfig(), testDetectionConfig())
	result := engine.Run(context.Background(), "NQ", flatBars(300))

	if result.TotalTrades != 0 {
		t.Fatalf("expected zero trades on flat input, got %d", result.TotalTrades)
	}
	if result.FinalBalance != result.InitialCapital {
		t.Errorf("final balance %f != initial %f", result.FinalBalance, result.InitialCapital)
	}
	if result.MaxDrawdown != 0 {
		t.Errorf("expected zero drawdown, got %f", result.MaxDrawdown)
	}
}

func TestProperty_AccountingInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	engine := NewEngine(testBacktestConfig(), testDetectionConfig())

	properties.Property("balance reconciles and equity peak is honored", prop.ForAll(
		func(seeds []float64) bool {
			result := engine.Run(context.Background(), "NQ", randomishBars(seeds))

			var total float64
			for _, trade := range result.Trades {
				total += trade.PnL
			}
			if math.Abs(result.FinalBalance-(result.InitialCapital+total)) > 1e-6 {
				t.Logf("balance %f != initial %f + pnl %f", result.FinalBalance, result.InitialCapital, total)
				return false
			}
			if result.PeakBalance < result.InitialCapital {
				t.Logf("peak %f below initial capital", result.PeakBalance)
				return false
			}
			if result.MaxDrawdown < 0 {
				t.Logf("negative drawdown %f", result.MaxDrawdown)
				return false
			}

			// The equity curve never exceeds the recorded peak.
			for _, point := range result.EquityCurve {
				if point.Balance > result.PeakBalance+1e-6 {
					t.Logf("equity point %f above peak %f", point.Balance, result.PeakBalance)
					return false
				}
			}
			return true
		},
		gen.SliceOfN(200, gen.Float64Range(100, 200)),
	))

	properties.TestingRun(t)
}

func TestProperty_TradesRespectForwardCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	cfg := testBacktestConfig()
	engine := NewEngine(cfg, testDetectionConfig())
	maxHold := time.Duration(cfg.MaxForwardBars) * time.Minute

	properties.Property("no trade outlives the forward bar cap", prop.ForAll(
		func(seeds []float64) bool {
			result := engine.Run(context.Background(), "NQ", randomishBars(seeds))
			for _, trade := range result.Trades {
				if trade.ExitTime.Sub(trade.EntryTime) > maxHold {
					return false
				}
				if trade.MFE < 0 || trade.MAE < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(200, gen.Float64Range(100, 200)),
	))

	properties.TestingRun(t)
}

func TestSimulateStopAndTarget(t *testing.T) {
	cfg := testBacktestConfig()
	engine := NewEngine(cfg, testDetectionConfig())

	bars := flatBars(10)
	// Entry at bar 3, close 100. Stop 95, target 110.
	bars[5].High = 111
	bars[5].Low = 99

	trade := engine.simulate("NQ", bars, 3, candidate{
		side:   models.SideLong,
		entry:  100,
		stop:   95,
		target: 110,
	})

	if trade.ExitPrice != 110 {
		t.Errorf("expected target exit at 110, got %f", trade.ExitPrice)
	}
	if trade.ExitTime != bars[5].Timestamp {
		t.Errorf("wrong exit time")
	}
	if trade.PnL != 10*20 {
		t.Errorf("pnl = %f, want 200", trade.PnL)
	}
	if !trade.Win {
		t.Errorf("target exit must be a win")
	}

	// Stop has priority when both trigger inside one bar.
	bars[5].Low = 94
	trade = engine.simulate("NQ", bars, 3, candidate{
		side:   models.SideLong,
		entry:  100,
		stop:   95,
		target: 110,
	})
	if trade.ExitPrice != 95 {
		t.Errorf("expected stop exit at 95, got %f", trade.ExitPrice)
	}
	if trade.Win {
		t.Errorf("stop exit must be a loss")
	}
}

func TestSimulateForceCloseAtCap(t *testing.T) {
	cfg := testBacktestConfig()
	cfg.MaxForwardBars = 3
	engine := NewEngine(cfg, testDetectionConfig())

	bars := flatBars(10)
	trade := engine.simulate("NQ", bars, 2, candidate{
		side:   models.SideLong,
		entry:  100,
		stop:   90,
		target: 120,
	})

	// Neither stop nor target hit: force close at the cap bar's close.
	if trade.ExitTime != bars[5].Timestamp {
		t.Errorf("expected force close at bar 5, got %v", trade.ExitTime)
	}
	if trade.ExitPrice != 100 {
		t.Errorf("expected close price exit, got %f", trade.ExitPrice)
	}
}

func TestRunBatch(t *testing.T) {
	engine := NewEngine(testBacktestConfig(), testDetectionConfig())

	specs := []RunSpec{
		{Symbol: "NQ", Bars: flatBars(50)},
		{Symbol: "ES", Bars: flatBars(80)},
		{Symbol: "YM", Bars: nil},
	}

	results := engine.RunBatch(context.Background(), specs, 2)
	if len(results) != len(specs) {
		t.Fatalf("expected %d results, got %d", len(specs), len(results))
	}
	for i, result := range results {
		if result == nil {
			t.Fatalf("missing result for %s", specs[i].Symbol)
		}
		if result.Symbol != specs[i].Symbol {
			t.Errorf("result %d has symbol %s, want %s", i, result.Symbol, specs[i].Symbol)
		}
	}
}

func TestProfitFactor(t *testing.T) {
	tests := []struct {
		name        string
		grossProfit float64
		grossLoss   float64
		expected    float64
	}{
		{"no trades", 0, 0, 0},
		{"normal", 300, 100, 3},
		{"losses only", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profitFactor(tt.grossProfit, tt.grossLoss); got != tt.expected {
				t.Errorf("profitFactor(%f, %f) = %f, want %f", tt.grossProfit, tt.grossLoss, got, tt.expected)
			}
		})
	}

	if pf := profitFactor(100, 0); !math.IsInf(pf, 1) {
		t.Errorf("winners without losers must report +Inf, got %f", pf)
	}
}

func TestComputeMetrics(t *testing.T) {
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

	result := newResult("NQ", 50000)
	result.Trades = []models.Trade{
		{PnL: 200, Win: true, SetupType: models.TriggerFVGFill, EntryHour: 10, EntryWeekday: time.Monday, EntryTime: monday},
		{PnL: -100, Win: false, SetupType: models.TriggerFVGFill, EntryHour: 10, EntryWeekday: time.Monday, EntryTime: monday.Add(time.Hour)},
		{PnL: 400, Win: true, SetupType: models.TriggerOrderBlockRetest, EntryHour: 14, EntryWeekday: time.Tuesday, EntryTime: monday.Add(28 * time.Hour)},
	}
	computeMetrics(result)

	if result.TotalTrades != 3 || result.WinningTrades != 2 || result.LosingTrades != 1 {
		t.Errorf("wrong counts: %+v", result)
	}
	if math.Abs(result.WinRate-200.0/3.0) > 1e-9 {
		t.Errorf("win rate = %f", result.WinRate)
	}
	if result.NetPnL != 500 || result.GrossProfit != 600 || result.GrossLoss != 100 {
		t.Errorf("wrong aggregates: net %f gross %f/%f", result.NetPnL, result.GrossProfit, result.GrossLoss)
	}
	if result.ProfitFactor != 6 {
		t.Errorf("profit factor = %f, want 6", result.ProfitFactor)
	}
	if result.AvgWin != 300 || result.AvgLoss != -100 {
		t.Errorf("avg win/loss = %f/%f", result.AvgWin, result.AvgLoss)
	}
	if result.LargestWin != 400 || result.LargestLoss != -100 {
		t.Errorf("largest win/loss = %f/%f", result.LargestWin, result.LargestLoss)
	}
	if math.Abs(result.Expectancy-500.0/3.0) > 1e-9 {
		t.Errorf("expectancy = %f", result.Expectancy)
	}

	fvg := result.BySetup[models.TriggerFVGFill]
	if fvg.Trades != 2 || fvg.Wins != 1 || fvg.NetPnL != 100 {
		t.Errorf("wrong FVG setup stats: %+v", fvg)
	}
	if hour := result.ByHour[10]; hour.Trades != 2 {
		t.Errorf("wrong 10:00 bucket: %+v", hour)
	}
	if day := result.ByWeekday[time.Tuesday]; day.Trades != 1 || day.NetPnL != 400 {
		t.Errorf("wrong Tuesday bucket: %+v", day)
	}
}
