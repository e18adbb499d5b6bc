package backtest

import (
	"math"
	"time"

	"ictrader/internal/models"
)

// SetupStats aggregates performance for one setup type.
type SetupStats struct {
	Trades  int
	Wins    int
	WinRate float64
	NetPnL  float64
}

// BucketStats aggregates performance for one time bucket (hour or
// weekday).
type BucketStats struct {
	Trades  int
	Wins    int
	WinRate float64
	NetPnL  float64
}

// Result is the aggregate outcome of one backtest run. A run over empty or
// signal-free input yields a well-defined all-zero result.
type Result struct {
	Symbol         string
	InitialCapital float64
	FinalBalance   float64
	PeakBalance    float64
	MaxDrawdown    float64 // percent of peak

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent

	NetPnL       float64
	GrossProfit  float64
	GrossLoss    float64 // positive magnitude
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // negative
	LargestWin   float64
	LargestLoss  float64 // negative
	Expectancy   float64
	SharpeRatio  float64
	SortinoRatio float64

	Trades      []models.Trade
	EquityCurve []models.EquityPoint
	BySetup     map[models.TriggerType]SetupStats
	ByHour      map[int]BucketStats
	ByWeekday   map[time.Weekday]BucketStats
}

func newResult(symbol string, initialCapital float64) *Result {
	return &Result{
		Symbol:         symbol,
		InitialCapital: initialCapital,
		BySetup:        make(map[models.TriggerType]SetupStats),
		ByHour:         make(map[int]BucketStats),
		ByWeekday:      make(map[time.Weekday]BucketStats),
	}
}

// computeMetrics fills every aggregate field from the trade list. Zero
// trades leave the zero values; no division errors propagate.
func computeMetrics(r *Result) {
	r.TotalTrades = len(r.Trades)
	if r.TotalTrades == 0 {
		return
	}

	returns := make([]float64, 0, r.TotalTrades)
	balance := r.InitialCapital

	for _, t := range r.Trades {
		r.NetPnL += t.PnL
		if balance > 0 {
			returns = append(returns, t.PnL/balance)
		}
		balance += t.PnL

		if t.Win {
			r.WinningTrades++
			r.GrossProfit += t.PnL
			if t.PnL > r.LargestWin {
				r.LargestWin = t.PnL
			}
		} else {
			r.LosingTrades++
			r.GrossLoss += -t.PnL
			if t.PnL < r.LargestLoss {
				r.LargestLoss = t.PnL
			}
		}

		setup := r.BySetup[t.SetupType]
		setup.Trades++
		setup.NetPnL += t.PnL
		if t.Win {
			setup.Wins++
		}
		setup.WinRate = float64(setup.Wins) / float64(setup.Trades) * 100
		r.BySetup[t.SetupType] = setup

		hour := r.ByHour[t.EntryHour]
		hour.Trades++
		hour.NetPnL += t.PnL
		if t.Win {
			hour.Wins++
		}
		hour.WinRate = float64(hour.Wins) / float64(hour.Trades) * 100
		r.ByHour[t.EntryHour] = hour

		day := r.ByWeekday[t.EntryWeekday]
		day.Trades++
		day.NetPnL += t.PnL
		if t.Win {
			day.Wins++
		}
		day.WinRate = float64(day.Wins) / float64(day.Trades) * 100
		r.ByWeekday[t.EntryWeekday] = day
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100

	if r.WinningTrades > 0 {
		r.AvgWin = r.GrossProfit / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = -r.GrossLoss / float64(r.LosingTrades)
	}

	r.ProfitFactor = profitFactor(r.GrossProfit, r.GrossLoss)
	r.Expectancy = r.NetPnL / float64(r.TotalTrades)
	r.SharpeRatio = sharpe(returns)
	r.SortinoRatio = sortino(returns)
}

// profitFactor degrades to 0 with no winners and no losers, and to +Inf
// when profit exists without any losses.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

// tradingDaysPerYear annualizes per-trade returns.
const tradingDaysPerYear = 252

// sharpe computes the annualized Sharpe ratio from per-trade percentage
// returns. Zero deviation degrades to 0.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	m := meanOf(returns)
	var variance float64
	for _, r := range returns {
		diff := r - m
		variance += diff * diff
	}
	variance /= float64(len(returns))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}

	return m / sd * math.Sqrt(tradingDaysPerYear)
}

// sortino is sharpe restricted to downside deviation.
func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	m := meanOf(returns)
	var downside float64
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside /= float64(len(returns))
	dd := math.Sqrt(downside)
	if dd == 0 {
		return 0
	}

	return m / dd * math.Sqrt(tradingDaysPerYear)
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
