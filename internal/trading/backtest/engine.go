// Package backtest replays detection strategies over historical bars
// inside a simulated account.
package backtest

import (
	"context"
	"sync"

	"ictrader/internal/analysis/ict"
	"ictrader/internal/analysis/indicators"
	"ictrader/internal/analysis/patterns"
	"ictrader/internal/config"
	"ictrader/internal/logging"
	"ictrader/internal/models"
)

// Engine orchestrates detectors over a sliding window and simulates
// execution bar by bar. Engines are safe to reuse across runs; each run
// owns its account and window state.
type Engine struct {
	cfg       config.BacktestConfig
	detection config.DetectionConfig
	fvg       *ict.FVGDetector
	rsi       *indicators.RSI
}

// NewEngine creates a backtest engine.
func NewEngine(cfg config.BacktestConfig, detection config.DetectionConfig) *Engine {
	return &Engine{
		cfg:       cfg,
		detection: detection,
		fvg:       ict.NewFVGDetector(detection.MinGapSize),
		rsi:       indicators.NewRSI(14),
	}
}

// candidate is a proposed entry produced by the window scan.
type candidate struct {
	side   models.Side
	entry  float64
	stop   float64
	target float64
}

// Run replays the strategy over the bar series. Empty or too-short input
// returns an explicit all-zero result rather than failing.
func (e *Engine) Run(ctx context.Context, symbol string, bars []models.Bar) *Result {
	logger := logging.WithSymbol(logging.FromContext(ctx), symbol)

	result := newResult(symbol, e.cfg.InitialCapital)
	account := models.NewAccount(e.cfg.InitialCapital)

	if len(bars) <= e.cfg.Lookback {
		finalize(result, account)
		return result
	}

	result.EquityCurve = append(result.EquityCurve, models.EquityPoint{
		Timestamp: bars[0].Timestamp,
		Balance:   account.Balance,
	})

	divDetector := patterns.NewDivergenceDetector(
		e.detection.PivotWindow,
		e.detection.MaxPivotDistance,
		e.cfg.MinDivergenceStrength,
	)

	for i := e.cfg.Lookback; i < len(bars); i++ {
		select {
		case <-ctx.Done():
			finalize(result, account)
			return result
		default:
		}

		window := bars[i-e.cfg.Lookback : i]

		cand := e.findCandidate(window, bars[i], divDetector)
		if cand == nil {
			continue
		}

		// Simulated margin gate.
		required := float64(e.cfg.Contracts) * e.cfg.MarginPerContract
		if account.Balance < required {
			continue
		}

		trade := e.simulate(symbol, bars, i, *cand)
		account.ApplyTrade(trade.PnL, trade.ExitTime)
		result.Trades = append(result.Trades, trade)
		result.EquityCurve = append(result.EquityCurve, models.EquityPoint{
			Timestamp: trade.ExitTime,
			Balance:   account.Balance,
		})
		logging.LogTrade(logger, symbol, string(trade.Side), trade.Contracts, trade.PnL)

		// Advance past the exit so one account never holds two overlapping
		// simulated positions.
		exitIdx := e.exitIndex(bars, i, trade)
		if exitIdx > i {
			i = exitIdx
		}
	}

	finalize(result, account)
	return result
}

// findCandidate applies the simplified FVG+divergence alignment rule: the
// divergence bias over the window must agree with the direction of a
// recent unfilled gap, and the entry is the current bar's close.
func (e *Engine) findCandidate(window []models.Bar, current models.Bar, divDetector *patterns.DivergenceDetector) *candidate {
	gaps := e.fvg.Update(e.fvg.Detect(window), window)

	rsiValues, err := e.rsi.Calculate(window)
	if err != nil {
		return nil
	}
	divs := divDetector.Detect(window, rsiValues, e.rsi.Name())
	if len(divs) == 0 {
		return nil
	}
	bias := patterns.Bias(divs)

	var gap *ict.FairValueGap
	for g := len(gaps) - 1; g >= 0; g-- {
		if gaps[g].Filled {
			continue
		}
		wantBullish := bias == patterns.BiasBullish || bias == patterns.BiasStrongBullish
		wantBearish := bias == patterns.BiasBearish || bias == patterns.BiasStrongBearish
		if wantBullish && gaps[g].Type == ict.FVGBullish {
			gap = &gaps[g]
			break
		}
		if wantBearish && gaps[g].Type == ict.FVGBearish {
			gap = &gaps[g]
			break
		}
	}
	if gap == nil {
		return nil
	}

	entry := current.Close
	if gap.Type == ict.FVGBullish {
		stop := gap.Lower - 2
		risk := entry - stop
		if risk <= 0 {
			return nil
		}
		return &candidate{side: models.SideLong, entry: entry, stop: stop, target: entry + 2*risk}
	}

	stop := gap.Upper + 2
	risk := stop - entry
	if risk <= 0 {
		return nil
	}
	return &candidate{side: models.SideShort, entry: entry, stop: stop, target: entry - 2*risk}
}

// simulate walks forward from the entry bar, exiting at the first stop or
// target touch. The look-ahead is hard-capped to guarantee termination; a
// trade still open at the cap is force-closed at the last bar's close.
func (e *Engine) simulate(symbol string, bars []models.Bar, entryIdx int, cand candidate) models.Trade {
	entryBar := bars[entryIdx]

	end := entryIdx + e.cfg.MaxForwardBars
	if end >= len(bars) {
		end = len(bars) - 1
	}

	exitPrice := cand.entry
	exitTime := entryBar.Timestamp
	var mfe, mae float64

	exited := false
	for j := entryIdx + 1; j <= end; j++ {
		bar := bars[j]

		if cand.side == models.SideLong {
			if fav := bar.High - cand.entry; fav > mfe {
				mfe = fav
			}
			if adv := cand.entry - bar.Low; adv > mae {
				mae = adv
			}
			if bar.Low <= cand.stop {
				exitPrice, exitTime, exited = cand.stop, bar.Timestamp, true
			} else if bar.High >= cand.target {
				exitPrice, exitTime, exited = cand.target, bar.Timestamp, true
			}
		} else {
			if fav := cand.entry - bar.Low; fav > mfe {
				mfe = fav
			}
			if adv := bar.High - cand.entry; adv > mae {
				mae = adv
			}
			if bar.High >= cand.stop {
				exitPrice, exitTime, exited = cand.stop, bar.Timestamp, true
			} else if bar.Low <= cand.target {
				exitPrice, exitTime, exited = cand.target, bar.Timestamp, true
			}
		}

		if exited {
			break
		}
		exitPrice, exitTime = bar.Close, bar.Timestamp
	}

	points := exitPrice - cand.entry
	if cand.side == models.SideShort {
		points = -points
	}
	pnl := points * float64(e.cfg.Contracts) * e.cfg.PointValue

	return models.Trade{
		Symbol:       symbol,
		Side:         cand.side,
		EntryTime:    entryBar.Timestamp,
		ExitTime:     exitTime,
		EntryPrice:   cand.entry,
		ExitPrice:    exitPrice,
		Contracts:    e.cfg.Contracts,
		PnL:          pnl,
		SetupType:    models.TriggerFVGFill,
		Win:          pnl > 0,
		MFE:          mfe,
		MAE:          mae,
		EntryHour:    entryBar.Timestamp.Hour(),
		EntryWeekday: entryBar.Timestamp.Weekday(),
	}
}

// exitIndex locates the bar index the trade exited on.
func (e *Engine) exitIndex(bars []models.Bar, entryIdx int, trade models.Trade) int {
	end := entryIdx + e.cfg.MaxForwardBars
	if end >= len(bars) {
		end = len(bars) - 1
	}
	for j := entryIdx + 1; j <= end; j++ {
		if !bars[j].Timestamp.Before(trade.ExitTime) {
			return j
		}
	}
	return end
}

// RunSpec names one independent backtest run in a batch.
type RunSpec struct {
	Symbol string
	Bars   []models.Bar
}

// RunBatch executes independent runs on a bounded worker pool. Runs share
// no mutable state; each owns its account and window.
func (e *Engine) RunBatch(ctx context.Context, specs []RunSpec, workers int) []*Result {
	if workers <= 0 {
		workers = 4
	}

	results := make([]*Result, len(specs))
	work := make(chan int, len(specs))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				select {
				case <-ctx.Done():
					return
				default:
					results[idx] = e.Run(ctx, specs[idx].Symbol, specs[idx].Bars)
				}
			}
		}()
	}

	for idx := range specs {
		work <- idx
	}
	close(work)
	wg.Wait()

	return results
}

// finalize copies account state into the result and computes aggregate
// metrics.
func finalize(result *Result, account *models.Account) {
	result.FinalBalance = account.Balance
	result.PeakBalance = account.PeakBalance
	result.MaxDrawdown = account.MaxDrawdown * 100
	computeMetrics(result)
}
