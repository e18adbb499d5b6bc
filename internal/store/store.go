// Package store provides data persistence implementations. The analysis
// core never touches this package; it is the boundary adapter that feeds
// bar series into the engine.
package store

import (
	"context"
	"time"

	"ictrader/internal/models"
)

// BacktestRun is a persisted summary of one backtest execution.
type BacktestRun struct {
	ID           int64
	Symbol       string
	RunAt        time.Time
	TotalTrades  int
	WinRate      float64
	NetPnL       float64
	ProfitFactor float64
	MaxDrawdown  float64
	SharpeRatio  float64
}

// DataStore abstracts bar and run persistence.
type DataStore interface {
	SaveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error)
	SaveBacktestRun(ctx context.Context, run BacktestRun) (int64, error)
	ListBacktestRuns(ctx context.Context, symbol string, limit int) ([]BacktestRun, error)
	Close() error
}
