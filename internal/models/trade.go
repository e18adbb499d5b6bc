package models

import (
	"time"
)

// Trade is a completed simulated trade. Terminal once closed.
type Trade struct {
	Symbol       string
	Side         Side
	EntryTime    time.Time
	ExitTime     time.Time
	EntryPrice   float64
	ExitPrice    float64
	Contracts    int
	PnL          float64
	SetupType    TriggerType
	Win          bool
	MFE          float64 // max favorable excursion, points
	MAE          float64 // max adverse excursion, points
	EntryHour    int
	EntryWeekday time.Weekday
}

// Position is an open live position carrying its precomputed dollar risk.
type Position struct {
	Symbol     string
	Side       Side
	EntryTime  time.Time
	EntryPrice float64
	Stop       float64
	Contracts  int
	RiskAmount float64
}

// EquityPoint is one snapshot on the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
}

// Account tracks simulated capital. Balance always equals initial capital
// plus the sum of closed-trade P&L; PeakBalance and MaxDrawdown only ever
// grow.
type Account struct {
	InitialCapital float64
	Balance        float64
	PeakBalance    float64
	MaxDrawdown    float64 // fraction of peak, 0-1
	EquityCurve    []EquityPoint
}

// NewAccount creates an account with the given starting capital.
func NewAccount(initialCapital float64) *Account {
	return &Account{
		InitialCapital: initialCapital,
		Balance:        initialCapital,
		PeakBalance:    initialCapital,
	}
}

// ApplyTrade books a closed trade's P&L. Called exactly once per trade.
func (a *Account) ApplyTrade(pnl float64, at time.Time) {
	a.Balance += pnl
	if a.Balance > a.PeakBalance {
		a.PeakBalance = a.Balance
	}
	if a.PeakBalance > 0 {
		drawdown := (a.PeakBalance - a.Balance) / a.PeakBalance
		if drawdown > a.MaxDrawdown {
			a.MaxDrawdown = drawdown
		}
	}
	a.EquityCurve = append(a.EquityCurve, EquityPoint{Timestamp: at, Balance: a.Balance})
}
