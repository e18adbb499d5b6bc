// Package risk provides the trade validation rule engine and position
// sizing.
package risk

import (
	"fmt"
	"math"
	"sync"

	"ictrader/internal/config"
	"ictrader/internal/models"
)

// TradeProposal is a candidate trade submitted for validation.
type TradeProposal struct {
	Symbol         string
	Side           models.Side
	Entry          float64
	Stop           float64
	Target         float64
	Contracts      int
	AccountBalance float64
}

// Manager is a stateful rule engine approving or rejecting proposed trades.
// Validate does not mutate state; the validate-then-mutate sequence
// (Validate, AddPosition, RecordResult) requires single-writer discipline
// from callers even though individual methods are locked.
type Manager struct {
	cfg config.RiskConfig

	mu                sync.Mutex
	dailyPnL          float64
	dailyTrades       int
	consecutiveLosses int
	openPositions     []models.Position
}

// NewManager creates a risk manager with the given limits.
func NewManager(cfg config.RiskConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Validate runs the proposal through the ordered rule checklist. It is a
// pure function of the proposal and current manager state: repeated calls
// with unchanged state return identical results.
func (m *Manager) Validate(p TradeProposal) models.RiskValidation {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := models.RiskValidation{}

	// Rule 1: stop and target must sit on the correct side of entry.
	if p.Side == models.SideLong && (p.Stop >= p.Entry || p.Target <= p.Entry) {
		v.Reason = fmt.Sprintf("invalid long parameters: stop %.2f / target %.2f vs entry %.2f", p.Stop, p.Target, p.Entry)
		return v
	}
	if p.Side == models.SideShort && (p.Stop <= p.Entry || p.Target >= p.Entry) {
		v.Reason = fmt.Sprintf("invalid short parameters: stop %.2f / target %.2f vs entry %.2f", p.Stop, p.Target, p.Entry)
		return v
	}

	riskPoints := math.Abs(p.Entry - p.Stop)
	rewardPoints := math.Abs(p.Target - p.Entry)
	riskPerContract := riskPoints * m.cfg.PointValue
	contracts := p.Contracts
	if contracts <= 0 {
		contracts = 1
	}
	totalRisk := riskPerContract * float64(contracts)
	totalReward := rewardPoints * m.cfg.PointValue * float64(contracts)

	v.Risk = models.TradeRisk{
		RiskPoints:   riskPoints,
		RewardPoints: rewardPoints,
		RiskAmount:   totalRisk,
		RewardAmount: totalReward,
	}
	if riskPoints > 0 {
		v.Risk.RiskRewardRatio = rewardPoints / riskPoints
	}

	// Rule 2: daily loss limit already hit.
	if m.dailyPnL <= -m.cfg.MaxDailyLoss {
		v.Reason = fmt.Sprintf("daily loss limit reached: %.2f (limit %.2f)", -m.dailyPnL, m.cfg.MaxDailyLoss)
		return v
	}

	// Rule 3: this trade's risk would blow through the daily limit.
	if m.dailyPnL-totalRisk < -m.cfg.MaxDailyLoss {
		v.Reason = fmt.Sprintf("trade risk %.2f would exceed remaining daily loss budget %.2f", totalRisk, m.cfg.MaxDailyLoss+m.dailyPnL)
		v.SuggestedContracts = suggestContracts(m.cfg.MaxDailyLoss+m.dailyPnL, riskPerContract)
		return v
	}

	// Rule 4: per-position risk cap.
	if totalRisk > m.cfg.MaxPositionRisk {
		v.Reason = fmt.Sprintf("position risk %.2f exceeds limit %.2f", totalRisk, m.cfg.MaxPositionRisk)
		v.SuggestedContracts = suggestContracts(m.cfg.MaxPositionRisk, riskPerContract)
		return v
	}

	// Rule 5: minimum risk:reward.
	if v.Risk.RiskRewardRatio < m.cfg.MinRiskReward {
		v.Reason = fmt.Sprintf("risk:reward %.2f below minimum %.2f", v.Risk.RiskRewardRatio, m.cfg.MinRiskReward)
		return v
	}

	// Rule 6: consecutive loss halt.
	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		v.Reason = fmt.Sprintf("consecutive loss limit reached: %d", m.consecutiveLosses)
		return v
	}

	// Rule 7: portfolio heat.
	heat := m.openRiskLocked()
	if heat+totalRisk > m.cfg.MaxPortfolioHeat {
		v.Reason = fmt.Sprintf("portfolio heat %.2f would exceed limit %.2f", heat+totalRisk, m.cfg.MaxPortfolioHeat)
		return v
	}

	// Rule 8: max open positions.
	if len(m.openPositions) >= m.cfg.MaxPositions {
		v.Reason = fmt.Sprintf("max open positions reached: %d", len(m.openPositions))
		return v
	}

	v.Approved = true

	// Non-blocking warnings.
	if p.AccountBalance > 0 && totalRisk/p.AccountBalance > 0.03 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("risk is %.1f%% of account", totalRisk/p.AccountBalance*100))
	}
	if v.Risk.RiskRewardRatio < 2 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("risk:reward %.2f below 2:1", v.Risk.RiskRewardRatio))
	}
	if m.consecutiveLosses > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("on a %d-trade losing streak", m.consecutiveLosses))
	}

	return v
}

func suggestContracts(budget, riskPerContract float64) int {
	if riskPerContract <= 0 || budget <= 0 {
		return 1
	}
	n := int(math.Floor(budget / riskPerContract))
	if n < 1 {
		return 1
	}
	return n
}

// PositionSize converts a dollar risk budget and stop distance into a
// contract count, clamped to [1, max_contracts_per_trade].
func (m *Manager) PositionSize(riskBudget, pointsAtRisk float64) int {
	if pointsAtRisk <= 0 || m.cfg.PointValue <= 0 {
		return 1
	}
	n := int(math.Floor(riskBudget / (pointsAtRisk * m.cfg.PointValue)))
	if n < 1 {
		n = 1
	}
	if m.cfg.MaxContractsPerTrade > 0 && n > m.cfg.MaxContractsPerTrade {
		n = m.cfg.MaxContractsPerTrade
	}
	return n
}

// AddPosition registers an open position and its outstanding risk.
func (m *Manager) AddPosition(pos models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openPositions = append(m.openPositions, pos)
}

// RemovePosition drops the first open position matching the symbol.
func (m *Manager) RemovePosition(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, pos := range m.openPositions {
		if pos.Symbol == symbol {
			m.openPositions = append(m.openPositions[:i], m.openPositions[i+1:]...)
			return
		}
	}
}

// RecordResult books a closed trade's P&L against the daily stats and the
// loss streak. A loss extends the streak; any non-negative result resets
// it.
func (m *Manager) RecordResult(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL += pnl
	m.dailyTrades++
	if pnl < 0 {
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}
}

// ResetDailyStats clears the daily P&L and trade count at session roll.
// The consecutive-loss streak deliberately survives the reset.
func (m *Manager) ResetDailyStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.dailyTrades = 0
}

// DailyPnL returns the running daily P&L.
func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

// ConsecutiveLosses returns the current loss streak.
func (m *Manager) ConsecutiveLosses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveLosses
}

// OpenRisk returns the total dollar risk outstanding across open
// positions.
func (m *Manager) OpenRisk() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openRiskLocked()
}

func (m *Manager) openRiskLocked() float64 {
	var total float64
	for _, pos := range m.openPositions {
		total += pos.RiskAmount
	}
	return total
}
