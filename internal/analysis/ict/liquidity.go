package ict

import (
	"time"

	"ictrader/internal/models"
)

// PoolType distinguishes buy-side pools (above swing highs) from sell-side
// pools (below swing lows).
type PoolType string

const (
	PoolBuySide  PoolType = "BUY_SIDE"
	PoolSellSide PoolType = "SELL_SIDE"
)

// LiquidityPool is a price level assumed to cluster resting stop orders.
type LiquidityPool struct {
	Type      PoolType
	Price     float64
	Strength  float64 // 0-100, from touch count
	Index     int     // bar index of the swing extreme
	CreatedAt time.Time
	Swept     bool
	SweptAt   time.Time
}

// LiquidityDetector finds and tracks liquidity pools.
type LiquidityDetector struct {
	lookback  int     // half window for swing detection
	tolerance float64 // points within which a high/low counts as a touch
}

// NewLiquidityDetector creates a detector with the given half-window and
// touch tolerance.
func NewLiquidityDetector(lookback int, tolerance float64) *LiquidityDetector {
	return &LiquidityDetector{lookback: lookback, tolerance: tolerance}
}

// Detect scans sliding windows of size 2*lookback+1. A bar whose high is
// the window maximum seeds a buy-side pool at that price; strength grows
// with the number of highs touching the level inside the window. Sell-side
// pools mirror on lows. Duplicate levels within tolerance are merged into
// the first occurrence.
func (d *LiquidityDetector) Detect(bars []models.Bar) []LiquidityPool {
	if d.lookback <= 0 || len(bars) < 2*d.lookback+1 {
		return nil
	}

	var pools []LiquidityPool

	for c := d.lookback; c < len(bars)-d.lookback; c++ {
		window := bars[c-d.lookback : c+d.lookback+1]

		if bars[c].High == windowMaxHigh(window) && !d.hasPool(pools, PoolBuySide, bars[c].High) {
			touches := d.countTouches(window, bars[c].High, true)
			pools = append(pools, LiquidityPool{
				Type:      PoolBuySide,
				Price:     bars[c].High,
				Strength:  poolStrength(touches),
				Index:     c,
				CreatedAt: bars[c].Timestamp,
			})
		}

		if bars[c].Low == windowMinLow(window) && !d.hasPool(pools, PoolSellSide, bars[c].Low) {
			touches := d.countTouches(window, bars[c].Low, false)
			pools = append(pools, LiquidityPool{
				Type:      PoolSellSide,
				Price:     bars[c].Low,
				Strength:  poolStrength(touches),
				Index:     c,
				CreatedAt: bars[c].Timestamp,
			})
		}
	}

	return pools
}

// Update marks pools swept by the first later bar trading through the
// level: a high above a buy-side pool or a low below a sell-side pool.
// Returns updated copies; already-swept pools are untouched.
func (d *LiquidityDetector) Update(pools []LiquidityPool, bars []models.Bar) []LiquidityPool {
	out := make([]LiquidityPool, len(pools))
	copy(out, pools)

	for p := range out {
		pool := &out[p]
		if pool.Swept {
			continue
		}
		for i := pool.Index + 1; i < len(bars); i++ {
			if pool.Type == PoolBuySide && bars[i].High > pool.Price {
				pool.Swept = true
				pool.SweptAt = bars[i].Timestamp
				break
			}
			if pool.Type == PoolSellSide && bars[i].Low < pool.Price {
				pool.Swept = true
				pool.SweptAt = bars[i].Timestamp
				break
			}
		}
	}

	return out
}

func (d *LiquidityDetector) countTouches(window []models.Bar, price float64, onHighs bool) int {
	touches := 0
	for _, b := range window {
		v := b.Low
		if onHighs {
			v = b.High
		}
		diff := v - price
		if diff < 0 {
			diff = -diff
		}
		if diff <= d.tolerance {
			touches++
		}
	}
	return touches
}

func (d *LiquidityDetector) hasPool(pools []LiquidityPool, t PoolType, price float64) bool {
	for _, p := range pools {
		if p.Type != t {
			continue
		}
		diff := p.Price - price
		if diff < 0 {
			diff = -diff
		}
		if diff <= d.tolerance {
			return true
		}
	}
	return false
}

func poolStrength(touches int) float64 {
	strength := float64(touches) * 20
	if strength > 100 {
		strength = 100
	}
	return strength
}

func windowMaxHigh(window []models.Bar) float64 {
	h := window[0].High
	for _, b := range window[1:] {
		if b.High > h {
			h = b.High
		}
	}
	return h
}

func windowMinLow(window []models.Bar) float64 {
	l := window[0].Low
	for _, b := range window[1:] {
		if b.Low < l {
			l = b.Low
		}
	}
	return l
}
