// Package signals fuses detector output into directional trade signals.
package signals

import (
	"context"
	"time"

	"ictrader/internal/analysis/ict"
	"ictrader/internal/config"
	"ictrader/internal/logging"
	"ictrader/internal/models"
)

// Confluence weights for confidence scoring.
const (
	weightFVGFilled        = 25.0
	weightOrderBlock       = 25.0
	weightLiquiditySweep   = 20.0
	weightCVDConfirms      = 20.0
	weightStructureAligned = 15.0
	weightVolumeSpike      = 10.0
	patternStrengthFactor  = 0.2
)

// Stop padding in points per trigger family.
const (
	fvgStopPad   = 2.0
	blockStopPad = 2.0
	sweepStopPad = 3.0
)

// Snapshot bundles the detector state a signal evaluation runs against. All
// slices must refer to the same bar series.
type Snapshot struct {
	Bars      []models.Bar
	Gaps      []ict.FairValueGap
	Blocks    []ict.OrderBlock
	Pools     []ict.LiquidityPool
	Structure ict.MarketStructure
}

// Generator produces trade signals from pattern confluence. It keeps a
// synthetic cumulative volume delta as an order-flow proxy.
type Generator struct {
	cfg config.SignalConfig
}

// NewGenerator creates a signal generator.
func NewGenerator(cfg config.SignalConfig) *Generator {
	return &Generator{cfg: cfg}
}

// CVD computes the synthetic cumulative volume delta series. An up-close
// bar contributes the configured weight of its volume as buys and the rest
// as sells; down-close bars reverse the weighting.
func (g *Generator) CVD(bars []models.Bar) []float64 {
	w := g.cfg.BuyVolumeWeight
	out := make([]float64, len(bars))
	var running float64

	for i, b := range bars {
		delta := (2*w - 1) * float64(b.Volume)
		if !b.IsBullish() {
			delta = -delta
		}
		running += delta
		out[i] = running
	}

	return out
}

// Generate evaluates the three signal families against the snapshot and
// returns whichever produced a valid signal. Families are independent;
// each requires structure alignment and order-flow confirmation. Empty or
// too-short windows yield no signals.
func (g *Generator) Generate(ctx context.Context, snap Snapshot) []models.Signal {
	if len(snap.Bars) == 0 {
		return nil
	}
	logger := logging.FromContext(ctx)

	last := snap.Bars[len(snap.Bars)-1]
	cvd := g.CVD(snap.Bars)
	cvdBias := g.cvdBias(cvd)
	volumeSpike := g.volumeSpike(snap.Bars)

	var out []models.Signal
	if sig := g.fvgFillSignal(snap, last, cvdBias, volumeSpike); sig != nil {
		out = append(out, *sig)
	}
	if sig := g.orderBlockSignal(snap, last, cvdBias, volumeSpike); sig != nil {
		out = append(out, *sig)
	}
	if sig := g.liquiditySweepSignal(snap, last, cvdBias, volumeSpike); sig != nil {
		out = append(out, *sig)
	}

	for _, sig := range out {
		logging.LogSignal(logger, string(sig.Trigger), string(sig.Direction), sig.Confidence, sig.Entry, sig.Stop)
	}

	return out
}

// cvdBias returns the direction supported by the recent average of the CVD
// series, or "" when flat.
func (g *Generator) cvdBias(cvd []float64) models.Side {
	n := g.cfg.CVDAverageBars
	if n <= 0 || len(cvd) == 0 {
		return ""
	}
	if len(cvd) < n {
		n = len(cvd)
	}

	var total float64
	for _, v := range cvd[len(cvd)-n:] {
		total += v
	}
	avg := total / float64(n)

	switch {
	case avg > 0:
		return models.SideLong
	case avg < 0:
		return models.SideShort
	default:
		return ""
	}
}

func (g *Generator) volumeSpike(bars []models.Bar) bool {
	if len(bars) < 2 {
		return false
	}
	meanVol := models.MeanVolume(bars)
	return meanVol > 0 && float64(bars[len(bars)-1].Volume) > g.cfg.VolumeSpikeFactor*meanVol
}

// fvgFillSignal fires when a gap filled recently, order flow agrees with
// the gap direction and structure aligns. Targets sit one and two gap
// widths from entry.
func (g *Generator) fvgFillSignal(snap Snapshot, last models.Bar, cvdBias models.Side, volumeSpike bool) *models.Signal {
	recency := time.Duration(g.cfg.FVGRecencyMinutes) * time.Minute

	var gap *ict.FairValueGap
	for i := range snap.Gaps {
		gp := &snap.Gaps[i]
		if !gp.Filled || last.Timestamp.Sub(gp.FilledAt) > recency {
			continue
		}
		if gap == nil || gp.FilledAt.After(gap.FilledAt) {
			gap = gp
		}
	}
	if gap == nil {
		return nil
	}

	direction := models.SideLong
	if gap.Type == ict.FVGBearish {
		direction = models.SideShort
	}
	if cvdBias != direction || !snap.Structure.AlignsWith(direction) {
		return nil
	}

	entry := last.Close
	var stop float64
	var targets []float64
	if direction == models.SideLong {
		stop = gap.Lower - fvgStopPad
		targets = []float64{entry + gap.Size, entry + 2*gap.Size}
	} else {
		stop = gap.Upper + fvgStopPad
		targets = []float64{entry - gap.Size, entry - 2*gap.Size}
	}

	elements := models.SignalElements{
		FVGFilled:        true,
		CVDConfirms:      true,
		StructureAligned: true,
		VolumeSpike:      volumeSpike,
	}

	return buildSignal(last.Timestamp, direction, models.TriggerFVGFill, entry, stop, targets, elements, 0)
}

// orderBlockSignal fires when price trades inside a tested, unbroken block
// with a volume spike and order-flow confirmation.
func (g *Generator) orderBlockSignal(snap Snapshot, last models.Bar, cvdBias models.Side, volumeSpike bool) *models.Signal {
	if !volumeSpike {
		return nil
	}

	var block *ict.OrderBlock
	for i := range snap.Blocks {
		bl := &snap.Blocks[i]
		if !bl.Tested || bl.Broken {
			continue
		}
		if last.Close < bl.Low || last.Close > bl.High {
			continue
		}
		if block == nil || bl.Strength > block.Strength {
			block = bl
		}
	}
	if block == nil {
		return nil
	}

	direction := models.SideLong
	if block.Type == ict.OrderBlockBearish {
		direction = models.SideShort
	}
	if cvdBias != direction || !snap.Structure.AlignsWith(direction) {
		return nil
	}

	entry := last.Close
	var stop float64
	if direction == models.SideLong {
		stop = block.Low - blockStopPad
	} else {
		stop = block.High + blockStopPad
	}
	risk := absPoints(entry, stop)
	var targets []float64
	if direction == models.SideLong {
		targets = []float64{entry + 1.5*risk, entry + 3*risk}
	} else {
		targets = []float64{entry - 1.5*risk, entry - 3*risk}
	}

	elements := models.SignalElements{
		OrderBlock:       true,
		CVDConfirms:      true,
		StructureAligned: true,
		VolumeSpike:      true,
	}

	return buildSignal(last.Timestamp, direction, models.TriggerOrderBlockRetest, entry, stop, targets, elements, block.Strength)
}

// liquiditySweepSignal fires on a recent sweep against the structural
// continuation bias: a sell-side sweep in a bullish structure proposes a
// long reversal, and the mirror for shorts.
func (g *Generator) liquiditySweepSignal(snap Snapshot, last models.Bar, cvdBias models.Side, volumeSpike bool) *models.Signal {
	recency := time.Duration(g.cfg.SweepRecencyMinutes) * time.Minute

	var pool *ict.LiquidityPool
	for i := range snap.Pools {
		p := &snap.Pools[i]
		if !p.Swept || last.Timestamp.Sub(p.SweptAt) > recency {
			continue
		}
		if pool == nil || p.SweptAt.After(pool.SweptAt) {
			pool = p
		}
	}
	if pool == nil {
		return nil
	}

	var direction models.Side
	switch {
	case pool.Type == ict.PoolSellSide && snap.Structure.Bias == ict.StructureBullish:
		direction = models.SideLong
	case pool.Type == ict.PoolBuySide && snap.Structure.Bias == ict.StructureBearish:
		direction = models.SideShort
	default:
		return nil
	}
	if cvdBias != direction {
		return nil
	}

	entry := last.Close
	var stop float64
	if direction == models.SideLong {
		stop = pool.Price - sweepStopPad
	} else {
		stop = pool.Price + sweepStopPad
	}
	risk := absPoints(entry, stop)
	var targets []float64
	if direction == models.SideLong {
		targets = []float64{entry + 2*risk, entry + 3*risk}
	} else {
		targets = []float64{entry - 2*risk, entry - 3*risk}
	}

	elements := models.SignalElements{
		LiquiditySweep:   true,
		CVDConfirms:      true,
		StructureAligned: true,
		VolumeSpike:      volumeSpike,
	}

	return buildSignal(last.Timestamp, direction, models.TriggerLiquiditySweep, entry, stop, targets, elements, pool.Strength)
}

// buildSignal assembles and validates a signal. Returns nil when risk or
// reward would be non-positive.
func buildSignal(ts time.Time, direction models.Side, trigger models.TriggerType, entry, stop float64, targets []float64, elements models.SignalElements, patternStrength float64) *models.Signal {
	risk := absPoints(entry, stop)
	if risk <= 0 || len(targets) == 0 {
		return nil
	}
	reward := absPoints(entry, targets[0])
	if reward <= 0 {
		return nil
	}

	return &models.Signal{
		Timestamp:       ts,
		Direction:       direction,
		Confidence:      confidence(elements, patternStrength),
		Entry:           entry,
		Stop:            stop,
		Targets:         targets,
		Risk:            risk,
		Reward:          reward,
		RiskRewardRatio: reward / risk,
		Trigger:         trigger,
		Elements:        elements,
	}
}

// confidence sums the weights of the present confluence elements plus a
// fraction of the triggering pattern's own strength, capped at 100.
func confidence(e models.SignalElements, patternStrength float64) float64 {
	var score float64
	if e.FVGFilled {
		score += weightFVGFilled
	}
	if e.OrderBlock {
		score += weightOrderBlock
	}
	if e.LiquiditySweep {
		score += weightLiquiditySweep
	}
	if e.CVDConfirms {
		score += weightCVDConfirms
	}
	if e.StructureAligned {
		score += weightStructureAligned
	}
	if e.VolumeSpike {
		score += weightVolumeSpike
	}
	score += patternStrengthFactor * patternStrength
	if score > 100 {
		score = 100
	}
	return score
}

func absPoints(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
