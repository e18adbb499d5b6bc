package ict

import (
	"time"

	"ictrader/internal/models"
)

// OrderBlockType distinguishes demand (bullish) from supply (bearish)
// blocks.
type OrderBlockType string

const (
	OrderBlockBullish OrderBlockType = "BULLISH"
	OrderBlockBearish OrderBlockType = "BEARISH"
)

// OrderBlock is the last opposite-direction bar before a strong
// displacement. Broken is terminal; a broken block never becomes valid
// again.
type OrderBlock struct {
	Type      OrderBlockType
	High      float64
	Low       float64
	Open      float64
	Close     float64
	Volume    int64
	Index     int // bar index of the block bar itself
	CreatedAt time.Time
	Strength  float64 // 0-100
	Tested    bool
	Broken    bool
}

// OrderBlockDetector finds and tracks order blocks.
type OrderBlockDetector struct {
	minDisplacement float64
}

// NewOrderBlockDetector creates a detector requiring at least
// minDisplacement points of body move on the displacement bar.
func NewOrderBlockDetector(minDisplacement float64) *OrderBlockDetector {
	return &OrderBlockDetector{minDisplacement: minDisplacement}
}

// Detect scans for order blocks: a down bar followed by an up-displacement
// bar marks the down bar as a bullish block; the mirror yields a bearish
// block. Strength combines relative volume and displacement magnitude,
// each component capped at 50.
func (d *OrderBlockDetector) Detect(bars []models.Bar) []OrderBlock {
	if len(bars) < 2 {
		return nil
	}

	meanVol := models.MeanVolume(bars)
	var blocks []OrderBlock

	for i := 1; i < len(bars); i++ {
		block := bars[i-1]
		displacement := bars[i].Close - bars[i].Open

		if block.Close < block.Open && displacement >= d.minDisplacement {
			blocks = append(blocks, d.newBlock(OrderBlockBullish, block, i-1, displacement, meanVol))
		}
		if block.Close > block.Open && -displacement >= d.minDisplacement {
			blocks = append(blocks, d.newBlock(OrderBlockBearish, block, i-1, -displacement, meanVol))
		}
	}

	return blocks
}

func (d *OrderBlockDetector) newBlock(t OrderBlockType, bar models.Bar, index int, displacement, meanVol float64) OrderBlock {
	return OrderBlock{
		Type:      t,
		High:      bar.High,
		Low:       bar.Low,
		Open:      bar.Open,
		Close:     bar.Close,
		Volume:    bar.Volume,
		Index:     index,
		CreatedAt: bar.Timestamp,
		Strength:  blockStrength(float64(bar.Volume), meanVol, displacement, d.minDisplacement),
	}
}

// blockStrength scores a block from its volume relative to the window mean
// and its displacement relative to the detection threshold. A ratio of 2.0
// saturates either component.
func blockStrength(volume, meanVol, displacement, minDisplacement float64) float64 {
	var volComponent float64
	if meanVol > 0 {
		volComponent = volume / meanVol * 25
		if volComponent > 50 {
			volComponent = 50
		}
	}

	var dispComponent float64
	if minDisplacement > 0 {
		dispComponent = displacement / minDisplacement * 25
		if dispComponent > 50 {
			dispComponent = 50
		}
	}

	return volComponent + dispComponent
}

// Update runs the tested/broken lifecycle over bars after each block's
// displacement bar and returns updated copies. A block is tested when later
// price revisits its range and broken, terminally, when a later close
// breaches its far boundary.
func (d *OrderBlockDetector) Update(blocks []OrderBlock, bars []models.Bar) []OrderBlock {
	out := make([]OrderBlock, len(blocks))
	copy(out, blocks)

	for b := range out {
		block := &out[b]
		if block.Broken {
			continue
		}
		for i := block.Index + 2; i < len(bars); i++ {
			if bars[i].Low <= block.High && bars[i].High >= block.Low {
				block.Tested = true
			}
			if block.Type == OrderBlockBullish && bars[i].Close < block.Low {
				block.Broken = true
				break
			}
			if block.Type == OrderBlockBearish && bars[i].Close > block.High {
				block.Broken = true
				break
			}
		}
	}

	return out
}
