package models

import (
	"time"
)

// TriggerType identifies the pattern family that produced a signal.
type TriggerType string

const (
	TriggerFVGFill          TriggerType = "FVG_FILL"
	TriggerOrderBlockRetest TriggerType = "ORDER_BLOCK_RETEST"
	TriggerLiquiditySweep   TriggerType = "LIQUIDITY_SWEEP_REVERSAL"
)

// SignalElements records which confluence factors were present when a signal
// was generated. Each boolean contributes a fixed weight to confidence.
type SignalElements struct {
	FVGFilled        bool
	OrderBlock       bool
	LiquiditySweep   bool
	CVDConfirms      bool
	StructureAligned bool
	VolumeSpike      bool
}

// Signal is a directional trade proposal. Immutable once emitted; a valid
// signal always has Risk > 0 and Reward > 0.
type Signal struct {
	Timestamp       time.Time
	Direction       Side
	Confidence      float64 // 0-100
	Entry           float64
	Stop            float64
	Targets         []float64 // ordered nearest first
	Risk            float64   // points at risk per contract
	Reward          float64   // points to first target
	RiskRewardRatio float64
	Trigger         TriggerType
	Elements        SignalElements
}

// TradeRisk holds the computed risk metrics for a proposed trade. Ephemeral,
// recomputed on every validation call.
type TradeRisk struct {
	RiskPoints      float64
	RewardPoints    float64
	RiskAmount      float64
	RewardAmount    float64
	RiskRewardRatio float64
}

// RiskValidation is the outcome of running a trade through the risk rule
// checklist.
type RiskValidation struct {
	Approved           bool
	Reason             string
	Warnings           []string
	Risk               TradeRisk
	SuggestedContracts int // 0 when no resize suggestion applies
}
