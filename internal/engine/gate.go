package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
)

// GateDecision is the result of the epoch-start threshold check. Evaluation
// is pure: same withheld amount and rate always yield the same decision.
type GateDecision struct {
	Proceed bool
	Mode    config.ThresholdMode

	WithheldRaw uint64
	// Rate is lamports received per raw token unit at evaluation time.
	// Zero means the pool rate was unavailable.
	Rate float64

	// Degraded is set when sol mode had no usable rate and the raw fallback
	// threshold was applied instead.
	Degraded bool

	// ThresholdRaw / ThresholdLamports hold whichever threshold was actually
	// compared, in its native unit.
	ThresholdRaw      uint64
	ThresholdLamports uint64
	WithheldLamports  uint64
}

// EvaluateGate decides whether the current withheld total justifies a
// harvest. In sol mode the withheld amount is valued through the pool rate;
// when no rate is available the fixed raw threshold applies instead, logged
// as degraded. A FAIL leaves the withheld amount untouched on-chain.
func EvaluateGate(cfg *config.Config, withheldRaw uint64, rate float64, logger *logrus.Logger) GateDecision {
	d := GateDecision{
		Mode:        cfg.Mode,
		WithheldRaw: withheldRaw,
		Rate:        rate,
	}

	if cfg.Mode == config.ModeRaw {
		d.ThresholdRaw = cfg.MinHarvestRaw
		d.Proceed = withheldRaw >= cfg.MinHarvestRaw
		return d
	}

	if rate <= 0 {
		d.Degraded = true
		d.ThresholdRaw = cfg.MinHarvestRaw
		d.Proceed = withheldRaw >= cfg.MinHarvestRaw
		logger.WithFields(logrus.Fields{
			"withheld_raw":  withheldRaw,
			"threshold_raw": cfg.MinHarvestRaw,
		}).Warn("pool rate unavailable, threshold gate degraded to raw fallback")
		return d
	}

	d.WithheldLamports = uint64(float64(withheldRaw) * rate)
	d.ThresholdLamports = uint64(cfg.MinHarvestSOL * constants.LamportsPerSOL)
	d.Proceed = d.WithheldLamports >= d.ThresholdLamports
	return d
}

// MinPayoutLamports returns the per-wallet minimum payout threshold in
// lamports, converted the same way the harvest gate converts. In raw mode
// the configured raw minimum is valued through the rate; without a rate the
// sol-denominated minimum applies, logged as degraded.
func MinPayoutLamports(cfg *config.Config, rate float64, logger *logrus.Logger) uint64 {
	if cfg.Mode == config.ModeSOL {
		return uint64(cfg.MinPayoutSOL * constants.LamportsPerSOL)
	}
	if rate <= 0 {
		logger.WithField("min_payout_sol", cfg.MinPayoutSOL).
			Warn("pool rate unavailable, payout threshold degraded to sol value")
		return uint64(cfg.MinPayoutSOL * constants.LamportsPerSOL)
	}
	return uint64(float64(cfg.MinPayoutRaw) * rate)
}

// CeilingRaw returns the batching ceiling in raw token units. The sol-mode
// ceiling divides through the rate; without a rate the raw ceiling applies.
func CeilingRaw(cfg *config.Config, rate float64) uint64 {
	if cfg.Mode == config.ModeRaw || rate <= 0 {
		return cfg.BatchCeilingRaw
	}
	ceilingLamports := cfg.BatchCeilingSOL * constants.LamportsPerSOL
	return uint64(ceilingLamports / rate)
}
