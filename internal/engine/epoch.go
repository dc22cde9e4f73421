package engine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/holders"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
)

// EventSink receives one record per completed slice. Sinks are best effort:
// a sink failure never fails the epoch.
type EventSink interface {
	Publish(ctx context.Context, event models.DistributionEvent)
}

// EpochReport is what one epoch run produced.
type EpochReport struct {
	Epoch      int64
	StartedAt  time.Time
	Duration   time.Duration
	Skipped    bool
	SkipReason string

	Gate    GateDecision
	Batches []PendingBatch

	HarvestedRaw      uint64
	SwappedRaw        uint64
	ReceivedLamports  uint64
	PaidLamports      uint64
	SecondaryLamports uint64
	PaidWallets       int
	AccruedWallets    int
}

// Runner executes one epoch: gate, plan, then per slice
// harvest -> swap -> distribute, each slice's proceeds paid before the next
// slice begins. All steps run sequentially; transfers share one sender
// balance and slices share one pool.
type Runner struct {
	cfg    *config.Config
	ledger ledger.Client
	cache  *holders.Cache
	state  *store.State
	logger *logrus.Logger

	harvester   HarvestRunner
	swapper     Swapper
	distributor *Distributor
	sinks       []EventSink

	mint  solana.PublicKey
	epoch int64
}

type RunnerConfig struct {
	Config *config.Config
	Ledger ledger.Client
	Cache  *holders.Cache
	State  *store.State
	Logger *logrus.Logger

	Harvester   HarvestRunner
	Swapper     Swapper
	Distributor *Distributor
	Sinks       []EventSink

	Mint solana.PublicKey
}

func NewRunner(rc RunnerConfig) *Runner {
	if rc.Logger == nil {
		rc.Logger = logrus.New()
	}
	return &Runner{
		cfg:         rc.Config,
		ledger:      rc.Ledger,
		cache:       rc.Cache,
		state:       rc.State,
		logger:      rc.Logger,
		harvester:   rc.Harvester,
		swapper:     rc.Swapper,
		distributor: rc.Distributor,
		sinks:       rc.Sinks,
		mint:        rc.Mint,
	}
}

// RunEpoch runs one full cycle. Every decision works from fresh on-chain
// state; nothing carries over from the previous epoch except the persistent
// store.
func (r *Runner) RunEpoch(ctx context.Context) (*EpochReport, error) {
	r.epoch++
	report := &EpochReport{
		Epoch:     r.epoch,
		StartedAt: time.Now().UTC(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := r.logger.WithField("epoch", report.Epoch)

	snap, err := r.cache.Snapshot(ctx)
	if err != nil {
		return report, err
	}

	if cleared, err := r.distributor.RetryPendingClears(ctx); err != nil {
		return report, err
	} else if cleared > 0 {
		log.WithField("cleared", cleared).Info("retried pending clears")
	}

	fees, err := r.ledger.GetWithheldFees(ctx, r.mint)
	if err != nil {
		return report, err
	}

	rate := r.swapper.Rate(ctx)

	report.Gate = EvaluateGate(r.cfg, fees.Total, rate, r.logger)
	if !report.Gate.Proceed {
		report.Skipped = true
		report.SkipReason = "below harvest threshold"
		log.WithFields(logrus.Fields{
			"withheld_raw":  fees.Total,
			"mode":          report.Gate.Mode,
			"threshold_raw": report.Gate.ThresholdRaw,
			"threshold_sol": float64(report.Gate.ThresholdLamports) / 1e9,
			"degraded":      report.Gate.Degraded,
		}).Info("epoch skipped, withheld fees roll over")
		return report, nil
	}

	ceiling := CeilingRaw(r.cfg, rate)
	targets := PlanSlices(fees.Total, ceiling, r.cfg.BatchCount)
	minPayout := MinPayoutLamports(r.cfg, rate, r.logger)

	log.WithFields(logrus.Fields{
		"withheld_raw": fees.Total,
		"ceiling_raw":  ceiling,
		"slices":       len(targets),
		"min_payout":   minPayout,
	}).Info("epoch starting")

	for i, target := range targets {
		if i > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(r.cfg.BatchDelay):
			}
		}

		batch := PendingBatch{Index: i, TargetRaw: target, StartedAt: time.Now().UTC()}

		// Later slices re-scan: the first slices drained accounts, and new
		// fees may have been withheld meanwhile.
		if i > 0 {
			fees, err = r.ledger.GetWithheldFees(ctx, r.mint)
			if err != nil {
				batch.Err = err.Error()
				report.Batches = append(report.Batches, batch)
				log.WithError(err).Error("withheld rescan failed, remaining slices abandoned")
				break
			}
			if fees.Total == 0 {
				report.Batches = append(report.Batches, batch)
				break
			}
		}

		if err := r.runSlice(ctx, &batch, fees, snap, minPayout, report); err != nil {
			batch.Err = err.Error()
			report.Batches = append(report.Batches, batch)
			log.WithFields(logrus.Fields{
				"slice": i,
				"error": err,
			}).Error("slice failed, remaining token retried next epoch")
			break
		}
		batch.Succeeded = true
		report.Batches = append(report.Batches, batch)
	}

	log.WithFields(logrus.Fields{
		"harvested_raw": report.HarvestedRaw,
		"received_sol":  float64(report.ReceivedLamports) / 1e9,
		"paid_sol":      float64(report.PaidLamports) / 1e9,
		"paid_wallets":  report.PaidWallets,
		"accrued":       report.AccruedWallets,
		"duration":      report.Duration,
	}).Info("epoch complete")

	return report, nil
}

func (r *Runner) runSlice(
	ctx context.Context,
	batch *PendingBatch,
	fees *ledger.WithheldFees,
	snap *models.EligibleWalletSnapshot,
	minPayout uint64,
	report *EpochReport,
) error {

	hres, err := r.harvester.Harvest(ctx, fees, batch.TargetRaw)
	if err != nil {
		return err
	}
	batch.HarvestedRaw = hres.HarvestedRaw
	report.HarvestedRaw += hres.HarvestedRaw
	if hres.HarvestedRaw == 0 {
		return nil
	}

	sres, err := r.swapper.Swap(ctx, hres.HarvestedRaw)
	if err != nil {
		return err
	}
	batch.SwapSignature = sres.Signature
	batch.ReceivedLamports = sres.ReceivedLamports
	report.SwappedRaw += sres.AmountInRaw
	report.ReceivedLamports += sres.ReceivedLamports

	dres, err := r.distributor.Distribute(ctx, sres.ReceivedLamports, snap, minPayout)
	if err != nil {
		return err
	}
	report.PaidLamports += dres.PaidLamports
	report.SecondaryLamports += dres.SecondaryLamports
	report.PaidWallets += dres.PaidWallets
	report.AccruedWallets += dres.AccruedWallets

	now := time.Now().UTC()
	if err := r.state.UpdateTaxState(ctx, func(ts *models.TaxState) {
		ts.TotalHarvestedRaw += hres.HarvestedRaw
		ts.TotalSwappedRaw += sres.AmountInRaw
		ts.TotalDistributedLamports += dres.PaidLamports
		ts.TotalSecondaryLamports += dres.SecondaryLamports
		ts.LastSwapIDs = append(ts.LastSwapIDs, sres.Signature)
		if n := len(ts.LastSwapIDs); n > 50 {
			ts.LastSwapIDs = ts.LastSwapIDs[n-50:]
		}
		ts.LastDistributionAt = &now
	}); err != nil {
		r.logger.WithError(err).Error("tax state update failed")
	}

	event := models.DistributionEvent{
		Epoch:            report.Epoch,
		BatchIndex:       batch.Index,
		Signature:        sres.Signature,
		Timestamp:        now,
		HarvestedRaw:     hres.HarvestedRaw,
		SwappedRaw:       sres.AmountInRaw,
		ReceivedLamports: sres.ReceivedLamports,
		PaidLamports:     dres.PaidLamports,
		PaidWallets:      dres.PaidWallets,
		AccruedWallets:   dres.AccruedWallets,
		DurationMS:       time.Since(batch.StartedAt).Milliseconds(),
	}
	for _, sink := range r.sinks {
		sink.Publish(ctx, event)
	}

	return nil
}
