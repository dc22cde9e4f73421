package holders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
)

// RateFn returns the current pool rate in lamports per raw token unit, zero
// when unavailable.
type RateFn func(ctx context.Context) float64

// Cache snapshots holder eligibility on its own wall-clock interval,
// decoupled from the epoch interval. Between refreshes the distribution
// engine consumes the last snapshot read-only.
type Cache struct {
	source   SnapshotSource
	state    *store.State
	interval time.Duration
	// minHold is the eligibility minimum in raw units (raw mode, and the
	// degraded fallback in sol mode when no rate is available).
	minHold uint64
	// minHoldSOL is the eligibility minimum as a SOL value (sol mode),
	// converted through the pool rate at refresh time.
	minHoldSOL float64
	solMode    bool
	rate       RateFn
	logger     *logrus.Logger

	snapshot *models.EligibleWalletSnapshot
}

type CacheConfig struct {
	Source     SnapshotSource
	State      *store.State
	Interval   time.Duration
	MinHold    uint64
	MinHoldSOL float64
	SolMode    bool
	Rate       RateFn
	Logger     *logrus.Logger
}

func NewCache(cfg CacheConfig) *Cache {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Minute
	}
	return &Cache{
		source:     cfg.Source,
		state:      cfg.State,
		interval:   cfg.Interval,
		minHold:    cfg.MinHold,
		minHoldSOL: cfg.MinHoldSOL,
		solMode:    cfg.SolMode,
		rate:       cfg.Rate,
		logger:     cfg.Logger,
	}
}

// Snapshot returns the current eligible-wallet snapshot, refreshing it first
// when it is stale (or missing, e.g. after a restart with an empty store).
func (c *Cache) Snapshot(ctx context.Context) (*models.EligibleWalletSnapshot, error) {
	if c.snapshot == nil {
		persisted, err := c.state.LoadSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		c.snapshot = persisted
	}

	if time.Since(c.snapshot.RefreshedAt) >= c.interval {
		if err := c.Refresh(ctx); err != nil {
			if len(c.snapshot.Wallets) == 0 {
				return nil, err
			}
			// Stale snapshot beats no snapshot; refresh retried next call.
			c.logger.WithFields(logrus.Fields{
				"error":        err,
				"refreshed_at": c.snapshot.RefreshedAt,
			}).Warn("holder refresh failed, using stale snapshot")
		}
	}

	return c.snapshot, nil
}

// Refresh rebuilds the snapshot wholesale from a full holder scan.
func (c *Cache) Refresh(ctx context.Context) error {
	all, err := c.source.Holders(ctx)
	if err != nil {
		return err
	}
	minHold := c.minHoldRaw(ctx)

	snap := models.NewEligibleWalletSnapshot()
	snap.ScannedCount = len(all)
	for _, h := range all {
		if h.Blacklisted {
			continue
		}
		if h.Balance < minHold {
			continue
		}
		snap.Wallets[h.Address] = h.Balance
	}
	snap.RefreshedAt = time.Now().UTC()

	if err := c.state.SaveSnapshot(ctx, snap); err != nil {
		// Keep the fresh snapshot in memory even if persisting failed; the
		// next successful save still reflects the correct set.
		c.snapshot = snap
		c.logger.WithFields(logrus.Fields{
			"error":    err,
			"eligible": len(snap.Wallets),
		}).Error("failed to persist eligible wallet snapshot")
		return nil
	}

	c.snapshot = snap
	c.logger.WithFields(logrus.Fields{
		"scanned":  snap.ScannedCount,
		"eligible": len(snap.Wallets),
	}).Info("eligible wallet snapshot refreshed")
	return nil
}

// minHoldRaw resolves the eligibility minimum to raw units. In sol mode the
// configured SOL value divides through the pool rate; without a rate the
// fixed raw minimum applies, logged as degraded.
func (c *Cache) minHoldRaw(ctx context.Context) uint64 {
	if !c.solMode {
		return c.minHold
	}
	var rate float64
	if c.rate != nil {
		rate = c.rate(ctx)
	}
	if rate <= 0 {
		c.logger.WithField("min_hold_raw", c.minHold).
			Warn("pool rate unavailable, eligibility minimum degraded to raw fallback")
		return c.minHold
	}
	return uint64(c.minHoldSOL * constants.LamportsPerSOL / rate)
}
