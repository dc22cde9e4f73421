package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/engine"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
)

// RecentSource serves the capped recent-distributions list. Nil when Redis
// is not configured.
type RecentSource interface {
	Recent(ctx context.Context, limit int64) ([]*models.DistributionEvent, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Scheduler *engine.Scheduler // Epoch loop status source
	State     *store.State      // Persistent reward/tax state
	Recent    RecentSource      // Recent distribution events (optional)
	DevMode   bool              // Enable detailed error responses in development
	Logger    *logrus.Logger    // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Status reports the scheduler state, running totals, and pending balances.
func (h *Handlers) Status(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	totals, err := h.State.LoadTaxState(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load totals", err.Error())
	}
	snap, err := h.State.LoadSnapshot(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load snapshot", err.Error())
	}
	rewards, err := h.State.LoadRewards(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load rewards", err.Error())
	}

	var pendingTotal uint64
	for _, v := range rewards.Rewards {
		pendingTotal += v
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Scheduler: h.Scheduler.Status(),
		Totals:    *totals,
		Eligible: EligibleSummary{
			Count:       len(snap.Wallets),
			Scanned:     snap.ScannedCount,
			RefreshedAt: snap.RefreshedAt,
		},
		Pending: PendingSummary{
			Wallets:       len(rewards.Rewards),
			TotalLamports: pendingTotal,
			PendingClears: len(rewards.PendingClears),
		},
	})
}

// Reward reports one wallet's accumulated, unpaid balance.
func (h *Handlers) Reward(c echo.Context) error {
	wallet := c.Param("wallet")
	if wallet == "" {
		return h.err(c, http.StatusBadRequest, "wallet address required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rewards, err := h.State.LoadRewards(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load rewards", err.Error())
	}
	snap, err := h.State.LoadSnapshot(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load snapshot", err.Error())
	}

	pendingClear := false
	for _, w := range rewards.PendingClears {
		if w == wallet {
			pendingClear = true
			break
		}
	}
	_, eligible := snap.Wallets[wallet]

	lamports := rewards.Rewards[wallet]
	return c.JSON(http.StatusOK, RewardResponse{
		Wallet:              wallet,
		AccumulatedLamports: lamports,
		AccumulatedSOL:      float64(lamports) / 1e9,
		PendingClear:        pendingClear,
		Eligible:            eligible,
	})
}

// RecentDistributions returns the most recent distribution events with
// optional limit parameter (default: 50, range: 1-100)
func (h *Handlers) RecentDistributions(c echo.Context) error {
	if h.Recent == nil {
		return h.err(c, http.StatusNotImplemented, "recent distributions not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Recent.Recent(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get distributions", nil)
	}
	return c.JSON(http.StatusOK, DistributionsResponse{Items: items})
}
