package server

import (
	"time"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/engine"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// StatusResponse is the operator-facing view of the distribution loop.
type StatusResponse struct {
	Scheduler engine.SchedulerStatus `json:"scheduler"`
	Totals    models.TaxState        `json:"totals"`
	Eligible  EligibleSummary        `json:"eligible"`
	Pending   PendingSummary         `json:"pending"`
}

// EligibleSummary summarizes the current eligible-wallet snapshot.
type EligibleSummary struct {
	Count       int       `json:"count"`
	Scanned     int       `json:"scanned"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// PendingSummary summarizes accumulated-but-unpaid balances.
type PendingSummary struct {
	Wallets       int    `json:"wallets"`
	TotalLamports uint64 `json:"total_lamports"`
	PendingClears int    `json:"pending_clears"`
}

// RewardResponse reports one wallet's accumulated balance.
type RewardResponse struct {
	Wallet              string  `json:"wallet"`
	AccumulatedLamports uint64  `json:"accumulated_lamports"`
	AccumulatedSOL      float64 `json:"accumulated_sol"`
	PendingClear        bool    `json:"pending_clear"`
	Eligible            bool    `json:"eligible"`
}

// DistributionsResponse wraps the recent distribution events.
type DistributionsResponse struct {
	Items []*models.DistributionEvent `json:"items"`
}
