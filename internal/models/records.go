package models

import "time"

// AccumulatedRewards maps holder address to lamports owed but not yet paid
// because the total fell below the minimum payout threshold. Amounts are
// unsigned on purpose: the balance can never go negative.
type AccumulatedRewards struct {
	Rewards map[string]uint64 `json:"rewards"`
	// PendingClears holds wallets that were paid but whose clear-write
	// failed. They must be cleared (not paid again) on the next epoch.
	PendingClears []string  `json:"pending_clears,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewAccumulatedRewards() *AccumulatedRewards {
	return &AccumulatedRewards{Rewards: make(map[string]uint64)}
}

// EligibleWalletSnapshot is the holder set passing eligibility at the last
// refresh. Rebuilt wholesale; consumed read-only by the distribution engine.
type EligibleWalletSnapshot struct {
	// Wallets maps address to holding weight (raw token balance at refresh).
	Wallets      map[string]uint64 `json:"wallets"`
	RefreshedAt  time.Time         `json:"refreshed_at"`
	ScannedCount int               `json:"scanned_count"`
}

func NewEligibleWalletSnapshot() *EligibleWalletSnapshot {
	return &EligibleWalletSnapshot{Wallets: make(map[string]uint64)}
}

// TaxState holds the running totals. Counters are append-only; the record is
// rewritten atomically at epoch end.
type TaxState struct {
	TotalHarvestedRaw        uint64     `json:"total_harvested_raw"`
	TotalSwappedRaw          uint64     `json:"total_swapped_raw"`
	TotalDistributedLamports uint64     `json:"total_distributed_lamports"`
	TotalSecondaryLamports   uint64     `json:"total_secondary_lamports"`
	LastSwapIDs              []string   `json:"last_swap_ids"`
	LastDistributionAt       *time.Time `json:"last_distribution_at,omitempty"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// Holder is one entry from the holder snapshot source.
type Holder struct {
	Address     string `json:"address"`
	Balance     uint64 `json:"balance"` // raw token units
	Blacklisted bool   `json:"blacklisted"`
}

// DistributionEvent is the observability record written per completed slice.
type DistributionEvent struct {
	Epoch            int64     `json:"epoch"`
	BatchIndex       int       `json:"batch_index"`
	Signature        string    `json:"signature"`
	Timestamp        time.Time `json:"timestamp"`
	HarvestedRaw     uint64    `json:"harvested_raw"`
	SwappedRaw       uint64    `json:"swapped_raw"`
	ReceivedLamports uint64    `json:"received_lamports"`
	PaidLamports     uint64    `json:"paid_lamports"`
	PaidWallets      int       `json:"paid_wallets"`
	AccruedWallets   int       `json:"accrued_wallets"`
	DurationMS       int64     `json:"duration_ms"`
}
