package constants

import "time"

// Program addresses
const (
	// Legacy SPL Token program (settlement-side accounts: wSOL)
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// Token-2022 program (fee-bearing mint and its accounts)
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	// Associated token account program
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"

	// Raydium AMM v4 (order-book backed "standard" pools)
	RaydiumAmmV4ProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// Raydium CPMM (self-contained constant-product pools)
	RaydiumCpmmProgramID = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	// OpenBook central limit order book
	OpenBookProgramID = "opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb"
)

// Mints
const (
	WSOLMint = "So11111111111111111111111111111111111111112"
)

// DummyMarketAddress fills placeholder-only market slots when the index
// reports no order-book market for a nominally standard pool. The swap then
// fails at execution, not at construction.
const DummyMarketAddress = "11111111111111111111111111111111"

// Redis keys and channels
const (
	RedisKeyRecentDistributions = "distributions:recent"
	PubSubChannelDistributions  = "distributions:live"
)

// Limits
const (
	MaxRecentDistributions = 100
	// Max withheld-fee source accounts per withdraw transaction. Bounded by
	// the transaction account limit.
	MaxHarvestAccountsPerTx = 25
)

// Timing
const (
	ConfirmTimeout = 60 * time.Second
)

// Lamports per SOL
const LamportsPerSOL = 1_000_000_000
