package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Variant distinguishes the two supported pool layouts.
type Variant string

const (
	// VariantStandard is an order-book backed AMM v4 pool. It needs the
	// external market account set on top of the pool's own accounts.
	VariantStandard Variant = "standard"
	// VariantCpmm is a self-contained constant-product pool.
	VariantCpmm Variant = "cpmm"
)

// Pool is a fully resolved pool structure from the exchange index. Exactly
// one of Standard / Cpmm is non-nil, matching Variant; instruction
// construction switches on the tag and never reads optional fields of the
// other variant.
type Pool struct {
	ID        solana.PublicKey
	ProgramID solana.PublicKey
	Variant   Variant

	BaseMint   solana.PublicKey
	QuoteMint  solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey

	Standard *StandardAccounts
	Cpmm     *CpmmAccounts
}

// StandardAccounts carries the AMM v4 specific account set.
type StandardAccounts struct {
	Authority    solana.PublicKey
	OpenOrders   solana.PublicKey
	TargetOrders solana.PublicKey

	// Order-book market accounts. HasMarket is false when the index reports
	// no market for this pool; the placeholder slots are then filled with
	// the documented dummy address at construction time.
	HasMarket         bool
	MarketProgram     solana.PublicKey
	Market            solana.PublicKey
	MarketBids        solana.PublicKey
	MarketAsks        solana.PublicKey
	MarketEventQueue  solana.PublicKey
	MarketBaseVault   solana.PublicKey
	MarketQuoteVault  solana.PublicKey
	MarketVaultSigner solana.PublicKey
}

// CpmmAccounts carries the CPMM specific account set.
type CpmmAccounts struct {
	Authority   solana.PublicKey
	AmmConfig   solana.PublicKey
	Observation solana.PublicKey
}

// Reserves are the two vault balances at a point in time. Fetched fresh for
// every swap; never cached.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// ReservesFor orders reserves for a swap out of the given input mint.
func (p *Pool) ReservesFor(r Reserves, inputMint solana.PublicKey) (reserveIn, reserveOut uint64) {
	if p.BaseMint.Equals(inputMint) {
		return r.Base, r.Quote
	}
	return r.Quote, r.Base
}

// VaultsFor orders vaults for a swap out of the given input mint.
func (p *Pool) VaultsFor(inputMint solana.PublicKey) (srcVault, dstVault solana.PublicKey) {
	if p.BaseMint.Equals(inputMint) {
		return p.BaseVault, p.QuoteVault
	}
	return p.QuoteVault, p.BaseVault
}

// MintsFor orders mints for a swap out of the given input mint.
func (p *Pool) MintsFor(inputMint solana.PublicKey) (srcMint, dstMint solana.PublicKey) {
	if p.BaseMint.Equals(inputMint) {
		return p.BaseMint, p.QuoteMint
	}
	return p.QuoteMint, p.BaseMint
}
