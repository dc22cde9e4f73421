package raydium

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
)

// FetchReserves returns the pool's current reserves. Index-provided reserves
// are preferred; when the index omits them, the two vault balances are read
// directly from the ledger. Reserves are never defaulted: a nil result is an
// error, not a zero.
func FetchReserves(
	ctx context.Context,
	lc ledger.Client,
	pool *Pool,
	fromIndex *Reserves,
) (Reserves, error) {

	if fromIndex != nil {
		return *fromIndex, nil
	}

	base, err := lc.GetTokenAccountBalance(ctx, pool.BaseVault)
	if err != nil {
		return Reserves{}, fmt.Errorf("fetch base vault balance: %w", err)
	}
	quote, err := lc.GetTokenAccountBalance(ctx, pool.QuoteVault)
	if err != nil {
		return Reserves{}, fmt.Errorf("fetch quote vault balance: %w", err)
	}

	return Reserves{Base: base, Quote: quote}, nil
}
