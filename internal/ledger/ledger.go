package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TokenAccount is one token account returned by an owner or mint scan.
type TokenAccount struct {
	Pubkey   solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Amount   uint64
	Withheld uint64
}

// WithheldFees describes everything currently claimable for a mint: the
// mint-level withheld amount plus per-account withheld amounts.
type WithheldFees struct {
	MintWithheld uint64
	Accounts     []TokenAccount // accounts with nonzero withheld, descending
	Total        uint64         // MintWithheld + sum(Accounts)
}

// Client is the ledger-query capability set the engine depends on. The RPC
// implementation lives in this package; tests provide fakes.
type Client interface {
	// GetTokenAccountsByOwner lists the owner's token accounts for a mint
	// under the given token program.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint, tokenProgram solana.PublicKey) ([]TokenAccount, error)

	// GetTokenAccountBalance returns a token account's raw balance.
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// GetBalance returns an account's lamport balance.
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)

	// GetWithheldFees scans the mint and its token accounts for withheld
	// transfer fees. Always reflects current on-chain state; the engine
	// never trusts an in-memory total.
	GetWithheldFees(ctx context.Context, mint solana.PublicKey) (*WithheldFees, error)
}
