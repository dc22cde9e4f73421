package store

import (
	"context"
	"errors"
)

// Record keys. Three independent records make up the persisted state.
const (
	KeyAccumulatedRewards = "accumulated_rewards"
	KeyEligibleWallets    = "eligible_wallets"
	KeyTaxState           = "tax_state"
)

var ErrNotFound = errors.New("record not found")

// Store is durable key/value storage for the distribution engine's state.
// Implementations must guarantee that Put is atomic (a crash mid-write never
// leaves a corrupt record) and that AtomicUpdate performs a read-modify-write
// without lost updates.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	AtomicUpdate(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	Close() error
}
