package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
)

// State is the typed view over the three persisted records. All engine code
// goes through State; the raw Store stays an implementation detail.
type State struct {
	store Store
}

func NewState(s Store) *State {
	return &State{store: s}
}

func (s *State) LoadRewards(ctx context.Context) (*models.AccumulatedRewards, error) {
	data, err := s.store.Get(ctx, KeyAccumulatedRewards)
	if err == ErrNotFound {
		return models.NewAccumulatedRewards(), nil
	}
	if err != nil {
		return nil, err
	}

	var r models.AccumulatedRewards
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal accumulated rewards: %w", err)
	}
	if r.Rewards == nil {
		r.Rewards = make(map[string]uint64)
	}
	return &r, nil
}

// AccrueReward adds lamports to a wallet's accumulated balance. The increment
// happens inside AtomicUpdate so a parallel writer could never lose it.
func (s *State) AccrueReward(ctx context.Context, wallet string, lamports uint64) error {
	return s.store.AtomicUpdate(ctx, KeyAccumulatedRewards, func(current []byte) ([]byte, error) {
		r := models.NewAccumulatedRewards()
		if current != nil {
			if err := json.Unmarshal(current, r); err != nil {
				return nil, fmt.Errorf("unmarshal accumulated rewards: %w", err)
			}
			if r.Rewards == nil {
				r.Rewards = make(map[string]uint64)
			}
		}
		r.Rewards[wallet] += lamports
		r.UpdatedAt = time.Now().UTC()
		return json.Marshal(r)
	})
}

// ClearReward zeroes a wallet's accumulated balance after a confirmed payout
// and drops any pending-clear marker for it.
func (s *State) ClearReward(ctx context.Context, wallet string) error {
	return s.store.AtomicUpdate(ctx, KeyAccumulatedRewards, func(current []byte) ([]byte, error) {
		r := models.NewAccumulatedRewards()
		if current != nil {
			if err := json.Unmarshal(current, r); err != nil {
				return nil, fmt.Errorf("unmarshal accumulated rewards: %w", err)
			}
		}
		delete(r.Rewards, wallet)
		r.PendingClears = removeString(r.PendingClears, wallet)
		r.UpdatedAt = time.Now().UTC()
		return json.Marshal(r)
	})
}

// MarkPendingClear records that a wallet was paid but its clear-write failed.
// The next epoch retries the clear instead of paying again.
func (s *State) MarkPendingClear(ctx context.Context, wallet string) error {
	return s.store.AtomicUpdate(ctx, KeyAccumulatedRewards, func(current []byte) ([]byte, error) {
		r := models.NewAccumulatedRewards()
		if current != nil {
			if err := json.Unmarshal(current, r); err != nil {
				return nil, fmt.Errorf("unmarshal accumulated rewards: %w", err)
			}
		}
		if !containsString(r.PendingClears, wallet) {
			r.PendingClears = append(r.PendingClears, wallet)
		}
		r.UpdatedAt = time.Now().UTC()
		return json.Marshal(r)
	})
}

func (s *State) LoadSnapshot(ctx context.Context) (*models.EligibleWalletSnapshot, error) {
	data, err := s.store.Get(ctx, KeyEligibleWallets)
	if err == ErrNotFound {
		return models.NewEligibleWalletSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.EligibleWalletSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal eligible wallets: %w", err)
	}
	if snap.Wallets == nil {
		snap.Wallets = make(map[string]uint64)
	}
	return &snap, nil
}

func (s *State) SaveSnapshot(ctx context.Context, snap *models.EligibleWalletSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal eligible wallets: %w", err)
	}
	return s.store.Put(ctx, KeyEligibleWallets, data)
}

func (s *State) LoadTaxState(ctx context.Context) (*models.TaxState, error) {
	data, err := s.store.Get(ctx, KeyTaxState)
	if err == ErrNotFound {
		return &models.TaxState{}, nil
	}
	if err != nil {
		return nil, err
	}

	var ts models.TaxState
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("unmarshal tax state: %w", err)
	}
	return &ts, nil
}

// UpdateTaxState applies fn to the stored tax state under AtomicUpdate.
func (s *State) UpdateTaxState(ctx context.Context, fn func(*models.TaxState)) error {
	return s.store.AtomicUpdate(ctx, KeyTaxState, func(current []byte) ([]byte, error) {
		var ts models.TaxState
		if current != nil {
			if err := json.Unmarshal(current, &ts); err != nil {
				return nil, fmt.Errorf("unmarshal tax state: %w", err)
			}
		}
		fn(&ts)
		ts.UpdatedAt = time.Now().UTC()
		return json.Marshal(&ts)
	})
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
