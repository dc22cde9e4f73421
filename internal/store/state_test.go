package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(newFileStore(t))
}

func TestStateLoadRewardsEmpty(t *testing.T) {
	st := newTestState(t)

	rewards, err := st.LoadRewards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rewards.Rewards)
	assert.Empty(t, rewards.Rewards)
}

func TestStateAccrueRewardIncrements(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	require.NoError(t, st.AccrueReward(ctx, "walletA", 30_000_000))
	require.NoError(t, st.AccrueReward(ctx, "walletA", 20_000_000))
	require.NoError(t, st.AccrueReward(ctx, "walletB", 5))

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), rewards.Rewards["walletA"])
	assert.Equal(t, uint64(5), rewards.Rewards["walletB"])
	assert.False(t, rewards.UpdatedAt.IsZero())
}

func TestStateClearReward(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	require.NoError(t, st.AccrueReward(ctx, "walletA", 100))
	require.NoError(t, st.ClearReward(ctx, "walletA"))

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	_, exists := rewards.Rewards["walletA"]
	assert.False(t, exists, "cleared wallet must be absent, not zero")
}

func TestStatePendingClearLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	require.NoError(t, st.AccrueReward(ctx, "walletA", 100))
	require.NoError(t, st.MarkPendingClear(ctx, "walletA"))
	// Marking twice must not duplicate the entry.
	require.NoError(t, st.MarkPendingClear(ctx, "walletA"))

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"walletA"}, rewards.PendingClears)

	require.NoError(t, st.ClearReward(ctx, "walletA"))
	rewards, err = st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Empty(t, rewards.PendingClears)
	assert.Empty(t, rewards.Rewards)
}

func TestStateSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	snap, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Wallets)

	snap = models.NewEligibleWalletSnapshot()
	snap.Wallets["walletA"] = 500_000
	snap.ScannedCount = 12
	snap.RefreshedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	loaded, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), loaded.Wallets["walletA"])
	assert.Equal(t, 12, loaded.ScannedCount)
	assert.True(t, loaded.RefreshedAt.Equal(snap.RefreshedAt))
}

func TestStateUpdateTaxState(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	require.NoError(t, st.UpdateTaxState(ctx, func(ts *models.TaxState) {
		ts.TotalHarvestedRaw += 1_250_000
		ts.LastSwapIDs = append(ts.LastSwapIDs, "sig-1")
	}))
	require.NoError(t, st.UpdateTaxState(ctx, func(ts *models.TaxState) {
		ts.TotalHarvestedRaw += 1_250_000
		ts.LastSwapIDs = append(ts.LastSwapIDs, "sig-2")
	}))

	ts, err := st.LoadTaxState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000), ts.TotalHarvestedRaw)
	assert.Equal(t, []string{"sig-1", "sig-2"}, ts.LastSwapIDs)
	assert.False(t, ts.UpdatedAt.IsZero())
}
