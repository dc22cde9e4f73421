package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/wallet"
)

// fakePayer records transfer instructions instead of touching a ledger.
type fakePayer struct {
	pub      solana.PublicKey
	failSend bool

	sent    []paidTransfer
	txCount int
}

type paidTransfer struct {
	recipient string
	lamports  uint64
}

func newFakePayer() *fakePayer {
	return &fakePayer{pub: solana.NewWallet().PublicKey()}
}

func (f *fakePayer) PublicKey() solana.PublicKey { return f.pub }

func (f *fakePayer) SignAndSend(_ context.Context, instructions []solana.Instruction, _ *wallet.SendOptions) (string, error) {
	if f.failSend {
		return "", errors.New("insufficient funds for fee")
	}
	for _, ix := range instructions {
		data, err := ix.Data()
		if err != nil {
			return "", err
		}
		f.sent = append(f.sent, paidTransfer{
			recipient: ix.Accounts()[1].PublicKey.String(),
			lamports:  binary.LittleEndian.Uint64(data[4:12]),
		})
	}
	f.txCount++
	return fmt.Sprintf("sig-%d", f.txCount), nil
}

func (f *fakePayer) ConfirmTransaction(context.Context, string, string, time.Duration) error {
	return nil
}

func (f *fakePayer) paidTo(wallet string) uint64 {
	var total uint64
	for _, p := range f.sent {
		if p.recipient == wallet {
			total += p.lamports
		}
	}
	return total
}

func newTestState(t *testing.T) *store.State {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return store.NewState(fs)
}

func newTestDistributor(t *testing.T, payer *fakePayer) (*Distributor, *store.State) {
	t.Helper()
	st := newTestState(t)
	return NewDistributor(DistributorConfig{
		Payer:  payer,
		State:  st,
		Logger: quietLogger(),
	}), st
}

func snapshotOf(weights map[string]uint64) *models.EligibleWalletSnapshot {
	snap := models.NewEligibleWalletSnapshot()
	for w, v := range weights {
		snap.Wallets[w] = v
	}
	snap.RefreshedAt = time.Now().UTC()
	return snap
}

func testWallet() string {
	return solana.NewWallet().PublicKey().String()
}

const minPayout = 100_000_000 // 0.10 SOL

func TestDistributePaysWhenAccumulatedPlusShareClearsThreshold(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	w := testWallet()
	require.NoError(t, st.AccrueReward(ctx, w, 80_000_000)) // 0.08 accumulated

	// Sole eligible wallet: the whole 0.03 slice is its share.
	res, err := d.Distribute(ctx, 30_000_000, snapshotOf(map[string]uint64{w: 100}), minPayout)
	require.NoError(t, err)

	assert.Equal(t, 1, res.PaidWallets)
	assert.Equal(t, uint64(110_000_000), res.PaidLamports)
	assert.Equal(t, uint64(110_000_000), payer.paidTo(w))

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Zero(t, rewards.Rewards[w], "accumulated must be cleared after payout")
	assert.Empty(t, rewards.PendingClears)
}

func TestDistributeAccumulatesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	w := testWallet()
	require.NoError(t, st.AccrueReward(ctx, w, 30_000_000)) // 0.03 accumulated

	// Share of 0.02: total 0.05 stays below 0.10.
	res, err := d.Distribute(ctx, 20_000_000, snapshotOf(map[string]uint64{w: 100}), minPayout)
	require.NoError(t, err)

	assert.Zero(t, res.PaidWallets)
	assert.Equal(t, 1, res.AccruedWallets)
	assert.Empty(t, payer.sent, "no transfer below threshold")

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), rewards.Rewards[w])
}

func TestDistributeAccumulationIsMonotonic(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	w := testWallet()
	snap := snapshotOf(map[string]uint64{w: 100})

	var last uint64
	for i := 0; i < 5; i++ {
		_, err := d.Distribute(ctx, 10_000_000, snap, minPayout)
		require.NoError(t, err)

		rewards, err := st.LoadRewards(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rewards.Rewards[w], last)
		last = rewards.Rewards[w]
	}
	assert.Equal(t, uint64(50_000_000), last)
}

func TestDistributeTransferFailurePreservesAccumulated(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	payer.failSend = true
	d, st := newTestDistributor(t, payer)

	w := testWallet()
	require.NoError(t, st.AccrueReward(ctx, w, 80_000_000))

	res, err := d.Distribute(ctx, 30_000_000, snapshotOf(map[string]uint64{w: 100}), minPayout)
	require.NoError(t, err)

	assert.Zero(t, res.PaidWallets)
	assert.Empty(t, payer.sent)

	// Previously accumulated amount survives and this slice's share lands on top.
	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(110_000_000), rewards.Rewards[w])
}

func TestDistributeUnionIncludesIneligibleAccumulatedWallet(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	eligible := testWallet()
	dropped := testWallet() // fell below eligibility but is still owed
	require.NoError(t, st.AccrueReward(ctx, dropped, 150_000_000))

	res, err := d.Distribute(ctx, 20_000_000, snapshotOf(map[string]uint64{eligible: 100}), minPayout)
	require.NoError(t, err)

	// The dropped wallet earned no new share but its owed balance cleared
	// the threshold and was paid in full.
	assert.Equal(t, 1, res.PaidWallets)
	assert.Equal(t, uint64(150_000_000), payer.paidTo(dropped))
	assert.Zero(t, payer.paidTo(eligible))

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Zero(t, rewards.Rewards[dropped])
	assert.Equal(t, uint64(20_000_000), rewards.Rewards[eligible])
}

func TestDistributeProportionalShares(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	a, b := testWallet(), testWallet()
	snap := snapshotOf(map[string]uint64{a: 300, b: 100})

	_, err := d.Distribute(ctx, 100_000_000, snap, minPayout*10)
	require.NoError(t, err)

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(75_000_000), rewards.Rewards[a])
	assert.Equal(t, uint64(25_000_000), rewards.Rewards[b])
}

func TestDistributeZeroWalletsClearThreshold(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	a, b := testWallet(), testWallet()
	snap := snapshotOf(map[string]uint64{a: 100, b: 100})

	res, err := d.Distribute(ctx, 10_000_000, snap, minPayout)
	require.NoError(t, err)

	assert.Zero(t, res.PaidWallets)
	assert.Equal(t, 2, res.AccruedWallets)
	assert.Empty(t, payer.sent)

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), rewards.Rewards[a])
	assert.Equal(t, uint64(5_000_000), rewards.Rewards[b])
}

func TestDistributePendingClearNotPaidAgain(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	d, st := newTestDistributor(t, payer)

	w := testWallet()
	// Paid last epoch, but the clear-write failed then.
	require.NoError(t, st.AccrueReward(ctx, w, 200_000_000))
	require.NoError(t, st.MarkPendingClear(ctx, w))

	res, err := d.Distribute(ctx, 10_000_000, snapshotOf(map[string]uint64{w: 100}), minPayout)
	require.NoError(t, err)

	assert.Zero(t, res.PaidWallets, "pending-clear wallet must never be paid twice")
	assert.Equal(t, 1, res.ClearedPending)
	assert.Empty(t, payer.sent)

	// The stale owed balance is gone; only this slice's share remains.
	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), rewards.Rewards[w])
	assert.Empty(t, rewards.PendingClears)
}

func TestRetryPendingClears(t *testing.T) {
	ctx := context.Background()
	d, st := newTestDistributor(t, newFakePayer())

	w := testWallet()
	require.NoError(t, st.AccrueReward(ctx, w, 50_000_000))
	require.NoError(t, st.MarkPendingClear(ctx, w))

	cleared, err := d.RetryPendingClears(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Empty(t, rewards.Rewards)
	assert.Empty(t, rewards.PendingClears)
}

func TestDistributeSecondaryShare(t *testing.T) {
	ctx := context.Background()
	payer := newFakePayer()
	st := newTestState(t)
	secondary := testWallet()

	d := NewDistributor(DistributorConfig{
		Payer:              payer,
		State:              st,
		Logger:             quietLogger(),
		SecondaryRecipient: secondary,
		SecondaryShareBps:  1000, // 10%
	})

	w := testWallet()
	res, err := d.Distribute(ctx, 100_000_000, snapshotOf(map[string]uint64{w: 100}), minPayout*100)
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), res.SecondaryLamports)
	assert.Equal(t, uint64(10_000_000), payer.paidTo(secondary))
	assert.Equal(t, uint64(90_000_000), res.DistributableLamports)

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(90_000_000), rewards.Rewards[w])
}

func TestDistributeZeroReceived(t *testing.T) {
	payer := newFakePayer()
	d, _ := newTestDistributor(t, payer)

	res, err := d.Distribute(context.Background(), 0, snapshotOf(nil), minPayout)
	require.NoError(t, err)
	assert.Zero(t, res.PaidWallets)
	assert.Zero(t, res.AccruedWallets)
	assert.Empty(t, payer.sent)
}
