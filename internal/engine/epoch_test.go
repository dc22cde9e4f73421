package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/holders"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
)

// fakeLedger serves a shrinking withheld balance, the way repeated harvests
// would drain it on-chain.
type fakeLedger struct {
	remaining uint64
	scans     int
}

func (f *fakeLedger) GetTokenAccountsByOwner(context.Context, solana.PublicKey, solana.PublicKey, solana.PublicKey) ([]ledger.TokenAccount, error) {
	return nil, nil
}

func (f *fakeLedger) GetTokenAccountBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeLedger) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeLedger) GetWithheldFees(context.Context, solana.PublicKey) (*ledger.WithheldFees, error) {
	f.scans++
	if f.remaining == 0 {
		return &ledger.WithheldFees{}, nil
	}
	return &ledger.WithheldFees{
		Accounts: []ledger.TokenAccount{{Pubkey: solana.NewWallet().PublicKey(), Withheld: f.remaining}},
		Total:    f.remaining,
	}, nil
}

// fakeHarvester takes exactly the slice target off the fake ledger.
type fakeHarvester struct {
	ledger *fakeLedger
	calls  []uint64
}

func (f *fakeHarvester) Harvest(_ context.Context, fees *ledger.WithheldFees, targetRaw uint64) (*HarvestResult, error) {
	amount := fees.Total
	if targetRaw > 0 && targetRaw < amount {
		amount = targetRaw
	}
	f.ledger.remaining -= amount
	f.calls = append(f.calls, amount)
	return &HarvestResult{HarvestedRaw: amount, Signatures: []string{fmt.Sprintf("harvest-%d", len(f.calls))}}, nil
}

// fakeSwapper converts 1 raw unit into 1000 lamports.
type fakeSwapper struct {
	rate  float64
	swaps int
	fail  error
}

func (f *fakeSwapper) Rate(context.Context) float64 { return f.rate }

func (f *fakeSwapper) Swap(_ context.Context, amountRaw uint64) (*SwapResult, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.swaps++
	return &SwapResult{
		Signature:        fmt.Sprintf("swap-%d", f.swaps),
		AmountInRaw:      amountRaw,
		ReceivedLamports: amountRaw * 1000,
	}, nil
}

// fakeSource serves a fixed holder set.
type fakeSource struct {
	holders []models.Holder
}

func (f *fakeSource) Holders(context.Context) ([]models.Holder, error) {
	return f.holders, nil
}

type fakeSink struct {
	events []models.DistributionEvent
}

func (f *fakeSink) Publish(_ context.Context, event models.DistributionEvent) {
	f.events = append(f.events, event)
}

func epochTestConfig() *config.Config {
	return &config.Config{
		Mode:            config.ModeRaw,
		MinHarvestRaw:   20_000,
		BatchCeilingRaw: 1_000_000,
		BatchCount:      4,
		BatchDelay:      time.Millisecond,
		MinPayoutRaw:    1, // effectively no payout floor via rate=1000
		BatchCeilingSOL: 25,
	}
}

func newTestRunner(t *testing.T, cfg *config.Config, lc *fakeLedger, sw *fakeSwapper, payer *fakePayer, weights map[string]uint64) (*Runner, *store.State, *fakeHarvester, *fakeSink) {
	t.Helper()

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	st := store.NewState(fs)

	src := &fakeSource{}
	for w, bal := range weights {
		src.holders = append(src.holders, models.Holder{Address: w, Balance: bal})
	}

	cache := holders.NewCache(holders.CacheConfig{
		Source:   src,
		State:    st,
		Interval: time.Hour,
		Logger:   quietLogger(),
	})

	harvester := &fakeHarvester{ledger: lc}
	sink := &fakeSink{}

	runner := NewRunner(RunnerConfig{
		Config: cfg,
		Ledger: lc,
		Cache:  cache,
		State:  st,
		Logger: quietLogger(),
		Harvester: harvester,
		Swapper:   sw,
		Distributor: NewDistributor(DistributorConfig{
			Payer:  payer,
			State:  st,
			Logger: quietLogger(),
		}),
		Sinks: []EventSink{sink},
		Mint:  solana.NewWallet().PublicKey(),
	})
	return runner, st, harvester, sink
}

func TestEpochSkippedBelowThreshold(t *testing.T) {
	cfg := epochTestConfig()
	lc := &fakeLedger{remaining: 5_000}
	sw := &fakeSwapper{rate: 1000}
	payer := newFakePayer()

	runner, _, harvester, _ := newTestRunner(t, cfg, lc, sw, payer, map[string]uint64{testWallet(): 100})

	report, err := runner.RunEpoch(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	assert.Empty(t, harvester.calls, "no harvest submitted on gate FAIL")
	assert.Zero(t, sw.swaps)
	assert.Equal(t, uint64(5_000), lc.remaining, "withheld amount left untouched on-chain")
}

func TestEpochSinglePassUnderCeiling(t *testing.T) {
	cfg := epochTestConfig()
	cfg.BatchCeilingRaw = 10_000_000
	lc := &fakeLedger{remaining: 50_000}
	sw := &fakeSwapper{rate: 1000}
	payer := newFakePayer()

	runner, st, harvester, _ := newTestRunner(t, cfg, lc, sw, payer, map[string]uint64{testWallet(): 100})

	report, err := runner.RunEpoch(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, []uint64{50_000}, harvester.calls)
	assert.Equal(t, 1, sw.swaps, "exactly one swap for a single non-batched pass")

	ts, err := st.LoadTaxState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"swap-1"}, ts.LastSwapIDs)
}

func TestEpochBatchedSlices(t *testing.T) {
	cfg := epochTestConfig()
	lc := &fakeLedger{remaining: 5_000_000}
	sw := &fakeSwapper{rate: 1000}
	payer := newFakePayer()
	w := testWallet()

	runner, st, harvester, sink := newTestRunner(t, cfg, lc, sw, payer, map[string]uint64{w: 100})

	report, err := runner.RunEpoch(context.Background())
	require.NoError(t, err)

	// 5M over a 1M ceiling with batchCount 4: four slices of 1.25M each.
	assert.Equal(t, []uint64{1_250_000, 1_250_000, 1_250_000, 1_250_000}, harvester.calls)
	assert.Equal(t, 4, sw.swaps)
	assert.Equal(t, uint64(5_000_000), report.HarvestedRaw)
	assert.Zero(t, lc.remaining)

	// Distribution ran after each slice, not once at the end.
	require.Len(t, sink.events, 4)
	for i, ev := range sink.events {
		assert.Equal(t, i, ev.BatchIndex)
		assert.Equal(t, uint64(1_250_000), ev.HarvestedRaw)
	}
	assert.Equal(t, 4, payer.txCount, "the sole holder was paid per slice")

	ts, err := st.LoadTaxState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"swap-1", "swap-2", "swap-3", "swap-4"}, ts.LastSwapIDs)
	assert.Equal(t, uint64(5_000_000), ts.TotalHarvestedRaw)
}

func TestEpochSwapFailureStopsSlices(t *testing.T) {
	cfg := epochTestConfig()
	lc := &fakeLedger{remaining: 5_000_000}
	sw := &fakeSwapper{rate: 1000, fail: fmt.Errorf("pool has a zero reserve")}
	payer := newFakePayer()

	runner, _, harvester, sink := newTestRunner(t, cfg, lc, sw, payer, map[string]uint64{testWallet(): 100})

	report, err := runner.RunEpoch(context.Background())
	require.NoError(t, err)

	// The first slice harvested, then the swap rejection stopped the epoch:
	// no distribution happened and no further slices ran.
	assert.Len(t, harvester.calls, 1)
	assert.Empty(t, sink.events)
	assert.Empty(t, payer.sent)
	require.Len(t, report.Batches, 1)
	assert.False(t, report.Batches[0].Succeeded)
	assert.NotEmpty(t, report.Batches[0].Err)
}

func TestEpochPendingClearsRetriedFirst(t *testing.T) {
	cfg := epochTestConfig()
	lc := &fakeLedger{remaining: 5_000} // below threshold: epoch will skip
	sw := &fakeSwapper{rate: 1000}
	payer := newFakePayer()
	w := testWallet()

	runner, st, _, _ := newTestRunner(t, cfg, lc, sw, payer, map[string]uint64{w: 100})

	ctx := context.Background()
	require.NoError(t, st.AccrueReward(ctx, w, 123))
	require.NoError(t, st.MarkPendingClear(ctx, w))

	_, err := runner.RunEpoch(ctx)
	require.NoError(t, err)

	rewards, err := st.LoadRewards(ctx)
	require.NoError(t, err)
	assert.Empty(t, rewards.PendingClears, "pending clears retried even on a skipped epoch")
	assert.Empty(t, rewards.Rewards)
}
