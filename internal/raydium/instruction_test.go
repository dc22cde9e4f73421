package raydium

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
)

func testSwapAccounts() SwapAccounts {
	return SwapAccounts{
		Owner:         solana.NewWallet().PublicKey(),
		UserSource:    solana.NewWallet().PublicKey(),
		UserDest:      solana.NewWallet().PublicKey(),
		SourceProgram: solana.MustPublicKeyFromBase58(constants.Token2022ProgramID),
		DestProgram:   solana.MustPublicKeyFromBase58(constants.TokenProgramID),
	}
}

func standardPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := ParsePoolKeys(validStandardKeys())
	require.NoError(t, err)
	return pool
}

func cpmmPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := ParsePoolKeys(validCpmmKeys())
	require.NoError(t, err)
	return pool
}

func TestBuildStandardSwapIxLayout(t *testing.T) {
	pool := standardPool(t)
	acc := testSwapAccounts()

	ix, err := BuildSwapInstruction(pool, acc, 1_250_000, 990_000, nil)
	require.NoError(t, err)

	assert.Equal(t, pool.ProgramID, ix.ProgramID())

	metas := ix.Accounts()
	require.Len(t, metas, 19)
	assert.Equal(t, pool.ID, metas[0].PublicKey)
	assert.Equal(t, pool.Standard.Market, metas[7].PublicKey)
	assert.Equal(t, acc.UserSource, metas[14].PublicKey)
	assert.Equal(t, acc.UserDest, metas[15].PublicKey)
	assert.True(t, metas[16].IsSigner, "owner must sign")
	assert.Equal(t, acc.SourceProgram, metas[17].PublicKey)
	assert.Equal(t, acc.DestProgram, metas[18].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, byte(9), data[0])
	assert.Equal(t, uint64(1_250_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint64(990_000), binary.LittleEndian.Uint64(data[9:17]))
}

func TestBuildStandardSwapIxKeepsTokenProgramsSeparate(t *testing.T) {
	pool := standardPool(t)
	acc := testSwapAccounts()

	ix, err := BuildSwapInstruction(pool, acc, 1, 1, nil)
	require.NoError(t, err)

	metas := ix.Accounts()
	assert.NotEqual(t, metas[17].PublicKey, metas[18].PublicKey,
		"fee token and wsol live under different token programs")
	assert.Equal(t, constants.Token2022ProgramID, metas[17].PublicKey.String())
	assert.Equal(t, constants.TokenProgramID, metas[18].PublicKey.String())
}

func TestBuildStandardSwapIxDummyMarketSubstitution(t *testing.T) {
	keys := validStandardKeys()
	keys.MarketID = ""
	keys.MarketProgramID = ""
	pool, err := ParsePoolKeys(keys)
	require.NoError(t, err)
	require.False(t, pool.Standard.HasMarket)

	ix, err := BuildSwapInstruction(pool, testSwapAccounts(), 1_000, 900, nil)
	require.NoError(t, err, "missing market must not fail instruction construction")

	dummy := solana.MustPublicKeyFromBase58(constants.DummyMarketAddress)
	metas := ix.Accounts()
	// Slots 6..13 are market program, market, bids, asks, event queue,
	// base vault, quote vault, vault signer.
	for i := 6; i <= 13; i++ {
		assert.Equal(t, dummy, metas[i].PublicKey, "market slot %d", i)
	}
	// Pool-owned slots stay real.
	assert.Equal(t, pool.ID, metas[0].PublicKey)
	assert.Equal(t, pool.BaseVault, metas[4].PublicKey)
}

func TestBuildCpmmSwapIxLayout(t *testing.T) {
	pool := cpmmPool(t)
	acc := testSwapAccounts()
	acc.InputMint = pool.BaseMint

	ix, err := BuildSwapInstruction(pool, acc, 500, 450, nil)
	require.NoError(t, err)

	metas := ix.Accounts()
	require.Len(t, metas, 13)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, acc.Owner, metas[0].PublicKey)
	assert.Equal(t, pool.Cpmm.AmmConfig, metas[2].PublicKey)
	assert.Equal(t, pool.ID, metas[3].PublicKey)
	assert.Equal(t, pool.BaseVault, metas[6].PublicKey, "input vault follows the input mint")
	assert.Equal(t, pool.QuoteVault, metas[7].PublicKey)
	assert.Equal(t, acc.SourceProgram, metas[8].PublicKey)
	assert.Equal(t, acc.DestProgram, metas[9].PublicKey)
	assert.Equal(t, pool.BaseMint, metas[10].PublicKey)
	assert.Equal(t, pool.QuoteMint, metas[11].PublicKey)
	assert.Equal(t, pool.Cpmm.Observation, metas[12].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, cpmmSwapDiscriminator[:], data[0:8])
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(450), binary.LittleEndian.Uint64(data[16:24]))
}

func TestBuildCpmmSwapIxReverseDirection(t *testing.T) {
	pool := cpmmPool(t)
	acc := testSwapAccounts()
	acc.InputMint = pool.QuoteMint

	ix, err := BuildSwapInstruction(pool, acc, 500, 450, nil)
	require.NoError(t, err)

	metas := ix.Accounts()
	assert.Equal(t, pool.QuoteVault, metas[6].PublicKey)
	assert.Equal(t, pool.BaseVault, metas[7].PublicKey)
	assert.Equal(t, pool.QuoteMint, metas[10].PublicKey)
	assert.Equal(t, pool.BaseMint, metas[11].PublicKey)
}

func TestBuildSwapInstructionUnknownVariant(t *testing.T) {
	pool := standardPool(t)
	pool.Variant = Variant("clmm")
	_, err := BuildSwapInstruction(pool, testSwapAccounts(), 1, 1, nil)
	assert.Error(t, err)
}

func TestBuildSwapInstructionNilPool(t *testing.T) {
	_, err := BuildSwapInstruction(nil, testSwapAccounts(), 1, 1, nil)
	assert.Error(t, err)
}

func TestFormatAccounts(t *testing.T) {
	pool := standardPool(t)
	ix, err := BuildSwapInstruction(pool, testSwapAccounts(), 1, 1, nil)
	require.NoError(t, err)

	out := FormatAccounts(ix)
	assert.Contains(t, out, pool.ID.String())
	assert.Contains(t, out, "(s)")
	assert.Equal(t, "<nil instruction>", FormatAccounts(nil))
}
