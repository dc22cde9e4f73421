package raydium

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
)

func addr() string {
	return solana.NewWallet().PublicKey().String()
}

func validStandardKeys() PoolKeys {
	return PoolKeys{
		ID:        addr(),
		ProgramID: constants.RaydiumAmmV4ProgramID,
		Type:      "Standard",
		MintA:     addr(),
		MintB:     constants.WSOLMint,
		VaultA:    addr(),
		VaultB:    addr(),

		Authority:    addr(),
		OpenOrders:   addr(),
		TargetOrders: addr(),

		MarketProgramID:  constants.OpenBookProgramID,
		MarketID:         addr(),
		MarketBids:       addr(),
		MarketAsks:       addr(),
		MarketEventQueue: addr(),
		MarketBaseVault:  addr(),
		MarketQuoteVault: addr(),
		MarketAuthority:  addr(),
	}
}

func validCpmmKeys() PoolKeys {
	return PoolKeys{
		ID:        addr(),
		ProgramID: constants.RaydiumCpmmProgramID,
		Type:      "Cpmm",
		MintA:     addr(),
		MintB:     constants.WSOLMint,
		VaultA:    addr(),
		VaultB:    addr(),

		Authority:     addr(),
		AmmConfig:     addr(),
		ObservationID: addr(),
	}
}

func TestParsePoolKeysStandard(t *testing.T) {
	pool, err := ParsePoolKeys(validStandardKeys())
	require.NoError(t, err)

	assert.Equal(t, VariantStandard, pool.Variant)
	require.NotNil(t, pool.Standard)
	assert.Nil(t, pool.Cpmm)
	assert.True(t, pool.Standard.HasMarket)
}

func TestParsePoolKeysCpmm(t *testing.T) {
	pool, err := ParsePoolKeys(validCpmmKeys())
	require.NoError(t, err)

	assert.Equal(t, VariantCpmm, pool.Variant)
	require.NotNil(t, pool.Cpmm)
	assert.Nil(t, pool.Standard)
}

func TestParsePoolKeysMissingRequiredFieldsAreHardErrors(t *testing.T) {
	strip := []struct {
		name  string
		strip func(*PoolKeys)
	}{
		{"id", func(k *PoolKeys) { k.ID = "" }},
		{"programId", func(k *PoolKeys) { k.ProgramID = "" }},
		{"mintA", func(k *PoolKeys) { k.MintA = "" }},
		{"mintB", func(k *PoolKeys) { k.MintB = "" }},
		{"vault.A", func(k *PoolKeys) { k.VaultA = "" }},
		{"vault.B", func(k *PoolKeys) { k.VaultB = "" }},
		{"authority", func(k *PoolKeys) { k.Authority = "" }},
		{"openOrders", func(k *PoolKeys) { k.OpenOrders = "" }},
		{"targetOrders", func(k *PoolKeys) { k.TargetOrders = "" }},
	}

	for _, tc := range strip {
		t.Run(tc.name, func(t *testing.T) {
			keys := validStandardKeys()
			tc.strip(&keys)
			_, err := ParsePoolKeys(keys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestParsePoolKeysCpmmMissingFields(t *testing.T) {
	keys := validCpmmKeys()
	keys.AmmConfig = ""
	_, err := ParsePoolKeys(keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.id")

	keys = validCpmmKeys()
	keys.ObservationID = ""
	_, err = ParsePoolKeys(keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observationId")
}

func TestParsePoolKeysInvalidAddress(t *testing.T) {
	keys := validStandardKeys()
	keys.VaultA = "not-a-valid-address"
	_, err := ParsePoolKeys(keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.A")
}

func TestParsePoolKeysStandardWithoutMarketIsSoft(t *testing.T) {
	keys := validStandardKeys()
	keys.MarketID = ""
	keys.MarketProgramID = ""
	keys.MarketBids = ""
	keys.MarketAsks = ""
	keys.MarketEventQueue = ""
	keys.MarketBaseVault = ""
	keys.MarketQuoteVault = ""
	keys.MarketAuthority = ""

	pool, err := ParsePoolKeys(keys)
	require.NoError(t, err, "missing market accounts must not fail a standard pool")
	assert.False(t, pool.Standard.HasMarket)
}

func TestParsePoolKeysUnknownType(t *testing.T) {
	keys := validCpmmKeys()
	keys.Type = "Stable"
	_, err := ParsePoolKeys(keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pool type")
}

func TestParsePoolKeysConcentratedRejected(t *testing.T) {
	// A concentrated-liquidity pool carries authority/config/observation
	// fields too, so it would parse as constant-product if the type tag were
	// not checked. Its program expects a different instruction entirely.
	keys := validCpmmKeys()
	keys.Type = "Concentrated"
	_, err := ParsePoolKeys(keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pool type")
}

func TestParseReserves(t *testing.T) {
	r := parseReserves("1000", "2000")
	require.NotNil(t, r)
	assert.Equal(t, Reserves{Base: 1000, Quote: 2000}, *r)

	assert.Nil(t, parseReserves("", "2000"))
	assert.Nil(t, parseReserves("1000", ""))
	assert.Nil(t, parseReserves("0", "0"))
	assert.Nil(t, parseReserves("abc", "2000"))
}
