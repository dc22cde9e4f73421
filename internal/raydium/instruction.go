package raydium

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
)

// AMM v4 swap_base_in instruction discriminator
const standardSwapDiscriminator = 9

// CPMM swap_base_input anchor discriminator (sha256("global:swap_base_input")[:8])
var cpmmSwapDiscriminator = [8]byte{143, 190, 90, 218, 196, 30, 51, 222}

var dummyMarketAddress = solana.MustPublicKeyFromBase58(constants.DummyMarketAddress)

// SwapAccounts bundles everything variant-independent the builders need.
// The source side is the fee token (Token-2022); the destination side is
// wSOL under the legacy token program. The two program ids are carried
// separately and must never be swapped: the ledger rejects an instruction
// naming the wrong program for an account's actual type.
type SwapAccounts struct {
	Owner         solana.PublicKey
	UserSource    solana.PublicKey
	UserDest      solana.PublicKey
	SourceProgram solana.PublicKey // token program owning UserSource
	DestProgram   solana.PublicKey // token program owning UserDest
	InputMint     solana.PublicKey
}

// BuildSwapInstruction constructs the exchange instruction for the pool's
// variant. The switch over the variant tag is the only place the two account
// layouts exist; neither layout ever defaults a missing field of the other.
func BuildSwapInstruction(
	pool *Pool,
	accounts SwapAccounts,
	amountIn, minAmountOut uint64,
	logger *logrus.Logger,
) (solana.Instruction, error) {

	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	switch pool.Variant {
	case VariantStandard:
		return buildStandardSwapIx(pool, accounts, amountIn, minAmountOut, logger)
	case VariantCpmm:
		return buildCpmmSwapIx(pool, accounts, amountIn, minAmountOut)
	default:
		return nil, fmt.Errorf("unknown pool variant %q", pool.Variant)
	}
}

// buildStandardSwapIx builds the order-book backed layout.
//
// Account order:
//  0. amm id (writable)
//  1. amm authority
//  2. amm open orders (writable)
//  3. amm target orders (writable)
//  4. pool base vault (writable)
//  5. pool quote vault (writable)
//  6. market program
//  7. market (writable)
//  8. market bids (writable)
//  9. market asks (writable)
// 10. market event queue (writable)
// 11. market base vault (writable)
// 12. market quote vault (writable)
// 13. market vault signer
// 14. user source token account (writable)
// 15. user destination token account (writable)
// 16. user owner (signer)
// 17. source token program
// 18. destination token program
func buildStandardSwapIx(
	pool *Pool,
	acc SwapAccounts,
	amountIn, minAmountOut uint64,
	logger *logrus.Logger,
) (solana.Instruction, error) {

	std := pool.Standard
	if std == nil {
		return nil, fmt.Errorf("standard pool %s has no standard account set", pool.ID)
	}

	market := marketSlots{
		program:     std.MarketProgram,
		market:      std.Market,
		bids:        std.MarketBids,
		asks:        std.MarketAsks,
		eventQueue:  std.MarketEventQueue,
		baseVault:   std.MarketBaseVault,
		quoteVault:  std.MarketQuoteVault,
		vaultSigner: std.MarketVaultSigner,
	}

	if !std.HasMarket {
		// The index says this nominally standard pool has no order-book
		// market. Fill the placeholder-only slots with the documented dummy
		// address: the swap fails at execution, where the live attempt can
		// actually confirm market absence.
		logger.WithFields(logrus.Fields{
			"pool":  pool.ID.String(),
			"dummy": constants.DummyMarketAddress,
		}).Warn("standard pool has no market in index; substituting dummy market accounts")
		market = marketSlots{
			program:     dummyMarketAddress,
			market:      dummyMarketAddress,
			bids:        dummyMarketAddress,
			asks:        dummyMarketAddress,
			eventQueue:  dummyMarketAddress,
			baseVault:   dummyMarketAddress,
			quoteVault:  dummyMarketAddress,
			vaultSigner: dummyMarketAddress,
		}
	}

	metas := []*solana.AccountMeta{
		{PublicKey: pool.ID, IsWritable: true},
		{PublicKey: std.Authority},
		{PublicKey: std.OpenOrders, IsWritable: true},
		{PublicKey: std.TargetOrders, IsWritable: true},
		{PublicKey: pool.BaseVault, IsWritable: true},
		{PublicKey: pool.QuoteVault, IsWritable: true},
		{PublicKey: market.program},
		{PublicKey: market.market, IsWritable: true},
		{PublicKey: market.bids, IsWritable: true},
		{PublicKey: market.asks, IsWritable: true},
		{PublicKey: market.eventQueue, IsWritable: true},
		{PublicKey: market.baseVault, IsWritable: true},
		{PublicKey: market.quoteVault, IsWritable: true},
		{PublicKey: market.vaultSigner},
		{PublicKey: acc.UserSource, IsWritable: true},
		{PublicKey: acc.UserDest, IsWritable: true},
		{PublicKey: acc.Owner, IsSigner: true},
		{PublicKey: acc.SourceProgram},
		{PublicKey: acc.DestProgram},
	}

	// Data: u8 discriminator, u64 amount_in, u64 minimum_amount_out
	data := make([]byte, 17)
	data[0] = standardSwapDiscriminator
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	return solana.NewInstruction(pool.ProgramID, metas, data), nil
}

type marketSlots struct {
	program     solana.PublicKey
	market      solana.PublicKey
	bids        solana.PublicKey
	asks        solana.PublicKey
	eventQueue  solana.PublicKey
	baseVault   solana.PublicKey
	quoteVault  solana.PublicKey
	vaultSigner solana.PublicKey
}

// buildCpmmSwapIx builds the self-contained constant-product layout.
//
// Account order:
//  0. payer / owner (signer)
//  1. pool authority
//  2. amm config
//  3. pool state (writable)
//  4. user source token account (writable)
//  5. user destination token account (writable)
//  6. source vault (writable)
//  7. destination vault (writable)
//  8. source token program
//  9. destination token program
// 10. source mint
// 11. destination mint
// 12. observation state (writable)
func buildCpmmSwapIx(
	pool *Pool,
	acc SwapAccounts,
	amountIn, minAmountOut uint64,
) (solana.Instruction, error) {

	cp := pool.Cpmm
	if cp == nil {
		return nil, fmt.Errorf("cpmm pool %s has no cpmm account set", pool.ID)
	}

	srcVault, dstVault := pool.VaultsFor(acc.InputMint)
	srcMint, dstMint := pool.MintsFor(acc.InputMint)

	metas := []*solana.AccountMeta{
		{PublicKey: acc.Owner, IsSigner: true, IsWritable: true},
		{PublicKey: cp.Authority},
		{PublicKey: cp.AmmConfig},
		{PublicKey: pool.ID, IsWritable: true},
		{PublicKey: acc.UserSource, IsWritable: true},
		{PublicKey: acc.UserDest, IsWritable: true},
		{PublicKey: srcVault, IsWritable: true},
		{PublicKey: dstVault, IsWritable: true},
		{PublicKey: acc.SourceProgram},
		{PublicKey: acc.DestProgram},
		{PublicKey: srcMint},
		{PublicKey: dstMint},
		{PublicKey: cp.Observation, IsWritable: true},
	}

	// Data: 8-byte discriminator, u64 amount_in, u64 minimum_amount_out
	data := make([]byte, 24)
	copy(data[0:8], cpmmSwapDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minAmountOut)

	return solana.NewInstruction(pool.ProgramID, metas, data), nil
}

// FormatAccounts renders an instruction's account list for failure reports.
func FormatAccounts(ix solana.Instruction) string {
	if ix == nil {
		return "<nil instruction>"
	}
	var b strings.Builder
	for i, meta := range ix.Accounts() {
		flags := ""
		if meta.IsSigner {
			flags += "s"
		}
		if meta.IsWritable {
			flags += "w"
		}
		fmt.Fprintf(&b, "%d:%s(%s) ", i, meta.PublicKey.String(), flags)
	}
	return strings.TrimSpace(b.String())
}
