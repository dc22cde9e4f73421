package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/token2022"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/wallet"
)

// HarvestRunner is the harvesting capability the epoch runner depends on;
// tests provide fakes.
type HarvestRunner interface {
	Harvest(ctx context.Context, fees *ledger.WithheldFees, targetRaw uint64) (*HarvestResult, error)
}

// HarvestResult reports what one harvest pass actually moved.
type HarvestResult struct {
	HarvestedRaw uint64
	Signatures   []string
	SourceCount  int
	MintDrained  bool
}

// Harvester withdraws withheld transfer fees into the operator's fee-token
// account. It always works from a fresh on-chain scan handed in by the
// caller, never from a remembered total, which makes harvesting idempotent
// across crashes.
type Harvester struct {
	wallet *wallet.Wallet
	mint   solana.PublicKey
	logger *logrus.Logger

	feeATA solana.PublicKey
}

func NewHarvester(w *wallet.Wallet, mint solana.PublicKey, logger *logrus.Logger) *Harvester {
	if logger == nil {
		logger = logrus.New()
	}
	return &Harvester{wallet: w, mint: mint, logger: logger}
}

// FeeTokenAccount derives and, on first use, creates the operator's fee-token
// associated account. The derivation uses the fee token's own program id;
// deriving with the legacy program would yield a different, wrong address.
func (h *Harvester) FeeTokenAccount(ctx context.Context) (solana.PublicKey, error) {
	if !h.feeATA.IsZero() {
		return h.feeATA, nil
	}

	ata, _, err := token2022.FindAssociatedTokenAddress(h.wallet.PublicKey(), h.mint, token2022.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive fee token account: %w", err)
	}

	exists, err := h.wallet.AccountExists(ctx, ata)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("check fee token account: %w", err)
	}
	if !exists {
		ix := token2022.NewCreateAssociatedTokenAccountIx(
			h.wallet.PublicKey(), ata, h.wallet.PublicKey(), h.mint, token2022.ProgramID)
		sig, err := h.wallet.SignAndSend(ctx, []solana.Instruction{ix}, nil)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("create fee token account: %w", err)
		}
		if err := h.wallet.ConfirmTransaction(ctx, sig, "confirmed", constants.ConfirmTimeout); err != nil {
			return solana.PublicKey{}, fmt.Errorf("confirm fee token account creation: %w", err)
		}
		h.logger.WithFields(logrus.Fields{
			"account":   ata.String(),
			"signature": sig,
		}).Info("created fee token account")
	}

	h.feeATA = ata
	return ata, nil
}

// Harvest withdraws withheld fees up to targetRaw (0 means everything). The
// mint-level withheld amount is taken first, then holder accounts largest
// first until the target is covered. Accounts are indivisible, so the actual
// harvested amount can slightly exceed the target; the caller swaps what was
// actually moved.
func (h *Harvester) Harvest(ctx context.Context, fees *ledger.WithheldFees, targetRaw uint64) (*HarvestResult, error) {
	if fees == nil || fees.Total == 0 {
		return &HarvestResult{}, nil
	}

	dest, err := h.FeeTokenAccount(ctx)
	if err != nil {
		return nil, err
	}

	res := &HarvestResult{}
	authority := h.wallet.PublicKey()

	if fees.MintWithheld > 0 {
		ix := token2022.NewWithdrawWithheldFromMintIx(h.mint, dest, authority)
		sig, err := h.sendConfirmed(ctx, []solana.Instruction{ix})
		if err != nil {
			return res, fmt.Errorf("withdraw withheld from mint: %w", err)
		}
		res.Signatures = append(res.Signatures, sig)
		res.HarvestedRaw += fees.MintWithheld
		res.MintDrained = true
	}

	var sources []solana.PublicKey
	var pending uint64
	for _, acc := range fees.Accounts {
		if targetRaw > 0 && res.HarvestedRaw+pending >= targetRaw {
			break
		}
		sources = append(sources, acc.Pubkey)
		pending += acc.Withheld
	}

	for start := 0; start < len(sources); start += constants.MaxHarvestAccountsPerTx {
		end := start + constants.MaxHarvestAccountsPerTx
		if end > len(sources) {
			end = len(sources)
		}
		chunk := sources[start:end]

		ix, err := token2022.NewWithdrawWithheldFromAccountsIx(h.mint, dest, authority, chunk)
		if err != nil {
			return res, err
		}
		sig, err := h.sendConfirmed(ctx, []solana.Instruction{ix})
		if err != nil {
			return res, fmt.Errorf("withdraw withheld from %d accounts: %w", len(chunk), err)
		}
		res.Signatures = append(res.Signatures, sig)
		res.SourceCount += len(chunk)
	}
	res.HarvestedRaw += pending

	h.logger.WithFields(logrus.Fields{
		"harvested_raw": res.HarvestedRaw,
		"sources":       res.SourceCount,
		"transactions":  len(res.Signatures),
	}).Info("harvest complete")

	return res, nil
}

func (h *Harvester) sendConfirmed(ctx context.Context, instructions []solana.Instruction) (string, error) {
	sig, err := h.wallet.SignAndSend(ctx, instructions, nil)
	if err != nil {
		return "", err
	}
	if err := h.wallet.ConfirmTransaction(ctx, sig, "confirmed", constants.ConfirmTimeout); err != nil {
		return "", fmt.Errorf("confirm %s: %w", sig, err)
	}
	return sig, nil
}
