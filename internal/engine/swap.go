package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/raydium"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/token2022"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/wallet"
)

// SwapResult reports one executed exchange.
type SwapResult struct {
	Signature        string
	AmountInRaw      uint64
	ExpectedOut      uint64
	MinOut           uint64
	ReceivedLamports uint64
}

// Swapper is the exchange capability the epoch runner depends on; tests
// provide fakes.
type Swapper interface {
	// Rate returns the current pool rate in lamports per raw token unit,
	// zero when unavailable.
	Rate(ctx context.Context) float64

	// Swap exchanges amountRaw fee tokens into lamports.
	Swap(ctx context.Context, amountRaw uint64) (*SwapResult, error)
}

// SwapExecutor converts harvested fee tokens into SOL against the configured
// pool. Pool structure and reserves are fetched fresh for every swap, never
// cached across slices: a prior slice moves the price.
type SwapExecutor struct {
	wallet *wallet.Wallet
	ledger ledger.Client
	index  raydium.PoolIndex
	logger *logrus.Logger

	poolID      string
	mint        solana.PublicKey
	slippageBps uint16
	outFloor    uint64
	simulate    bool

	wsolMint solana.PublicKey
}

type SwapExecutorConfig struct {
	Wallet *wallet.Wallet
	Ledger ledger.Client
	Index  raydium.PoolIndex
	Logger *logrus.Logger

	PoolID            string
	Mint              solana.PublicKey
	SlippageBps       uint16
	MinOutFloor       uint64
	RequireSimulation bool
}

func NewSwapExecutor(cfg SwapExecutorConfig) *SwapExecutor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &SwapExecutor{
		wallet:      cfg.Wallet,
		ledger:      cfg.Ledger,
		index:       cfg.Index,
		logger:      cfg.Logger,
		poolID:      cfg.PoolID,
		mint:        cfg.Mint,
		slippageBps: cfg.SlippageBps,
		outFloor:    cfg.MinOutFloor,
		simulate:    cfg.RequireSimulation,
		wsolMint:    solana.MustPublicKeyFromBase58(constants.WSOLMint),
	}
}

// Rate fetches current reserves and returns the spot rate. Errors collapse
// to zero: the callers treat an unavailable rate as a degraded-mode signal,
// not a hard failure.
func (e *SwapExecutor) Rate(ctx context.Context) float64 {
	pool, idxReserves, err := e.index.FetchPool(ctx, e.poolID)
	if err != nil {
		e.logger.WithError(err).Warn("pool fetch failed, rate unavailable")
		return 0
	}
	reserves, err := raydium.FetchReserves(ctx, e.ledger, pool, idxReserves)
	if err != nil {
		e.logger.WithError(err).Warn("reserve fetch failed, rate unavailable")
		return 0
	}
	rIn, rOut := pool.ReservesFor(reserves, e.mint)
	return raydium.Rate(rIn, rOut)
}

func (e *SwapExecutor) Swap(ctx context.Context, amountRaw uint64) (*SwapResult, error) {
	if amountRaw == 0 {
		return nil, fmt.Errorf("swap amount is zero")
	}

	pool, idxReserves, err := e.index.FetchPool(ctx, e.poolID)
	if err != nil {
		return nil, fmt.Errorf("fetch pool: %w", err)
	}

	reserves, err := raydium.FetchReserves(ctx, e.ledger, pool, idxReserves)
	if err != nil {
		return nil, fmt.Errorf("fetch reserves: %w", err)
	}

	rIn, rOut := pool.ReservesFor(reserves, e.mint)
	expected, err := raydium.ExpectedOutput(amountRaw, rIn, rOut)
	if err != nil {
		return nil, err
	}
	if err := raydium.VerifyLiquidity(rIn, rOut, expected, e.outFloor); err != nil {
		return nil, err
	}
	minOut := raydium.ApplySlippage(expected, e.slippageBps)

	owner := e.wallet.PublicKey()
	legacyProgram := token2022.LegacyTokenProgramID()

	source, _, err := token2022.FindAssociatedTokenAddress(owner, e.mint, token2022.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive source account: %w", err)
	}
	dest, _, err := token2022.FindAssociatedTokenAddress(owner, e.wsolMint, legacyProgram)
	if err != nil {
		return nil, fmt.Errorf("derive wsol account: %w", err)
	}

	var instructions []solana.Instruction

	destExists, err := e.wallet.AccountExists(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("check wsol account: %w", err)
	}
	if !destExists {
		instructions = append(instructions, token2022.NewCreateAssociatedTokenAccountIx(
			owner, dest, owner, e.wsolMint, legacyProgram))
	}

	swapIx, err := raydium.BuildSwapInstruction(pool, raydium.SwapAccounts{
		Owner:         owner,
		UserSource:    source,
		UserDest:      dest,
		SourceProgram: token2022.ProgramID,
		DestProgram:   legacyProgram,
		InputMint:     e.mint,
	}, amountRaw, minOut, e.logger)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, swapIx)

	var destBefore uint64
	if destExists {
		destBefore, err = e.ledger.GetTokenAccountBalance(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("read wsol balance: %w", err)
		}
	}

	if e.simulate {
		tx, err := e.wallet.BuildTransaction(ctx, instructions)
		if err != nil {
			return nil, err
		}
		if err := e.wallet.SignTx(tx); err != nil {
			return nil, err
		}
		if _, err := e.wallet.SimulateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("swap simulation failed: %w (accounts: %s)",
				err, raydium.FormatAccounts(swapIx))
		}
	}

	sig, err := e.wallet.SignAndSend(ctx, instructions, nil)
	if err != nil {
		return nil, fmt.Errorf("send swap: %w (accounts: %s)", err, raydium.FormatAccounts(swapIx))
	}
	if err := e.wallet.ConfirmTransaction(ctx, sig, "confirmed", constants.ConfirmTimeout); err != nil {
		return nil, fmt.Errorf("confirm swap %s: %w (accounts: %s)",
			sig, err, raydium.FormatAccounts(swapIx))
	}

	destAfter, err := e.ledger.GetTokenAccountBalance(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("read wsol balance after swap %s: %w", sig, err)
	}
	received := destAfter - destBefore

	// Unwrap: closing the wsol account credits its lamports back to the
	// wallet for distribution. Best effort; the measured amount is already
	// known and the close retries implicitly on the next swap.
	closeIx := token2022.NewCloseAccountIx(dest, owner, owner, legacyProgram)
	if closeSig, err := e.wallet.SignAndSend(ctx, []solana.Instruction{closeIx}, nil); err != nil {
		e.logger.WithError(err).Warn("wsol unwrap failed, lamports remain wrapped")
	} else if err := e.wallet.ConfirmTransaction(ctx, closeSig, "confirmed", constants.ConfirmTimeout); err != nil {
		e.logger.WithError(err).WithField("signature", closeSig).Warn("wsol unwrap unconfirmed")
	}

	e.logger.WithFields(logrus.Fields{
		"signature":    sig,
		"amount_in":    amountRaw,
		"expected_out": expected,
		"min_out":      minOut,
		"received":     received,
	}).Info("swap executed")

	return &SwapResult{
		Signature:        sig,
		AmountInRaw:      amountRaw,
		ExpectedOut:      expected,
		MinOut:           minOut,
		ReceivedLamports: received,
	}, nil
}
