package engine

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/token2022"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/wallet"
)

// maxTransfersPerTx bounds how many payout transfers share one transaction.
const maxTransfersPerTx = 8

// DistributionResult summarizes one slice's distribution.
type DistributionResult struct {
	DistributableLamports uint64
	SecondaryLamports     uint64
	PaidLamports          uint64
	PaidWallets           int
	AccruedWallets        int
	ClearedPending        int
	Signatures            []string
}

// payout is one wallet's computed entitlement for this slice.
type payout struct {
	wallet string
	share  uint64 // this slice's proportional share
	total  uint64 // share + previously accumulated
}

// Distributor splits swapped proceeds across the eligible holder set merged
// with every wallet carrying an accumulated balance. Transfers are serialized
// through a single sender balance, so nothing here fans out.
type Distributor struct {
	payer  Payer
	state  *store.State
	logger *logrus.Logger

	secondaryRecipient string
	secondaryShareBps  uint16
}

// Payer is the wallet surface payouts go through; tests provide fakes.
type Payer interface {
	PublicKey() solana.PublicKey
	SignAndSend(ctx context.Context, instructions []solana.Instruction, opts *wallet.SendOptions) (string, error)
	ConfirmTransaction(ctx context.Context, signature, commitment string, timeout time.Duration) error
}

type DistributorConfig struct {
	Payer  Payer
	State  *store.State
	Logger *logrus.Logger

	SecondaryRecipient string
	SecondaryShareBps  uint16
}

func NewDistributor(cfg DistributorConfig) *Distributor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Distributor{
		payer:              cfg.Payer,
		state:              cfg.State,
		logger:             cfg.Logger,
		secondaryRecipient: cfg.SecondaryRecipient,
		secondaryShareBps:  cfg.SecondaryShareBps,
	}
}

// RetryPendingClears clears wallets that were paid in a previous epoch but
// whose clear-write failed. They are cleared, never paid again.
func (d *Distributor) RetryPendingClears(ctx context.Context) (int, error) {
	rewards, err := d.state.LoadRewards(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, w := range rewards.PendingClears {
		if err := d.state.ClearReward(ctx, w); err != nil {
			d.logger.WithFields(logrus.Fields{
				"wallet": w,
				"error":  err,
			}).Error("pending clear retry failed, wallet still marked as owed after payment")
			continue
		}
		d.logger.WithField("wallet", w).Info("cleared previously paid wallet")
		cleared++
	}
	return cleared, nil
}

// Distribute splits receivedLamports proportionally by holding weight.
// Wallets whose share plus accumulated balance clears minPayoutLamports are
// paid the full total; everyone else accrues exactly their share.
func (d *Distributor) Distribute(
	ctx context.Context,
	receivedLamports uint64,
	snap *models.EligibleWalletSnapshot,
	minPayoutLamports uint64,
) (*DistributionResult, error) {

	res := &DistributionResult{}
	if receivedLamports == 0 {
		return res, nil
	}

	distributable, err := d.paySecondary(ctx, receivedLamports, res)
	if err != nil {
		return res, err
	}
	res.DistributableLamports = distributable

	rewards, err := d.state.LoadRewards(ctx)
	if err != nil {
		return res, err
	}

	pendingClear := make(map[string]bool, len(rewards.PendingClears))
	for _, w := range rewards.PendingClears {
		pendingClear[w] = true
	}

	var totalWeight uint64
	for _, weight := range snap.Wallets {
		totalWeight += weight
	}

	// Union: a wallet that fell below eligibility keeps its accumulated
	// balance payable. Its weight is zero, so it earns no new share.
	union := make(map[string]bool, len(snap.Wallets)+len(rewards.Rewards))
	for w := range snap.Wallets {
		union[w] = true
	}
	for w := range rewards.Rewards {
		union[w] = true
	}

	wallets := make([]string, 0, len(union))
	for w := range union {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	var payable []payout
	for _, w := range wallets {
		if pendingClear[w] {
			// Paid in a prior epoch; clear instead of paying, then accrue
			// this slice's share fresh.
			if err := d.state.ClearReward(ctx, w); err != nil {
				d.logger.WithFields(logrus.Fields{
					"wallet": w,
					"error":  err,
				}).Error("pending clear failed, wallet still marked as owed after payment")
				continue
			}
			res.ClearedPending++
			if share := proportionalShare(distributable, snap.Wallets[w], totalWeight); share > 0 {
				if err := d.state.AccrueReward(ctx, w, share); err != nil {
					return res, fmt.Errorf("accrue share for %s: %w", w, err)
				}
				res.AccruedWallets++
			}
			continue
		}

		share := proportionalShare(distributable, snap.Wallets[w], totalWeight)
		total := share + rewards.Rewards[w]
		if total == 0 {
			continue
		}

		if total < minPayoutLamports {
			if share > 0 {
				if err := d.state.AccrueReward(ctx, w, share); err != nil {
					return res, fmt.Errorf("accrue share for %s: %w", w, err)
				}
				d.logger.WithFields(logrus.Fields{
					"wallet":      w,
					"share":       share,
					"accumulated": total,
					"threshold":   minPayoutLamports,
				}).Debug("below payout threshold, accumulated")
				res.AccruedWallets++
			}
			continue
		}

		payable = append(payable, payout{wallet: w, share: share, total: total})
	}

	if err := d.executePayouts(ctx, payable, res); err != nil {
		return res, err
	}
	return res, nil
}

// paySecondary carves the configured share off the top and transfers it to
// the secondary recipient. On failure the cut folds back into the
// distributable amount; nothing is lost.
func (d *Distributor) paySecondary(ctx context.Context, received uint64, res *DistributionResult) (uint64, error) {
	if d.secondaryShareBps == 0 || d.secondaryRecipient == "" {
		return received, nil
	}

	cut := new(big.Int).SetUint64(received)
	cut.Mul(cut, big.NewInt(int64(d.secondaryShareBps)))
	cut.Div(cut, big.NewInt(10000))
	cutLamports := cut.Uint64()
	if cutLamports == 0 {
		return received, nil
	}

	recipient, err := solana.PublicKeyFromBase58(d.secondaryRecipient)
	if err != nil {
		return received, fmt.Errorf("invalid secondary recipient: %w", err)
	}

	ix := token2022.NewSystemTransferIx(d.payer.PublicKey(), recipient, cutLamports)
	sig, err := d.payer.SignAndSend(ctx, []solana.Instruction{ix}, nil)
	if err == nil {
		err = d.payer.ConfirmTransaction(ctx, sig, "confirmed", constants.ConfirmTimeout)
	}
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"recipient": d.secondaryRecipient,
			"lamports":  cutLamports,
			"error":     err,
		}).Error("secondary transfer failed, share folded back into distribution")
		return received, nil
	}

	res.SecondaryLamports = cutLamports
	res.Signatures = append(res.Signatures, sig)
	d.logger.WithFields(logrus.Fields{
		"recipient": d.secondaryRecipient,
		"lamports":  cutLamports,
		"signature": sig,
	}).Info("secondary share transferred")
	return received - cutLamports, nil
}

// executePayouts sends the queued transfers in small grouped transactions.
// A failed group accrues each member's share so the entitlement survives; a
// confirmed group clears each member, falling back to a pending-clear marker
// when the clear-write itself fails.
func (d *Distributor) executePayouts(ctx context.Context, payable []payout, res *DistributionResult) error {
	for start := 0; start < len(payable); start += maxTransfersPerTx {
		end := start + maxTransfersPerTx
		if end > len(payable) {
			end = len(payable)
		}
		group := payable[start:end]

		instructions := make([]solana.Instruction, 0, len(group))
		valid := group[:0]
		for _, p := range group {
			recipient, err := solana.PublicKeyFromBase58(p.wallet)
			if err != nil {
				d.logger.WithField("wallet", p.wallet).Error("skipping payout to unparseable address")
				continue
			}
			instructions = append(instructions,
				token2022.NewSystemTransferIx(d.payer.PublicKey(), recipient, p.total))
			valid = append(valid, p)
		}
		if len(instructions) == 0 {
			continue
		}

		sig, err := d.payer.SignAndSend(ctx, instructions, nil)
		if err == nil {
			err = d.payer.ConfirmTransaction(ctx, sig, "confirmed", constants.ConfirmTimeout)
		}
		if err != nil {
			// Transfers did not apply; each wallet keeps its accumulated
			// balance and this slice's share on top.
			for _, p := range valid {
				if p.share == 0 {
					continue
				}
				if accrueErr := d.state.AccrueReward(ctx, p.wallet, p.share); accrueErr != nil {
					d.logger.WithFields(logrus.Fields{
						"wallet": p.wallet,
						"share":  p.share,
						"error":  accrueErr,
					}).Error("failed to accrue share after payout failure")
				}
				res.AccruedWallets++
			}
			d.logger.WithFields(logrus.Fields{
				"wallets": len(valid),
				"error":   err,
			}).Error("payout transaction failed, shares accumulated for retry")
			continue
		}

		res.Signatures = append(res.Signatures, sig)
		for _, p := range valid {
			res.PaidLamports += p.total
			res.PaidWallets++
			if err := d.state.ClearReward(ctx, p.wallet); err != nil {
				// Paid but still recorded as owed. Mark so the next epoch
				// retries the clear instead of paying twice.
				d.logger.WithFields(logrus.Fields{
					"wallet":   p.wallet,
					"lamports": p.total,
					"error":    err,
				}).Error("RECONCILIATION: wallet paid but clear-write failed")
				if markErr := d.state.MarkPendingClear(ctx, p.wallet); markErr != nil {
					d.logger.WithFields(logrus.Fields{
						"wallet": p.wallet,
						"error":  markErr,
					}).Error("failed to mark pending clear")
				}
				continue
			}
			d.logger.WithFields(logrus.Fields{
				"wallet":    p.wallet,
				"lamports":  p.total,
				"signature": sig,
			}).Info("payout confirmed")
		}
	}
	return nil
}

// proportionalShare computes lamports*weight/totalWeight without overflowing.
func proportionalShare(lamports, weight, totalWeight uint64) uint64 {
	if weight == 0 || totalWeight == 0 || lamports == 0 {
		return 0
	}
	n := new(big.Int).SetUint64(lamports)
	n.Mul(n, new(big.Int).SetUint64(weight))
	n.Div(n, new(big.Int).SetUint64(totalWeight))
	return n.Uint64()
}
