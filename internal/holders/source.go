package holders

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/rpc"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/token2022"
)

// SnapshotSource returns the full current holder set with balances and
// blacklist flags. A full scan is expensive; callers go through the Cache.
type SnapshotSource interface {
	Holders(ctx context.Context) ([]models.Holder, error)
}

// RPCSource scans every token account of the mint. The blacklist is a static
// address set supplied at construction (treasury, pool vaults, burn address).
type RPCSource struct {
	rpc       *rpc.Client
	mint      solana.PublicKey
	blacklist map[string]bool
}

func NewRPCSource(client *rpc.Client, mint solana.PublicKey, blacklist []string) *RPCSource {
	bl := make(map[string]bool, len(blacklist))
	for _, addr := range blacklist {
		bl[addr] = true
	}
	return &RPCSource{rpc: client, mint: mint, blacklist: bl}
}

func (s *RPCSource) Holders(ctx context.Context) ([]models.Holder, error) {
	var resp struct {
		Result []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Owner       string          `json:"owner"`
							TokenAmount rpc.TokenAmount `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		token2022.ProgramID.String(),
		map[string]any{
			"encoding":   "jsonParsed",
			"commitment": "confirmed",
			"filters": []any{
				map[string]any{
					"memcmp": map[string]any{"offset": 0, "bytes": s.mint.String()},
				},
			},
		},
	}

	if err := s.rpc.Call(ctx, "getProgramAccounts", params, &resp); err != nil {
		return nil, fmt.Errorf("holder scan failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("holder scan error: %s", resp.Error.Message)
	}

	// Balances aggregate per owner: one wallet can hold several token
	// accounts of the same mint.
	byOwner := make(map[string]uint64)
	for _, v := range resp.Result {
		owner := v.Account.Data.Parsed.Info.Owner
		if owner == "" {
			continue
		}
		amount, err := strconv.ParseUint(v.Account.Data.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid balance for account %s: %w", v.Pubkey, err)
		}
		byOwner[owner] += amount
	}

	out := make([]models.Holder, 0, len(byOwner))
	for owner, balance := range byOwner {
		out = append(out, models.Holder{
			Address:     owner,
			Balance:     balance,
			Blacklisted: s.blacklist[owner],
		})
	}
	return out, nil
}
