package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/rpc"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/token2022"
)

// RPCClient implements Client against a Solana JSON-RPC endpoint.
type RPCClient struct {
	rpc    *rpc.Client
	logger *logrus.Logger
}

func NewRPCClient(client *rpc.Client, logger *logrus.Logger) *RPCClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCClient{rpc: client, logger: logger}
}

func (c *RPCClient) GetTokenAccountsByOwner(
	ctx context.Context,
	owner, mint, tokenProgram solana.PublicKey,
) ([]TokenAccount, error) {

	var resp struct {
		Result struct {
			Value []struct {
				Pubkey  string `json:"pubkey"`
				Account struct {
					Data struct {
						Parsed struct {
							Info struct {
								Mint        string          `json:"mint"`
								Owner       string          `json:"owner"`
								TokenAmount rpc.TokenAmount `json:"tokenAmount"`
							} `json:"info"`
						} `json:"parsed"`
					} `json:"data"`
				} `json:"account"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		owner.String(),
		map[string]any{"mint": mint.String()},
		map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"},
	}

	if err := c.rpc.Call(ctx, "getTokenAccountsByOwner", params, &resp); err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner error: %s", resp.Error.Message)
	}

	accounts := make([]TokenAccount, 0, len(resp.Result.Value))
	for _, v := range resp.Result.Value {
		pk, err := solana.PublicKeyFromBase58(v.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("invalid account pubkey %q: %w", v.Pubkey, err)
		}
		amount, err := strconv.ParseUint(v.Account.Data.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid token amount for %s: %w", v.Pubkey, err)
		}
		accounts = append(accounts, TokenAccount{
			Pubkey: pk,
			Mint:   mint,
			Owner:  owner,
			Amount: amount,
		})
	}

	return accounts, nil
}

func (c *RPCClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var resp struct {
		Result struct {
			Value rpc.TokenAmount `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{account.String(), map[string]any{"commitment": "confirmed"}}

	if err := c.rpc.Call(ctx, "getTokenAccountBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getTokenAccountBalance failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getTokenAccountBalance error: %s", resp.Error.Message)
	}

	amount, err := strconv.ParseUint(resp.Result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %w", err)
	}
	return amount, nil
}

func (c *RPCClient) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var resp struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{pubkey.String(), map[string]any{"commitment": "confirmed"}}

	if err := c.rpc.Call(ctx, "getBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBalance error: %s", resp.Error.Message)
	}
	return resp.Result.Value, nil
}

// GetWithheldFees scans the mint account and every token account of the mint
// for withheld transfer fees. Accounts are returned in descending withheld
// order so harvesting drains the largest holders first.
func (c *RPCClient) GetWithheldFees(ctx context.Context, mint solana.PublicKey) (*WithheldFees, error) {
	fees := &WithheldFees{}

	mintData, err := c.getAccountData(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint account: %w", err)
	}
	mintWithheld, _, err := token2022.WithheldFromMint(mintData)
	if err != nil {
		return nil, fmt.Errorf("decode mint withheld: %w", err)
	}
	fees.MintWithheld = mintWithheld

	// Token-2022 accounts are variable length, so filter by mint position only.
	var resp struct {
		Result []rpc.KeyedAccount `json:"result"`
		Error  *rpc.RPCError      `json:"error"`
	}

	params := []any{
		token2022.ProgramID.String(),
		map[string]any{
			"encoding":   "base64",
			"commitment": "confirmed",
			"filters": []any{
				map[string]any{
					"memcmp": map[string]any{"offset": 0, "bytes": mint.String()},
				},
			},
		},
	}

	if err := c.rpc.Call(ctx, "getProgramAccounts", params, &resp); err != nil {
		return nil, fmt.Errorf("getProgramAccounts failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getProgramAccounts error: %s", resp.Error.Message)
	}

	for _, ka := range resp.Result {
		if len(ka.Account.Data) < 1 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(ka.Account.Data[0])
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"account": ka.Pubkey,
			}).Warn("skipping account with undecodable data")
			continue
		}

		withheld, ok, err := token2022.WithheldFromAccount(raw)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"account": ka.Pubkey,
				"error":   err,
			}).Warn("skipping account with malformed extensions")
			continue
		}
		if !ok || withheld == 0 {
			continue
		}

		pk, err := solana.PublicKeyFromBase58(ka.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("invalid account pubkey %q: %w", ka.Pubkey, err)
		}
		fees.Accounts = append(fees.Accounts, TokenAccount{
			Pubkey:   pk,
			Mint:     mint,
			Withheld: withheld,
		})
	}

	sort.Slice(fees.Accounts, func(i, j int) bool {
		return fees.Accounts[i].Withheld > fees.Accounts[j].Withheld
	})

	fees.Total = fees.MintWithheld
	for _, a := range fees.Accounts {
		fees.Total += a.Withheld
	}

	return fees, nil
}

func (c *RPCClient) getAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	var resp struct {
		Result struct {
			Value *rpc.AccountData `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{"encoding": "base64", "commitment": "confirmed"},
	}

	if err := c.rpc.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	if resp.Result.Value == nil {
		return nil, fmt.Errorf("account %s not found", pubkey)
	}
	if len(resp.Result.Value.Data) < 1 {
		return nil, fmt.Errorf("account %s has no data", pubkey)
	}

	return base64.StdEncoding.DecodeString(resp.Result.Value.Data[0])
}
