package raydium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// PoolIndex resolves a pool id into its full account structure and, when the
// index provides them, current reserves. The engine never infers pool
// structure from anything but this interface.
type PoolIndex interface {
	FetchPool(ctx context.Context, poolID string) (*Pool, *Reserves, error)
}

// IndexClient is the HTTP implementation of PoolIndex against the exchange's
// public pool index API.
type IndexClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewIndexClient(baseURL string) *IndexClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api-v3.raydium.io"
	}
	return &IndexClient{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("pool index http %d", e.StatusCode)
	}
	return fmt.Sprintf("pool index http %d: %s", e.StatusCode, b)
}

// poolKeysResponse is the wire shape of the index's pool-keys endpoint.
type poolKeysResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		ID               string                   `json:"id"`
		ProgramID        string                   `json:"programId"`
		Type             string                   `json:"type"` // "Standard" | "Cpmm"
		MintA            struct{ Address string } `json:"mintA"`
		MintB            struct{ Address string } `json:"mintB"`
		Vault            struct{ A, B string }    `json:"vault"`
		Authority        string                   `json:"authority"`
		OpenOrders       string                   `json:"openOrders"`
		TargetOrders     string                   `json:"targetOrders"`
		MarketProgramID  string                   `json:"marketProgramId"`
		MarketID         string                   `json:"marketId"`
		MarketBids       string                   `json:"marketBids"`
		MarketAsks       string                   `json:"marketAsks"`
		MarketEventQueue string                   `json:"marketEventQueue"`
		MarketBaseVault  string                   `json:"marketBaseVault"`
		MarketQuoteVault string                   `json:"marketQuoteVault"`
		MarketAuthority  string                   `json:"marketAuthority"`
		Config           struct{ ID string }      `json:"config"`
		ObservationID    string                   `json:"observationId"`
		MintAmountA      string                   `json:"mintAmountA"`
		MintAmountB      string                   `json:"mintAmountB"`
	} `json:"data"`
}

func (c *IndexClient) FetchPool(ctx context.Context, poolID string) (*Pool, *Reserves, error) {
	if strings.TrimSpace(poolID) == "" {
		return nil, nil, fmt.Errorf("pool id is required")
	}

	q := url.Values{}
	q.Set("ids", poolID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/pools/key/ids?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("pool index request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read pool index response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	var keys poolKeysResponse
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, nil, fmt.Errorf("decode pool index response: %w", err)
	}
	if !keys.Success || len(keys.Data) == 0 {
		return nil, nil, fmt.Errorf("pool %s not found in index", poolID)
	}

	d := keys.Data[0]

	raw := PoolKeys{
		ID:               d.ID,
		ProgramID:        d.ProgramID,
		Type:             d.Type,
		MintA:            d.MintA.Address,
		MintB:            d.MintB.Address,
		VaultA:           d.Vault.A,
		VaultB:           d.Vault.B,
		Authority:        d.Authority,
		OpenOrders:       d.OpenOrders,
		TargetOrders:     d.TargetOrders,
		MarketProgramID:  d.MarketProgramID,
		MarketID:         d.MarketID,
		MarketBids:       d.MarketBids,
		MarketAsks:       d.MarketAsks,
		MarketEventQueue: d.MarketEventQueue,
		MarketBaseVault:  d.MarketBaseVault,
		MarketQuoteVault: d.MarketQuoteVault,
		MarketAuthority:  d.MarketAuthority,
		AmmConfig:        d.Config.ID,
		ObservationID:    d.ObservationID,
	}

	pool, err := ParsePoolKeys(raw)
	if err != nil {
		return nil, nil, err
	}

	reserves := parseReserves(d.MintAmountA, d.MintAmountB)

	return pool, reserves, nil
}

// PoolKeys is the flattened index response handed to ParsePoolKeys.
// Split out so tests can feed key sets without an HTTP round trip.
type PoolKeys struct {
	ID        string
	ProgramID string
	Type      string

	MintA  string
	MintB  string
	VaultA string
	VaultB string

	Authority    string
	OpenOrders   string
	TargetOrders string

	MarketProgramID  string
	MarketID         string
	MarketBids       string
	MarketAsks       string
	MarketEventQueue string
	MarketBaseVault  string
	MarketQuoteVault string
	MarketAuthority  string

	AmmConfig     string
	ObservationID string
}

// ParsePoolKeys validates and converts an index key set into a Pool. Every
// required address must be present: a silently wrong or defaulted vault
// address would produce an unrecoverable fund-loss transaction, so missing
// required fields are hard errors. Only the market set of a standard pool
// may be absent (soft: HasMarket=false).
func ParsePoolKeys(raw PoolKeys) (*Pool, error) {
	pool := &Pool{}

	var err error
	if pool.ID, err = requireKey(raw.ID, "id"); err != nil {
		return nil, err
	}
	if pool.ProgramID, err = requireKey(raw.ProgramID, "programId"); err != nil {
		return nil, err
	}
	if pool.BaseMint, err = requireKey(raw.MintA, "mintA"); err != nil {
		return nil, err
	}
	if pool.QuoteMint, err = requireKey(raw.MintB, "mintB"); err != nil {
		return nil, err
	}
	if pool.BaseVault, err = requireKey(raw.VaultA, "vault.A"); err != nil {
		return nil, err
	}
	if pool.QuoteVault, err = requireKey(raw.VaultB, "vault.B"); err != nil {
		return nil, err
	}

	switch strings.ToLower(raw.Type) {
	case "standard":
		pool.Variant = VariantStandard
		std := &StandardAccounts{}
		if std.Authority, err = requireKey(raw.Authority, "authority"); err != nil {
			return nil, err
		}
		if std.OpenOrders, err = requireKey(raw.OpenOrders, "openOrders"); err != nil {
			return nil, err
		}
		if std.TargetOrders, err = requireKey(raw.TargetOrders, "targetOrders"); err != nil {
			return nil, err
		}

		std.HasMarket = raw.MarketID != "" && raw.MarketProgramID != ""
		if std.HasMarket {
			if std.MarketProgram, err = requireKey(raw.MarketProgramID, "marketProgramId"); err != nil {
				return nil, err
			}
			if std.Market, err = requireKey(raw.MarketID, "marketId"); err != nil {
				return nil, err
			}
			if std.MarketBids, err = requireKey(raw.MarketBids, "marketBids"); err != nil {
				return nil, err
			}
			if std.MarketAsks, err = requireKey(raw.MarketAsks, "marketAsks"); err != nil {
				return nil, err
			}
			if std.MarketEventQueue, err = requireKey(raw.MarketEventQueue, "marketEventQueue"); err != nil {
				return nil, err
			}
			if std.MarketBaseVault, err = requireKey(raw.MarketBaseVault, "marketBaseVault"); err != nil {
				return nil, err
			}
			if std.MarketQuoteVault, err = requireKey(raw.MarketQuoteVault, "marketQuoteVault"); err != nil {
				return nil, err
			}
			if std.MarketVaultSigner, err = requireKey(raw.MarketAuthority, "marketAuthority"); err != nil {
				return nil, err
			}
		}
		pool.Standard = std

	case "cpmm", "constant-product":
		pool.Variant = VariantCpmm
		cp := &CpmmAccounts{}
		if cp.Authority, err = requireKey(raw.Authority, "authority"); err != nil {
			return nil, err
		}
		if cp.AmmConfig, err = requireKey(raw.AmmConfig, "config.id"); err != nil {
			return nil, err
		}
		if cp.Observation, err = requireKey(raw.ObservationID, "observationId"); err != nil {
			return nil, err
		}
		pool.Cpmm = cp

	default:
		return nil, fmt.Errorf("unknown pool type %q", raw.Type)
	}

	return pool, nil
}

func requireKey(s, field string) (solana.PublicKey, error) {
	if strings.TrimSpace(s) == "" {
		return solana.PublicKey{}, fmt.Errorf("pool index response missing required field %q", field)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pool index field %q: invalid address %q: %w", field, s, err)
	}
	return pk, nil
}

func parseReserves(amountA, amountB string) *Reserves {
	if amountA == "" || amountB == "" {
		return nil
	}
	a, errA := strconv.ParseUint(amountA, 10, 64)
	b, errB := strconv.ParseUint(amountB, 10, 64)
	if errA != nil || errB != nil {
		return nil
	}
	if a == 0 && b == 0 {
		return nil
	}
	return &Reserves{Base: a, Quote: b}
}
