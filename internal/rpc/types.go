package rpc

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// TokenAmount represents token balance information as returned by
// getTokenAccountBalance / getTokenAccountsByOwner
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// AccountData is the base64 payload of a program account
type AccountData struct {
	Data     []string `json:"data"` // [payload, encoding]
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

// KeyedAccount pairs an account pubkey with its data
type KeyedAccount struct {
	Pubkey  string      `json:"pubkey"`
	Account AccountData `json:"account"`
}
