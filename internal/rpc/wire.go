package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/tx"
)

// U128 decodes a wire amount. Clients may send either a decimal string or a
// plain JSON number; both forms appear in the wild, so the server accepts
// both while replies always use strings.
type U128 struct {
	*uint256.Int
}

func (u *U128) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	if string(b) == "null" {
		return fmt.Errorf("amount must not be null")
	}
	v, err := amount.Parse(string(b))
	if err != nil {
		return err
	}
	u.Int = v
	return nil
}

func (u U128) MarshalJSON() ([]byte, error) {
	if u.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(amount.Format(u.Int))
}

// value returns the wrapped integer, or nil for the zero U128. Optional
// wire fields use *U128, so absent means no bound.
func optValue(u *U128) *uint256.Int {
	if u == nil {
		return nil
	}
	return u.Int
}

// envelope is the authentication trailer common to every signed wire body.
type envelope struct {
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

func (e envelope) toTx() tx.Envelope {
	return tx.Envelope{Signature: e.Signature, PublicKey: e.PublicKey}
}

type transferBody struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Denom     string `json:"denom,omitempty"`
	Amount    U128   `json:"amount"`
	Memo      string `json:"memo"`
	Nonce     uint64 `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	envelope
}

type createTokenBody struct {
	Creator       string `json:"creator"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      uint8  `json:"decimals"`
	InitialSupply U128   `json:"initial_supply"`
	Mintable      bool   `json:"mintable"`
	Burnable      bool   `json:"burnable"`
	Nonce         uint64 `json:"nonce"`
	Timestamp     int64  `json:"timestamp"`
	envelope
}

type mintBody struct {
	Denom     string `json:"denom"`
	Minter    string `json:"minter"`
	Recipient string `json:"recipient"`
	Amount    U128   `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	envelope
}

type burnBody struct {
	Denom     string `json:"denom"`
	Burner    string `json:"burner"`
	Amount    U128   `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	envelope
}

type createPairBody struct {
	Creator   string  `json:"creator"`
	TokenA    string  `json:"token_a"`
	TokenB    string  `json:"token_b"`
	AmountA   U128    `json:"amount_a"`
	AmountB   U128    `json:"amount_b"`
	FeeBps    *uint32 `json:"fee_bps,omitempty"`
	Nonce     uint64  `json:"nonce"`
	Timestamp int64   `json:"timestamp"`
	envelope
}

type swapBody struct {
	User        string `json:"user"`
	InputDenom  string `json:"input_denom"`
	OutputDenom string `json:"output_denom"`
	InputAmount U128   `json:"input_amount"`
	MinOutput   *U128  `json:"min_output,omitempty"`
	Nonce       uint64 `json:"nonce"`
	Timestamp   int64  `json:"timestamp"`
	envelope
}

type addLiquidityBody struct {
	User        string `json:"user"`
	PairID      string `json:"pair_id"`
	AmountA     U128   `json:"amount_a"`
	AmountB     U128   `json:"amount_b"`
	MinLPTokens *U128  `json:"min_lp_tokens,omitempty"`
	Nonce       uint64 `json:"nonce"`
	Timestamp   int64  `json:"timestamp"`
	envelope
}

type removeLiquidityBody struct {
	User       string `json:"user"`
	PairID     string `json:"pair_id"`
	LPTokens   U128   `json:"lp_tokens"`
	MinAmountA *U128  `json:"min_amount_a,omitempty"`
	MinAmountB *U128  `json:"min_amount_b,omitempty"`
	Nonce      uint64 `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
	envelope
}

// errorBody is the uniform rejection shape: a human-readable message, the
// HTTP-style status code repeated in the body, and the stable result code.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
	Code   string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, result tx.Result, err error) {
	status := result.HTTPStatus()
	writeJSON(w, status, errorBody{Error: err.Error(), Status: status, Code: result.String()})
}
