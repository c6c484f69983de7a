package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/block"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
	"github.com/sultan-labs/sultand/internal/core/tx"
	"github.com/sultan-labs/sultand/internal/crypto"
	"github.com/sultan-labs/sultand/internal/storage/txindex"
)

// Server is the node's HTTP and WebSocket surface. All state-changing
// endpoints funnel into the block producer; reads go straight to the
// owning component.
type Server struct {
	chainID  string
	producer *block.Producer
	ledger   *ledger.Ledger
	tokens   *registry.Registry
	pools    *amm.Engine
	index    *txindex.Index
	hub      *Hub
	log      zerolog.Logger
	mux      *http.ServeMux
}

// NewServer wires the full route table. hub may be nil when the node runs
// without WebSocket support.
func NewServer(
	chainID string,
	producer *block.Producer,
	l *ledger.Ledger,
	tokens *registry.Registry,
	pools *amm.Engine,
	index *txindex.Index,
	hub *Hub,
	log zerolog.Logger,
) *Server {
	s := &Server{
		chainID:  chainID,
		producer: producer,
		ledger:   l,
		tokens:   tokens,
		pools:    pools,
		index:    index,
		hub:      hub,
		log:      log,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /balance/{address}", s.handleBalance)
	s.mux.HandleFunc("GET /tx/{hash}", s.handleGetTx)
	s.mux.HandleFunc("GET /txs/sender/{address}", s.handleTxsBySender)
	s.mux.HandleFunc("GET /block/{height}/txs", s.handleTxsByHeight)
	s.mux.HandleFunc("GET /tokens", s.handleListTokens)
	s.mux.HandleFunc("GET /dex/pools", s.handleListPools)
	s.mux.HandleFunc("GET /dex/pool/{pair...}", s.handleGetPool)

	s.mux.HandleFunc("POST /tx", s.handleTransfer)
	s.mux.HandleFunc("POST /token/create", s.handleCreateToken)
	s.mux.HandleFunc("POST /token/mint", s.handleMint)
	s.mux.HandleFunc("POST /token/burn", s.handleBurn)
	s.mux.HandleFunc("POST /dex/create_pair", s.handleCreatePair)
	s.mux.HandleFunc("POST /dex/swap", s.handleSwap)
	s.mux.HandleFunc("POST /dex/add_liquidity", s.handleAddLiquidity)
	s.mux.HandleFunc("POST /dex/remove_liquidity", s.handleRemoveLiquidity)

	if hub != nil {
		s.mux.Handle("GET /ws", hub)
	}
	return s
}

// Handler returns the route table for mounting in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", tx.ErrEncoding, err)
	}
	return nil
}

// submit runs one decoded request through the producer and writes the
// uniform response.
func (s *Server) submit(w http.ResponseWriter, req tx.Request, env tx.Envelope) {
	applied, err := s.producer.Submit(req, env)
	if err != nil {
		writeError(w, applied.Result, err)
		return
	}
	resp := map[string]any{
		"hash":   applied.Hash,
		"result": applied.Result.String(),
	}
	for k, v := range applied.Response {
		resp[k] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.producer.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":        s.chainID,
		"height":          st.Height,
		"last_block_hash": st.LastBlockHash,
		"last_block_time": st.LastBlockTime,
		"pending_txs":     st.PendingTxs,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := crypto.ValidateAddress(address); err != nil {
		writeError(w, tx.EncodingError, fmt.Errorf("invalid address: %w", err))
		return
	}
	acct := s.ledger.Account(address)
	native, ok := acct.Balances[denom.Native]
	if !ok {
		native = "0"
	}
	// balance mirrors the native entry of balances; existing wallet SDKs
	// read only the top-level field.
	writeJSON(w, http.StatusOK, map[string]any{
		"address":  acct.Address,
		"balance":  native,
		"nonce":    acct.Nonce,
		"balances": acct.Balances,
	})
}

// txRecord is the wire form of one indexed transaction.
func txRecord(rec txindex.Record) map[string]any {
	return map[string]any{
		"hash":       rec.Hash,
		"height":     rec.Height,
		"type":       rec.Type,
		"sender":     rec.Sender,
		"payload":    json.RawMessage(rec.Payload),
		"result":     rec.Result,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
	}
}

func txRecords(recs []txindex.Record) []map[string]any {
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, txRecord(rec))
	}
	return out
}

func (s *Server) handleGetTx(w http.ResponseWriter, r *http.Request) {
	rec, err := s.index.Get(r.PathValue("hash"))
	if errors.Is(err, txindex.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "transaction not found", Status: http.StatusNotFound, Code: "NotFound"})
		return
	}
	if err != nil {
		writeError(w, tx.Internal, err)
		return
	}
	writeJSON(w, http.StatusOK, txRecord(rec))
}

func (s *Server) handleTxsBySender(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := crypto.ValidateAddress(address); err != nil {
		writeError(w, tx.EncodingError, fmt.Errorf("invalid address: %w", err))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.index.BySender(address, limit)
	if err != nil {
		writeError(w, tx.Internal, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"txs": txRecords(recs)})
}

func (s *Server) handleTxsByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.PathValue("height"), 10, 64)
	if err != nil {
		writeError(w, tx.EncodingError, fmt.Errorf("invalid height: %w", err))
		return
	}
	recs, err := s.index.ByHeight(height)
	if err != nil {
		writeError(w, tx.Internal, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"height": height, "txs": txRecords(recs)})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tokens": s.tokens.Snapshot()})
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pools": s.pools.Pools()})
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	// Pair ids contain slashes (factory denoms), hence the rest-of-path
	// route parameter.
	st, price, err := s.pools.PoolDetail(r.PathValue("pair"))
	if err != nil {
		writeError(w, tx.FromError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		amm.PoolState
		Price float64 `json:"price"`
	}{st, price})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.Transfer{
		From:    body.From,
		To:      body.To,
		Denom:   body.Denom,
		Amount:  body.Amount.Int,
		Memo:    body.Memo,
		TxNonce: body.Nonce,
		Time:    body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var body createTokenBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.CreateToken{
		Creator:       body.Creator,
		Name:          body.Name,
		Symbol:        body.Symbol,
		Decimals:      body.Decimals,
		InitialSupply: body.InitialSupply.Int,
		Mintable:      body.Mintable,
		Burnable:      body.Burnable,
		TxNonce:       body.Nonce,
		Time:          body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var body mintBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.Mint{
		Denom:     body.Denom,
		Minter:    body.Minter,
		Recipient: body.Recipient,
		Amount:    body.Amount.Int,
		TxNonce:   body.Nonce,
		Time:      body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var body burnBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.Burn{
		Denom:   body.Denom,
		Burner:  body.Burner,
		Amount:  body.Amount.Int,
		TxNonce: body.Nonce,
		Time:    body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleCreatePair(w http.ResponseWriter, r *http.Request) {
	var body createPairBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.CreatePair{
		Creator: body.Creator,
		TokenA:  body.TokenA,
		TokenB:  body.TokenB,
		AmountA: body.AmountA.Int,
		AmountB: body.AmountB.Int,
		FeeBps:  body.FeeBps,
		TxNonce: body.Nonce,
		Time:    body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var body swapBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.Swap{
		User:        body.User,
		InputDenom:  body.InputDenom,
		OutputDenom: body.OutputDenom,
		InputAmount: body.InputAmount.Int,
		MinOutput:   optValue(body.MinOutput),
		TxNonce:     body.Nonce,
		Time:        body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var body addLiquidityBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.AddLiquidity{
		User:        body.User,
		PairID:      body.PairID,
		AmountA:     body.AmountA.Int,
		AmountB:     body.AmountB.Int,
		MinLPTokens: optValue(body.MinLPTokens),
		TxNonce:     body.Nonce,
		Time:        body.Timestamp,
	}, body.toTx())
}

func (s *Server) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var body removeLiquidityBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, tx.EncodingError, err)
		return
	}
	s.submit(w, &tx.RemoveLiquidity{
		User:       body.User,
		PairID:     body.PairID,
		LPTokens:   body.LPTokens.Int,
		MinAmountA: optValue(body.MinAmountA),
		MinAmountB: optValue(body.MinAmountB),
		TxNonce:    body.Nonce,
		Time:       body.Timestamp,
	}, body.toTx())
}
