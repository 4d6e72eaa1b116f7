package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/simulations"
	"github.com/elys-network/ammcore/internal/types"
)

type liquidityRequest struct {
	Sender  string `json:"sender"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
}

type removeLiquidityRequest struct {
	Sender string `json:"sender"`
	Shares string `json:"shares"`
}

type swapRequest struct {
	Sender   string `json:"sender"`
	TokenIn  string `json:"token_in"` // symbol or ledger address
	AmountIn string `json:"amount_in"`
}

type feeRateRequest struct {
	Sender     string `json:"sender"`
	FeeRateBps uint32 `json:"fee_rate_bps"`
}

// resolveToken accepts either a ledger symbol or a ledger address.
func (ws *WebServer) resolveToken(raw string) types.Address {
	if l, ok := ws.protocol.Ledger(raw); ok {
		return l.Address()
	}
	return types.Address(raw)
}

// handleGetPool returns reserves, shares, fees and spot prices
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	p := ws.protocol.Pool()
	var st types.PoolState
	var positions []types.LPPosition
	ws.protocol.Read(func() {
		st = p.State()
		positions = p.Positions()
	})
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool":         st,
		"symbol_a":     p.TokenA().Symbol(),
		"symbol_b":     p.TokenB().Symbol(),
		"spot_price_a": simulations.SpotPrice(st.ReserveA, st.ReserveB), // B per A
		"spot_price_b": simulations.SpotPrice(st.ReserveB, st.ReserveA), // A per B
		"positions":    positions,
	})
}

func (ws *WebServer) handleGetShares(w http.ResponseWriter, r *http.Request) {
	account := types.Address(mux.Vars(r)["account"])
	var pos types.LPPosition
	ws.protocol.Read(func() { pos = ws.protocol.Pool().Position(account) })
	ws.writeJSONResponse(w, http.StatusOK, pos)
}

// handleQuoteSwap prices a swap without executing it
func (ws *WebServer) handleQuoteSwap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amountIn, err := parseAmount("amount_in", q.Get("amount_in"))
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	tokenIn := ws.resolveToken(q.Get("token_in"))

	var quote simulations.SwapEstimationResult
	ws.protocol.Read(func() { quote, err = ws.protocol.Pool().QuoteSwap(amountIn, tokenIn) })
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteAddLiquidity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amountA, err := parseAmount("amount_a", q.Get("amount_a"))
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amountB, err := parseAmount("amount_b", q.Get("amount_b"))
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}

	var quote simulations.JoinPoolEstimationResult
	ws.protocol.Read(func() { quote, err = ws.protocol.Pool().QuoteAddLiquidity(amountA, amountB) })
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	shares, err := parseAmount("shares", r.URL.Query().Get("shares"))
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}

	var quote simulations.ExitPoolEstimationResult
	ws.protocol.Read(func() { quote, err = ws.protocol.Pool().QuoteRemoveLiquidity(shares) })
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amountA, err := parseAmount("amount_a", req.AmountA)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amountB, err := parseAmount("amount_b", req.AmountB)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "add_liquidity", func(tx *chain.Tx) (interface{}, error) {
		minted, err := ws.protocol.Pool().AddLiquidity(tx, amountA, amountB)
		return map[string]interface{}{"shares_minted": viewAmount(minted)}, err
	})
}

func (ws *WebServer) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req removeLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "remove_liquidity", func(tx *chain.Tx) (interface{}, error) {
		a, b, err := ws.protocol.Pool().RemoveLiquidity(tx, shares)
		return map[string]interface{}{"amount_a": viewAmount(a), "amount_b": viewAmount(b)}, err
	})
}

func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amountIn, err := parseAmount("amount_in", req.AmountIn)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	tokenIn := ws.resolveToken(req.TokenIn)
	ws.execute(w, r, req.Sender, "swap", func(tx *chain.Tx) (interface{}, error) {
		out, err := ws.protocol.Pool().Swap(tx, amountIn, tokenIn)
		return map[string]interface{}{"amount_out": viewAmount(out)}, err
	})
}

func (ws *WebServer) handleCollectFees(w http.ResponseWriter, r *http.Request) {
	var req senderRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "collect_fees", func(tx *chain.Tx) (interface{}, error) {
		a, b, err := ws.protocol.Pool().CollectFees(tx)
		return map[string]interface{}{"fees_a": viewAmount(a), "fees_b": viewAmount(b)}, err
	})
}

func (ws *WebServer) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req feeRateRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "set_fee_rate", func(tx *chain.Tx) (interface{}, error) {
		return map[string]uint32{"fee_rate_bps": req.FeeRateBps}, ws.protocol.Pool().SetFeeRate(tx, req.FeeRateBps)
	})
}

