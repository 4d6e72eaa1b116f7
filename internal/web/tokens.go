package web

import (
	"net/http"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/ledger"
	"github.com/elys-network/ammcore/internal/types"
)

type transferRequest struct {
	Sender string `json:"sender"`
	From   string `json:"from,omitempty"` // transfer-from only
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approveRequest struct {
	Sender  string `json:"sender"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type burnRequest struct {
	Sender string `json:"sender"`
	From   string `json:"from,omitempty"` // burns from another account's allowance when set
	Amount string `json:"amount"`
}

type senderRequest struct {
	Sender string `json:"sender"`
}

type roleRequest struct {
	Sender  string `json:"sender"`
	Role    string `json:"role"`
	Account string `json:"account"`
}

type balanceResponse struct {
	Symbol     string        `json:"symbol"`
	Account    types.Address `json:"account"`
	Balance    amountView    `json:"balance"`
	SnapshotID uint64        `json:"snapshot_id,omitempty"`
}

// ledgerFor resolves the {symbol} route variable, writing a 404 when unknown.
func (ws *WebServer) ledgerFor(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	symbol := mux.Vars(r)["symbol"]
	l, ok := ws.protocol.Ledger(symbol)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, notFound("token", symbol))
	}
	return l, ok
}

func (ws *WebServer) roleFor(w http.ResponseWriter, raw string) (types.Role, bool) {
	role, ok := types.ParseRole(raw)
	if !ok {
		ws.writeRequestError(w, errorsmod.Wrapf(types.ErrInvalidArgument, "unknown role %q", raw))
	}
	return role, ok
}

// handleListTokens returns every deployed ledger
func (ws *WebServer) handleListTokens(w http.ResponseWriter, r *http.Request) {
	var infos []types.TokenInfo
	ws.protocol.Read(func() {
		for _, l := range ws.protocol.Ledgers() {
			infos = append(infos, l.Info())
		}
	})
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tokens": infos,
		"count":  len(infos),
	})
}

// handleGetToken returns one ledger's metadata and supply
func (ws *WebServer) handleGetToken(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var info types.TokenInfo
	var holders int
	ws.protocol.Read(func() {
		info = l.Info()
		holders = len(l.Accounts())
	})
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"token":         info,
		"total_supply":  viewAmount(info.TotalSupply),
		"holders_count": holders,
	})
}

func (ws *WebServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	account := types.Address(mux.Vars(r)["account"])
	var balance math.Int
	ws.protocol.Read(func() { balance = l.BalanceOf(account) })
	ws.writeJSONResponse(w, http.StatusOK, balanceResponse{Symbol: l.Symbol(), Account: account, Balance: viewAmount(balance)})
}

// handleGetBalanceAt returns a balance as of a snapshot
func (ws *WebServer) handleGetBalanceAt(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid snapshot ID")
		return
	}
	account := types.Address(vars["account"])

	var balance math.Int
	ws.protocol.Read(func() { balance, err = l.BalanceOfAt(account, id) })
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, balanceResponse{Symbol: l.Symbol(), Account: account, Balance: viewAmount(balance), SnapshotID: id})
}

func (ws *WebServer) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	var allowance math.Int
	ws.protocol.Read(func() { allowance = l.Allowance(types.Address(vars["owner"]), types.Address(vars["spender"])) })
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"symbol":    l.Symbol(),
		"owner":     vars["owner"],
		"spender":   vars["spender"],
		"allowance": viewAmount(allowance),
	})
}

func (ws *WebServer) handleGetRoleMembers(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	role, ok := ws.roleFor(w, mux.Vars(r)["role"])
	if !ok {
		return
	}
	var members []types.Address
	var admin types.Role
	ws.protocol.Read(func() {
		members = l.Members(role)
		admin, _ = l.RoleAdmin(role)
	})
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"symbol":     l.Symbol(),
		"role":       role,
		"admin_role": admin,
		"members":    members,
	})
}

func (ws *WebServer) handleHasRole(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	role, ok := ws.roleFor(w, vars["role"])
	if !ok {
		return
	}
	account := types.Address(vars["account"])
	var has bool
	ws.protocol.Read(func() { has = l.HasRole(role, account) })
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"symbol":   l.Symbol(),
		"role":     role,
		"account":  account,
		"has_role": has,
	})
}

func (ws *WebServer) handleTransfer(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "transfer", func(tx *chain.Tx) (interface{}, error) {
		return l.Transfer(tx, types.Address(req.To), amount)
	})
}

func (ws *WebServer) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "transfer_from", func(tx *chain.Tx) (interface{}, error) {
		return l.TransferFrom(tx, types.Address(req.From), types.Address(req.To), amount)
	})
}

func (ws *WebServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "approve", func(tx *chain.Tx) (interface{}, error) {
		return true, l.Approve(tx, types.Address(req.Spender), amount)
	})
}

func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "mint", func(tx *chain.Tx) (interface{}, error) {
		return nil, l.Mint(tx, types.Address(req.To), amount)
	})
}

func (ws *WebServer) handleBurn(w http.ResponseWriter, r *http.Request) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req burnRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "burn", func(tx *chain.Tx) (interface{}, error) {
		if req.From != "" {
			return nil, l.BurnFrom(tx, types.Address(req.From), amount)
		}
		return nil, l.Burn(tx, amount)
	})
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	ws.senderOnly(w, r, "pause", func(l *ledger.Ledger, tx *chain.Tx) (interface{}, error) {
		return nil, l.Pause(tx)
	})
}

func (ws *WebServer) handleUnpause(w http.ResponseWriter, r *http.Request) {
	ws.senderOnly(w, r, "unpause", func(l *ledger.Ledger, tx *chain.Tx) (interface{}, error) {
		return nil, l.Unpause(tx)
	})
}

func (ws *WebServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ws.senderOnly(w, r, "snapshot", func(l *ledger.Ledger, tx *chain.Tx) (interface{}, error) {
		id, err := l.Snapshot(tx)
		return map[string]uint64{"snapshot_id": id}, err
	})
}

func (ws *WebServer) senderOnly(w http.ResponseWriter, r *http.Request, operation string, fn func(l *ledger.Ledger, tx *chain.Tx) (interface{}, error)) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req senderRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, operation, func(tx *chain.Tx) (interface{}, error) {
		return fn(l, tx)
	})
}

func (ws *WebServer) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	ws.roleChange(w, r, "grant_role", func(l *ledger.Ledger, tx *chain.Tx, role types.Role, account types.Address) error {
		return l.GrantRole(tx, role, account)
	})
}

func (ws *WebServer) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	ws.roleChange(w, r, "revoke_role", func(l *ledger.Ledger, tx *chain.Tx, role types.Role, account types.Address) error {
		return l.RevokeRole(tx, role, account)
	})
}

func (ws *WebServer) handleRenounceRole(w http.ResponseWriter, r *http.Request) {
	ws.roleChange(w, r, "renounce_role", func(l *ledger.Ledger, tx *chain.Tx, role types.Role, _ types.Address) error {
		return l.RenounceRole(tx, role)
	})
}

func (ws *WebServer) roleChange(w http.ResponseWriter, r *http.Request, operation string, fn func(l *ledger.Ledger, tx *chain.Tx, role types.Role, account types.Address) error) {
	l, ok := ws.ledgerFor(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	role, ok := ws.roleFor(w, req.Role)
	if !ok {
		return
	}
	ws.execute(w, r, req.Sender, operation, func(tx *chain.Tx) (interface{}, error) {
		return nil, fn(l, tx, role, types.Address(req.Account))
	})
}
