package web

import (
	"errors"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gorilla/mux"

	"github.com/elys-network/ammcore/internal/state"
	"github.com/elys-network/ammcore/internal/types"
)

type advanceClockRequest struct {
	Duration string `json:"duration"` // Go duration, e.g. "1h30m"
}

// handleGetReceipts returns recent receipts, optionally filtered by ?account=
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20)
	account := types.Address(r.URL.Query().Get("account"))

	var receipts []types.Receipt
	var err error
	switch {
	case ws.auditDB && account.IsZero():
		receipts, err = state.GetRecentReceipts(limit)
	case ws.auditDB:
		receipts, err = state.GetReceiptsByAccount(account, limit)
	case account.IsZero():
		receipts = ws.protocol.Journal().Recent(limit)
	default:
		receipts = ws.protocol.Journal().ForAccount(account, limit)
	}
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}
	if receipts == nil {
		receipts = []types.Receipt{}
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	})
}

// handleGetReceipt returns a specific receipt by id
func (ws *WebServer) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if ws.auditDB {
		if cached, ok := ws.receiptCache.Get(id); ok {
			ws.writeJSONResponse(w, http.StatusOK, cached)
			return
		}
		receipt, err := state.GetReceiptByID(id)
		if err != nil {
			if errors.Is(err, state.ErrReceiptNotFound) {
				ws.writeErrorResponse(w, http.StatusNotFound, notFound("receipt", id))
				return
			}
			webLogger.Error().Err(err).Str("receiptId", id).Msg("Failed to get receipt")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipt")
			return
		}
		ws.receiptCache.Add(id, *receipt)
		ws.writeJSONResponse(w, http.StatusOK, receipt)
		return
	}

	receipt, ok := ws.protocol.Journal().Get(id)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, notFound("receipt", id))
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetReceiptSummary returns journal statistics from the audit database
func (ws *WebServer) handleGetReceiptSummary(w http.ResponseWriter, r *http.Request) {
	if !ws.auditDB {
		ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"source":         "memory",
			"total_receipts": ws.protocol.Journal().Len(),
			"last_height":    ws.protocol.Chain().Height(),
		})
		return
	}

	summary, err := state.GetJournalSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get journal summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve journal summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleAdvanceClock moves a manual chain clock forward
func (ws *WebServer) handleAdvanceClock(w http.ResponseWriter, r *http.Request) {
	var req advanceClockRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		ws.writeRequestError(w, errorsmod.Wrapf(types.ErrInvalidArgument, "duration: %v", err))
		return
	}
	now, err := ws.protocol.AdvanceClock(d)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"now": now})
}
