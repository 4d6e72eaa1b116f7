package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/protocol"
	"github.com/elys-network/ammcore/internal/state"
	"github.com/elys-network/ammcore/internal/types"
	"github.com/elys-network/ammcore/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// ServiceVersion is reported by the health endpoint.
var ServiceVersion = "dev"

// WebServer exposes a protocol instance over JSON HTTP
type WebServer struct {
	router   *mux.Router
	port     string
	protocol *protocol.Protocol
	auditDB  bool // receipts are read from Postgres instead of the in-memory journal
	started  time.Time

	// Committed receipts never change, so lookups by id are cached in front of Postgres.
	receiptCache *lru.Cache[string, types.Receipt]
}

// DefaultReceiptCacheSize bounds the receipt-by-id cache.
const DefaultReceiptCacheSize = 512

// Options tune a WebServer.
type Options struct {
	Port             string
	AuditDB          bool
	ReceiptCacheSize int // defaults to DefaultReceiptCacheSize
}

// NewWebServer creates a new web server instance
func NewWebServer(p *protocol.Protocol, opts Options) *WebServer {
	port := opts.Port
	if port == "" {
		port = "8080"
	}

	webLogger = logger.GetForComponent("web_server")

	cacheSize := opts.ReceiptCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultReceiptCacheSize
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[string, types.Receipt](cacheSize)

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		protocol: p,
		auditDB:  opts.AuditDB,
		started:  time.Now(),

		receiptCache: cache,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/audit", ws.handleAudit).Methods("GET")

	// Ledgers
	api.HandleFunc("/tokens", ws.handleListTokens).Methods("GET")
	api.HandleFunc("/tokens/{symbol}", ws.handleGetToken).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/balances/{account}", ws.handleGetBalance).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/balances/{account}/snapshots/{id}", ws.handleGetBalanceAt).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/allowances/{owner}/{spender}", ws.handleGetAllowance).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/roles/{role}", ws.handleGetRoleMembers).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/roles/{role}/{account}", ws.handleHasRole).Methods("GET")
	api.HandleFunc("/tokens/{symbol}/transfer", ws.handleTransfer).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/transfer-from", ws.handleTransferFrom).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/approve", ws.handleApprove).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/mint", ws.handleMint).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/burn", ws.handleBurn).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/pause", ws.handlePause).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/unpause", ws.handleUnpause).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/snapshot", ws.handleSnapshot).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/roles/grant", ws.handleGrantRole).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/roles/revoke", ws.handleRevokeRole).Methods("POST")
	api.HandleFunc("/tokens/{symbol}/roles/renounce", ws.handleRenounceRole).Methods("POST")

	// Pool
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pool/shares/{account}", ws.handleGetShares).Methods("GET")
	api.HandleFunc("/pool/quote", ws.handleQuoteSwap).Methods("GET")
	api.HandleFunc("/pool/quote/add-liquidity", ws.handleQuoteAddLiquidity).Methods("GET")
	api.HandleFunc("/pool/quote/remove-liquidity", ws.handleQuoteRemoveLiquidity).Methods("GET")
	api.HandleFunc("/pool/add-liquidity", ws.handleAddLiquidity).Methods("POST")
	api.HandleFunc("/pool/remove-liquidity", ws.handleRemoveLiquidity).Methods("POST")
	api.HandleFunc("/pool/swap", ws.handleSwap).Methods("POST")
	api.HandleFunc("/pool/collect-fees", ws.handleCollectFees).Methods("POST")
	api.HandleFunc("/pool/fee-rate", ws.handleSetFeeRate).Methods("POST")

	// Staking vault
	api.HandleFunc("/vault", ws.handleGetVault).Methods("GET")
	api.HandleFunc("/vault/stakes/{account}", ws.handleGetStake).Methods("GET")
	api.HandleFunc("/vault/stake", ws.handleStake).Methods("POST")
	api.HandleFunc("/vault/withdraw", ws.handleWithdraw).Methods("POST")

	// Audit trail
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/receipts/summary", ws.handleGetReceiptSummary).Methods("GET")
	api.HandleFunc("/receipts/{id}", ws.handleGetReceipt).Methods("GET")

	api.HandleFunc("/clock/advance", ws.handleAdvanceClock).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the routed handler, for embedding and tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Server builds the http.Server Start listens with.
func (ws *WebServer) Server() *http.Server {
	return &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")
	return ws.Server().ListenAndServe()
}

// handleHealth returns server and protocol health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var hasErrors bool
	failing := make([]string, 0)
	for _, res := range ws.protocol.Audit() {
		if !res.OK {
			failing = append(failing, res.Name)
			hasErrors = true
		}
	}

	dbStatus := "disabled"
	if ws.auditDB {
		dbStatus = "ok"
		if err := state.TestDBConnection(); err != nil {
			dbStatus = "unreachable"
			hasErrors = true
		}
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	c := ws.protocol.Chain()
	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "ammcore",
			"version": ServiceVersion,
		},
		"chain": map[string]interface{}{
			"height":       c.Height(),
			"time":         c.Now(),
			"manual_clock": ws.protocol.ManualClock(),
		},
		"audit_db":           dbStatus,
		"failing_invariants": failing,
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}
	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetParameters returns the parameters the running instance was deployed with
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters": ws.protocol.Params(),
		"deployer":   ws.protocol.Deployer(),
		"timestamp":  time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleAudit runs every invariant against the current state
func (ws *WebServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	results := ws.protocol.Audit()
	ok := true
	for _, res := range results {
		ok = ok && res.OK
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"ok":      ok,
		"results": results,
		"height":  ws.protocol.Chain().Height(),
	})
}

// --- Transactions ---

// txResponse is the body of every successful mutating request.
type txResponse struct {
	Receipt *types.Receipt `json:"receipt"`
	Result  interface{}    `json:"result,omitempty"`
}

// execute applies fn as one transaction submitted by sender and writes the outcome.
func (ws *WebServer) execute(w http.ResponseWriter, r *http.Request, sender, operation string, fn func(tx *chain.Tx) (interface{}, error)) {
	var result interface{}
	receipt, err := ws.protocol.Execute(r.Context(), types.Address(sender), operation, func(tx *chain.Tx) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		ws.writeTxError(w, receipt, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, txResponse{Receipt: receipt, Result: result})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, types.ErrInsufficientBalance),
		errors.Is(err, types.ErrInsufficientAllowance),
		errors.Is(err, types.ErrInsufficientLiquidity),
		errors.Is(err, types.ErrNothingStaked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrInvalidAmount), errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeTxError writes a rejected request with its error code and, when the chain got that
// far, the failed receipt.
func (ws *WebServer) writeTxError(w http.ResponseWriter, receipt *types.Receipt, err error) {
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	statusCode := statusFor(err)
	if statusCode == http.StatusInternalServerError {
		webLogger.Error().Err(err).Msg("Transaction failed unexpectedly")
	}
	response := map[string]interface{}{
		"error":     true,
		"codespace": codespace,
		"code":      code,
		"message":   err.Error(),
		"timestamp": time.Now().UTC(),
	}
	if receipt != nil {
		response["receipt"] = receipt
	}
	ws.writeJSONResponse(w, statusCode, response)
}

// --- Request helpers ---

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "malformed request body: %v", err)
	}
	return nil
}

// parseAmount converts a human decimal amount into base units.
func parseAmount(field, value string) (math.Int, error) {
	amount, err := utils.ParseAmount(value)
	if err != nil {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvalidAmount, "%s: %v", field, err)
	}
	return amount, nil
}

func queryLimit(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			return parsedLimit
		}
	}
	return def
}

// amountView renders an amount both in base units and as a token decimal.
type amountView struct {
	BaseUnits math.Int `json:"base_units"`
	Tokens    string   `json:"tokens"`
}

func viewAmount(a math.Int) amountView {
	if a.IsNil() {
		a = math.ZeroInt()
	}
	return amountView{BaseUnits: a, Tokens: utils.FormatAmount(a)}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// writeRequestError writes an error raised before a transaction was submitted.
func (ws *WebServer) writeRequestError(w http.ResponseWriter, err error) {
	ws.writeTxError(w, nil, err)
}

func notFound(kind, id string) string {
	return fmt.Sprintf("%s %s not found", kind, id)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
