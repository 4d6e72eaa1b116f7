package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/protocol"
)

const (
	deployer = "deployer"
	alice    = "alice"
)

type apiTest struct {
	t        *testing.T
	handler  http.Handler
	protocol *protocol.Protocol
}

func newAPITest(t *testing.T, clock chain.Clock) *apiTest {
	t.Helper()
	params := config.DefaultProtocolParameters
	p, err := protocol.NewProtocol(context.Background(), protocol.Config{
		Deployer: deployer,
		Params:   &params,
		Assets:   config.DefaultAssets,
		Clock:    clock,
	})
	require.NoError(t, err)
	return &apiTest{t: t, handler: NewWebServer(p, Options{}).Handler(), protocol: p}
}

func (a *apiTest) do(method, path string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (a *apiTest) ok(method, path string, body interface{}) map[string]interface{} {
	a.t.Helper()
	code, out := a.do(method, path, body)
	require.Equal(a.t, http.StatusOK, code, "%s %s: %v", method, path, out)
	return out
}

func tokensOf(t *testing.T, v interface{}) string {
	t.Helper()
	m, ok := v.(map[string]interface{})
	require.True(t, ok, "not an amount view: %v", v)
	return m["tokens"].(string)
}

func field(t *testing.T, v interface{}, path ...string) interface{} {
	t.Helper()
	for _, key := range path {
		m, ok := v.(map[string]interface{})
		require.True(t, ok, "no object at %s", key)
		v = m[key]
	}
	return v
}

func TestHealth(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())
	out := a.ok("GET", "/health", nil)
	assert.Equal(t, "OK", out["status"])
	assert.Equal(t, "disabled", out["audit_db"])
	assert.Equal(t, float64(1), field(t, out, "chain", "height"))
	assert.Equal(t, true, field(t, out, "chain", "manual_clock"))

	out = a.ok("GET", "/api/health", nil)
	assert.Equal(t, "OK", out["status"])
}

func TestCORSPreflight(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())
	req := httptest.NewRequest("OPTIONS", "/api/tokens", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTokenEndpoints(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())

	out := a.ok("GET", "/api/tokens", nil)
	assert.Equal(t, float64(4), out["count"])

	out = a.ok("GET", "/api/tokens/tka", nil)
	assert.Equal(t, "1000000", tokensOf(t, out["total_supply"]))
	assert.Equal(t, "TokenA", field(t, out, "token", "name"))

	a.ok("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "100.5"})
	out = a.ok("GET", "/api/tokens/TKA/balances/alice", nil)
	assert.Equal(t, "100.5", tokensOf(t, out["balance"]))

	a.ok("POST", "/api/tokens/TKA/approve", map[string]string{"sender": alice, "spender": "bob", "amount": "10"})
	out = a.ok("GET", "/api/tokens/TKA/allowances/alice/bob", nil)
	assert.Equal(t, "10", tokensOf(t, out["allowance"]))

	a.ok("POST", "/api/tokens/TKA/transfer-from", map[string]string{"sender": "bob", "from": alice, "to": "carol", "amount": "4"})
	out = a.ok("GET", "/api/tokens/TKA/balances/carol", nil)
	assert.Equal(t, "4", tokensOf(t, out["balance"]))

	a.ok("POST", "/api/tokens/TKA/burn", map[string]string{"sender": deployer, "amount": "50"})
	out = a.ok("GET", "/api/tokens/TKA", nil)
	assert.Equal(t, "999950", tokensOf(t, out["total_supply"]))
}

func TestErrorMapping(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())

	code, out := a.do("POST", "/api/tokens/TKA/mint", map[string]string{"sender": alice, "to": alice, "amount": "1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ammcore", out["codespace"])
	assert.Equal(t, float64(2), out["code"])
	assert.Equal(t, false, field(t, out, "receipt", "success"))

	a.ok("POST", "/api/tokens/TKA/pause", map[string]string{"sender": deployer})
	code, _ = a.do("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "1"})
	assert.Equal(t, http.StatusConflict, code)
	a.ok("POST", "/api/tokens/TKA/unpause", map[string]string{"sender": deployer})

	code, out = a.do("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, float64(6), out["code"])

	code, _ = a.do("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": alice, "to": deployer, "amount": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = a.do("POST", "/api/tokens/TKA/transfer", map[string]string{"to": alice, "amount": "1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do("GET", "/api/tokens/XYZ", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSnapshotEndpoints(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())

	out := a.ok("POST", "/api/tokens/TKA/snapshot", map[string]string{"sender": deployer})
	assert.Equal(t, float64(1), field(t, out, "result", "snapshot_id"))

	a.ok("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "100"})

	out = a.ok("GET", "/api/tokens/TKA/balances/alice/snapshots/1", nil)
	assert.Equal(t, "0", tokensOf(t, out["balance"]))
	out = a.ok("GET", "/api/tokens/TKA/balances/deployer/snapshots/1", nil)
	assert.Equal(t, "1000000", tokensOf(t, out["balance"]))

	code, _ := a.do("GET", "/api/tokens/TKA/balances/alice/snapshots/2", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRoleEndpoints(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())

	a.ok("POST", "/api/tokens/TKA/roles/grant", map[string]string{"sender": deployer, "role": "minter", "account": alice})
	out := a.ok("GET", "/api/tokens/TKA/roles/MINTER_ROLE/alice", nil)
	assert.Equal(t, true, out["has_role"])

	out = a.ok("GET", "/api/tokens/TKA/roles/minter", nil)
	assert.Equal(t, "ADMIN_ROLE", out["admin_role"])
	assert.Len(t, out["members"], 2)

	a.ok("POST", "/api/tokens/TKA/mint", map[string]string{"sender": alice, "to": alice, "amount": "5"})

	a.ok("POST", "/api/tokens/TKA/roles/revoke", map[string]string{"sender": deployer, "role": "minter", "account": alice})
	code, _ := a.do("POST", "/api/tokens/TKA/mint", map[string]string{"sender": alice, "to": alice, "amount": "5"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do("POST", "/api/tokens/TKA/roles/grant", map[string]string{"sender": deployer, "role": "owner", "account": alice})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPoolEndpoints(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())
	pool := string(a.protocol.Pool().Address())

	a.ok("POST", "/api/tokens/TKA/approve", map[string]string{"sender": deployer, "spender": pool, "amount": "2000"})
	a.ok("POST", "/api/tokens/TKB/approve", map[string]string{"sender": deployer, "spender": pool, "amount": "2000"})

	out := a.ok("POST", "/api/pool/add-liquidity", map[string]string{"sender": deployer, "amount_a": "1000", "amount_b": "1000"})
	assert.Equal(t, "1000", tokensOf(t, field(t, out, "result", "shares_minted")))

	quote := a.ok("GET", "/api/pool/quote?token_in=TKA&amount_in=100", nil)
	out = a.ok("POST", "/api/pool/swap", map[string]string{"sender": deployer, "token_in": "TKA", "amount_in": "100"})
	assert.Equal(t, quote["token_out_amount"], field(t, out, "result", "amount_out", "base_units"))

	out = a.ok("GET", "/api/pool", nil)
	assert.Equal(t, "TKA", out["symbol_a"])
	assert.Len(t, out["positions"], 1)

	out = a.ok("GET", "/api/pool/shares/deployer", nil)
	assert.NotEqual(t, "0", out["shares"])

	a.ok("GET", "/api/pool/quote/add-liquidity?amount_a=10&amount_b=10", nil)
	a.ok("GET", "/api/pool/quote/remove-liquidity?shares=10", nil)

	code, _ := a.do("POST", "/api/pool/fee-rate", map[string]interface{}{"sender": alice, "fee_rate_bps": 100})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do("POST", "/api/pool/fee-rate", map[string]interface{}{"sender": deployer, "fee_rate_bps": 5000})
	assert.Equal(t, http.StatusBadRequest, code)
	a.ok("POST", "/api/pool/fee-rate", map[string]interface{}{"sender": deployer, "fee_rate_bps": 100})

	out = a.ok("POST", "/api/pool/collect-fees", map[string]string{"sender": deployer})
	assert.Equal(t, "0.5", tokensOf(t, field(t, out, "result", "fees_a")))

	out = a.ok("POST", "/api/pool/remove-liquidity", map[string]string{"sender": deployer, "shares": "1000"})
	assert.NotEmpty(t, field(t, out, "result", "amount_a"))

	code, _ = a.do("GET", "/api/pool/quote?token_in=RWD&amount_in=1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestVaultEndpoints(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())
	vault := string(a.protocol.Vault().Address())

	a.ok("POST", "/api/tokens/RWD/transfer", map[string]string{"sender": deployer, "to": vault, "amount": "100"})
	a.ok("POST", "/api/tokens/STK/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "100"})
	a.ok("POST", "/api/tokens/STK/approve", map[string]string{"sender": alice, "spender": vault, "amount": "100"})
	a.ok("POST", "/api/vault/stake", map[string]string{"sender": alice, "amount": "100"})

	out := a.ok("GET", "/api/vault", nil)
	assert.Equal(t, "100", tokensOf(t, out["total_staked"]))
	assert.Equal(t, "1h0m0s", out["rate_period"])

	a.ok("POST", "/api/clock/advance", map[string]string{"duration": "1h"})
	out = a.ok("GET", "/api/vault/stakes/alice", nil)
	assert.Equal(t, "1", tokensOf(t, out["reward"]))

	out = a.ok("POST", "/api/vault/withdraw", map[string]string{"sender": alice})
	assert.Equal(t, "100", tokensOf(t, field(t, out, "result", "principal")))
	assert.Equal(t, "1", tokensOf(t, field(t, out, "result", "reward")))

	code, out := a.do("POST", "/api/vault/withdraw", map[string]string{"sender": alice})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, float64(8), out["code"])
}

func TestReceiptsAndAudit(t *testing.T) {
	a := newAPITest(t, chain.NewManualClock())

	out := a.ok("POST", "/api/tokens/TKA/transfer", map[string]string{"sender": deployer, "to": alice, "amount": "1"})
	id := field(t, out, "receipt", "id").(string)

	out = a.ok("GET", "/api/receipts", nil)
	assert.Equal(t, float64(2), out["count"])

	out = a.ok("GET", "/api/receipts?account=alice", nil)
	assert.Equal(t, float64(1), out["count"])

	out = a.ok("GET", "/api/receipts/"+id, nil)
	assert.Equal(t, "transfer", out["operation"])

	code, _ := a.do("GET", "/api/receipts/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	out = a.ok("GET", "/api/receipts/summary", nil)
	assert.Equal(t, "memory", out["source"])

	out = a.ok("GET", "/api/audit", nil)
	assert.Equal(t, true, out["ok"])
	assert.Len(t, out["results"], 8)
}

func TestAdvanceClockRequiresManualClock(t *testing.T) {
	a := newAPITest(t, nil)
	code, _ := a.do("POST", "/api/clock/advance", map[string]string{"duration": "1h"})
	assert.Equal(t, http.StatusConflict, code)

	m := newAPITest(t, chain.NewManualClock())
	code, _ = m.do("POST", "/api/clock/advance", map[string]string{"duration": "soon"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReceiptLookupServedFromCache(t *testing.T) {
	params := config.DefaultProtocolParameters
	p, err := protocol.NewProtocol(context.Background(), protocol.Config{
		Deployer: deployer,
		Params:   &params,
		Assets:   config.DefaultAssets,
	})
	require.NoError(t, err)

	ws := NewWebServer(p, Options{AuditDB: true, ReceiptCacheSize: 4})
	deploy := p.Journal().Recent(1)[0]
	ws.receiptCache.Add(deploy.ID, deploy)

	// No database is connected; only the cache can answer.
	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+deploy.ID, nil)
	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, deploy.ID, got["id"])
	assert.Equal(t, protocol.DeployOperation, got["operation"])
}
