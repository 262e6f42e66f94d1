package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_relay/internal/auth"
	"signal_relay/internal/broker"
	"signal_relay/internal/broker/capital"
	"signal_relay/internal/order"
	"signal_relay/internal/services"
)

// fakeBrokerage is an httptest stand-in for the brokerage REST API.
type fakeBrokerage struct {
	*httptest.Server

	loginStatus int
	orderStatus int
	orderReply  string

	mu     sync.Mutex
	logins int
	orders []map[string]any
}

func newFakeBrokerage(t *testing.T) *fakeBrokerage {
	t.Helper()
	fb := &fakeBrokerage{
		loginStatus: http.StatusOK,
		orderStatus: http.StatusOK,
		orderReply:  `{"dealReference":"o_1"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.logins++
		fb.mu.Unlock()
		if fb.loginStatus != http.StatusOK {
			w.WriteHeader(fb.loginStatus)
			_, _ = w.Write([]byte(`{"errorCode":"error.invalid.details"}`))
			return
		}
		w.Header().Set("CST", "cst-1")
		w.Header().Set("X-SECURITY-TOKEN", "sec-1")
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/positions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		fb.orders = append(fb.orders, body)
		fb.mu.Unlock()
		w.WriteHeader(fb.orderStatus)
		_, _ = w.Write([]byte(fb.orderReply))
	})
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

func newTestHandler(t *testing.T, fb *fakeBrokerage, token string) http.Handler {
	t.Helper()
	creds, err := broker.NewCredentials("trader@example.com", "s3cret", "key-1")
	require.NoError(t, err)

	client := capital.NewClient(fb.URL, creds)
	sessions := auth.NewSessionManager(client)
	relay := services.NewRelayService(sessions, order.NewSubmitter(client, "USD"), nil, nil)

	deps := NewDependencies().WithRelay(relay).WithWebhookToken(token)
	return NewWebhookHandler(deps)
}

func post(t *testing.T, h http.Handler, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	raw, _ := io.ReadAll(rec.Body)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
	return rec, resp
}

func TestWebhook_MarketOrderWithoutLevels(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "")

	rec, resp := post(t, h, `{"action":"buy","symbol":"EURUSD","size":"10"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order executed successfully", resp["message"])
	assert.Equal(t, map[string]any{"dealReference": "o_1"}, resp["details"])
	assert.NotEmpty(t, rec.Header().Get("X-Signal-ID"))

	require.Len(t, fb.orders, 1)
	sent := fb.orders[0]
	assert.Equal(t, "BUY", sent["direction"])
	assert.Equal(t, 10.0, sent["size"])
	assert.Equal(t, "MARKET", sent["orderType"])
	assert.Equal(t, "EURUSD", sent["epic"])
	assert.NotContains(t, sent, "limitLevel")
	assert.NotContains(t, sent, "stopLevel")
}

func TestWebhook_OrderWithLevels(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "")

	_, resp := post(t, h, `{"action":"sell","symbol":"BTCUSD","size":"1","tp":"50000","sl":"40000"}`, nil)

	assert.Equal(t, "Order executed successfully", resp["message"])
	require.Len(t, fb.orders, 1)
	sent := fb.orders[0]
	assert.Equal(t, "SELL", sent["direction"])
	assert.Equal(t, 50000.0, sent["limitLevel"])
	assert.Equal(t, 40000.0, sent["stopLevel"])
}

func TestWebhook_LoginRejectedMakesNoOrderCall(t *testing.T) {
	fb := newFakeBrokerage(t)
	fb.loginStatus = http.StatusUnauthorized
	h := newTestHandler(t, fb, "")

	rec, resp := post(t, h, `{"action":"buy","symbol":"EURUSD","size":"1"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"error": "Authentication failed"}, resp)
	assert.Empty(t, fb.orders)
}

func TestWebhook_OrderRejected(t *testing.T) {
	fb := newFakeBrokerage(t)
	fb.orderStatus = http.StatusBadRequest
	fb.orderReply = `{"errorCode":"error.invalid.size.minvalue"}`
	h := newTestHandler(t, fb, "")

	rec, resp := post(t, h, `{"action":"buy","symbol":"EURUSD","size":"0.0001"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order execution failed", resp["error"])
	assert.Equal(t, map[string]any{"errorCode": "error.invalid.size.minvalue"}, resp["details"])
}

func TestWebhook_SessionReusedAcrossCalls(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "")

	for i := 0; i < 3; i++ {
		post(t, h, `{"action":"buy","symbol":"EURUSD","size":1}`, nil)
	}

	assert.Equal(t, 1, fb.logins)
	assert.Len(t, fb.orders, 3)
}

func TestWebhook_InvalidJSON(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "")

	for _, body := range []string{`{not json`, `null`, `[1,2]`, ``} {
		rec, resp := post(t, h, body, nil)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "Invalid JSON payload", resp["error"], body)
	}
	assert.Zero(t, fb.logins)
}

func TestWebhook_InvalidOrder(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "")

	_, resp := post(t, h, `{"action":"hold","symbol":"EURUSD","size":"1"}`, nil)

	assert.Equal(t, "Invalid order request", resp["error"])
	assert.Contains(t, resp["details"], "hold")
	assert.Zero(t, fb.logins)
}

func TestWebhook_MissingConfiguration(t *testing.T) {
	creds, err := broker.NewCredentials("trader@example.com", "", "key-1")
	require.NoError(t, err)
	client := capital.NewClient("", creds)
	relay := services.NewRelayService(auth.NewSessionManager(client), order.NewSubmitter(client, "USD"), nil, nil)
	h := NewWebhookHandler(NewDependencies().WithRelay(relay))

	_, resp := post(t, h, `{"action":"buy","symbol":"EURUSD","size":"1"}`, nil)

	assert.Equal(t, "Broker configuration incomplete", resp["error"])
	assert.Equal(t, []any{"CAPITAL_API_URL", "CAPITAL_PASSWORD"}, resp["details"])
}

func TestWebhook_TokenCheck(t *testing.T) {
	fb := newFakeBrokerage(t)
	h := newTestHandler(t, fb, "shh")
	payload := `{"action":"buy","symbol":"EURUSD","size":"1"}`

	rec, resp := post(t, h, payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", resp["error"])

	rec, _ = post(t, h, payload, map[string]string{"X-Webhook-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = post(t, h, payload, map[string]string{"X-Webhook-Token": "shh"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order executed successfully", resp["message"])

	rec, resp = post(t, h, `{"action":"buy","symbol":"EURUSD","size":"1","token":"shh"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order executed successfully", resp["message"])
	assert.Len(t, fb.orders, 2)
}

func TestWebhook_PanicAnswersInternalError(t *testing.T) {
	h := NewWebhookHandler(NewDependencies())

	rec, resp := post(t, h, `{"action":"buy","symbol":"EURUSD","size":"1"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"error": "Internal error"}, resp)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
