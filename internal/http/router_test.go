package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"funnelpay/internal/config"
	"funnelpay/internal/core/reconcile"
	"funnelpay/internal/core/serial"
	"funnelpay/internal/domain/pending"
	"funnelpay/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	cfg := config.Cfg{
		App: config.AppCfg{Env: "test", Port: "0"},
		Sec: config.SecurityCfg{AdminToken: "admin-secret"},
		Gateway: config.GatewayCfg{
			WebhookToken: "hook-secret",
		},
	}
	rec := reconcile.New(store, serial.New(), 15*time.Minute)
	srv := httptest.NewServer(NewRouter(RouterDependencies{
		Config:     cfg,
		Reconciler: rec,
		Leads:      store,
		Confirm:    store,
		Admin:      store,
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSyncEndpointCreatesPendingRecord(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/pending/sync", map[string]any{
		"phone":    "+55 (11) 98765-4321",
		"amount":   49.99,
		"planId":   "premium",
		"planName": "Premium",
		"method":   "pix",
		"name":     "Ana",
	}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			ID          int64   `json:"id"`
			CustomerKey string  `json:"customerKey"`
			Amount      float64 `json:"amount"`
			PlanID      string  `json:"planId"`
			Confirmed   bool    `json:"confirmed"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "5511987654321", body.Data.CustomerKey)
	assert.Equal(t, 49.99, body.Data.Amount)
	assert.Equal(t, "premium", body.Data.PlanID)
	assert.False(t, body.Data.Confirmed)
	assert.Equal(t, 1, store.UnconfirmedCount("5511987654321"))
}

func TestSyncEndpointRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	// Key with no digits
	resp := postJSON(t, srv.URL+"/api/v1/pending/sync", map[string]any{
		"phone":  "not-a-phone",
		"amount": 10,
		"planId": "basic",
	}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown plan never reaches the reconciler
	resp = postJSON(t, srv.URL+"/api/v1/pending/sync", map[string]any{
		"phone":  "11987654321",
		"amount": 10,
		"planId": "gold",
	}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPatchEndpointUpdatesAmount(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/pending/sync", map[string]any{
		"phone": "11987654321", "amount": 10, "planId": "basic",
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/pending",
		bytes.NewReader([]byte(`{"phone":"11987654321","amount":25.5}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	patchResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer patchResp.Body.Close()
	require.Equal(t, http.StatusOK, patchResp.StatusCode)

	rec, err := store.FindLatestUnconfirmedByKey(context.Background(), "11987654321")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, pending.Money(2550), rec.Amount)
	assert.Equal(t, pending.PlanBasic, rec.PlanID, "plan untouched by partial update")
}

func TestWebhookConfirmsByGatewayCode(t *testing.T) {
	srv, store := newTestServer(t)

	code := "GW-777"
	store.SeedRecord(pending.Record{CustomerKey: "11987654321", Amount: 100, PlanID: pending.PlanBasic, GatewayCode: &code})

	// Missing token is rejected before any lookup.
	resp := postJSON(t, srv.URL+"/webhooks/gateway", map[string]string{"code": code, "status": "paid"}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/webhooks/gateway", map[string]string{"code": code, "status": "paid"},
		map[string]string{"X-Gateway-Token": "hook-secret"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 0, store.UnconfirmedCount("11987654321"), "record left confirmed")

	// Non-settlement statuses are acknowledged and ignored.
	code2 := "GW-778"
	store.SeedRecord(pending.Record{CustomerKey: "11911112222", Amount: 100, PlanID: pending.PlanBasic, GatewayCode: &code2})
	resp = postJSON(t, srv.URL+"/webhooks/gateway", map[string]string{"code": code2, "status": "processing"},
		map[string]string{"X-Gateway-Token": "hook-secret"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, store.UnconfirmedCount("11911112222"))
}

func TestAdminListingRequiresToken(t *testing.T) {
	srv, store := newTestServer(t)
	store.SeedRecord(pending.Record{CustomerKey: "11987654321", Amount: 100, PlanID: pending.PlanBasic})

	resp, err := http.Get(srv.URL + "/admin/pending")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/pending", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer admin-secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, 1)
}

func TestLeadCaptureFeedsNameFallback(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/leads", map[string]string{
		"phone": "+55 11 98765-4321",
		"name":  "FromLead",
	}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/pending/sync", map[string]any{
		"phone": "+55 11 98765-4321", "amount": 10, "planId": "basic",
	}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			CustomerName string `json:"customerName"`
			LinkedLeadID *int64 `json:"linkedLeadId"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FromLead", body.Data.CustomerName)
	assert.NotNil(t, body.Data.LinkedLeadID)
}
