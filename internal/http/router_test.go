package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xapps7/failed-payment-recovery/internal/auth"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
	"github.com/xapps7/failed-payment-recovery/internal/config"
	httpx "github.com/xapps7/failed-payment-recovery/internal/http"
	"github.com/xapps7/failed-payment-recovery/internal/link"
	"github.com/xapps7/failed-payment-recovery/internal/notify"
	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

type testApp struct {
	router http.Handler
	store  *recovery.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := recovery.NewMemoryStore()
	settingsRepo := &settings.MemoryRepo{}
	campaignRepo := &campaign.MemoryRepo{}
	require.NoError(t, campaignRepo.Seed(context.Background()))

	readSettings := func() settings.AppSettings {
		s, _ := settingsRepo.Read(context.Background())
		return s
	}
	activeCampaign := func() *campaign.Campaign {
		c, _ := campaignRepo.Active(context.Background())
		return c
	}

	signer := link.NewSigner("test-link-secret", time.Hour)
	notifier := notify.NewProviderNotifier(readSettings, activeCampaign, signer, "http://app.test", "", "", log)
	runtime := recovery.NewRuntime(store, notifier,
		func() []int { return readSettings().RetryMinutes }, activeCampaign, log)

	cfg := config.Config{}
	router := httpx.NewRouter(cfg, httpx.Deps{
		Runtime:   runtime,
		Settings:  settingsRepo,
		Campaigns: campaignRepo,
		Accounts:  auth.NewMemoryAccounts(),
		JWT:       auth.NewJWT("test-jwt-secret"),
		Signer:    signer,
	})

	return &testApp{router: router, store: store}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) registerAdmin(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    "ops@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestHealthAndBanner(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "failed-payment-recovery")
}

func TestIngestSweepMetricsFlow(t *testing.T) {
	app := newTestApp(t)
	submitted := time.Now().UTC().Add(-20 * time.Minute)

	w := app.do(t, http.MethodPost, "/events/payment-info-submitted", "", map[string]any{
		"checkoutToken":          "cko_1",
		"shopDomain":             "demo.myshopify.com",
		"email":                  "shopper@example.com",
		"amountSubtotal":         120.50,
		"paymentInfoSubmittedAt": submitted.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = app.do(t, http.MethodPost, "/jobs/run-due", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sweep struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sweep))
	assert.Equal(t, 1, sweep.Processed)

	s, err := app.store.GetByCheckoutToken(context.Background(), "cko_1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.AttemptCount)

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum recovery.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sum))
	assert.Equal(t, 1, sum.Detected)
	assert.Equal(t, 1, sum.Active)
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	app := newTestApp(t)

	// missing paymentInfoSubmittedAt
	w := app.do(t, http.MethodPost, "/events/payment-info-submitted", "", map[string]any{
		"checkoutToken": "cko_1",
		"shopDomain":    "demo.myshopify.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad timestamp
	w = app.do(t, http.MethodPost, "/events/payment-info-submitted", "", map[string]any{
		"checkoutToken":          "cko_1",
		"shopDomain":             "demo.myshopify.com",
		"paymentInfoSubmittedAt": "yesterday",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutCompletedStopsOutreach(t *testing.T) {
	app := newTestApp(t)
	submitted := time.Now().UTC().Add(-20 * time.Minute)

	w := app.do(t, http.MethodPost, "/events/payment-info-submitted", "", map[string]any{
		"checkoutToken":          "cko_1",
		"shopDomain":             "demo.myshopify.com",
		"paymentInfoSubmittedAt": submitted.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = app.do(t, http.MethodPost, "/events/checkout-completed", "", map[string]any{
		"checkoutToken": "cko_1",
		"orderId":       "order_77",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	s, err := app.store.GetByCheckoutToken(context.Background(), "cko_1")
	require.NoError(t, err)
	assert.Equal(t, recovery.StateRecovered, s.State)
	assert.Equal(t, "order_77", s.RecoveredOrderID)

	// unknown tokens are still accepted
	w = app.do(t, http.MethodPost, "/events/checkout-completed", "", map[string]any{
		"checkoutToken": "cko_unknown",
		"orderId":       "order_78",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAdminSurfaceRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/dashboard", "/settings", "/campaigns", "/sessions/recent"} {
		w := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestDashboardWithAuth(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAdmin(t)

	w := app.do(t, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Metrics  map[string]any       `json:"metrics"`
		Settings settings.AppSettings `json:"settings"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "Retryly", out.Settings.BrandName)
	assert.Contains(t, out.Metrics, "recoveryRate")
}

func TestSettingsUpdate(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAdmin(t)

	w := app.do(t, http.MethodPost, "/settings", token, map[string]any{
		"brandName":    "Cartmender",
		"retryMinutes": []int{5, 30},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var cfg settings.AppSettings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cfg))
	assert.Equal(t, "Cartmender", cfg.BrandName)
	assert.Equal(t, []int{5, 30}, cfg.RetryMinutes)

	// invalid retry minutes rejected
	w = app.do(t, http.MethodPost, "/settings", token, map[string]any{
		"retryMinutes": []int{0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignStatusChange(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAdmin(t)

	w := app.do(t, http.MethodGet, "/campaigns", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var campaigns []campaign.Campaign
	require.NoError(t, json.NewDecoder(w.Body).Decode(&campaigns))
	require.Len(t, campaigns, 2)

	vip := campaigns[1]
	w = app.do(t, http.MethodPost, fmt.Sprintf("/campaigns/%s/status", vip.ID), token, map[string]any{
		"status": "ACTIVE",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/campaigns", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&campaigns))
	active := 0
	for _, c := range campaigns {
		if c.Status == campaign.StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestRecoverLinkRedirect(t *testing.T) {
	app := newTestApp(t)
	signer := link.NewSigner("test-link-secret", time.Hour)

	token, err := signer.Sign(link.Payload{CheckoutToken: "cko_1", ShopDomain: "demo.myshopify.com"})
	require.NoError(t, err)

	w := app.do(t, http.MethodGet, "/recover/"+token, "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://demo.myshopify.com/cart", w.Header().Get("Location"))

	w = app.do(t, http.MethodGet, "/recover/bogus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
