package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/api"
	"github.com/nexcart/storefront/internal/api/handlers"
	"github.com/nexcart/storefront/internal/api/middleware"
	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/metrics"
	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/nexcart/nexcarttest"
	"github.com/nexcart/storefront/internal/service"
	"github.com/nexcart/storefront/internal/storage"
)

type console struct {
	srv    *nexcarttest.Server
	mem    *storage.MemoryStore
	router *gin.Engine
}

func newConsole(t *testing.T, keyHash string) *console {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := nexcarttest.NewServer(t, "tok")
	srv.AddProduct(7, "Kettle", "100.00", "")
	srv.AddProduct(9, "Mug", "50.00", "40.00")
	srv.SetCredentials("asha@example.com", "secret")

	cfg := &config.Config{
		Environment: "test",
		API:         config.APIConfig{BaseURL: srv.URL},
		Checkout:    config.CheckoutConfig{PushPolicy: config.PushBestEffort, TaxRate: decimal.RequireFromString("0.18")},
		Console:     config.ConsoleConfig{KeyHash: keyHash},
	}
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())

	mem := storage.NewMemoryStore()
	client := nexcart.NewClient(cfg.API, storage.TokenSource{Store: mem}, logger, nexcart.WithObserver(m))
	store := cart.New(client, mem, logger, cart.WithRecorder(m))

	router := api.NewRouter(cfg, api.Dependencies{
		Cart: store,
		Checkout: handlers.NewCheckoutSessions(func() *checkout.Orchestrator {
			return checkout.New(store, client, logger, checkout.Options{
				PushPolicy: cfg.Checkout.PushPolicy,
				TaxRate:    cfg.Checkout.TaxRate,
				Recorder:   m,
			})
		}),
		Orders:  service.NewOrderService(client, logger),
		Session: service.NewSessionService(client, mem, logger),
		Metrics: m.Handler(),
	}, logger)

	return &console{srv: srv, mem: mem, router: router}
}

func (c *console) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	c := newConsole(t, "")
	rec, body := c.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestConsoleKey(t *testing.T) {
	hash, err := middleware.HashKey("console-secret")
	require.NoError(t, err)
	c := newConsole(t, hash)

	rec, _ := c.do(t, http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = c.do(t, http.MethodGet, "/v1/cart", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = c.do(t, http.MethodGet, "/v1/cart", nil, "Authorization", "Bearer console-secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	rec, _ = c.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartRoutes_LocalOnly(t *testing.T) {
	c := newConsole(t, "")

	rec, body := c.do(t, http.MethodPost, "/v1/cart/items", gin.H{"product_id": 7, "name": "Kettle", "price": 100, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	sync := body["sync"].(map[string]any)
	assert.Equal(t, "local_only", sync["status"])

	_, body = c.do(t, http.MethodPost, "/v1/cart/items", gin.H{"product_id": 9, "name": "Mug", "price": "50", "discount_price": "40"})
	assert.Equal(t, float64(3), body["item_count"])
	assert.Equal(t, "240", body["total"])

	rec, body = c.do(t, http.MethodPatch, "/v1/cart/items/7", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["lines"], 1)

	rec, _ = c.do(t, http.MethodPatch, "/v1/cart/items/abc", gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(t, http.MethodPost, "/v1/cart/items", gin.H{"product_id": 9, "name": "Mug", "price": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = c.do(t, http.MethodDelete, "/v1/cart", nil)
	assert.Empty(t, body["lines"])
	assert.Equal(t, float64(0), body["item_count"])
}

func TestCheckoutRoutes_FullFlow(t *testing.T) {
	c := newConsole(t, "")

	rec, body := c.do(t, http.MethodPost, "/v1/checkout/begin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "/cart", body["redirect"])

	rec, _ = c.do(t, http.MethodPost, "/v1/session/login", gin.H{"username": "asha@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	c.srv.AddAddress(nexcarttest.Address{AddressType: "shipping", Default: true, StreetAddress: "1 Existing St"})

	_, body = c.do(t, http.MethodPost, "/v1/cart/items", gin.H{"product_id": 7, "name": "Kettle", "price": 100, "quantity": 2})
	assert.Equal(t, "synced", body["sync"].(map[string]any)["status"])

	rec, body = c.do(t, http.MethodPost, "/v1/checkout/begin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COLLECTING_SHIPPING", body["step"])

	rec, _ = c.do(t, http.MethodPost, "/v1/checkout/payment", gin.H{"payment_method": "cod"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = c.do(t, http.MethodPost, "/v1/checkout/shipping", gin.H{
		"full_name": "Asha Rao", "email": "asha@example.com", "phone": "9876543210",
		"address_line1": "12 MG Road", "city": "Pune", "state": "Maharashtra",
		"pincode": "411001", "country": "India",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COLLECTING_PAYMENT", body["step"])

	rec, body = c.do(t, http.MethodPost, "/v1/checkout/payment", gin.H{"payment_method": "creditCard"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "card_number", body["details"].(map[string]any)["field"])

	rec, body = c.do(t, http.MethodPost, "/v1/checkout/payment", gin.H{"payment_method": "netBanking", "bank": "sbi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REVIEWING_ORDER", body["step"])

	rec, body = c.do(t, http.MethodGet, "/v1/checkout/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", body["subtotal"])
	assert.Equal(t, "36", body["tax"])
	assert.Equal(t, "236", body["total"])

	rec, body = c.do(t, http.MethodPost, "/v1/checkout/place", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "CONFIRMED", body["step"])
	orderID := body["order_id"].(float64)
	assert.NotZero(t, orderID)

	_, body = c.do(t, http.MethodGet, "/v1/cart", nil)
	assert.Equal(t, float64(0), body["item_count"])

	rec, body = c.do(t, http.MethodGet, "/v1/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = c.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", int64(orderID)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, false, body["cancellable"])

	rec, _ = c.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", int64(orderID)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = c.do(t, http.MethodGet, "/v1/orders/424242", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = c.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), `nexcart_checkout_total{result="confirmed"} 1`)
}

func TestCheckoutRoutes_PlaceWithoutCredential(t *testing.T) {
	c := newConsole(t, "")
	c.do(t, http.MethodPost, "/v1/cart/items", gin.H{"product_id": 7, "name": "Kettle", "price": 100})
	c.do(t, http.MethodPost, "/v1/checkout/begin", nil)
	c.do(t, http.MethodPost, "/v1/checkout/shipping", gin.H{
		"full_name": "Asha Rao", "email": "asha@example.com", "phone": "9876543210",
		"address_line1": "12 MG Road", "city": "Pune", "state": "Maharashtra",
		"pincode": "411001", "country": "India",
	})
	c.do(t, http.MethodPost, "/v1/checkout/payment", gin.H{"payment_method": "cod"})

	rec, body := c.do(t, http.MethodPost, "/v1/checkout/place", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", body["redirect"])
	assert.Empty(t, c.srv.Calls("/orders/create_from_cart/"))

	_, body = c.do(t, http.MethodGet, "/v1/checkout", nil)
	assert.Equal(t, "REVIEWING_ORDER", body["step"])
}

func TestSessionRoutes(t *testing.T) {
	c := newConsole(t, "")

	rec, _ := c.do(t, http.MethodPost, "/v1/session/login", gin.H{"username": "asha@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = c.do(t, http.MethodPost, "/v1/session/login", gin.H{"username": "asha@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(t, http.MethodPost, "/v1/session/login", gin.H{"username": "asha@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	token, err := c.mem.Get(context.Background(), storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(token))

	rec, body := c.do(t, http.MethodPost, "/v1/session/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["signed_in"])
}
