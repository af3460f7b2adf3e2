package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"krostyshop/internal/clock"
	"krostyshop/internal/config"
	"krostyshop/internal/mailer"
	"krostyshop/internal/provider/binance"
	"krostyshop/internal/realtime"
	"krostyshop/internal/services/auth"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/chat"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/event"
	ordersvc "krostyshop/internal/services/order"
	"krostyshop/internal/services/payment"
	"krostyshop/internal/storage"
	"krostyshop/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xDE,
}

type fixedRate struct{ rate decimal.Decimal }

func (f fixedRate) Rate(context.Context) (decimal.Decimal, error) { return f.rate, nil }

const (
	adminToken    = "operator-secret"
	webhookSecret = "binance-secret"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Cfg{
		App:     config.AppCfg{Env: "test", BaseURL: "http://shop.test"},
		Auth:    config.AuthCfg{JWTSecret: []byte("router-test-secret"), AdminToken: adminToken},
		Storage: config.StorageCfg{Dir: t.TempDir(), MaxProofBytes: 1 << 20},
	}

	store := memory.New()
	clk := clock.NewFixed(now)
	hub := realtime.NewHub(nil)

	proofs, err := storage.NewFS(cfg.Storage.Dir, "http://shop.test/proofs", cfg.Storage.MaxProofBytes)
	require.NoError(t, err)

	authSvc := auth.NewService(store.Users(), auth.NewTokenIssuer(cfg.Auth.JWTSecret), mailer.NewLog(), clk,
		auth.Config{BaseURL: cfg.App.BaseURL})
	catalog := catalogsvc.NewService(store.Products())
	hosted := binance.New(binance.Config{APIKey: "key", SecretKey: webhookSecret, MaxSkew: 5 * time.Minute})

	srv := httptest.NewServer(NewRouter(RouterDependencies{
		Config:         cfg,
		AuthService:    authSvc,
		CatalogService: catalog,
		OrderService:   ordersvc.NewService(store.Orders(), catalog, fixedRate{decimal.RequireFromString("36.505")}, proofs, hub, clk),
		ChatService:    chat.NewService(store.Orders(), store.Messages(), hub, clk),
		PaymentService: payment.NewService(store.Orders(), store.Events(), catalog, hosted, hub, clk, cfg.App.BaseURL),
		DataService:    data.NewService(store.Orders(), store.Events()),
		ReplayService:  event.NewReplayService(store.Events()),
		Hub:            hub,
		Proofs:         proofs.Handler(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any, headers map[string]string) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) (int, map[string]any) {
	c.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func signUp(t *testing.T, base, email string) *client {
	t.Helper()
	c := &client{t: t, base: base}
	status, body := c.do(http.MethodPost, "/auth/signup", map[string]string{"email": email, "password": "secret1"}, nil)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d %v", email, status, body)
	}
	c.token = body["access_token"].(string)
	return c
}

func signUpAdmin(t *testing.T, base, email string) *client {
	t.Helper()
	c := signUp(t, base, email)
	status, _ := (&client{t: t, base: base}).do(http.MethodPost, "/admin/bootstrap",
		map[string]string{"email": email}, map[string]string{"X-Admin-Token": adminToken})
	require.Equal(t, http.StatusOK, status)

	// the role is carried in the token, so sign in again
	status, body := c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, status)
	c.token = body["access_token"].(string)
	return c
}

func (c *client) checkout(items string, proof []byte) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(c.t, mw.WriteField("items", items))
	if proof != nil {
		fw, err := mw.CreateFormFile("proof", "pago.png")
		require.NoError(c.t, err)
		_, _ = fw.Write(proof)
	}
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/v1/checkout/manual", &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.send(req)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	status, body := (&client{t: t, base: srv.URL}).do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestManualPaymentReconciliation(t *testing.T) {
	srv := newServer(t)
	admin := signUpAdmin(t, srv.URL, "admin@shop.test")
	buyer := signUp(t, srv.URL, "buyer@shop.test")
	other := signUp(t, srv.URL, "other@shop.test")

	status, product := admin.do(http.MethodPost, "/api/v1/admin/products",
		map[string]any{"name": "Free Fire", "category": "games"}, nil)
	require.Equal(t, http.StatusCreated, status)
	productID := product["id"].(string)

	status, variant := admin.do(http.MethodPost, "/api/v1/admin/products/"+productID+"/variants",
		map[string]any{"name": "100 Diamonds", "price": "1.99"}, nil)
	require.Equal(t, http.StatusCreated, status)
	variantID := variant["id"].(string)

	// catalog is public
	status, list := (&client{t: t, base: srv.URL}).do(http.MethodGet, "/api/v1/products?category=games", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list["products"], 1)

	status, body := buyer.checkout(`[{"id":"`+variantID+`","quantity":3}]`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "proof", body["field"])

	status, created := buyer.checkout(`[{"id":"`+variantID+`","quantity":3,"price":"0.01"}]`, pngBytes)
	require.Equal(t, http.StatusCreated, status, "%v", created)
	orderID := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "5.97", created["total_usdt"])
	assert.Equal(t, "217.93", created["total_ves"])

	// proof is reachable under /proofs
	proofURL := created["proof_url"].(string)
	resp, err := http.Get(srv.URL + proofURL[len("http://shop.test"):])
	require.NoError(t, err)
	stored, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, pngBytes, stored)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	status, queue := admin.do(http.MethodGet, "/api/v1/admin/orders?status=pending", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, queue["orders"], 1)

	status, _ = other.do(http.MethodGet, "/api/v1/orders/"+orderID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = buyer.do(http.MethodPost, "/api/v1/orders/"+orderID+"/messages", map[string]string{"content": "  ya pagué  "}, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, _ = admin.do(http.MethodPost, "/api/v1/orders/"+orderID+"/messages", map[string]string{"content": "recibido"}, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, _ = other.do(http.MethodPost, "/api/v1/orders/"+orderID+"/messages", map[string]string{"content": "hola"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, msgs := buyer.do(http.MethodGet, "/api/v1/orders/"+orderID+"/messages", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, msgs["messages"], 2)
	assert.Equal(t, "ya pagué", msgs["messages"].([]any)[0].(map[string]any)["content"])

	review := "/api/v1/admin/orders/" + orderID + "/review"
	status, _ = buyer.do(http.MethodPost, review, map[string]string{"status": "approved"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, reviewed := admin.do(http.MethodPost, review, map[string]string{"status": "approved"}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", reviewed["status"])

	status, _ = admin.do(http.MethodPost, review, map[string]string{"status": "approved"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = admin.do(http.MethodPost, review, map[string]string{"status": "paid"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, mine := buyer.do(http.MethodGet, "/api/v1/orders", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine["orders"], 1)
	assert.Equal(t, "approved", mine["orders"].([]any)[0].(map[string]any)["status"])
}

func TestAuthGuards(t *testing.T) {
	srv := newServer(t)
	anon := &client{t: t, base: srv.URL}
	buyer := signUp(t, srv.URL, "buyer@shop.test")

	status, _ := anon.do(http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = (&client{t: t, base: srv.URL, token: "garbage"}).do(http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = buyer.do(http.MethodGet, "/api/v1/admin/orders", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = anon.do(http.MethodPost, "/admin/bootstrap", map[string]string{"email": "buyer@shop.test"},
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anon.do(http.MethodPost, "/auth/login", map[string]string{"email": "buyer@shop.test", "password": "nope12"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = buyer.do(http.MethodPost, "/auth/password", map[string]string{"password": "newpass"}, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = anon.do(http.MethodPost, "/auth/login", map[string]string{"email": "buyer@shop.test", "password": "newpass"}, nil)
	assert.Equal(t, http.StatusOK, status)
	// the old session ended with the password change
	status, _ = buyer.do(http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anon.do(http.MethodPost, "/auth/password", map[string]string{"password": "newpass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anon.do(http.MethodPost, "/auth/reset", map[string]string{"email": "ghost@shop.test"}, nil)
	assert.Equal(t, http.StatusAccepted, status)
}

func TestBinanceWebhook(t *testing.T) {
	srv := newServer(t)
	body := []byte(`{"bizType":"PAY","bizIdStr":"29383937493038367292","bizStatus":"PAY_SUCCESS","data":"{\"merchantTradeNo\":\"9825382937292\"}"}`)

	post := func(h http.Header, payload []byte) (int, map[string]any) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/binance", bytes.NewReader(payload))
		require.NoError(t, err)
		for k, v := range h {
			req.Header[k] = v
		}
		return (&client{t: t}).send(req)
	}

	signed := func(sig string) http.Header {
		h := http.Header{}
		h.Set(binance.HeaderTimestamp, strconv.FormatInt(now.UnixMilli(), 10))
		h.Set(binance.HeaderNonce, "abc")
		h.Set(binance.HeaderSignature, sig)
		return h
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	status, _ := post(http.Header{}, body)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(signed("DEADBEEF"), body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, ack := post(signed(binance.Sign([]byte(webhookSecret), ts, "abc", body)), body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SUCCESS", ack["returnCode"])
	v, present := ack["returnMessage"]
	assert.True(t, present)
	assert.Nil(t, v)
}
