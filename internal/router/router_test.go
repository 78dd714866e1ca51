package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/session"
)

// fakeGateway stands in for the hosted payment provider. Webhook payloads
// are accepted only with the "valid-signature" header and decoded as plain
// JSON, which keeps signature handling out of these handler tests.
type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	createErr  error
	created    int
	paid       map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{configured: true, paid: make(map[string]bool)}
}

func (g *fakeGateway) Configured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.configured
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, _ *model.Order, _, _ string) (payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return payment.CheckoutSession{}, g.createErr
	}
	g.created++
	id := fmt.Sprintf("cs_test_%03d", g.created)
	return payment.CheckoutSession{ID: id, URL: "https://gateway.example/c/" + id}, nil
}

func (g *fakeGateway) SessionPaid(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paid[sessionID], nil
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signatureHeader string) (payment.WebhookEvent, error) {
	if signatureHeader != "valid-signature" {
		return payment.WebhookEvent{}, payment.ErrBadSignature
	}
	var evt struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return payment.WebhookEvent{}, err
	}
	return payment.WebhookEvent{Type: evt.Type, SessionID: evt.SessionID}, nil
}

func (g *fakeGateway) markPaid(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[sessionID] = true
}

// testEnv runs the full router against sqlite and in-memory stores, with a
// cookie-jar client that does not follow redirects so 303s stay observable.
type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	srv    *httptest.Server
	client *http.Client
	gw     *fakeGateway
}

func newTestEnv(t *testing.T, gatewayEnabled bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Order{},
		&model.OrderDetail{},
	))

	log := zaptest.NewLogger(t)
	gw := newFakeGateway()

	r := gin.New()
	Setup(r, Deps{
		DB:         db,
		Cart:       cart.NewMemoryStore(),
		Attempts:   session.NewMemoryStore(),
		Creator:    checkout.NewCreator(db, log),
		Reconciler: payment.NewReconciler(db, gw, events.NopSink{}, log),
		Gateway:    gw,
		Events:     events.NopSink{},
		Log:        log,

		GatewayEnabled: gatewayEnabled,
		PublicBaseURL:  "http://shop.local",
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{t: t, db: db, srv: srv, client: client, gw: gw}
}

func (e *testEnv) request(method, path string, body []byte, contentType string) (*http.Response, map[string]any) {
	e.t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(body))
	require.NoError(e.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)

	var parsed map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func (e *testEnv) get(path string) (*http.Response, map[string]any) {
	return e.request(http.MethodGet, path, nil, "")
}

func (e *testEnv) postJSON(path string, payload any) (*http.Response, map[string]any) {
	e.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(e.t, err)
	return e.request(http.MethodPost, path, raw, "application/json")
}

func (e *testEnv) postForm(path string, form url.Values) (*http.Response, map[string]any) {
	return e.request(http.MethodPost, path, []byte(form.Encode()), "application/x-www-form-urlencoded")
}

func (e *testEnv) delete(path string) (*http.Response, map[string]any) {
	return e.request(http.MethodDelete, path, nil, "")
}

// data unwraps the envelope's data object.
func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return d
}

func seedProduct(t *testing.T, db *gorm.DB, name string, priceCents, stock int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name: name,
		Slug: slugify(name),
		Variants: []model.ProductVariant{
			{Name: "Default", Price: &priceCents, Stock: &stock, IsDefault: true},
		},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func (e *testEnv) addToCart(productID uint, quantity int64) {
	e.t.Helper()
	resp, _ := e.postJSON("/api/cart/items", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
}

// checkoutToken fetches the confirmation view and returns its fresh token.
func (e *testEnv) checkoutToken() string {
	e.t.Helper()
	resp, body := e.get("/api/checkout")
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	token, ok := data(e.t, body)["idempotency_key"].(string)
	require.True(e.t, ok)
	require.NotEmpty(e.t, token)
	return token
}

func (e *testEnv) submitCheckout(token string, withAddress bool) (*http.Response, map[string]any) {
	e.t.Helper()
	form := url.Values{}
	form.Set("idempotency_key", token)
	form.Set("email", "shopper@example.com")
	if withAddress {
		form.Set("address", "1 Main St")
		form.Set("zipcode", "75001")
		form.Set("city", "Paris")
	}
	return e.postForm("/api/checkout", form)
}

func (e *testEnv) orderCount() int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func (e *testEnv) reloadOrder(id uint) *model.Order {
	e.t.Helper()
	var order model.Order
	require.NoError(e.t, e.db.Preload("Details").First(&order, id).Error)
	return &order
}

func (e *testEnv) variantStock(variantID uint) int64 {
	e.t.Helper()
	var v model.ProductVariant
	require.NoError(e.t, e.db.First(&v, variantID).Error)
	require.NotNil(e.t, v.Stock)
	return *v.Stock
}
