package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"
)

const (
	stripeAPIBase = "https://api.stripe.com"
	// webhookTolerance bounds how old a signed webhook timestamp may be,
	// limiting replay of captured payloads.
	webhookTolerance = 5 * time.Minute
)

// StripeGateway talks to Stripe Checkout over its form-encoded HTTP API.
// Calls carry a bounded timeout; a slow gateway fails the checkout attempt
// closed rather than leaving it hanging.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	now           func() time.Time
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       stripeAPIBase,
		client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

func (g *StripeGateway) Configured() bool {
	return g.secretKey != "" && g.webhookSecret != ""
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order *model.Order, successURL, cancelURL string) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", order.Reference)
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "eur")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(order.TotalCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", "Order "+order.Reference)

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := g.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return CheckoutSession{}, err
	}
	if out.ID == "" || out.URL == "" {
		return CheckoutSession{}, fmt.Errorf("stripe: incomplete session response")
	}
	return CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	var out struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := g.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return false, err
	}
	return out.PaymentStatus == "paid", nil
}

// VerifyWebhook checks the Stripe-Signature header: HMAC-SHA256 of
// "<timestamp>.<payload>" with the endpoint secret, compared in constant
// time, with the timestamp bounded by webhookTolerance.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (WebhookEvent, error) {
	ts, sigs := parseSignatureHeader(signatureHeader)
	if ts == "" || len(sigs) == 0 {
		return WebhookEvent{}, ErrBadSignature
	}

	tsSec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return WebhookEvent{}, ErrBadSignature
	}
	age := g.now().Sub(time.Unix(tsSec, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return WebhookEvent{}, ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := false
	for _, sig := range sigs {
		if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1 {
			ok = true
		}
	}
	if !ok {
		return WebhookEvent{}, ErrBadSignature
	}

	var evt struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode event: %w", err)
	}
	return WebhookEvent{Type: evt.Type, SessionID: evt.Data.Object.ID}, nil
}

func parseSignatureHeader(header string) (timestamp string, v1 []string) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			v1 = append(v1, v)
		}
	}
	return timestamp, v1
}

func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("stripe: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("stripe: status=%d body=%s", resp.StatusCode, string(b))
	}
	return json.Unmarshal(b, out)
}
