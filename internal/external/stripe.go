package external

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StripeClient talks to the Stripe REST API: Checkout session creation and
// retrieval, refunds, and webhook signature verification.
type StripeClient struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// CheckoutParams describes the single line item of a booking checkout.
type CheckoutParams struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	// ClientReferenceID ties the session back to the booking.
	ClientReferenceID string
}

// CheckoutSession mirrors the fields of a Stripe Checkout session this
// service reads.
type CheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	PaymentIntent     string `json:"payment_intent"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	ClientReferenceID string `json:"client_reference_id"`
}

// Refund mirrors a Stripe refund object.
type Refund struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	PaymentIntent string `json:"payment_intent"`
}

// WebhookEvent is the envelope delivered to the webhook endpoint.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	// EventCheckoutSessionCompleted is the only event type the booking flow acts on.
	EventCheckoutSessionCompleted = "checkout.session.completed"

	// signatureTolerance bounds the age of a signed webhook payload.
	signatureTolerance = 5 * time.Minute
)

func NewStripeClient(cfg Config) *StripeClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}

	return &StripeClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreateCheckoutSession creates a hosted Checkout session for one line item.
func (sc *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("client_reference_id", p.ClientReferenceID)
	form.Set("line_items[0][quantity]", strconv.FormatInt(p.Quantity, 10))
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.Name)
	if p.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", p.Description)
	}
	if p.ImageURL != "" {
		form.Set("line_items[0][price_data][product_data][images][0]", p.ImageURL)
	}

	var session CheckoutSession
	if err := sc.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &session, nil
}

// GetCheckoutSession retrieves a session by id.
func (sc *StripeClient) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/v1/checkout/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sc.secretKey)

	var session CheckoutSession
	if err := sc.do(req, &session); err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return &session, nil
}

// RefundPaymentIntent issues a full refund against a payment intent.
func (sc *StripeClient) RefundPaymentIntent(ctx context.Context, paymentIntentID string) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)

	var refund Refund
	if err := sc.postForm(ctx, "/v1/refunds", form, &refund); err != nil {
		return nil, fmt.Errorf("failed to refund payment intent: %w", err)
	}
	return &refund, nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// webhook secret and unmarshals the payload. The header carries a timestamp
// and one or more v1 signatures: HMAC-SHA256 over "<timestamp>.<payload>".
func (sc *StripeClient) ConstructWebhookEvent(payload []byte, sigHeader string) (*WebhookEvent, error) {
	ts, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if d := time.Since(time.Unix(ts, 0)); d > signatureTolerance || d < -signatureTolerance {
		return nil, fmt.Errorf("webhook timestamp outside tolerance")
	}

	expected := computeSignature(ts, payload, sc.webhookSecret)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid signature timestamp: %w", err)
			}
			ts = parsed
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if ts < 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("malformed signature header")
	}
	return ts, signatures, nil
}

func computeSignature(ts int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (sc *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sc.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return sc.do(req, out)
}

func (sc *StripeClient) do(req *http.Request, out any) error {
	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("stripe api error: unexpected status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
