package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.com/pay/cs_test_1","status":"open","payment_status":"unpaid"}`)
	}))
	defer srv.Close()

	client := NewStripeClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_123"})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		Name:              "Jazz Night",
		Description:       "An evening of jazz",
		UnitAmount:        5000,
		Quantity:          2,
		Currency:          "usd",
		SuccessURL:        "https://app.example.com/success",
		CancelURL:         "https://app.example.com/events",
		ClientReferenceID: "booking-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", session.URL)

	assert.Equal(t, "payment", gotForm["mode"])
	assert.Equal(t, "booking-1", gotForm["client_reference_id"])
	assert.Equal(t, "2", gotForm["line_items[0][quantity]"])
	assert.Equal(t, "usd", gotForm["line_items[0][price_data][currency]"])
	assert.Equal(t, "5000", gotForm["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "Jazz Night", gotForm["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "An evening of jazz", gotForm["line_items[0][price_data][product_data][description]"])
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`)
	}))
	defer srv.Close()

	client := NewStripeClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_123"})

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{Name: "x", UnitAmount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid currency")
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","status":"complete","payment_status":"paid","payment_intent":"pi_test_1","amount_total":10000}`)
	}))
	defer srv.Close()

	client := NewStripeClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_123"})

	session, err := client.GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", session.PaymentStatus)
	assert.Equal(t, "pi_test_1", session.PaymentIntent)
	assert.Equal(t, int64(10000), session.AmountTotal)
}

func TestRefundPaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "pi_test_1", r.PostForm.Get("payment_intent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"re_test_1","status":"succeeded","amount":10000,"payment_intent":"pi_test_1"}`)
	}))
	defer srv.Close()

	client := NewStripeClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_123"})

	refund, err := client.RefundPaymentIntent(context.Background(), "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", refund.Status)
	assert.Equal(t, "pi_test_1", refund.PaymentIntent)
}

func signedHeader(t *testing.T, ts int64, payload []byte, secret string) string {
	t.Helper()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(ts, payload, secret))
}

func TestConstructWebhookEvent(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","payment_status":"paid"}}}`)

	now := time.Now().Unix()
	event, err := client.ConstructWebhookEvent(payload, signedHeader(t, now, payload, "whsec_test"))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.Data.Object.ID)
}

func TestConstructWebhookEventRejectsBadSignature(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now().Unix()

	// Signed with the wrong secret.
	_, err := client.ConstructWebhookEvent(payload, signedHeader(t, now, payload, "whsec_other"))
	assert.Error(t, err)

	// Payload tampered with after signing.
	header := signedHeader(t, now, payload, "whsec_test")
	_, err = client.ConstructWebhookEvent([]byte(`{"id":"evt_2","type":"checkout.session.completed"}`), header)
	assert.Error(t, err)

	// Malformed header.
	_, err = client.ConstructWebhookEvent(payload, "garbage")
	assert.Error(t, err)

	_, err = client.ConstructWebhookEvent(payload, "")
	assert.Error(t, err)
}

func TestConstructWebhookEventRejectsStaleTimestamp(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	stale := time.Now().Add(-10 * time.Minute).Unix()
	_, err := client.ConstructWebhookEvent(payload, signedHeader(t, stale, payload, "whsec_test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")
}

func TestConstructWebhookEventAcceptsAnyValidV1(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now().Unix()

	// Stripe sends multiple v1 signatures during secret rotation; one valid
	// signature is enough.
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		now,
		computeSignature(now, payload, "whsec_old"),
		computeSignature(now, payload, "whsec_test"))

	_, err := client.ConstructWebhookEvent(payload, header)
	assert.NoError(t, err)
}
