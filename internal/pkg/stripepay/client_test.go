package stripepay

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type sessionsStub struct {
	created *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (s *sessionsStub) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.created = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (s *sessionsStub) Get(string, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return s.session, s.err
}

func newTestClient(stub *sessionsStub) *Client {
	c := NewClient(Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		SuccessURL:    "https://lazone.test/purchase/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://lazone.test/purchase/cancel",
	})
	c.sessions = stub
	return c
}

func TestCreateCheckoutBuildsPaymentSession(t *testing.T) {
	stub := &sessionsStub{}
	c := newTestClient(stub)

	out, err := c.CreateCheckout(context.Background(), CheckoutRequest{
		UserID: "user-1", ProductID: "pack5", ProductName: "5 annonces", Amount: 11.99, Currency: "EUR",
	})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", out.SessionID)

	p := stub.created
	require.Equal(t, string(stripe.CheckoutSessionModePayment), *p.Mode)
	require.Equal(t, "user-1", *p.ClientReferenceID)
	require.Equal(t, "pack5", p.Metadata["product_id"])
	require.Len(t, p.LineItems, 1)
	require.Equal(t, int64(1199), *p.LineItems[0].PriceData.UnitAmount)
	require.Equal(t, "eur", *p.LineItems[0].PriceData.Currency)
}

func TestCreateCheckoutRequiresKey(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.CreateCheckout(context.Background(), CheckoutRequest{UserID: "u", ProductID: "p", Amount: 1})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGetSessionMapsPaymentIntent(t *testing.T) {
	stub := &sessionsStub{session: &stripe.CheckoutSession{
		ID:                "cs_test_2",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: "user-2",
		Metadata:          map[string]string{"product_id": "pack10"},
		PaymentIntent:     &stripe.PaymentIntent{ID: "pi_123"},
		Created:           1705312800,
	}}
	c := newTestClient(stub)

	sess, err := c.GetSession(context.Background(), "cs_test_2")
	require.NoError(t, err)
	require.True(t, sess.Paid)
	require.Equal(t, "pi_123", sess.TransactionID())
	require.Equal(t, "pack10", sess.ProductID)
	require.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), sess.Created)
}

func TestGetSessionPropagatesErrors(t *testing.T) {
	c := newTestClient(&sessionsStub{err: errors.New("no such session")})
	_, err := c.GetSession(context.Background(), "cs_missing")
	require.Error(t, err)
}

func TestGetSessionNotFound(t *testing.T) {
	c := newTestClient(&sessionsStub{err: &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout.session"}})
	_, err := c.GetSession(context.Background(), "cs_missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionTransactionIDFallsBackToSession(t *testing.T) {
	s := &Session{ID: "cs_unpaid"}
	require.Equal(t, "cs_unpaid", s.TransactionID())
}

func TestParseWebhook(t *testing.T) {
	c := newTestClient(&sessionsStub{})
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_live_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"client_reference_id": "user-3",
			"payment_intent": "pi_456",
			"metadata": {"product_id": "pack1"}
		}}
	}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := c.ParseWebhook(payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	require.True(t, event.Session.Paid)
	require.Equal(t, "pi_456", event.Session.TransactionID())
	require.Equal(t, "user-3", event.Session.ClientReferenceID)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	c := newTestClient(&sessionsStub{})
	_, err := c.ParseWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     int64
	}{
		{amount: 11.99, currency: "eur", want: 1199},
		{amount: 29.99, currency: "EUR", want: 2999},
		{amount: 8000, currency: "xof", want: 8000},
		{amount: 8000, currency: "XOF", want: 8000},
		{amount: 500, currency: "jpy", want: 500},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, minorUnits(tt.amount, tt.currency), "%v %s", tt.amount, tt.currency)
	}
}
