package stripepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"

	metadataProductID = "product_id"
	metadataUserID    = "user_id"
)

var (
	// ErrNotConfigured is returned when no secret key is set
	ErrNotConfigured = errors.New("stripe: not configured")
	// ErrInvalidSignature is returned for webhooks that fail signature checks
	ErrInvalidSignature = errors.New("stripe: invalid webhook signature")
	// ErrSessionNotFound is returned when Stripe does not know the session id
	ErrSessionNotFound = errors.New("stripe: checkout session not found")
)

// Config holds Stripe configuration
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string // {CHECKOUT_SESSION_ID} is substituted by Stripe
	CancelURL     string
}

// sessionAPI is the subset of the checkout session client used here.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Client wraps Stripe Checkout for one-off credit purchases
type Client struct {
	config   Config
	sessions sessionAPI
}

// CheckoutRequest describes a single-product payment-mode checkout
type CheckoutRequest struct {
	UserID      string
	ProductID   string
	ProductName string
	Amount      float64 // major units, e.g. 11.99
	Currency    string
}

// Checkout is a created checkout session
type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Session is the verified state of a checkout session
type Session struct {
	ID                string
	Paid              bool
	ClientReferenceID string
	ProductID         string
	PaymentIntentID   string
	Created           time.Time
}

// TransactionID is the idempotency key for the payment: the PaymentIntent, else the session.
func (s *Session) TransactionID() string {
	if s.PaymentIntentID != "" {
		return s.PaymentIntentID
	}
	return s.ID
}

// Event is a verified webhook event
type Event struct {
	ID      string
	Type    string
	Session *Session // set for checkout.session.* events
}

// NewClient creates Stripe client. The key is bound to this client, not the package global.
func NewClient(cfg Config) *Client {
	return &Client{
		config: cfg,
		sessions: &checkoutsession.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
	}
}

// Enabled reports whether a secret key is configured
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.config.SecretKey) != ""
}

// WebhookEnabled reports whether webhook signatures can be verified
func (c *Client) WebhookEnabled() bool {
	return strings.TrimSpace(c.config.WebhookSecret) != ""
}

// CreateCheckout creates a payment-mode session for one product.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if req.UserID == "" || req.ProductID == "" {
		return nil, fmt.Errorf("stripe: user and product are required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("stripe: amount must be > 0")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.config.SuccessURL),
		CancelURL:         stripe.String(c.config.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(minorUnits(req.Amount, req.Currency)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			metadataUserID:    req.UserID,
			metadataProductID: req.ProductID,
		},
	}
	params.Context = ctx

	sess, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

// GetSession fetches a checkout session from Stripe.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("stripe: missing session id")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.sessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	return sessionFromStripe(sess), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (c *Client) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if !c.WebhookEnabled() {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		out.Session = sessionFromStripe(&sess)
	}
	return out, nil
}

func sessionFromStripe(sess *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:                sess.ID,
		Paid:              sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: sess.ClientReferenceID,
		Created:           time.Unix(sess.Created, 0).UTC(),
	}
	if sess.Metadata != nil {
		out.ProductID = sess.Metadata[metadataProductID]
		if out.ClientReferenceID == "" {
			out.ClientReferenceID = sess.Metadata[metadataUserID]
		}
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out
}

// zeroDecimalCurrencies are charged in whole units by Stripe.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func minorUnits(amount float64, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}
