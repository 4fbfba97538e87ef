package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/pkg/stripepay"
)

// stripeAPI is the subset of stripepay.Client used by the gateway.
type stripeAPI interface {
	Enabled() bool
	WebhookEnabled() bool
	CreateCheckout(ctx context.Context, req stripepay.CheckoutRequest) (*stripepay.Checkout, error)
	GetSession(ctx context.Context, sessionID string) (*stripepay.Session, error)
}

// StripeGateway verifies card payments made through Stripe Checkout
type StripeGateway struct {
	client stripeAPI
}

// NewStripeGateway creates Stripe gateway
func NewStripeGateway(client stripeAPI) *StripeGateway {
	return &StripeGateway{client: client}
}

func (g *StripeGateway) Rail() ledger.Rail { return ledger.RailStripe }

func (g *StripeGateway) Initialize(context.Context) (Capabilities, error) {
	if g.client == nil || !g.client.Enabled() {
		return Capabilities{}, fmt.Errorf("%w: stripe secret key missing", ErrRailDisabled)
	}
	return Capabilities{
		Rail:        ledger.RailStripe,
		CanCheckout: true,
		Webhooks:    g.client.WebhookEnabled(),
	}, nil
}

// Verify accepts a paid session created for the claiming user.
func (g *StripeGateway) Verify(ctx context.Context, claim Claim) (*VerifiedPurchase, error) {
	if claim.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}

	sess, err := g.client.GetSession(ctx, claim.SessionID)
	if err != nil {
		if errors.Is(err, stripepay.ErrSessionNotFound) {
			return nil, ErrVerificationFailed
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return verifiedFromSession(sess, claim.UserID)
}

// StartCheckout creates a hosted checkout priced from the web storefront.
func (g *StripeGateway) StartCheckout(ctx context.Context, userID uuid.UUID, product catalog.Product) (*stripepay.Checkout, error) {
	price, ok := product.Prices[catalog.StorefrontWeb]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no web price", ErrUnknownProduct, product.ID)
	}

	out, err := g.client.CreateCheckout(ctx, stripepay.CheckoutRequest{
		UserID:      userID.String(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Amount:      price.Amount,
		Currency:    price.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return out, nil
}

func verifiedFromSession(sess *stripepay.Session, userID uuid.UUID) (*VerifiedPurchase, error) {
	if !sess.Paid {
		return nil, ErrVerificationFailed
	}
	if sess.ClientReferenceID != userID.String() {
		return nil, ErrFraudAttempt
	}
	if sess.ProductID == "" {
		return nil, ErrVerificationFailed
	}
	return &VerifiedPurchase{
		ProductID:     sess.ProductID,
		TransactionID: sess.TransactionID(),
		PurchaseDate:  sess.Created,
	}, nil
}
