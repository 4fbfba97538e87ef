package purchase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/pkg/stripepay"
)

// Capabilities describes what an initialized gateway supports.
type Capabilities struct {
	Rail        ledger.Rail `json:"rail"`
	CanCheckout bool        `json:"can_checkout"`
	CanRestore  bool        `json:"can_restore"`
	Webhooks    bool        `json:"webhooks"`
}

// Claim is what a client presents as proof of payment.
type Claim struct {
	UserID        uuid.UUID
	ProductID     string
	TransactionID string
	SessionID     string // Stripe checkout session
	ReceiptData   string // App Store receipt, base64
}

// VerifiedPurchase is a purchase confirmed server-side by the rail.
type VerifiedPurchase struct {
	ProductID             string
	TransactionID         string
	OriginalTransactionID *string
	PurchaseDate          time.Time
	ExpirationDate        *time.Time
}

// PaymentGateway verifies client claims against one payment rail.
// Gateways are constructed once per process and registered on the Service.
type PaymentGateway interface {
	Rail() ledger.Rail
	Initialize(ctx context.Context) (Capabilities, error)
	Verify(ctx context.Context, claim Claim) (*VerifiedPurchase, error)
}

// Restorer is implemented by gateways that can list every purchase in a receipt.
type Restorer interface {
	VerifyAll(ctx context.Context, userID uuid.UUID, receiptData string) ([]VerifiedPurchase, error)
}

// CheckoutStarter is implemented by gateways with a hosted checkout page.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, userID uuid.UUID, product catalog.Product) (*stripepay.Checkout, error)
}
