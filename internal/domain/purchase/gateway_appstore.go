package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/pkg/appstore"
)

// receiptVerifier is the subset of appstore.Client used by the gateway.
type receiptVerifier interface {
	VerifyReceipt(ctx context.Context, receiptData string) (*appstore.Receipt, error)
}

// AppStoreGateway verifies native in-app purchases through Apple receipts
type AppStoreGateway struct {
	client receiptVerifier
}

// NewAppStoreGateway creates App Store gateway
func NewAppStoreGateway(client receiptVerifier) *AppStoreGateway {
	return &AppStoreGateway{client: client}
}

func (g *AppStoreGateway) Rail() ledger.Rail { return ledger.RailAppStore }

func (g *AppStoreGateway) Initialize(context.Context) (Capabilities, error) {
	if g.client == nil {
		return Capabilities{}, fmt.Errorf("%w: app store client missing", ErrRailDisabled)
	}
	return Capabilities{Rail: ledger.RailAppStore, CanRestore: true}, nil
}

// Verify requires the claimed transaction to be present in a valid receipt.
func (g *AppStoreGateway) Verify(ctx context.Context, claim Claim) (*VerifiedPurchase, error) {
	if claim.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", ErrInvalidRequest)
	}

	receipt, err := g.verify(ctx, claim.ReceiptData)
	if err != nil {
		return nil, err
	}

	tx, ok := receipt.FindTransaction(claim.TransactionID)
	if !ok || tx.Cancelled {
		return nil, ErrVerificationFailed
	}
	if claim.ProductID != "" && tx.ProductID != claim.ProductID {
		return nil, ErrVerificationFailed
	}

	vp := verifiedFromTransaction(tx)
	return &vp, nil
}

// VerifyAll returns every non-cancelled purchase in the receipt.
func (g *AppStoreGateway) VerifyAll(ctx context.Context, _ uuid.UUID, receiptData string) ([]VerifiedPurchase, error) {
	receipt, err := g.verify(ctx, receiptData)
	if err != nil {
		return nil, err
	}

	out := make([]VerifiedPurchase, 0, len(receipt.Transactions))
	for _, tx := range receipt.Transactions {
		if tx.Cancelled {
			continue
		}
		out = append(out, verifiedFromTransaction(tx))
	}
	return out, nil
}

func (g *AppStoreGateway) verify(ctx context.Context, receiptData string) (*appstore.Receipt, error) {
	receipt, err := g.client.VerifyReceipt(ctx, receiptData)
	if err != nil {
		switch {
		case errors.Is(err, appstore.ErrUnavailable):
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
	}
	return receipt, nil
}

func verifiedFromTransaction(tx appstore.Transaction) VerifiedPurchase {
	vp := VerifiedPurchase{
		ProductID:      tx.ProductID,
		TransactionID:  tx.TransactionID,
		PurchaseDate:   tx.PurchaseDate,
		ExpirationDate: tx.ExpiresDate,
	}
	if tx.OriginalTransactionID != "" && tx.OriginalTransactionID != tx.TransactionID {
		original := tx.OriginalTransactionID
		vp.OriginalTransactionID = &original
	}
	return vp
}
