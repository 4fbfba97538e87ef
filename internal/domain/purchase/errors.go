package purchase

import "errors"

var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrInvalidRequest = errors.New("product_id and transaction_id are required")
	// ErrFraudAttempt never names the account that owns the transaction.
	ErrFraudAttempt       = errors.New("this purchase could not be verified")
	ErrStorage            = errors.New("purchase storage unavailable, retry later")
	ErrUnknownProduct     = errors.New("unknown product")
	ErrVerificationFailed = errors.New("purchase rejected by the payment provider")
	ErrGatewayUnavailable = errors.New("payment provider unavailable, retry later")
	ErrRailDisabled       = errors.New("payment method not available")
	// ErrUnknownAccount means the buyer has no account row; retrying cannot help.
	ErrUnknownAccount = errors.New("account not found")
)
