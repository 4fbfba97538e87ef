package purchase

// CheckoutRequest for POST /purchases/checkout
type CheckoutRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// StripeConfirmRequest for POST /purchases/stripe/confirm
type StripeConfirmRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// IAPRequest for POST /purchases/iap
type IAPRequest struct {
	ProductID             string `json:"product_id" validate:"required"`
	TransactionID         string `json:"transaction_id" validate:"required"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ReceiptData           string `json:"receipt_data" validate:"required"`
	IsRestore             bool   `json:"is_restore"`
}

// RestoreRequest for POST /purchases/restore
type RestoreRequest struct {
	ReceiptData    string   `json:"receipt_data" validate:"required"`
	TransactionIDs []string `json:"transaction_ids" validate:"omitempty,dive,required"`
}

// RestoreResponse lists per-transaction outcomes
type RestoreResponse struct {
	Items    []RestoreItem `json:"items"`
	Restored int           `json:"restored"`
}
