package manualpayment

import "github.com/google/uuid"

// SubmitRequest for POST /manual-payments
type SubmitRequest struct {
	Amount         float64    `json:"amount" validate:"required,gt=0"`
	Currency       string     `json:"currency" validate:"required,currency"`
	SenderPhone    string     `json:"sender_phone" validate:"required,max=64"`
	TransactionRef string     `json:"transaction_ref" validate:"omitempty,max=64"`
	ListingType    string     `json:"listing_type" validate:"required,listing_type"`
	PropertyID     *uuid.UUID `json:"property_id"`
}

// RejectRequest for POST /admin/manual-payments/{id}/reject
type RejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// PaymentResponse is a payment as shown to its submitter
type PaymentResponse struct {
	*Payment
	CompletedAt     *string `json:"completed_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

// SubmitResponse tells the user where the transfer goes
type SubmitResponse struct {
	PaymentResponse
	ReceiverPhone string `json:"receiver_phone,omitempty"`
}

// PaymentResponseFromEntity converts entity to response
func PaymentResponseFromEntity(p *Payment) PaymentResponse {
	resp := PaymentResponse{Payment: p}
	if p.CompletedAt.Valid {
		at := p.CompletedAt.Time.Format("2006-01-02T15:04:05Z07:00")
		resp.CompletedAt = &at
	}
	if p.RejectionReason.Valid {
		reason := p.RejectionReason.String
		resp.RejectionReason = &reason
	}
	return resp
}
