package manualpayment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/listing"
)

// Status represents manual payment status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Payment is a mobile-money transfer claimed by a user, awaiting admin review.
// Nothing about it is trusted until an administrator approves it.
type Payment struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	UserID          uuid.UUID      `db:"user_id" json:"user_id"`
	Amount          float64        `db:"amount" json:"amount"`
	Currency        string         `db:"currency" json:"currency"`
	SenderPhone     string         `db:"sender_phone" json:"sender_phone"`
	TransactionRef  string         `db:"transaction_ref" json:"transaction_ref"`
	ListingType     listing.Type   `db:"listing_type" json:"listing_type"`
	PropertyID      uuid.NullUUID  `db:"property_id" json:"property_id,omitempty"`
	Status          Status         `db:"status" json:"status"`
	ReviewedBy      uuid.NullUUID  `db:"reviewed_by" json:"-"`
	RejectionReason sql.NullString `db:"rejection_reason" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	CompletedAt     sql.NullTime   `db:"completed_at" json:"-"`
}

// IsPending checks if payment still awaits review
func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}

// ReviewItem is a payment joined with its submitter for the admin queue
type ReviewItem struct {
	Payment
	SubmitterName  string `db:"submitter_name" json:"submitter_name"`
	SubmitterEmail string `db:"submitter_email" json:"submitter_email"`
}

// SubmitInput is the user's claim of a completed transfer
type SubmitInput struct {
	UserID      uuid.UUID
	Amount      float64
	Currency    string
	SenderPhone string

	// TransactionRef is the client's own reference, generated when empty
	TransactionRef string
	ListingType    listing.Type
	PropertyID     *uuid.UUID
}
