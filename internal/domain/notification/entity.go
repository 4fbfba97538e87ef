package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypePaymentApproved     Type = "payment_approved"     // Manual payment validated by admin
	TypePaymentRejected     Type = "payment_rejected"     // Manual payment refused by admin
	TypePurchaseCompleted   Type = "purchase_completed"   // Credits granted after reconciliation
	TypeSubscriptionStarted Type = "subscription_started" // Subscription purchase reconciled
)

// Notification represents a user notification
type Notification struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Type      Type           `db:"type" json:"type"`
	ActorID   *uuid.UUID     `db:"actor_id" json:"actor_id,omitempty"`
	EntityID  *uuid.UUID     `db:"entity_id" json:"entity_id,omitempty"`
	Title     string         `db:"title" json:"title"`
	Body      sql.NullString `db:"body" json:"body,omitempty"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime   `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// copyFor returns title and body shown to the user for a notification type.
func copyFor(t Type) (title, body string) {
	switch t {
	case TypePaymentApproved:
		return "Paiement validé", "Votre paiement mobile money a été validé."
	case TypePaymentRejected:
		return "Paiement refusé", "Votre paiement mobile money n'a pas pu être validé."
	case TypePurchaseCompleted:
		return "Achat confirmé", "Vos crédits de publication sont disponibles."
	case TypeSubscriptionStarted:
		return "Abonnement activé", "Votre abonnement est actif pour un mois."
	default:
		return string(t), ""
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page selects a window of a user's notifications, newest first.
type Page struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// Inbox is one page of notifications plus the user's unread total.
type Inbox struct {
	Items  []*Notification
	Unread int
	Page   Page
}
