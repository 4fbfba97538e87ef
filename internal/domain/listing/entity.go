package listing

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Type represents listing type
type Type string

const (
	TypeSale      Type = "sale"
	TypeRent      Type = "rent"
	TypeShortStay Type = "short_stay"
)

// Listing is a published or draft property listing
type Listing struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	OwnerID     uuid.UUID    `db:"owner_id" json:"owner_id"`
	Title       string       `db:"title" json:"title"`
	ListingType Type         `db:"listing_type" json:"listing_type"`
	IsActive    bool         `db:"is_active" json:"is_active"`
	ActivatedAt sql.NullTime `db:"activated_at" json:"-"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// IsOwnedBy checks listing ownership
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}
