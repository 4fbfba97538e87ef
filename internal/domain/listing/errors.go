package listing

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrNotListingOwner = errors.New("only the owner can publish this listing")
	// ErrPublishInProgress is returned while another request holds the publish claim.
	ErrPublishInProgress = errors.New("listing is already being published")
)
