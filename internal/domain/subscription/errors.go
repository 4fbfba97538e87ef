package subscription

import "errors"

var (
	ErrInvalidTier = errors.New("subscription tier must be pro or premium")
)
