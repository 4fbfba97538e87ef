package validator

import "testing"

type submitForm struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required,currency"`
	SenderPhone string  `json:"sender_phone" validate:"required"`
	ListingType string  `json:"listing_type" validate:"required,listing_type"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(&submitForm{Amount: 0, Currency: "xof", ListingType: "villa"})
	for _, field := range []string{"amount", "currency", "sender_phone", "listing_type"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
}

func TestValidateAcceptsValidForm(t *testing.T) {
	errs := Validate(&submitForm{Amount: 1000, Currency: "XOF", SenderPhone: "+22500000000", ListingType: "rent"})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
