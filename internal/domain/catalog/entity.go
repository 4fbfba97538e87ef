package catalog

// Tier is the subscription level granted by a product.
type Tier string

const (
	TierNone    Tier = ""
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// Storefront is where a price is displayed.
type Storefront string

const (
	// StorefrontMobileMoney is the manual mobile-money rail, priced in local currency.
	StorefrontMobileMoney Storefront = "mobile_money"
	// StorefrontAppStore is the native in-app purchase store.
	StorefrontAppStore Storefront = "app_store"
	// StorefrontWeb is the Stripe card checkout.
	StorefrontWeb Storefront = "web"
)

// Valid reports whether s is a known storefront.
func (s Storefront) Valid() bool {
	switch s {
	case StorefrontMobileMoney, StorefrontAppStore, StorefrontWeb:
		return true
	}
	return false
}

// Price is a displayable price in minor-unit-free decimal form.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Display  string  `json:"display"`
}

// Product is a purchasable credit pack or subscription.
type Product struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Credits        int                  `json:"credits"`
	IsSubscription bool                 `json:"is_subscription"`
	Tier           Tier                 `json:"tier,omitempty"`
	Prices         map[Storefront]Price `json:"prices"`
}
