package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultCredits is granted for unknown products. Never zero.
const DefaultCredits = 1

// subscriptionMarker is the product-id segment that identifies recurring products.
const subscriptionMarker = "subscription"

// Catalog is the immutable product table shared by display code and reconciliation.
type Catalog struct {
	products map[string]Product
}

// New builds a catalog from products. Later duplicates win.
func New(products ...Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.Credits < DefaultCredits {
			p.Credits = DefaultCredits
		}
		c.products[p.ID] = p
	}
	return c
}

// Default returns the production catalog.
func Default() *Catalog {
	return New(
		Product{
			ID: "pack1", Name: "1 annonce", Credits: 1,
			Prices: prices(2000, 2.99, 2.99),
		},
		Product{
			ID: "pack5", Name: "5 annonces", Credits: 5,
			Prices: prices(8000, 11.99, 11.99),
		},
		Product{
			ID: "pack10", Name: "10 annonces", Credits: 10,
			Prices: prices(15000, 21.99, 21.99),
		},
		Product{
			ID: "subscription.pro.monthly", Name: "Pro mensuel", Credits: 15,
			IsSubscription: true, Tier: TierPro,
			Prices: prices(20000, 29.99, 29.99),
		},
		Product{
			ID: "subscription.premium.monthly", Name: "Premium mensuel", Credits: 40,
			IsSubscription: true, Tier: TierPremium,
			Prices: prices(45000, 69.99, 69.99),
		},
	)
}

func prices(xof, storeEUR, webEUR float64) map[Storefront]Price {
	return map[Storefront]Price{
		StorefrontMobileMoney: {Amount: xof, Currency: "XOF", Display: fmt.Sprintf("%.0f FCFA", xof)},
		StorefrontAppStore:    {Amount: storeEUR, Currency: "EUR", Display: fmt.Sprintf("%.2f €", storeEUR)},
		StorefrontWeb:         {Amount: webEUR, Currency: "EUR", Display: fmt.Sprintf("%.2f €", webEUR)},
	}
}

// Get returns the product with id.
func (c *Catalog) Get(productID string) (Product, bool) {
	p, ok := c.products[productID]
	return p, ok
}

// List returns all products ordered by id.
func (c *Catalog) List() []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PackForAmount returns the largest credit pack sold on storefront whose price
// in currency is at most amount. When nothing is affordable it returns the
// smallest pack. ok is false only when storefront sells no packs.
func (c *Catalog) PackForAmount(storefront Storefront, amount float64, currency string) (Product, bool) {
	var best, smallest Product
	var haveBest, haveSmallest bool
	for _, p := range c.List() {
		if p.IsSubscription {
			continue
		}
		price, ok := p.Prices[storefront]
		if !ok {
			continue
		}
		if !haveSmallest || p.Credits < smallest.Credits {
			smallest, haveSmallest = p, true
		}
		if !strings.EqualFold(price.Currency, currency) || price.Amount > amount {
			continue
		}
		if !haveBest || p.Credits > best.Credits {
			best, haveBest = p, true
		}
	}
	if haveBest {
		return best, true
	}
	return smallest, haveSmallest
}

// CreditsFor returns the credit yield of productID, DefaultCredits if unknown.
func (c *Catalog) CreditsFor(productID string) int {
	if p, ok := c.products[productID]; ok {
		return p.Credits
	}
	return DefaultCredits
}

// IsSubscription reports whether productID is a recurring product.
// Unknown ids fall back to the naming convention.
func (c *Catalog) IsSubscription(productID string) bool {
	if p, ok := c.products[productID]; ok {
		return p.IsSubscription
	}
	return hasSubscriptionMarker(productID)
}

// TierFor returns the subscription tier of productID.
// Unknown subscription ids are matched by name, premium before pro.
func (c *Catalog) TierFor(productID string) Tier {
	if p, ok := c.products[productID]; ok {
		return p.Tier
	}
	if !hasSubscriptionMarker(productID) {
		return TierNone
	}
	id := strings.ToLower(productID)
	switch {
	case strings.Contains(id, string(TierPremium)):
		return TierPremium
	case strings.Contains(id, string(TierPro)):
		return TierPro
	}
	return TierNone
}

// PriceFor returns the display price of productID on storefront.
func (c *Catalog) PriceFor(productID string, storefront Storefront) (Price, bool) {
	p, ok := c.products[productID]
	if !ok {
		return Price{}, false
	}
	price, ok := p.Prices[storefront]
	return price, ok
}

func hasSubscriptionMarker(productID string) bool {
	for _, segment := range strings.FieldsFunc(strings.ToLower(productID), isSegmentSeparator) {
		if segment == subscriptionMarker {
			return true
		}
	}
	return false
}

func isSegmentSeparator(r rune) bool {
	return r == '.' || r == '_' || r == '-'
}
