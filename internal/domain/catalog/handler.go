package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazone/lazone-api/internal/pkg/response"
)

// ProductResponse is a catalog entry priced for one storefront
type ProductResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Credits        int    `json:"credits"`
	IsSubscription bool   `json:"is_subscription"`
	Tier           Tier   `json:"tier,omitempty"`
	Price          *Price `json:"price,omitempty"`
}

// Handler serves the product catalog
type Handler struct {
	catalog *Catalog
}

// NewHandler creates catalog handler
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// List handles GET /catalog?storefront=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	storefront := Storefront(r.URL.Query().Get("storefront"))
	if storefront == "" {
		storefront = StorefrontWeb
	}
	if !storefront.Valid() {
		response.BadRequest(w, "Unknown storefront")
		return
	}

	products := h.catalog.List()
	items := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		item := ProductResponse{
			ID:             p.ID,
			Name:           p.Name,
			Credits:        p.Credits,
			IsSubscription: p.IsSubscription,
			Tier:           p.Tier,
		}
		if price, ok := p.Prices[storefront]; ok {
			item.Price = &price
		}
		items = append(items, item)
	}

	response.OK(w, items)
}

// Routes returns catalog router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}
