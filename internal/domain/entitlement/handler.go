package entitlement

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/response"
)

// Handler serves entitlement summaries
type Handler struct {
	service *Service
}

// NewHandler creates entitlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Summary handles GET /entitlements
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetEntitlementSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			response.NotFound(w, "Account not found")
			return
		}
		response.ServiceUnavailable(w, "Entitlements are temporarily unavailable")
		return
	}
	response.OK(w, summary)
}

// Routes returns entitlement router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Summary)

	return r
}
