package listing

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/entitlement"
	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/response"
)

// Handler handles listing HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates listing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Publish handles POST /listings/{id}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid listing ID")
		return
	}

	result, err := h.service.Publish(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(w, "Listing not found")
		case errors.Is(err, ErrNotListingOwner):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrPublishInProgress):
			response.Conflict(w, err.Error())
		case errors.Is(err, entitlement.ErrUnknownUser):
			response.NotFound(w, "Account not found")
		default:
			response.ServiceUnavailable(w, "Could not publish listing, please retry")
		}
		return
	}

	if !result.Published {
		response.PaymentRequired(w, "INSUFFICIENT_CREDITS", "No publishing credits left. Purchase a pack or a subscription to continue.")
		return
	}

	response.OK(w, result.Listing)
}

// Routes returns listing router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/{id}/publish", h.Publish)

	return r
}
