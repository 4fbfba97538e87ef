package manualpayment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/listing"
	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/response"
	"github.com/lazone/lazone-api/internal/pkg/validator"
)

// Handler handles manual payment HTTP requests
type Handler struct {
	service       *Service
	receiverPhone string
}

// NewHandler creates manual payment handler. receiverPhone is the mobile-money
// number users transfer to.
func NewHandler(service *Service, receiverPhone string) *Handler {
	return &Handler{service: service, receiverPhone: receiverPhone}
}

// Submit handles POST /manual-payments
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.Submit(r.Context(), SubmitInput{
		UserID:         middleware.GetUserID(r.Context()),
		Amount:         req.Amount,
		Currency:       req.Currency,
		SenderPhone:    req.SenderPhone,
		TransactionRef: req.TransactionRef,
		ListingType:    listing.Type(req.ListingType),
		PropertyID:     req.PropertyID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, SubmitResponse{
		PaymentResponse: PaymentResponseFromEntity(p),
		ReceiverPhone:   h.receiverPhone,
	})
}

// ListMine handles GET /manual-payments
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = PaymentResponseFromEntity(p)
	}
	response.OK(w, items)
}

// ListForReview handles GET /admin/manual-payments?status=&listing_type=
func (h *Handler) ListForReview(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	if status == "" {
		status = StatusPending
	}

	items, err := h.service.ListByStatus(r.Context(), status, r.URL.Query().Get("listing_type"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, items)
}

// Approve handles POST /admin/manual-payments/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	p, err := h.service.Approve(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, PaymentResponseFromEntity(p))
}

// Reject handles POST /admin/manual-payments/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	var req RejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
		if errs := validator.Validate(&req); errs != nil {
			response.ValidationError(w, errs)
			return
		}
	}

	p, err := h.service.Reject(r.Context(), id, middleware.GetUserID(r.Context()), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, PaymentResponseFromEntity(p))
}

// Routes returns the submitter's router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Submit)
	r.Get("/", h.ListMine)

	return r
}

// AdminRoutes returns the review router
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())

	r.Get("/", h.ListForReview)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)

	return r
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(w, "Please sign in")
	case errors.Is(err, ErrInvalidPayment):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrPaymentNotFound):
		response.NotFound(w, "Payment not found")
	case errors.Is(err, listing.ErrListingNotFound):
		response.NotFound(w, "Listing not found")
	case errors.Is(err, listing.ErrNotListingOwner):
		response.Forbidden(w, "You can only pay for your own listings")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(w, ErrInvalidTransition.Error())
	default:
		response.InternalError(w)
	}
}
