package purchase

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/response"
	"github.com/lazone/lazone-api/internal/pkg/validator"
)

// Handler handles purchase HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates purchase handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Checkout handles POST /purchases/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := h.service.StartCheckout(r.Context(), middleware.GetUserID(r.Context()), req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, out)
}

// ConfirmStripe handles POST /purchases/stripe/confirm
func (h *Handler) ConfirmStripe(w http.ResponseWriter, r *http.Request) {
	var req StripeConfirmRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.VerifyAndReconcile(r.Context(), ledger.RailStripe, Claim{
		UserID:    middleware.GetUserID(r.Context()),
		SessionID: req.SessionID,
	}, false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

// ConfirmIAP handles POST /purchases/iap
func (h *Handler) ConfirmIAP(w http.ResponseWriter, r *http.Request) {
	var req IAPRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.VerifyAndReconcile(r.Context(), ledger.RailAppStore, Claim{
		UserID:        middleware.GetUserID(r.Context()),
		ProductID:     req.ProductID,
		TransactionID: req.TransactionID,
		ReceiptData:   req.ReceiptData,
	}, req.IsRestore)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

// Restore handles POST /purchases/restore
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decode(w, r, &req) {
		return
	}

	items, err := h.service.Restore(r.Context(), middleware.GetUserID(r.Context()), ledger.RailAppStore, req.ReceiptData, req.TransactionIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	restored := 0
	for _, item := range items {
		if item.Error == "" {
			restored++
		}
	}
	response.OK(w, RestoreResponse{Items: items, Restored: restored})
}

// List handles GET /purchases
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListEntries(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, entries)
}

// Revoke handles POST /admin/ledger/{id}/revoke
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ledger entry ID")
		return
	}

	entry, err := h.service.Revoke(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, entry)
}

// Routes returns purchase router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/checkout", h.Checkout)
	r.Post("/stripe/confirm", h.ConfirmStripe)
	r.Post("/iap", h.ConfirmIAP)
	r.Post("/restore", h.Restore)

	return r
}

// AdminRoutes returns ledger administration router
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())

	r.Post("/{id}/revoke", h.Revoke)

	return r
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(v); errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, res *Result) {
	if res.Created {
		response.Created(w, res)
		return
	}
	response.OK(w, res)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(w, "Please sign in")
	case errors.Is(err, ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnknownProduct):
		response.BadRequest(w, "Unknown product")
	case errors.Is(err, ErrFraudAttempt):
		response.Error(w, http.StatusConflict, "PURCHASE_NOT_VERIFIED", ErrFraudAttempt.Error())
	case errors.Is(err, ErrVerificationFailed):
		response.Error(w, http.StatusUnprocessableEntity, "PURCHASE_NOT_VERIFIED", ErrFraudAttempt.Error())
	case errors.Is(err, ledger.ErrEntryNotFound):
		response.NotFound(w, "Ledger entry not found")
	case errors.Is(err, ErrUnknownAccount):
		response.NotFound(w, "Account not found")
	case errors.Is(err, ErrRailDisabled):
		response.ServiceUnavailable(w, ErrRailDisabled.Error())
	case errors.Is(err, ErrStorage), errors.Is(err, ErrGatewayUnavailable), errors.Is(err, ledger.ErrStorage):
		response.ServiceUnavailable(w, "Temporary failure, please retry")
	default:
		response.InternalError(w)
	}
}
