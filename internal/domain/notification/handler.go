package notification

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/response"
	"github.com/lazone/lazone-api/internal/pkg/validator"
)

// Handler serves the authenticated user's notification inbox
type Handler struct {
	service *Service
}

// NewHandler creates notification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Inbox handles GET /notifications?limit=&offset=&unread=
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	q, details := parseInboxQuery(r.URL.Query())
	if details == nil {
		details = validator.Validate(&q)
	}
	if details != nil {
		response.ValidationError(w, details)
		return
	}

	inbox, err := h.service.Inbox(r.Context(), middleware.GetUserID(r.Context()), q.Page())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, InboxResponseFromInbox(inbox))
}

// UnreadCount handles GET /notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, UnreadCountResponse{UnreadCount: count})
}

// MarkAsRead handles POST /notifications/{id}/read
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}
	if err := h.service.MarkAsRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "read"})
}

// MarkAllAsRead handles POST /notifications/read-all
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllAsRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, MarkAllResponse{Marked: n})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		response.NotFound(w, "Notification not found")
	case errors.Is(err, ErrStorage):
		logger.FromContext(r.Context()).Error().Err(err).Msg("notification storage failure")
		response.ServiceUnavailable(w, "Notifications are temporarily unavailable")
	default:
		response.InternalError(w)
	}
}

// parseInboxQuery reads paging parameters; malformed numbers come back as field errors.
func parseInboxQuery(v url.Values) (InboxQuery, map[string]string) {
	var q InboxQuery
	details := map[string]string{}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			details["limit"] = "Must be a whole number"
		}
		q.Limit = n
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			details["offset"] = "Must be a whole number"
		}
		q.Offset = n
	}
	if s := v.Get("unread"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			details["unread"] = "Must be true or false"
		}
		q.Unread = b
	}
	if len(details) == 0 {
		return q, nil
	}
	return q, details
}

// Routes returns notification router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Inbox)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/{id}/read", h.MarkAsRead)
	r.Post("/read-all", h.MarkAllAsRead)

	return r
}
