package purchase

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/response"
	"github.com/lazone/lazone-api/internal/pkg/stripepay"
)

const maxWebhookBodyBytes = 64 << 10

// webhookParser verifies and decodes Stripe webhook payloads.
type webhookParser interface {
	ParseWebhook(payload []byte, signature string) (*stripepay.Event, error)
}

// sessionReconciler credits paid checkout sessions.
type sessionReconciler interface {
	ReconcileStripeSession(ctx context.Context, sess *stripepay.Session) (*Result, error)
}

// WebhookHandler receives Stripe events
type WebhookHandler struct {
	parser  webhookParser
	service sessionReconciler
}

// NewWebhookHandler creates Stripe webhook handler
func NewWebhookHandler(parser webhookParser, service sessionReconciler) *WebhookHandler {
	return &WebhookHandler{parser: parser, service: service}
}

// ServeHTTP handles POST /webhooks/stripe.
// Only storage failures answer 5xx, so Stripe retries those and nothing else.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		response.BadRequest(w, "Unreadable body")
		return
	}

	event, err := h.parser.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, stripepay.ErrNotConfigured) {
			response.ServiceUnavailable(w, "Webhook not configured")
			return
		}
		log.Warn().Err(err).Msg("stripe webhook rejected")
		response.BadRequest(w, "Invalid Stripe signature")
		return
	}

	if event.Type != stripepay.EventCheckoutCompleted || event.Session == nil {
		response.OK(w, map[string]string{"status": "ignored"})
		return
	}

	res, err := h.service.ReconcileStripeSession(r.Context(), event.Session)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			response.ServiceUnavailable(w, "Temporary failure")
			return
		}
		log.Warn().
			Err(err).
			Str("event_id", event.ID).
			Str("session_id", event.Session.ID).
			Msg("stripe session not credited")
		response.OK(w, map[string]string{"status": "skipped"})
		return
	}

	log.Info().
		Str("event_id", event.ID).
		Str("entry_id", res.Entry.ID.String()).
		Bool("created", res.Created).
		Msg("stripe webhook processed")
	response.OK(w, map[string]string{"status": "processed"})
}
