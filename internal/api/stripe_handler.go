package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	apperrors "motorent/internal/errors"
	"motorent/internal/service"
)

// StripeWebhookHandler receives checkout session outcomes. Delivery is
// at-least-once; the payment service makes the effects exactly-once,
// so replays answer 200 without side effects.
type StripeWebhookHandler struct {
	WebhookSecret  string
	paymentService *service.PaymentService
}

func NewStripeWebhookHandler(webhookSecret string, paymentService *service.PaymentService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		WebhookSecret:  webhookSecret,
		paymentService: paymentService,
	}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.WebhookSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		sess, ok := h.parseSession(w, event)
		if !ok {
			return
		}
		paymentIntentID := ""
		if sess.PaymentIntent != nil {
			paymentIntentID = sess.PaymentIntent.ID
		}
		if err := h.paymentService.ConfirmPayment(sess.ID, paymentIntentID, string(event.Type)); err != nil {
			h.handleServiceError(w, sess.ID, err)
			return
		}

	case "checkout.session.expired", "checkout.session.async_payment_failed":
		sess, ok := h.parseSession(w, event)
		if !ok {
			return
		}
		if err := h.paymentService.MarkPaymentFailed(sess.ID, string(event.Type)); err != nil {
			h.handleServiceError(w, sess.ID, err)
			return
		}

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) parseSession(w http.ResponseWriter, event stripe.Event) (*stripe.CheckoutSession, bool) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Printf("Error parsing checkout.session: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	if sess.ID == "" {
		log.Printf("No session ID in %s", event.Type)
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	return &sess, true
}

// handleServiceError keeps unknown sessions and rejected transitions
// from triggering endless gateway retries; only genuine server faults
// answer 5xx.
func (h *StripeWebhookHandler) handleServiceError(w http.ResponseWriter, sessionID string, err error) {
	if apperrors.IsKind(err, apperrors.KindNotFound) || apperrors.IsKind(err, apperrors.KindIllegalTransition) {
		log.Printf("Ignoring webhook for session %s: %v", sessionID, err)
		w.WriteHeader(http.StatusOK)
		return
	}
	log.Printf("DB error for session %s: %v", sessionID, err)
	w.WriteHeader(http.StatusInternalServerError)
}
