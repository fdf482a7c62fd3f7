package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/api/validators"
	"github.com/angelmondragon/chatcart-backend/internal/payments"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// PaymentConfirmer reconciles a payment-success event with a conversation.
type PaymentConfirmer interface {
	ConfirmByLink(ctx context.Context, paymentLinkID string) (*payments.ConfirmResult, error)
	ConfirmByPhone(ctx context.Context, phone string) (*payments.ConfirmResult, error)
}

// paymentWebhookBody is the provider event shape; only the event name and the
// payment link id are consumed.
type paymentWebhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

// PaymentWebhook verifies and processes payment provider events. The
// signature is recomputed over the exact raw body; verification being
// disabled or unconfigured makes every event a no-op, never a trusted one.
func PaymentWebhook(cfg config.RazorpayConfig, confirmer PaymentConfirmer, chatStats *metrics.ChatMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if confirmer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment confirmer unavailable"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !cfg.WebhookEnabled || cfg.WebhookSecret == "" {
			chatStats.IncWebhook("ignored")
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		signature := r.Header.Get(razorpaySignatureHeader)
		if !payments.VerifySignature(cfg.WebhookSecret, rawBody, signature) {
			chatStats.IncWebhook("rejected_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var body paymentWebhookBody
		if err := json.Unmarshal(rawBody, &body); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		if body.Event != payments.EventPaymentLinkPaid {
			chatStats.IncWebhook("ignored_event")
			responses.WriteSuccess(w, map[string]string{"status": "ignored", "event": body.Event})
			return
		}

		result, err := confirmer.ConfirmByLink(ctx, body.Payload.PaymentLink.Entity.ID)
		if err != nil {
			chatStats.IncWebhook("failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.AlreadyProcessed {
			chatStats.IncWebhook("already_processed")
		} else {
			chatStats.IncWebhook("invoiced")
		}
		responses.WriteSuccess(w, result)
	}
}

type mockPaymentRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// MockPaymentSuccess triggers the confirmation pipeline without a provider
// event. Only mounted when the mock payment provider is active.
func MockPaymentSuccess(confirmer PaymentConfirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if confirmer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment confirmer unavailable"))
			return
		}

		var body mockPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := confirmer.ConfirmByPhone(ctx, body.Phone)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
