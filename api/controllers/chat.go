package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/api/validators"
	"github.com/angelmondragon/chatcart-backend/internal/flow"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// ChatEngine processes one normalized inbound event.
type ChatEngine interface {
	Process(ctx context.Context, ev flow.InboundEvent) (*flow.Result, error)
}

// metaWebhookBody is the raw channel payload shape; only the first message of
// the first change is consumed.
type metaWebhookBody struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []metaMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type metaMessage struct {
	From string `json:"from"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type      string `json:"type"`
		ListReply *struct {
			ID string `json:"id"`
		} `json:"list_reply"`
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

func (m metaMessage) normalize() flow.InboundEvent {
	ev := flow.InboundEvent{From: m.From}
	if m.Text != nil {
		ev.Text = m.Text.Body
	}
	if m.Interactive != nil {
		switch m.Interactive.Type {
		case "list_reply":
			if m.Interactive.ListReply != nil {
				ev.InteractiveReplyID = m.Interactive.ListReply.ID
			}
		case "button_reply":
			if m.Interactive.ButtonReply != nil {
				ev.InteractiveReplyID = m.Interactive.ButtonReply.ID
			}
		}
	}
	return ev
}

// VerifyChatWebhook answers the channel's subscription handshake.
func VerifyChatWebhook(cfg config.WhatsAppConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")

		if mode == "subscribe" && token != "" && token == cfg.VerifyToken {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(challenge))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}
}

// ChatWebhook receives raw channel payloads, normalizes the first message, and
// runs it through the engine. Payloads without a message are acknowledged so
// the channel does not retry status callbacks.
func ChatWebhook(engine ChatEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if engine == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat engine unavailable"))
			return
		}

		// Channel payloads carry plenty of fields beyond what the engine
		// consumes (statuses, contacts, metadata), so decode leniently.
		var body metaWebhookBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		msg, ok := firstMessage(body)
		if !ok {
			responses.WriteSuccess(w, map[string]string{"reason": "no_message"})
			return
		}

		result, err := engine.Process(ctx, msg.normalize())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type simulatedMessage struct {
	From    string `json:"from" validate:"required"`
	Text    string `json:"text,omitempty"`
	ReplyID string `json:"reply_id,omitempty"`
}

// SimulateInbound feeds a hand-written event through the engine without the
// channel payload wrapping. Only mounted when the mock transport is active.
func SimulateInbound(engine ChatEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if engine == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat engine unavailable"))
			return
		}

		var body simulatedMessage
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := engine.Process(ctx, flow.InboundEvent{
			From:               body.From,
			Text:               body.Text,
			InteractiveReplyID: body.ReplyID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func firstMessage(body metaWebhookBody) (metaMessage, bool) {
	if len(body.Entry) == 0 || len(body.Entry[0].Changes) == 0 {
		return metaMessage{}, false
	}
	messages := body.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return metaMessage{}, false
	}
	return messages[0], true
}
