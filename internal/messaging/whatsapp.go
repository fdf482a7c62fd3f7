package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
)

// WhatsAppTransport sends messages through the Meta Graph API.
type WhatsAppTransport struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewWhatsAppTransport(cfg config.WhatsAppConfig) (*WhatsAppTransport, error) {
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp token and phone number id are required")
	}
	return &WhatsAppTransport{
		baseURL: fmt.Sprintf("%s/%s", cfg.GraphBaseURL, cfg.PhoneNumberID),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (t *WhatsAppTransport) SendText(ctx context.Context, to, body string) error {
	return t.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
}

func (t *WhatsAppTransport) SendSelectionList(ctx context.Context, to string, list SelectionList) error {
	sections := make([]map[string]any, 0, len(list.Sections))
	for _, section := range list.Sections {
		rows := make([]map[string]string, 0, len(section.Rows))
		for _, row := range section.Rows {
			entry := map[string]string{"id": row.ID, "title": row.Title}
			if row.Description != "" {
				entry["description"] = row.Description
			}
			rows = append(rows, entry)
		}
		sections = append(sections, map[string]any{"title": section.Title, "rows": rows})
	}

	return t.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "list",
			"header": map[string]string{"type": "text", "text": list.Header},
			"body":   map[string]string{"text": list.Body},
			"action": map[string]any{
				"button":   list.Button,
				"sections": sections,
			},
		},
	})
}

func (t *WhatsAppTransport) SendButtonGroup(ctx context.Context, to string, group ButtonGroup) error {
	buttons := make([]map[string]any, 0, len(group.Buttons))
	for _, button := range group.Buttons {
		buttons = append(buttons, map[string]any{
			"type":  "reply",
			"reply": map[string]string{"id": button.ID, "title": button.Title},
		})
	}

	return t.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]string{"text": group.Body},
			"action": map[string]any{"buttons": buttons},
		},
	})
}

func (t *WhatsAppTransport) SendDocument(ctx context.Context, to string, doc Document) error {
	return t.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "document",
		"document": map[string]string{
			"link":     doc.URL,
			"filename": doc.Filename,
			"caption":  doc.Caption,
		},
	})
}

func (t *WhatsAppTransport) post(ctx context.Context, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode message payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build message request")
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("graph api responded %d: %s", resp.StatusCode, string(body)))
	}
	return nil
}
