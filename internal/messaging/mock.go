package messaging

import (
	"context"

	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// MockTransport logs outbound messages instead of delivering them. Used by
// the local simulator so the whole purchase flow runs without Meta access.
type MockTransport struct {
	logg *logger.Logger
}

func NewMockTransport(logg *logger.Logger) *MockTransport {
	return &MockTransport{logg: logg}
}

func (t *MockTransport) SendText(ctx context.Context, to, body string) error {
	t.log(ctx, "mock.send_text", map[string]any{"to": to, "body": body})
	return nil
}

func (t *MockTransport) SendSelectionList(ctx context.Context, to string, list SelectionList) error {
	t.log(ctx, "mock.send_list", map[string]any{"to": to, "header": list.Header, "sections": len(list.Sections)})
	return nil
}

func (t *MockTransport) SendButtonGroup(ctx context.Context, to string, group ButtonGroup) error {
	t.log(ctx, "mock.send_buttons", map[string]any{"to": to, "body": group.Body, "buttons": len(group.Buttons)})
	return nil
}

func (t *MockTransport) SendDocument(ctx context.Context, to string, doc Document) error {
	t.log(ctx, "mock.send_document", map[string]any{"to": to, "url": doc.URL, "filename": doc.Filename})
	return nil
}

func (t *MockTransport) log(ctx context.Context, msg string, fields map[string]any) {
	if t.logg == nil {
		return
	}
	t.logg.Info(t.logg.WithFields(ctx, fields), msg)
}
