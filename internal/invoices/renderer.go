package invoices

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/shopspring/decimal"
)

// Line is one invoiced cart line.
type Line struct {
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
}

// Total returns unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Invoice is the structured input handed to the renderer.
type Invoice struct {
	OrderID string
	Phone   string
	Items   []Line
	Total   decimal.Decimal
	Address conversation.Address
	PaidAt  time.Time
	PaidVia string
}

// Renderer produces a retrievable document for an invoice and returns its
// file path. Rendering is idempotent by overwrite: the same order id always
// maps to the same location, and regenerating replaces the file in place.
type Renderer interface {
	Render(ctx context.Context, inv Invoice) (string, error)
}

// Filename returns the stable document name derived solely from the order id.
func Filename(orderID string) string {
	return fmt.Sprintf("%s.pdf", orderID)
}

// Path returns the on-disk location for an order's invoice.
func Path(dir, orderID string) string {
	return filepath.Join(dir, Filename(orderID))
}

// PublicURL returns the downloadable location served by the invoice route.
func PublicURL(baseURL, orderID string) string {
	return fmt.Sprintf("%s/invoice/%s", baseURL, Filename(orderID))
}
