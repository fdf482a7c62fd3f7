package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Category groups items offered in the selection list.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is one purchasable product.
type Item struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Provider supplies the read-only catalog backing the conversation flow.
type Provider interface {
	Categories(ctx context.Context) ([]Category, error)
	ItemsByCategory(ctx context.Context, categoryID string) ([]Item, error)
	// ItemByID returns nil when the item does not exist.
	ItemByID(ctx context.Context, itemID string) (*Item, error)
}
