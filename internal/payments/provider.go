package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// Link is an externally hosted payable URL tied to an amount and reference.
type Link struct {
	ID     string
	URL    string
	Status string
}

// CreateLinkInput carries everything needed to issue a payment link.
type CreateLinkInput struct {
	Amount      decimal.Decimal
	Phone       string
	ReferenceID string
}

// LinkProvider creates payable links. Completion is detected asynchronously
// through the payment webhook, joined back by the link id.
type LinkProvider interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*Link, error)
}
