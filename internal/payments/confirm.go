package payments

import (
	"context"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/invoices"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// EventPaymentLinkPaid is the only webhook event that drives confirmation;
// everything else is acknowledged and ignored.
const EventPaymentLinkPaid = "payment_link.paid"

// ConfirmResult reports what a confirmation did. AlreadyProcessed marks the
// idempotent replay case: the order was invoiced before, nothing was re-sent.
type ConfirmResult struct {
	OrderID          string `json:"order_id"`
	InvoiceURL       string `json:"invoice_url,omitempty"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
}

type invoiceIssuer interface {
	Issue(ctx context.Context, inv invoices.Invoice) (string, error)
}

// Confirmer reconciles payment-success events against conversations. Both
// entry points (webhook by link id, manual by phone) converge on the same
// confirm step, guarded by the record's invoiceGenerated flag.
type Confirmer struct {
	store  conversation.Store
	locks  *conversation.KeyedMutex
	issuer invoiceIssuer
	logg   *logger.Logger
	now    func() time.Time
}

type ConfirmerParams struct {
	Store  conversation.Store
	Locks  *conversation.KeyedMutex
	Issuer invoiceIssuer
	Logger *logger.Logger
	Now    func() time.Time
}

func NewConfirmer(params ConfirmerParams) (*Confirmer, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversation store required")
	}
	if params.Locks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "keyed mutex required")
	}
	if params.Issuer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice issuer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Confirmer{
		store:  params.Store,
		locks:  params.Locks,
		issuer: params.Issuer,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// ConfirmByLink handles the webhook path: the event carries no address, so
// the conversation is found by scanning for the payment link id.
func (c *Confirmer) ConfirmByLink(ctx context.Context, paymentLinkID string) (*ConfirmResult, error) {
	if paymentLinkID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment link id is required")
	}
	rec, err := conversation.FindByPaymentLink(ctx, c.store, paymentLinkID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order found for payment link")
	}
	return c.confirmPhone(ctx, rec.Phone, paymentLinkID)
}

// ConfirmByPhone handles the manual/test path.
func (c *Confirmer) ConfirmByPhone(ctx context.Context, phone string) (*ConfirmResult, error) {
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	records, err := c.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, rec := range records {
		if rec.Phone == phone {
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no conversation found for this phone")
	}
	return c.confirmPhone(ctx, phone, "")
}

func (c *Confirmer) confirmPhone(ctx context.Context, phone, expectLinkID string) (*ConfirmResult, error) {
	unlock := c.locks.Lock(phone)
	defer unlock()

	// Re-read under the lock so the idempotency check sees the latest write.
	stored, err := c.store.GetOrCreate(ctx, phone)
	if err != nil {
		return nil, err
	}
	rec := stored.Clone()

	if rec.Order == nil || rec.Order.PaymentLinkID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment found for this conversation")
	}
	if expectLinkID != "" && rec.Order.PaymentLinkID != expectLinkID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order found for payment link")
	}

	ctx = c.withLogFields(ctx, rec)

	// Idempotency gate: a redelivered event for an invoiced order is a
	// success, not a retry trigger.
	if rec.Order.InvoiceGenerated {
		if c.logg != nil {
			c.logg.Info(ctx, "payment confirmation replayed, already processed")
		}
		return &ConfirmResult{OrderID: rec.Order.OrderID, AlreadyProcessed: true}, nil
	}

	rec.Order.PaymentStatus = conversation.PaymentStatusPaid
	if rec.Order.PaidAt == nil {
		paidAt := c.now().UTC()
		rec.Order.PaidAt = &paidAt
	}
	rec.State = conversation.StatePaid

	total := rec.Order.Total
	if total.IsZero() {
		total = rec.Cart.Total()
	}

	var delivery conversation.Address
	if rec.Delivery != nil {
		delivery = *rec.Delivery
	}

	invoiceURL, err := c.issuer.Issue(ctx, invoices.Invoice{
		OrderID: rec.Order.OrderID,
		Phone:   rec.Phone,
		Items:   invoiceLines(rec.Cart),
		Total:   total,
		Address: delivery,
		PaidAt:  *rec.Order.PaidAt,
	})
	if err != nil {
		// Nothing was persisted: a redelivery retries the whole confirmation
		// from the last committed state.
		return nil, err
	}

	rec.State = conversation.StateInvoiced
	rec.Order.InvoiceGenerated = true

	if _, err := c.store.Replace(ctx, phone, rec); err != nil {
		return nil, err
	}

	if c.logg != nil {
		c.logg.Info(ctx, "payment confirmed and invoice issued")
	}
	return &ConfirmResult{OrderID: rec.Order.OrderID, InvoiceURL: invoiceURL}, nil
}

func (c *Confirmer) withLogFields(ctx context.Context, rec *conversation.Record) context.Context {
	if c.logg == nil {
		return ctx
	}
	ctx = c.logg.WithPhone(ctx, rec.Phone)
	if rec.Order != nil {
		ctx = c.logg.WithOrderID(ctx, rec.Order.OrderID)
	}
	return ctx
}

func invoiceLines(cart conversation.Cart) []invoices.Line {
	lines := make([]invoices.Line, 0, len(cart))
	for _, entry := range cart.Sorted() {
		lines = append(lines, invoices.Line{
			Name:      entry.Name,
			Qty:       entry.Qty,
			UnitPrice: entry.UnitPrice,
		})
	}
	return lines
}
