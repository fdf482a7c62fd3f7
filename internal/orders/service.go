package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/invoices"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

type invoiceIssuer interface {
	Issue(ctx context.Context, inv invoices.Invoice) (string, error)
}

// Service backs the admin dashboard: order queries, manual invoice resend,
// and cart repairs on live conversations.
type Service struct {
	store  conversation.Store
	locks  *conversation.KeyedMutex
	issuer invoiceIssuer
	logg   *logger.Logger
	now    func() time.Time
}

type ServiceParams struct {
	Store  conversation.Store
	Locks  *conversation.KeyedMutex
	Issuer invoiceIssuer
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
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
	return &Service{
		store:  params.Store,
		locks:  params.Locks,
		issuer: params.Issuer,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// ListFilter narrows the order listing.
type ListFilter struct {
	State string
	Phone string
}

// List returns conversations newest-first, optionally filtered by state and
// phone substring.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*conversation.Record, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*conversation.Record, 0, len(records))
	for _, rec := range records {
		if filter.State != "" && string(rec.State) != filter.State {
			continue
		}
		if filter.Phone != "" && !strings.Contains(rec.Phone, filter.Phone) {
			continue
		}
		out = append(out, rec)
	}

	// ListAll is oldest-first; the dashboard wants the latest activity on top.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Get returns one conversation without creating it.
func (s *Service) Get(ctx context.Context, phone string) (*conversation.Record, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Phone == phone {
			return rec, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
}

// ResendInvoice re-issues the invoice for a paid order. Rendering overwrites
// the existing document, so resending is safe to repeat; unpaid orders are
// rejected.
func (s *Service) ResendInvoice(ctx context.Context, phone string) (string, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	rec, err := s.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	rec = rec.Clone()

	if !rec.Paid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order not paid yet")
	}
	if rec.Order == nil || rec.Order.OrderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no order on this conversation")
	}

	paidAt := s.now().UTC()
	if rec.Order.PaidAt != nil {
		paidAt = *rec.Order.PaidAt
	}

	total := rec.Order.Total
	if total.IsZero() {
		total = rec.Cart.Total()
	}

	var delivery conversation.Address
	if rec.Delivery != nil {
		delivery = *rec.Delivery
	}

	lines := make([]invoices.Line, 0, len(rec.Cart))
	for _, entry := range rec.Cart.Sorted() {
		lines = append(lines, invoices.Line{Name: entry.Name, Qty: entry.Qty, UnitPrice: entry.UnitPrice})
	}

	invoiceURL, err := s.issuer.Issue(ctx, invoices.Invoice{
		OrderID: rec.Order.OrderID,
		Phone:   rec.Phone,
		Items:   lines,
		Total:   total,
		Address: delivery,
		PaidAt:  paidAt,
	})
	if err != nil {
		return "", err
	}

	rec.State = conversation.StateInvoiced
	rec.Order.InvoiceGenerated = true
	if _, err := s.store.Replace(ctx, phone, rec); err != nil {
		return "", err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(s.logg.WithPhone(ctx, phone), rec.Order.OrderID), "invoice resent")
	}
	return invoiceURL, nil
}

// ClearCart empties the cart of a conversation.
func (s *Service) ClearCart(ctx context.Context, phone string) (*conversation.Record, error) {
	return s.mutate(ctx, phone, func(rec *conversation.Record) {
		rec.Cart = conversation.Cart{}
	})
}

// RemoveItem drops one line from the cart.
func (s *Service) RemoveItem(ctx context.Context, phone, itemID string) (*conversation.Record, error) {
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.mutate(ctx, phone, func(rec *conversation.Record) {
		rec.Cart.Remove(itemID)
	})
}

// UpdateQty overwrites a line's quantity; zero or negative removes the line.
func (s *Service) UpdateQty(ctx context.Context, phone, itemID string, qty int) (*conversation.Record, error) {
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.mutate(ctx, phone, func(rec *conversation.Record) {
		rec.Cart.SetQty(itemID, qty)
	})
}

func (s *Service) mutate(ctx context.Context, phone string, apply func(*conversation.Record)) (*conversation.Record, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	rec, err := s.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()

	apply(rec)

	return s.store.Replace(ctx, phone, rec)
}
