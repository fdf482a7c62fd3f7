package flow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/catalog"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/messaging"
	"github.com/angelmondragon/chatcart-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
)

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Result reports what an inbound event did to the conversation.
type Result struct {
	Action        string             `json:"action"`
	State         conversation.State `json:"state"`
	CategoryID    string             `json:"category_id,omitempty"`
	ItemID        string             `json:"item_id,omitempty"`
	Total         string             `json:"total,omitempty"`
	OrderID       string             `json:"order_id,omitempty"`
	PaymentLinkID string             `json:"payment_link_id,omitempty"`
	PaymentURL    string             `json:"payment_url,omitempty"`
}

// Engine drives the purchase dialogue. For each inbound event it reads the
// conversation, computes the transition, performs the outbound effects, and
// persists the updated record last, so a failed effect never commits a
// half-applied transition. Per-phone locking plus the store's version check
// keep duplicate deliveries from racing each other.
type Engine struct {
	store     conversation.Store
	locks     *conversation.KeyedMutex
	catalog   catalog.Provider
	links     payments.LinkProvider
	transport messaging.Transport
	logg      *logger.Logger
	chatStats *metrics.ChatMetrics
	now       func() time.Time
}

type EngineParams struct {
	Store     conversation.Store
	Locks     *conversation.KeyedMutex
	Catalog   catalog.Provider
	Links     payments.LinkProvider
	Transport messaging.Transport
	Logger    *logger.Logger
	Metrics   *metrics.ChatMetrics
	Now       func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversation store required")
	}
	if params.Locks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "keyed mutex required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog provider required")
	}
	if params.Links == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment link provider required")
	}
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messaging transport required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:     params.Store,
		locks:     params.Locks,
		catalog:   params.Catalog,
		links:     params.Links,
		transport: params.Transport,
		logg:      params.Logger,
		chatStats: params.Metrics,
		now:       now,
	}, nil
}

// Process is the single entry point for inbound events. It serializes on the
// sender's address, runs one transition, and returns what happened.
func (e *Engine) Process(ctx context.Context, ev InboundEvent) (*Result, error) {
	if ev.From == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event sender address is required")
	}

	unlock := e.locks.Lock(ev.From)
	defer unlock()

	stored, err := e.store.GetOrCreate(ctx, ev.From)
	if err != nil {
		return nil, err
	}
	rec := stored.Clone()

	if e.logg != nil {
		ctx = e.logg.WithPhone(ctx, rec.Phone)
	}

	result, persist, err := e.transition(ctx, rec, ev)
	if err != nil {
		return nil, err
	}

	if persist {
		if _, err := e.store.Replace(ctx, rec.Phone, rec); err != nil {
			return nil, err
		}
	}

	result.State = rec.State
	e.chatStats.IncSignal(result.Action)
	if e.logg != nil {
		e.logg.Info(e.logg.WithField(ctx, "action", result.Action), "processed inbound event")
	}
	return result, nil
}

func (e *Engine) transition(ctx context.Context, rec *conversation.Record, ev InboundEvent) (*Result, bool, error) {
	text := strings.TrimSpace(ev.Text)
	replyID := ev.InteractiveReplyID

	// A completed order leaves the record in INVOICED; a fresh greeting
	// starts the next purchase on the same record.
	if rec.State == conversation.StateInvoiced && strings.EqualFold(text, "hi") {
		rec.ResetForNewOrder()
		rec.State = conversation.StateNew
	}

	switch rec.State {
	case conversation.StateNew:
		if strings.EqualFold(text, "hi") {
			return e.greet(ctx, rec)
		}
	case conversation.StateCategory:
		if categoryID, ok := signalValue(replyID, nsCategory); ok {
			return e.selectCategory(ctx, rec, categoryID)
		}
	case conversation.StateItem:
		if itemID, ok := signalValue(replyID, nsItem); ok {
			return e.selectItem(ctx, rec, itemID)
		}
	case conversation.StateQty:
		if raw, ok := signalValue(replyID, nsQty); ok {
			return e.selectQty(ctx, rec, raw)
		}
	case conversation.StateCart:
		switch replyID {
		case signalAddMore:
			return e.addMore(ctx, rec)
		case signalCheckout:
			return e.checkout(ctx, rec)
		}
	case conversation.StateAddressHouse:
		if text != "" {
			return e.captureHouse(ctx, rec, text)
		}
	case conversation.StateAddressStreet:
		if text != "" {
			return e.captureStreet(ctx, rec, text)
		}
	case conversation.StateAddressPincode:
		if text != "" {
			return e.capturePincode(ctx, rec, text)
		}
	case conversation.StateAddressConfirm:
		switch replyID {
		case signalConfirm:
			return e.confirmAddress(ctx, rec)
		case signalEditHouse:
			return e.editField(ctx, rec, conversation.StateAddressHouse, ActionEditHouse, "🏠 Enter your House No / Flat No again:")
		case signalEditStreet:
			return e.editField(ctx, rec, conversation.StateAddressStreet, ActionEditStreet, "🛣️ Enter your Street / Area again:")
		case signalEditPincode:
			return e.editField(ctx, rec, conversation.StateAddressPincode, ActionEditPincode, "📮 Enter your 6-digit Pincode again:")
		}
	case conversation.StatePaymentPending:
		return e.paymentReminder(ctx, rec)
	}

	// Every unmatched (state, signal) pair is a safe no-op: channels
	// redeliver and customers send out-of-band messages, and failing the
	// delivery would only trigger channel-level retries.
	return &Result{Action: ActionNoAction}, false, nil
}

func (e *Engine) greet(ctx context.Context, rec *conversation.Record) (*Result, bool, error) {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := e.transport.SendText(ctx, rec.Phone, "👋 Welcome to our Bakery!"); err != nil {
		return nil, false, err
	}
	if err := e.transport.SendSelectionList(ctx, rec.Phone, buildCategoryList(categories)); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateCategory
	return &Result{Action: ActionSentCategories}, true, nil
}

func (e *Engine) selectCategory(ctx context.Context, rec *conversation.Record, categoryID string) (*Result, bool, error) {
	items, err := e.catalog.ItemsByCategory(ctx, categoryID)
	if err != nil {
		return nil, false, err
	}
	if err := e.transport.SendSelectionList(ctx, rec.Phone, buildItemsList(categoryID, items)); err != nil {
		return nil, false, err
	}
	rec.SelectedCategoryID = categoryID
	rec.State = conversation.StateItem
	return &Result{Action: ActionSentItems, CategoryID: categoryID}, true, nil
}

func (e *Engine) selectItem(ctx context.Context, rec *conversation.Record, itemID string) (*Result, bool, error) {
	item, err := e.catalog.ItemByID(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	if item == nil {
		return &Result{Action: ActionItemNotFound, ItemID: itemID}, false, nil
	}
	if err := e.transport.SendSelectionList(ctx, rec.Phone, buildQtyList(item.Name)); err != nil {
		return nil, false, err
	}
	rec.SelectedItem = &conversation.SelectedItem{ID: item.ID, Name: item.Name, UnitPrice: item.Price}
	rec.State = conversation.StateQty
	return &Result{Action: ActionAskQty, ItemID: itemID}, true, nil
}

func (e *Engine) selectQty(ctx context.Context, rec *conversation.Record, raw string) (*Result, bool, error) {
	qty, err := strconv.Atoi(raw)
	if err != nil || qty <= 0 || rec.SelectedItem == nil {
		return &Result{Action: ActionInvalidQty}, false, nil
	}

	item := rec.SelectedItem
	rec.Cart.Add(item.ID, item.Name, item.UnitPrice, qty)
	rec.SelectedItem = nil
	total := rec.Cart.Total()

	if err := e.transport.SendButtonGroup(ctx, rec.Phone, buildCartButtons(total)); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateCart
	return &Result{Action: ActionCartUpdated, Total: total.String()}, true, nil
}

func (e *Engine) addMore(ctx context.Context, rec *conversation.Record) (*Result, bool, error) {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := e.transport.SendSelectionList(ctx, rec.Phone, buildCategoryList(categories)); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateCategory
	return &Result{Action: ActionAddMore}, true, nil
}

func (e *Engine) checkout(ctx context.Context, rec *conversation.Record) (*Result, bool, error) {
	total := rec.Cart.Total()
	if rec.Order == nil {
		rec.Order = &conversation.Order{}
	}
	rec.Order.Total = total
	rec.Delivery = &conversation.Address{}

	prompt := fmt.Sprintf("✅ Checkout started.\nTotal: ₹%s\n\n🏠 Please enter your House No / Flat No:", total.Round(0).String())
	if err := e.transport.SendText(ctx, rec.Phone, prompt); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateAddressHouse
	return &Result{Action: ActionAskHouse, Total: total.String()}, true, nil
}

func (e *Engine) captureHouse(ctx context.Context, rec *conversation.Record, text string) (*Result, bool, error) {
	if rec.Delivery == nil {
		rec.Delivery = &conversation.Address{}
	}
	rec.Delivery.House = text
	if err := e.transport.SendText(ctx, rec.Phone, "🛣️ Please enter your Street / Area:"); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateAddressStreet
	return &Result{Action: ActionAskStreet}, true, nil
}

func (e *Engine) captureStreet(ctx context.Context, rec *conversation.Record, text string) (*Result, bool, error) {
	if rec.Delivery == nil {
		rec.Delivery = &conversation.Address{}
	}
	rec.Delivery.Street = text
	if err := e.transport.SendText(ctx, rec.Phone, "📮 Please enter your 6-digit Pincode:"); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateAddressPincode
	return &Result{Action: ActionAskPincode}, true, nil
}

func (e *Engine) capturePincode(ctx context.Context, rec *conversation.Record, text string) (*Result, bool, error) {
	pin := strings.Join(strings.Fields(text), "")
	if !pincodePattern.MatchString(pin) {
		if err := e.transport.SendText(ctx, rec.Phone, "❌ Invalid pincode. Please enter a valid 6-digit pincode:"); err != nil {
			return nil, false, err
		}
		return &Result{Action: ActionInvalidPincode}, false, nil
	}

	if rec.Delivery == nil {
		rec.Delivery = &conversation.Address{}
	}
	rec.Delivery.Pincode = pin
	if err := e.transport.SendButtonGroup(ctx, rec.Phone, buildAddressConfirmButtons(*rec.Delivery)); err != nil {
		return nil, false, err
	}
	rec.State = conversation.StateAddressConfirm
	return &Result{Action: ActionConfirmAddress}, true, nil
}

func (e *Engine) confirmAddress(ctx context.Context, rec *conversation.Record) (*Result, bool, error) {
	if rec.Order == nil {
		rec.Order = &conversation.Order{}
	}
	total := rec.Order.Total
	if total.IsZero() {
		total = rec.Cart.Total()
		rec.Order.Total = total
	}

	// The order id is minted once per purchase; re-entering checkout before
	// payment reuses it.
	if rec.Order.OrderID == "" {
		rec.Order.OrderID = fmt.Sprintf("ORD-%s-%d", rec.Phone, e.now().UnixMilli())
	}

	// The payment link id, once set, is the join key for the webhook and is
	// never replaced for the life of this order.
	if rec.Order.PaymentLinkID == "" {
		link, err := e.links.CreateLink(ctx, payments.CreateLinkInput{
			Amount:      total,
			Phone:       rec.Phone,
			ReferenceID: rec.Order.OrderID,
		})
		if err != nil {
			return nil, false, err
		}
		status := link.Status
		if status == "" {
			status = conversation.PaymentStatusCreated
		}
		rec.Order.PaymentLinkID = link.ID
		rec.Order.PaymentURL = link.URL
		rec.Order.PaymentStatus = status
		rec.Order.InvoiceGenerated = false
		rec.Order.PaidAt = nil
	}

	summary := buildOrderSummary(rec.Order.OrderID, total, rec.Cart, rec.Order.PaymentURL)
	if err := e.transport.SendText(ctx, rec.Phone, summary); err != nil {
		return nil, false, err
	}

	rec.State = conversation.StatePaymentPending
	return &Result{
		Action:        ActionPaymentLinkSent,
		Total:         total.String(),
		OrderID:       rec.Order.OrderID,
		PaymentLinkID: rec.Order.PaymentLinkID,
		PaymentURL:    rec.Order.PaymentURL,
	}, true, nil
}

func (e *Engine) editField(ctx context.Context, rec *conversation.Record, next conversation.State, action, prompt string) (*Result, bool, error) {
	if err := e.transport.SendText(ctx, rec.Phone, prompt); err != nil {
		return nil, false, err
	}
	rec.State = next
	return &Result{Action: action}, true, nil
}

func (e *Engine) paymentReminder(ctx context.Context, rec *conversation.Record) (*Result, bool, error) {
	if err := e.transport.SendText(ctx, rec.Phone, "💳 Please complete the payment using the link sent. Once paid, invoice will be sent."); err != nil {
		return nil, false, err
	}
	if rec.Order != nil && rec.Order.PaymentURL != "" {
		if err := e.transport.SendText(ctx, rec.Phone, "Pay here: "+rec.Order.PaymentURL); err != nil {
			return nil, false, err
		}
	}
	return &Result{Action: ActionPaymentReminder, PaymentURL: paymentURL(rec)}, false, nil
}

func paymentURL(rec *conversation.Record) string {
	if rec.Order == nil {
		return ""
	}
	return rec.Order.PaymentURL
}
