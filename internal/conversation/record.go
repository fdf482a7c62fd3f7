package conversation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// State names one stage of the guided purchase dialogue.
type State string

const (
	StateNew            State = "NEW"
	StateCategory       State = "CATEGORY"
	StateItem           State = "ITEM"
	StateQty            State = "QTY"
	StateCart           State = "CART"
	StateAddressHouse   State = "ADDRESS_HOUSE"
	StateAddressStreet  State = "ADDRESS_STREET"
	StateAddressPincode State = "ADDRESS_PINCODE"
	StateAddressConfirm State = "ADDRESS_CONFIRM"
	StatePaymentPending State = "PAYMENT_PENDING"
	StatePaid           State = "PAID"
	StateInvoiced       State = "INVOICED"
)

// Payment status values carried on an order.
const (
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
)

// CartLine is one item entry in the cart. Quantities are always positive;
// a line that would reach zero is removed instead.
type CartLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// Total returns unit price times quantity for this line.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart maps item id to its line.
type Cart map[string]CartLine

// Add merges qty into an existing line or creates a new one. Re-adding the
// same item accumulates, it never resets the quantity.
func (c Cart) Add(itemID, name string, unitPrice decimal.Decimal, qty int) {
	if line, ok := c[itemID]; ok {
		line.Qty += qty
		c[itemID] = line
		return
	}
	c[itemID] = CartLine{ItemID: itemID, Name: name, UnitPrice: unitPrice, Qty: qty}
}

// SetQty overwrites a line's quantity; qty <= 0 removes the line.
func (c Cart) SetQty(itemID string, qty int) {
	line, ok := c[itemID]
	if !ok {
		return
	}
	if qty <= 0 {
		delete(c, itemID)
		return
	}
	line.Qty = qty
	c[itemID] = line
}

// Remove deletes a line outright.
func (c Cart) Remove(itemID string) {
	delete(c, itemID)
}

// Sorted returns the cart lines ordered by item name, for deterministic
// summaries and invoices.
func (c Cart) Sorted() []CartLine {
	lines := make([]CartLine, 0, len(c))
	for _, line := range c {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines
}

// Total sums unit price times quantity over every line.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.Total())
	}
	return total
}

// Address is the delivery address, built incrementally across three states.
type Address struct {
	House   string `json:"house"`
	Street  string `json:"street"`
	Pincode string `json:"pincode"`
}

// SelectedItem is the scratch copy of a catalog item held between the ITEM
// and QTY states.
type SelectedItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order holds the checkout snapshot for the current purchase. OrderID and
// PaymentLinkID are set once and never change for the life of the order.
type Order struct {
	OrderID          string          `json:"order_id"`
	Total            decimal.Decimal `json:"total"`
	PaymentLinkID    string          `json:"payment_link_id,omitempty"`
	PaymentURL       string          `json:"payment_url,omitempty"`
	PaymentStatus    string          `json:"payment_status,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	InvoiceGenerated bool            `json:"invoice_generated"`
}

// Record is the persisted per-address state of one ongoing or completed
// purchase dialogue. There is exactly one record per phone; it is created
// implicitly on first access and never deleted.
type Record struct {
	Phone              string        `json:"phone"`
	State              State         `json:"state"`
	Cart               Cart          `json:"cart"`
	SelectedCategoryID string        `json:"selected_category_id,omitempty"`
	SelectedItem       *SelectedItem `json:"selected_item,omitempty"`
	Delivery           *Address      `json:"delivery,omitempty"`
	Order              *Order        `json:"order,omitempty"`

	// Version guards the full-record replace against concurrent writers.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord returns the record created on first contact from a phone.
func NewRecord(phone string) *Record {
	return &Record{
		Phone:   phone,
		State:   StateNew,
		Cart:    Cart{},
		Version: 1,
	}
}

// Clone deep-copies the record so a transition can be computed without
// mutating the stored copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Cart = make(Cart, len(r.Cart))
	for id, line := range r.Cart {
		out.Cart[id] = line
	}
	if r.SelectedItem != nil {
		item := *r.SelectedItem
		out.SelectedItem = &item
	}
	if r.Delivery != nil {
		addr := *r.Delivery
		out.Delivery = &addr
	}
	if r.Order != nil {
		order := *r.Order
		if r.Order.PaidAt != nil {
			paidAt := *r.Order.PaidAt
			order.PaidAt = &paidAt
		}
		out.Order = &order
	}
	return &out
}

// ResetForNewOrder clears cart, scratch fields, address and order so the
// same record can host a fresh purchase. The record itself is kept.
func (r *Record) ResetForNewOrder() {
	r.Cart = Cart{}
	r.SelectedCategoryID = ""
	r.SelectedItem = nil
	r.Delivery = nil
	r.Order = nil
}

// Paid reports whether the current order has been paid for.
func (r *Record) Paid() bool {
	if r.Order != nil && r.Order.PaymentStatus == PaymentStatusPaid {
		return true
	}
	return r.State == StatePaid || r.State == StateInvoiced
}
