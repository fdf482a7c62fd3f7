package flow

import "strings"

// InboundEvent is the normalized inbound trigger handed to the engine. Raw
// channel payloads are flattened into this shape by the webhook controller.
type InboundEvent struct {
	// From is the opaque recipient address the event originated from.
	From string `json:"from"`
	// Text is the free-text body, if any. Case is preserved because address
	// fields are captured verbatim.
	Text string `json:"text,omitempty"`
	// InteractiveReplyID is the machine reply identifier (`namespace:value`)
	// from a list or button reply, if any.
	InteractiveReplyID string `json:"interactive_reply_id,omitempty"`
}

// Signal namespaces used in interactive reply identifiers.
const (
	nsCategory = "cat"
	nsItem     = "item"
	nsQty      = "qty"
	nsCart     = "cart"
	nsAddress  = "addr"
)

// Fixed reply identifiers.
const (
	signalAddMore     = "cart:add_more"
	signalCheckout    = "cart:checkout"
	signalConfirm     = "addr:confirm"
	signalEditHouse   = "addr:edit_house"
	signalEditStreet  = "addr:edit_street"
	signalEditPincode = "addr:edit_pincode"
)

// Actions reported back to the caller of the processing entry point.
const (
	ActionSentCategories  = "sent_categories"
	ActionSentItems       = "sent_items"
	ActionAskQty          = "ask_qty"
	ActionItemNotFound    = "item_not_found"
	ActionInvalidQty      = "invalid_qty"
	ActionCartUpdated     = "cart_updated"
	ActionAddMore         = "add_more"
	ActionAskHouse        = "ask_house"
	ActionAskStreet       = "ask_street"
	ActionAskPincode      = "ask_pincode"
	ActionInvalidPincode  = "invalid_pincode"
	ActionConfirmAddress  = "confirm_address"
	ActionPaymentLinkSent = "payment_link_sent"
	ActionEditHouse       = "edit_house"
	ActionEditStreet      = "edit_street"
	ActionEditPincode     = "edit_pincode"
	ActionPaymentReminder = "payment_pending_reminder"
	ActionNoAction        = "no_action"
)

// signalValue extracts the value of a `namespace:value` reply id, returning
// false when the id does not carry the expected namespace.
func signalValue(replyID, namespace string) (string, bool) {
	prefix := namespace + ":"
	if !strings.HasPrefix(replyID, prefix) {
		return "", false
	}
	return strings.TrimPrefix(replyID, prefix), true
}
