package flow

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/chatcart-backend/internal/catalog"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/messaging"
	"github.com/shopspring/decimal"
)

var qtyOptions = []int{1, 2, 3, 4, 5}

func buildCategoryList(categories []catalog.Category) messaging.SelectionList {
	rows := make([]messaging.ListRow, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, messaging.ListRow{ID: nsCategory + ":" + c.ID, Title: c.Name})
	}
	return messaging.SelectionList{
		Header:   "🍰 Categories",
		Body:     "Please select a category",
		Button:   "View Categories",
		Sections: []messaging.ListSection{{Title: "Bakery Items", Rows: rows}},
	}
}

func buildItemsList(categoryID string, items []catalog.Item) messaging.SelectionList {
	rows := make([]messaging.ListRow, 0, len(items))
	for _, i := range items {
		rows = append(rows, messaging.ListRow{
			ID:          nsItem + ":" + i.ID,
			Title:       i.Name,
			Description: "₹" + i.Price.Round(0).String(),
		})
	}
	return messaging.SelectionList{
		Header:   "🧺 Items",
		Body:     "Select an item",
		Button:   "View Items",
		Sections: []messaging.ListSection{{Title: "Category: " + categoryID, Rows: rows}},
	}
}

func buildQtyList(itemName string) messaging.SelectionList {
	rows := make([]messaging.ListRow, 0, len(qtyOptions))
	for _, q := range qtyOptions {
		rows = append(rows, messaging.ListRow{ID: fmt.Sprintf("%s:%d", nsQty, q), Title: fmt.Sprintf("%d", q)})
	}
	return messaging.SelectionList{
		Header:   "➕ Quantity",
		Body:     "Select quantity for: " + itemName,
		Button:   "Choose Qty",
		Sections: []messaging.ListSection{{Title: "Quantity", Rows: rows}},
	}
}

func buildCartButtons(total decimal.Decimal) messaging.ButtonGroup {
	return messaging.ButtonGroup{
		Body: fmt.Sprintf("🛒 Cart updated!\nCurrent total: ₹%s\nWhat next?", total.Round(0).String()),
		Buttons: []messaging.Button{
			{ID: signalAddMore, Title: "Add more"},
			{ID: signalCheckout, Title: "Checkout"},
		},
	}
}

func buildAddressConfirmButtons(addr conversation.Address) messaging.ButtonGroup {
	body := fmt.Sprintf(
		"📦 Delivery Address\nHouse: %s\nStreet: %s\nPincode: %s\n\nConfirm this address?",
		addr.House, addr.Street, addr.Pincode,
	)
	return messaging.ButtonGroup{
		Body: body,
		Buttons: []messaging.Button{
			{ID: signalConfirm, Title: "✅ Confirm"},
			{ID: signalEditHouse, Title: "✏️ Edit House"},
			{ID: signalEditStreet, Title: "✏️ Edit Street"},
			{ID: signalEditPincode, Title: "✏️ Edit Pincode"},
		},
	}
}

func buildOrderSummary(orderID string, total decimal.Decimal, cart conversation.Cart, payURL string) string {
	lines := make([]string, 0, len(cart))
	for _, entry := range cart.Sorted() {
		lines = append(lines, fmt.Sprintf("• %s x%d = ₹%s", entry.Name, entry.Qty, entry.Total().Round(0).String()))
	}
	return fmt.Sprintf(
		"💳 Payment Link Created\nOrder: %s\nAmount: ₹%s\n\n📦 Items:\n%s\n\nPay here: %s\n\nAfter payment, you will receive invoice automatically.",
		orderID, total.Round(0).String(), strings.Join(lines, "\n"), payURL,
	)
}
