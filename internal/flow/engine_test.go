package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/catalog"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/messaging"
	"github.com/angelmondragon/chatcart-backend/internal/payments"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*conversation.Record
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*conversation.Record{}}
}

func (s *memStore) GetOrCreate(_ context.Context, phone string) (*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[phone]; ok {
		return rec.Clone(), nil
	}
	rec := conversation.NewRecord(phone)
	rec.UpdatedAt = time.Now().UTC()
	s.records[phone] = rec
	return rec.Clone(), nil
}

func (s *memStore) Replace(_ context.Context, phone string, rec *conversation.Record) (*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.records[phone]; ok && stored.Version != rec.Version {
		return nil, errors.New("version conflict")
	}
	next := rec.Clone()
	next.Version = rec.Version + 1
	next.UpdatedAt = time.Now().UTC()
	s.records[phone] = next
	return next.Clone(), nil
}

func (s *memStore) ListAll(_ context.Context) ([]*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conversation.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *memStore) get(t *testing.T, phone string) *conversation.Record {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[phone]
	if !ok {
		t.Fatalf("no record stored for %s", phone)
	}
	return rec.Clone()
}

type stubTransport struct {
	texts  []string
	lists  []messaging.SelectionList
	groups []messaging.ButtonGroup
	docs   []messaging.Document
	err    error
}

func (s *stubTransport) SendText(_ context.Context, _, body string) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, body)
	return nil
}

func (s *stubTransport) SendSelectionList(_ context.Context, _ string, list messaging.SelectionList) error {
	if s.err != nil {
		return s.err
	}
	s.lists = append(s.lists, list)
	return nil
}

func (s *stubTransport) SendButtonGroup(_ context.Context, _ string, group messaging.ButtonGroup) error {
	if s.err != nil {
		return s.err
	}
	s.groups = append(s.groups, group)
	return nil
}

func (s *stubTransport) SendDocument(_ context.Context, _ string, doc messaging.Document) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubLinks struct {
	calls int
	err   error
}

func (s *stubLinks) CreateLink(_ context.Context, input payments.CreateLinkInput) (*payments.Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls++
	return &payments.Link{
		ID:     fmt.Sprintf("plink_%d", s.calls),
		URL:    "https://pay.test/" + input.ReferenceID,
		Status: "created",
	}, nil
}

type engineFixture struct {
	engine    *Engine
	store     *memStore
	transport *stubTransport
	links     *stubLinks
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := newMemStore()
	transport := &stubTransport{}
	links := &stubLinks{}

	engine, err := NewEngine(EngineParams{
		Store:     store,
		Locks:     conversation.NewKeyedMutex(),
		Catalog:   catalog.NewStaticProvider(),
		Links:     links,
		Transport: transport,
		Now:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return &engineFixture{engine: engine, store: store, transport: transport, links: links}
}

func (f *engineFixture) send(t *testing.T, phone, text, replyID string) *Result {
	t.Helper()
	result, err := f.engine.Process(context.Background(), InboundEvent{
		From:               phone,
		Text:               text,
		InteractiveReplyID: replyID,
	})
	if err != nil {
		t.Fatalf("Process(%q, %q): %v", text, replyID, err)
	}
	return result
}

func (f *engineFixture) reachAddressConfirm(t *testing.T, phone string) {
	t.Helper()
	f.send(t, phone, "hi", "")
	f.send(t, phone, "", "cat:cakes")
	f.send(t, phone, "", "item:cake_choco")
	f.send(t, phone, "", "qty:2")
	f.send(t, phone, "", "cart:checkout")
	f.send(t, phone, "12A", "")
	f.send(t, phone, "Baker Street", "")
	f.send(t, phone, "560001", "")
}

func TestFullPurchasePath(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91900000"

	result := f.send(t, phone, "hi", "")
	if result.Action != ActionSentCategories || result.State != conversation.StateCategory {
		t.Fatalf("greeting: got action=%s state=%s", result.Action, result.State)
	}

	result = f.send(t, phone, "", "cat:cakes")
	if result.Action != ActionSentItems || result.State != conversation.StateItem {
		t.Fatalf("category: got action=%s state=%s", result.Action, result.State)
	}
	if result.CategoryID != "cakes" {
		t.Fatalf("category: got id %q", result.CategoryID)
	}

	result = f.send(t, phone, "", "item:cake_choco")
	if result.Action != ActionAskQty || result.State != conversation.StateQty {
		t.Fatalf("item: got action=%s state=%s", result.Action, result.State)
	}

	result = f.send(t, phone, "", "qty:2")
	if result.Action != ActionCartUpdated || result.State != conversation.StateCart {
		t.Fatalf("qty: got action=%s state=%s", result.Action, result.State)
	}
	if result.Total != "1000" {
		t.Fatalf("qty: got total %q, want 1000", result.Total)
	}

	rec := f.store.get(t, phone)
	line, ok := rec.Cart["cake_choco"]
	if !ok {
		t.Fatal("cart missing cake_choco line")
	}
	if line.Qty != 2 || line.UnitPrice.String() != "500" {
		t.Fatalf("cart line: qty=%d price=%s", line.Qty, line.UnitPrice)
	}
	if rec.SelectedItem != nil {
		t.Fatal("selected item not cleared after qty")
	}

	result = f.send(t, phone, "", "cart:checkout")
	if result.Action != ActionAskHouse || result.State != conversation.StateAddressHouse {
		t.Fatalf("checkout: got action=%s state=%s", result.Action, result.State)
	}
	rec = f.store.get(t, phone)
	if rec.Order == nil || rec.Order.Total.String() != "1000" {
		t.Fatalf("checkout: order total not snapshotted: %+v", rec.Order)
	}

	f.send(t, phone, "12A", "")
	f.send(t, phone, "Baker Street", "")
	result = f.send(t, phone, "560001", "")
	if result.Action != ActionConfirmAddress || result.State != conversation.StateAddressConfirm {
		t.Fatalf("pincode: got action=%s state=%s", result.Action, result.State)
	}

	result = f.send(t, phone, "", "addr:confirm")
	if result.Action != ActionPaymentLinkSent || result.State != conversation.StatePaymentPending {
		t.Fatalf("confirm: got action=%s state=%s", result.Action, result.State)
	}
	if !strings.HasPrefix(result.OrderID, "ORD-"+phone+"-") {
		t.Fatalf("confirm: unexpected order id %q", result.OrderID)
	}
	if result.PaymentLinkID == "" || result.PaymentURL == "" {
		t.Fatalf("confirm: missing link fields: %+v", result)
	}

	rec = f.store.get(t, phone)
	if rec.Order.PaymentStatus != conversation.PaymentStatusCreated {
		t.Fatalf("confirm: payment status %q", rec.Order.PaymentStatus)
	}
	if rec.Order.InvoiceGenerated {
		t.Fatal("confirm: invoiceGenerated must start false")
	}
	if rec.Delivery == nil || rec.Delivery.House != "12A" || rec.Delivery.Street != "Baker Street" || rec.Delivery.Pincode != "560001" {
		t.Fatalf("confirm: delivery address %+v", rec.Delivery)
	}
}

func TestQuantityAccumulates(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91911111"

	f.send(t, phone, "hi", "")
	f.send(t, phone, "", "cat:cakes")
	f.send(t, phone, "", "item:cake_choco")
	f.send(t, phone, "", "qty:3")
	f.send(t, phone, "", "cart:add_more")
	f.send(t, phone, "", "cat:cakes")
	f.send(t, phone, "", "item:cake_choco")
	result := f.send(t, phone, "", "qty:2")

	if result.Total != "2500" {
		t.Fatalf("got total %q, want 2500", result.Total)
	}

	rec := f.store.get(t, phone)
	if len(rec.Cart) != 1 {
		t.Fatalf("got %d cart lines, want 1", len(rec.Cart))
	}
	if rec.Cart["cake_choco"].Qty != 5 {
		t.Fatalf("got qty %d, want 5", rec.Cart["cake_choco"].Qty)
	}
}

func TestPincodeValidation(t *testing.T) {
	cases := []struct {
		pin   string
		valid bool
	}{
		{"12a456", false},
		{"12345", false},
		{"123456", true},
		{" 123 456 ", true},
	}

	for _, tc := range cases {
		t.Run(tc.pin, func(t *testing.T) {
			f := newEngineFixture(t)
			phone := "91922222"

			f.send(t, phone, "hi", "")
			f.send(t, phone, "", "cat:bread")
			f.send(t, phone, "", "item:bread_white")
			f.send(t, phone, "", "qty:1")
			f.send(t, phone, "", "cart:checkout")
			f.send(t, phone, "7", "")
			f.send(t, phone, "Main Road", "")

			result := f.send(t, phone, tc.pin, "")
			rec := f.store.get(t, phone)

			if tc.valid {
				if result.Action != ActionConfirmAddress || rec.State != conversation.StateAddressConfirm {
					t.Fatalf("want accept, got action=%s state=%s", result.Action, rec.State)
				}
				if rec.Delivery.Pincode != "123456" {
					t.Fatalf("got stored pincode %q", rec.Delivery.Pincode)
				}
			} else {
				if result.Action != ActionInvalidPincode || rec.State != conversation.StateAddressPincode {
					t.Fatalf("want re-prompt, got action=%s state=%s", result.Action, rec.State)
				}
			}
		})
	}
}

func TestUnknownItemKeepsState(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91933333"

	f.send(t, phone, "hi", "")
	f.send(t, phone, "", "cat:cakes")

	result := f.send(t, phone, "", "item:no_such_item")
	if result.Action != ActionItemNotFound {
		t.Fatalf("got action %s", result.Action)
	}
	rec := f.store.get(t, phone)
	if rec.State != conversation.StateItem {
		t.Fatalf("got state %s, want ITEM", rec.State)
	}
	if rec.SelectedItem != nil {
		t.Fatal("selected item must stay unset")
	}
}

func TestUnmatchedSignalIsNoop(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91944444"

	result := f.send(t, phone, "hello there", "")
	if result.Action != ActionNoAction {
		t.Fatalf("got action %s", result.Action)
	}
	rec := f.store.get(t, phone)
	if rec.State != conversation.StateNew {
		t.Fatalf("got state %s, want NEW", rec.State)
	}
	if rec.Version != 1 {
		t.Fatalf("no-op must not persist, version %d", rec.Version)
	}
}

func TestPaymentPendingReminderKeepsLink(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91955555"

	f.reachAddressConfirm(t, phone)
	confirmed := f.send(t, phone, "", "addr:confirm")

	result := f.send(t, phone, "hi", "")
	if result.Action != ActionPaymentReminder {
		t.Fatalf("got action %s", result.Action)
	}
	if result.PaymentURL != confirmed.PaymentURL {
		t.Fatalf("reminder url %q, want %q", result.PaymentURL, confirmed.PaymentURL)
	}
	if f.links.calls != 1 {
		t.Fatalf("payment link created %d times, want 1", f.links.calls)
	}
	rec := f.store.get(t, phone)
	if rec.State != conversation.StatePaymentPending {
		t.Fatalf("got state %s", rec.State)
	}
}

func TestAddressEditLoop(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91966666"

	f.reachAddressConfirm(t, phone)

	result := f.send(t, phone, "", "addr:edit_street")
	if result.Action != ActionEditStreet || result.State != conversation.StateAddressStreet {
		t.Fatalf("edit: got action=%s state=%s", result.Action, result.State)
	}

	f.send(t, phone, "New Street", "")
	f.send(t, phone, "560002", "")

	rec := f.store.get(t, phone)
	if rec.Delivery.Street != "New Street" || rec.Delivery.Pincode != "560002" {
		t.Fatalf("edited address %+v", rec.Delivery)
	}
	if rec.Delivery.House != "12A" {
		t.Fatalf("house must survive the edit, got %q", rec.Delivery.House)
	}
}

func TestFailedSendDoesNotCommit(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91977777"

	f.send(t, phone, "hi", "")
	f.send(t, phone, "", "cat:cakes")
	f.send(t, phone, "", "item:cake_choco")

	f.transport.err = errors.New("channel down")
	_, err := f.engine.Process(context.Background(), InboundEvent{From: phone, InteractiveReplyID: "qty:2"})
	if err == nil {
		t.Fatal("want delivery failure to surface")
	}

	rec := f.store.get(t, phone)
	if rec.State != conversation.StateQty {
		t.Fatalf("got state %s, want QTY (transition not committed)", rec.State)
	}
	if len(rec.Cart) != 0 {
		t.Fatal("cart must not be committed on failed send")
	}
	if rec.SelectedItem == nil {
		t.Fatal("selected item must survive the failed transition")
	}
}

func TestGreetingAfterInvoicedStartsFreshOrder(t *testing.T) {
	f := newEngineFixture(t)
	phone := "91988888"

	f.reachAddressConfirm(t, phone)
	f.send(t, phone, "", "addr:confirm")

	// Simulate the confirmation pipeline completing.
	rec := f.store.get(t, phone)
	rec.State = conversation.StateInvoiced
	rec.Order.InvoiceGenerated = true
	if _, err := f.store.Replace(context.Background(), phone, rec); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	result := f.send(t, phone, "hi", "")
	if result.Action != ActionSentCategories || result.State != conversation.StateCategory {
		t.Fatalf("restart: got action=%s state=%s", result.Action, result.State)
	}

	rec = f.store.get(t, phone)
	if len(rec.Cart) != 0 || rec.Order != nil || rec.Delivery != nil {
		t.Fatalf("restart must reset cart/order/address: %+v", rec)
	}
}
