package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/invoices"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
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

func (s *memStore) put(rec *conversation.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Phone] = rec
}

type stubIssuer struct {
	calls   int
	lastInv invoices.Invoice
	err     error
}

func (s *stubIssuer) Issue(_ context.Context, inv invoices.Invoice) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	s.lastInv = inv
	return "http://localhost:3000/invoice/" + inv.OrderID + ".pdf", nil
}

func pendingRecord(phone string) *conversation.Record {
	rec := conversation.NewRecord(phone)
	rec.State = conversation.StatePaymentPending
	rec.Cart.Add("cake_choco", "Chocolate Cake", decimal.NewFromInt(500), 2)
	rec.Delivery = &conversation.Address{House: "12A", Street: "Baker Street", Pincode: "560001"}
	rec.Order = &conversation.Order{
		OrderID:       "ORD-" + phone + "-1717243200000",
		Total:         decimal.NewFromInt(1000),
		PaymentLinkID: "plink_1",
		PaymentURL:    "https://pay.test/x",
		PaymentStatus: conversation.PaymentStatusCreated,
	}
	return rec
}

func newConfirmer(t *testing.T, store *memStore, issuer *stubIssuer) *Confirmer {
	t.Helper()
	confirmer, err := NewConfirmer(ConfirmerParams{
		Store:  store,
		Locks:  conversation.NewKeyedMutex(),
		Issuer: issuer,
		Now:    func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewConfirmer: %v", err)
	}
	return confirmer
}

func TestConfirmByLinkIssuesInvoiceOnce(t *testing.T) {
	store := newMemStore()
	store.put(pendingRecord("91900000"))
	issuer := &stubIssuer{}
	confirmer := newConfirmer(t, store, issuer)

	result, err := confirmer.ConfirmByLink(context.Background(), "plink_1")
	if err != nil {
		t.Fatalf("ConfirmByLink: %v", err)
	}
	if result.AlreadyProcessed {
		t.Fatal("first confirmation must not be marked already processed")
	}
	if result.InvoiceURL == "" {
		t.Fatal("missing invoice url")
	}
	if issuer.calls != 1 {
		t.Fatalf("issuer called %d times, want 1", issuer.calls)
	}
	if issuer.lastInv.Total.String() != "1000" {
		t.Fatalf("invoice total %s, want 1000", issuer.lastInv.Total)
	}

	records, _ := store.ListAll(context.Background())
	rec := records[0]
	if rec.State != conversation.StateInvoiced {
		t.Fatalf("got state %s, want INVOICED", rec.State)
	}
	if !rec.Order.InvoiceGenerated {
		t.Fatal("invoiceGenerated not set")
	}
	if rec.Order.PaymentStatus != conversation.PaymentStatusPaid {
		t.Fatalf("payment status %q", rec.Order.PaymentStatus)
	}
	if rec.Order.PaidAt == nil {
		t.Fatal("paidAt not set")
	}

	// Redelivery: success with the already-processed marker and no new send.
	result, err = confirmer.ConfirmByLink(context.Background(), "plink_1")
	if err != nil {
		t.Fatalf("second ConfirmByLink: %v", err)
	}
	if !result.AlreadyProcessed {
		t.Fatal("replay must be marked already processed")
	}
	if issuer.calls != 1 {
		t.Fatalf("issuer called %d times after replay, want 1", issuer.calls)
	}
}

func TestConfirmByPhone(t *testing.T) {
	store := newMemStore()
	store.put(pendingRecord("91900000"))
	issuer := &stubIssuer{}
	confirmer := newConfirmer(t, store, issuer)

	result, err := confirmer.ConfirmByPhone(context.Background(), "91900000")
	if err != nil {
		t.Fatalf("ConfirmByPhone: %v", err)
	}
	if result.OrderID == "" || result.AlreadyProcessed {
		t.Fatalf("unexpected result %+v", result)
	}
	if issuer.calls != 1 {
		t.Fatalf("issuer called %d times, want 1", issuer.calls)
	}
}

func TestConfirmUnknownLinkFails(t *testing.T) {
	store := newMemStore()
	store.put(pendingRecord("91900000"))
	confirmer := newConfirmer(t, store, &stubIssuer{})

	_, err := confirmer.ConfirmByLink(context.Background(), "plink_unknown")
	if err == nil {
		t.Fatal("want not-found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("got error %v, want NOT_FOUND", err)
	}
}

func TestConfirmUnknownPhoneIsNotFabricated(t *testing.T) {
	store := newMemStore()
	confirmer := newConfirmer(t, store, &stubIssuer{})

	_, err := confirmer.ConfirmByPhone(context.Background(), "nobody")
	if err == nil {
		t.Fatal("want not-found error")
	}

	records, _ := store.ListAll(context.Background())
	if len(records) != 0 {
		t.Fatalf("confirmation must not create records, got %d", len(records))
	}
}

func TestConfirmPreservesExistingPaidAt(t *testing.T) {
	store := newMemStore()
	rec := pendingRecord("91900000")
	earlier := time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)
	rec.Order.PaidAt = &earlier
	store.put(rec)

	confirmer := newConfirmer(t, store, &stubIssuer{})
	if _, err := confirmer.ConfirmByPhone(context.Background(), "91900000"); err != nil {
		t.Fatalf("ConfirmByPhone: %v", err)
	}

	records, _ := store.ListAll(context.Background())
	if got := *records[0].Order.PaidAt; !got.Equal(earlier) {
		t.Fatalf("paidAt overwritten: got %s, want %s", got, earlier)
	}
}

func TestConfirmIssuerFailureDoesNotCommit(t *testing.T) {
	store := newMemStore()
	store.put(pendingRecord("91900000"))
	issuer := &stubIssuer{err: errors.New("renderer down")}
	confirmer := newConfirmer(t, store, issuer)

	_, err := confirmer.ConfirmByPhone(context.Background(), "91900000")
	if err == nil {
		t.Fatal("want issuance failure to surface")
	}

	records, _ := store.ListAll(context.Background())
	rec := records[0]
	if rec.State != conversation.StatePaymentPending {
		t.Fatalf("got state %s, want PAYMENT_PENDING (nothing committed)", rec.State)
	}
	if rec.Order.InvoiceGenerated {
		t.Fatal("invoiceGenerated must stay false after a failed issuance")
	}

	// A retry from the last committed state succeeds.
	issuer.err = nil
	result, err := confirmer.ConfirmByPhone(context.Background(), "91900000")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.AlreadyProcessed {
		t.Fatal("retry must run the full confirmation")
	}
}
