package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/chatcart-backend/internal/payments"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
)

type stubConfirmer struct {
	byLink  []string
	byPhone []string
	result  *payments.ConfirmResult
	err     error
}

func (s *stubConfirmer) ConfirmByLink(_ context.Context, paymentLinkID string) (*payments.ConfirmResult, error) {
	s.byLink = append(s.byLink, paymentLinkID)
	return s.result, s.err
}

func (s *stubConfirmer) ConfirmByPhone(_ context.Context, phone string) (*payments.ConfirmResult, error) {
	s.byPhone = append(s.byPhone, phone)
	return s.result, s.err
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func paidEventBody(t *testing.T, linkID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "payment_link.paid",
		"payload": map[string]any{
			"payment_link": map[string]any{
				"entity": map[string]any{"id": linkID},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestPaymentWebhookIgnoredWhenDisabled(t *testing.T) {
	confirmer := &stubConfirmer{}
	handler := PaymentWebhook(config.RazorpayConfig{WebhookEnabled: false}, confirmer, metrics.NewChatMetrics(nil), nil)

	rec := postWebhook(t, handler, paidEventBody(t, "plink_1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if len(confirmer.byLink) != 0 {
		t.Fatal("disabled webhook must never confirm")
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["status"] != "ignored" {
		t.Fatalf("got %+v, want ignored", envelope.Data)
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	confirmer := &stubConfirmer{}
	cfg := config.RazorpayConfig{WebhookEnabled: true, WebhookSecret: "whsec"}
	handler := PaymentWebhook(cfg, confirmer, metrics.NewChatMetrics(nil), nil)

	body := paidEventBody(t, "plink_1")

	rec := postWebhook(t, handler, body, "deadbeef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
	if len(confirmer.byLink) != 0 {
		t.Fatal("bad signature must never confirm")
	}

	rec = postWebhook(t, handler, body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing signature: got status %d, want 401", rec.Code)
	}
}

func TestPaymentWebhookIgnoresOtherEvents(t *testing.T) {
	confirmer := &stubConfirmer{}
	cfg := config.RazorpayConfig{WebhookEnabled: true, WebhookSecret: "whsec"}
	handler := PaymentWebhook(cfg, confirmer, metrics.NewChatMetrics(nil), nil)

	body, _ := json.Marshal(map[string]any{"event": "payment.captured"})
	rec := postWebhook(t, handler, body, signBody("whsec", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if len(confirmer.byLink) != 0 {
		t.Fatal("non-paid events must not confirm")
	}
}

func TestPaymentWebhookConfirmsPaidEvent(t *testing.T) {
	confirmer := &stubConfirmer{result: &payments.ConfirmResult{OrderID: "ORD-x", InvoiceURL: "http://x/invoice/ORD-x.pdf"}}
	cfg := config.RazorpayConfig{WebhookEnabled: true, WebhookSecret: "whsec"}
	handler := PaymentWebhook(cfg, confirmer, metrics.NewChatMetrics(nil), nil)

	body := paidEventBody(t, "plink_1")
	rec := postWebhook(t, handler, body, signBody("whsec", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if len(confirmer.byLink) != 1 || confirmer.byLink[0] != "plink_1" {
		t.Fatalf("confirmed links %v", confirmer.byLink)
	}
}

func TestPaymentWebhookUnknownLink(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodeNotFound, "no order found for payment link")}
	cfg := config.RazorpayConfig{WebhookEnabled: true, WebhookSecret: "whsec"}
	handler := PaymentWebhook(cfg, confirmer, metrics.NewChatMetrics(nil), nil)

	body := paidEventBody(t, "plink_unknown")
	rec := postWebhook(t, handler, body, signBody("whsec", body))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestMockPaymentSuccess(t *testing.T) {
	confirmer := &stubConfirmer{result: &payments.ConfirmResult{OrderID: "ORD-x"}}
	handler := MockPaymentSuccess(confirmer, nil)

	req := httptest.NewRequest(http.MethodPost, "/payments/mock-success", bytes.NewReader([]byte(`{"phone":"91900000"}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if len(confirmer.byPhone) != 1 || confirmer.byPhone[0] != "91900000" {
		t.Fatalf("confirmed phones %v", confirmer.byPhone)
	}
}

func TestMockPaymentSuccessRequiresPhone(t *testing.T) {
	confirmer := &stubConfirmer{}
	handler := MockPaymentSuccess(confirmer, nil)

	req := httptest.NewRequest(http.MethodPost, "/payments/mock-success", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
	if len(confirmer.byPhone) != 0 {
		t.Fatal("validation failure must not confirm")
	}
}
