package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var paise = decimal.NewFromInt(100)

// RazorpayProvider issues payment links through the Razorpay REST API.
type RazorpayProvider struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
}

func NewRazorpayProvider(cfg config.RazorpayConfig) (*RazorpayProvider, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("razorpay key and secret are required")
	}
	return &RazorpayProvider{
		baseURL: cfg.BaseURL,
		key:     cfg.Key,
		secret:  cfg.Secret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type razorpayLinkResponse struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

func (p *RazorpayProvider) CreateLink(ctx context.Context, input CreateLinkInput) (*Link, error) {
	// Razorpay wants the amount in paise.
	payload := map[string]any{
		"amount":       input.Amount.Mul(paise).Round(0).IntPart(),
		"currency":     "INR",
		"reference_id": input.ReferenceID,
		"description":  fmt.Sprintf("Bakery order payment - %s", input.ReferenceID),
		"customer": map[string]string{
			"contact": input.Phone,
		},
		"notify":          map[string]bool{"sms": false, "email": false},
		"reminder_enable": true,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment link payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/payment_links", bytes.NewReader(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment link request")
	}
	req.SetBasicAuth(p.key, p.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment link")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("razorpay responded %d: %s", resp.StatusCode, string(body)))
	}

	var decoded razorpayLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment link response")
	}
	return &Link{ID: decoded.ID, URL: decoded.ShortURL, Status: decoded.Status}, nil
}
