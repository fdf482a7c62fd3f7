package payments

import (
	"context"
	"fmt"
	"time"
)

// MockProvider fabricates payment links for local development. The link id
// is unique per call so idempotency paths behave as they would in production.
type MockProvider struct {
	now func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

func (p *MockProvider) CreateLink(_ context.Context, input CreateLinkInput) (*Link, error) {
	return &Link{
		ID:     fmt.Sprintf("mock_plink_%d", p.now().UnixMilli()),
		URL:    fmt.Sprintf("https://mockpay.local/pay?ref=%s&amount=%s&phone=%s", input.ReferenceID, input.Amount.String(), input.Phone),
		Status: "created",
	}, nil
}
