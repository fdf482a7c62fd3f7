package invoices

import (
	"context"
	"fmt"

	"github.com/angelmondragon/chatcart-backend/internal/messaging"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
)

// Issuer renders an invoice document and delivers it to the customer: the
// document itself plus a human-readable fallback link. It holds no state of
// its own; the invoiceGenerated gate belongs to the confirmation pipeline.
type Issuer struct {
	renderer      Renderer
	transport     messaging.Transport
	publicBaseURL string
	logg          *logger.Logger
	chatMetrics   *metrics.ChatMetrics
}

type IssuerParams struct {
	Renderer      Renderer
	Transport     messaging.Transport
	PublicBaseURL string
	Logger        *logger.Logger
	Metrics       *metrics.ChatMetrics
}

func NewIssuer(params IssuerParams) (*Issuer, error) {
	if params.Renderer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice renderer required")
	}
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messaging transport required")
	}
	if params.PublicBaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "public base url required")
	}
	return &Issuer{
		renderer:      params.Renderer,
		transport:     params.Transport,
		publicBaseURL: params.PublicBaseURL,
		logg:          params.Logger,
		chatMetrics:   params.Metrics,
	}, nil
}

// Issue renders the document and sends it, returning the public URL.
func (i *Issuer) Issue(ctx context.Context, inv Invoice) (string, error) {
	if inv.OrderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	if _, err := i.renderer.Render(ctx, inv); err != nil {
		return "", err
	}

	invoiceURL := PublicURL(i.publicBaseURL, inv.OrderID)
	caption := fmt.Sprintf("🧾 Invoice for order %s (Total ₹%s)", inv.OrderID, inv.Total.Round(0).String())

	if err := i.transport.SendDocument(ctx, inv.Phone, messaging.Document{
		URL:      invoiceURL,
		Filename: Filename(inv.OrderID),
		Caption:  caption,
	}); err != nil {
		return "", err
	}

	if err := i.transport.SendText(ctx, inv.Phone, fmt.Sprintf("✅ Invoice ready: %s", invoiceURL)); err != nil {
		return "", err
	}

	if i.logg != nil {
		i.logg.Info(i.logg.WithOrderID(ctx, inv.OrderID), "invoice issued")
	}
	i.chatMetrics.IncInvoice()

	return invoiceURL, nil
}
