package invoices

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// PDFRenderer writes A4 invoice documents to the configured directory.
type PDFRenderer struct {
	cfg config.InvoiceConfig
}

func NewPDFRenderer(cfg config.InvoiceConfig) (*PDFRenderer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("invoice directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating invoice directory: %w", err)
	}
	return &PDFRenderer{cfg: cfg}, nil
}

func (r *PDFRenderer) Render(_ context.Context, inv Invoice) (string, error) {
	path := Path(r.cfg.Dir, inv.OrderID)

	subtotal := decimal.Zero
	for _, line := range inv.Items {
		subtotal = subtotal.Add(line.Total())
	}
	gstPercent := decimal.NewFromInt(int64(r.cfg.GSTPercent))
	gst := subtotal.Mul(gstPercent).Div(decimal.NewFromInt(100)).Round(0)
	deliveryFee := decimal.NewFromInt(int64(r.cfg.DeliveryFee))
	grandTotal := subtotal.Add(gst).Add(deliveryFee)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	if r.cfg.LogoPath != "" {
		if _, err := os.Stat(r.cfg.LogoPath); err == nil {
			doc.ImageOptions(r.cfg.LogoPath, 15, 12, 30, 0, false, fpdf.ImageOptions{}, 0, "")
		}
	}

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, "Invoice", "", 1, "C", false, 0, "")

	companyParts := []string{}
	for _, part := range []string{r.cfg.CompanyName, r.cfg.CompanyAddress, r.cfg.CompanyPhone} {
		if part != "" {
			companyParts = append(companyParts, part)
		}
	}
	if len(companyParts) > 0 {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 6, strings.Join(companyParts, " | "), "", 1, "C", false, 0, "")
	}
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(95, 6, fmt.Sprintf("Order ID: %s", inv.OrderID), "", 0, "L", false, 0, "")
	doc.CellFormat(85, 6, fmt.Sprintf("Date: %s", inv.PaidAt.Format("02/01/2006 03:04:05 PM")), "", 1, "R", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "U", 12)
	doc.CellFormat(0, 7, "Delivery Address", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("Phone: %s", inv.Phone), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Address: %s, %s, %s", inv.Address.House, inv.Address.Street, inv.Address.Pincode), "", 1, "L", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "U", 12)
	doc.CellFormat(0, 7, "Items", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(80, 7, "Name", "B", 0, "L", false, 0, "")
	doc.CellFormat(25, 7, "Qty", "B", 0, "R", false, 0, "")
	doc.CellFormat(35, 7, "Price", "B", 0, "R", false, 0, "")
	doc.CellFormat(40, 7, "Total Amount", "B", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, line := range inv.Items {
		doc.CellFormat(80, 7, line.Name, "", 0, "L", false, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%d", line.Qty), "", 0, "R", false, 0, "")
		doc.CellFormat(35, 7, money(line.UnitPrice), "", 0, "R", false, 0, "")
		doc.CellFormat(40, 7, money(line.Total()), "", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	doc.CellFormat(140, 6, "Subtotal:", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 6, money(subtotal), "", 1, "R", false, 0, "")
	doc.CellFormat(140, 6, fmt.Sprintf("GST (%d%%):", r.cfg.GSTPercent), "", 0, "R", false, 0, "")
	doc.CellFormat(40, 6, money(gst), "", 1, "R", false, 0, "")
	doc.CellFormat(140, 6, "Delivery Fee:", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 6, money(deliveryFee), "T", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(140, 8, "Grand Total:", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 8, money(grandTotal), "", 1, "R", false, 0, "")
	doc.Ln(8)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Thank you for your order!", "", 1, "C", false, 0, "")

	if err := doc.OutputFileAndClose(path); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write invoice pdf")
	}
	return path, nil
}

func money(value decimal.Decimal) string {
	return "Rs. " + value.Round(0).String()
}
