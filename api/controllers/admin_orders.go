package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// OrdersService backs the admin order views.
type OrdersService interface {
	List(ctx context.Context, filter orders.ListFilter) ([]*conversation.Record, error)
	Get(ctx context.Context, phone string) (*conversation.Record, error)
	ResendInvoice(ctx context.Context, phone string) (string, error)
}

// AdminListOrders returns conversations newest-first, filtered by the
// optional state and phone query parameters.
func AdminListOrders(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		records, err := svc.List(ctx, orders.ListFilter{
			State: r.URL.Query().Get("state"),
			Phone: r.URL.Query().Get("phone"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": records})
	}
}

// AdminGetOrder returns one conversation by phone.
func AdminGetOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		rec, err := svc.Get(ctx, chi.URLParam(r, "phone"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// AdminResendInvoice re-issues the invoice for a paid order.
func AdminResendInvoice(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		invoiceURL, err := svc.ResendInvoice(ctx, chi.URLParam(r, "phone"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"action":      "invoice_resent",
			"invoice_url": invoiceURL,
		})
	}
}
