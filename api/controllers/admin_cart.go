package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/api/validators"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// CartService backs the admin cart repair endpoints.
type CartService interface {
	ClearCart(ctx context.Context, phone string) (*conversation.Record, error)
	RemoveItem(ctx context.Context, phone, itemID string) (*conversation.Record, error)
	UpdateQty(ctx context.Context, phone, itemID string, qty int) (*conversation.Record, error)
}

// AdminClearCart empties a conversation's cart.
func AdminClearCart(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		rec, err := svc.ClearCart(ctx, chi.URLParam(r, "phone"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

type removeItemRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

// AdminRemoveItem drops one line from a conversation's cart.
func AdminRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body removeItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rec, err := svc.RemoveItem(ctx, chi.URLParam(r, "phone"), body.ItemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

type updateQtyRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	Qty    int    `json:"qty"`
}

// AdminUpdateQty overwrites a cart line's quantity; zero removes the line.
func AdminUpdateQty(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body updateQtyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rec, err := svc.UpdateQty(ctx, chi.URLParam(r, "phone"), body.ItemID, body.Qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}
