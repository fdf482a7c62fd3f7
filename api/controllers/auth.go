package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/chatcart-backend/api/middleware"
	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/api/validators"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// AuthService authenticates the dashboard operator.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin exchanges operator credentials for a bearer token.
func AdminLogin(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		token, err := svc.Login(ctx, body.Email, body.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"token": token})
	}
}

// AdminMe returns the authenticated operator identity.
func AdminMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := middleware.AdminEmail(r.Context())
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"email": email, "role": "admin"})
	}
}
