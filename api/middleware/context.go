package middleware

import "context"

type ctxKey string

const ctxAdminEmail ctxKey = "admin_email"

// AdminEmail returns the authenticated operator's email, if any.
func AdminEmail(ctx context.Context) string {
	if v, ok := ctx.Value(ctxAdminEmail).(string); ok {
		return v
	}
	return ""
}
