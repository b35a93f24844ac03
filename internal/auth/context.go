package auth

import "context"

type ctxKey struct{}

// WithUserID stores the authenticated user's id on the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the authenticated user's id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id > 0
}

// AccessTokenCookie is the cookie the browser client sends the access token in.
const AccessTokenCookie = "access_token"
