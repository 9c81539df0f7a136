package middleware

import (
	"context"

	"github.com/angelmondragon/univend-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// WithIdentity stores the verified caller on the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the caller set by Auth.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	identity, ok := ctx.Value(ctxIdentity).(auth.Identity)
	return identity, ok
}

func UserIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.UserID
}

func RoleFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return string(identity.Role)
}

// RequireIdentity returns the caller or an unauthorized error when Auth did
// not run for this request.
func RequireIdentity(ctx context.Context) (auth.Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == "" {
		return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return identity, nil
}
