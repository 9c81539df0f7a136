package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Custom claims set on Firebase users by the session provider.
const (
	claimRole       = "role"
	claimUniversity = "university"
	claimAddress    = "address"
	claimName       = "name"

	defaultVerifyTimeout = 5 * time.Second
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Verifier implements auth.Verifier on top of Firebase ID tokens. Users
// without a role claim are treated as buyers.
type Verifier struct {
	tokens  TokenVerifier
	timeout time.Duration
}

func NewVerifier(tokens TokenVerifier) (*Verifier, error) {
	if tokens == nil {
		return nil, errors.New("firebase token verifier is required")
	}
	return &Verifier{tokens: tokens, timeout: defaultVerifyTimeout}, nil
}

func (v *Verifier) Verify(ctx context.Context, idToken string) (*auth.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, errors.New("id token is empty")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	token, err := v.tokens.VerifyIDToken(verifyCtx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify firebase id token: %w", err)
	}
	return identityFromToken(token)
}

func identityFromToken(token *firebaseauth.Token) (*auth.Identity, error) {
	if token == nil || strings.TrimSpace(token.UID) == "" {
		return nil, errors.New("firebase token has no uid")
	}

	role := enums.RoleBuyer
	if raw := stringClaim(token.Claims, claimRole); raw != "" {
		parsed, err := enums.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	return &auth.Identity{
		UserID:     token.UID,
		Name:       stringClaim(token.Claims, claimName),
		Role:       role,
		University: stringClaim(token.Claims, claimUniversity),
		Address:    stringClaim(token.Claims, claimAddress),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	value, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
