package auth

import (
	"context"

	apperrors "studiobook/pkg/errors"
)

// Principal is the authenticated caller as asserted by the upstream gateway.
// It is verified before it reaches this service and is passed explicitly to
// every service operation instead of living in ambient state.
type Principal struct {
	ID      string
	Name    string
	Email   string
	IsAdmin bool
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, apperrors.Unauthorized("authentication required")
	}
	return p, nil
}
