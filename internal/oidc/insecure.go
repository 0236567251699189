package oidc

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/tokens"
)

// InsecureVerifier extracts claims without checking the signature. It
// exists for integration tests that mint tokens out of band and must never
// be enabled outside of them (see ALLOW_INSECURE_TOKEN in main).
type InsecureVerifier struct{}

func (InsecureVerifier) Verify(ctx context.Context, raw string) (authz.Principal, error) {
	claims, err := InsecureVerifier{}.Claims(ctx, raw)
	if err != nil {
		return authz.Principal{}, err
	}
	return tokens.PrincipalFromClaims(claims)
}

func (InsecureVerifier) Claims(ctx context.Context, raw string) (map[string]any, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, tokens.ErrInvalidCredential
	}
	return map[string]any(claims), nil
}
