package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/tokens"
)

// Verifier adapts an OIDC provider to the credential-verifier contract:
// a verified ID token becomes a Principal built from its sub and role
// claims. Deployments that front papyrus with an identity provider use
// this instead of the built-in JWT verifier.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and builds a verifier for
// the given client ID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify validates the raw ID token and maps its claims to a Principal.
func (v *Verifier) Verify(ctx context.Context, raw string) (authz.Principal, error) {
	claims, err := v.Claims(ctx, raw)
	if err != nil {
		return authz.Principal{}, err
	}
	return tokens.PrincipalFromClaims(claims)
}

// Claims validates the raw ID token and returns its full claim set, for
// callers that provision accounts from it.
func (v *Verifier) Claims(ctx context.Context, raw string) (map[string]any, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, tokens.ErrInvalidCredential
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, tokens.ErrInvalidCredential
	}
	return claims, nil
}
