package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/papyrus-app/papyrus/internal/authz"
)

// ErrInvalidCredential covers every verification failure: bad signature,
// expired token, missing subject. Callers never learn more than that the
// credential did not verify.
var ErrInvalidCredential = errors.New("tokens: invalid credential")

// GenerateAccessToken creates a signed HS256 access token carrying the
// principal's subject and role.
func GenerateAccessToken(secret string, p authz.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  p.Subject,
		"role": p.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// Verifier turns a raw JWT into a Principal. It is the credential
// collaborator of the authorization gate: the gate itself never sees the
// token.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for tokens signed with the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature and expiry and extracts the (subject, role)
// pair. Any failure maps to ErrInvalidCredential.
func (v *Verifier) Verify(ctx context.Context, raw string) (authz.Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return authz.Principal{}, ErrInvalidCredential
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return authz.Principal{}, ErrInvalidCredential
	}
	return PrincipalFromClaims(map[string]any(claims))
}

// PrincipalFromClaims maps verified claims to a Principal. The subject is
// required; a missing role yields an empty role, which the default-deny
// table turns into a deny.
func PrincipalFromClaims(claims map[string]any) (authz.Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return authz.Principal{}, ErrInvalidCredential
	}
	role, _ := claims["role"].(string)
	return authz.Principal{Subject: sub, Role: role}, nil
}
