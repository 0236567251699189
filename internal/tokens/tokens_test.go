package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/papyrus-app/papyrus/internal/authz"
)

func TestGenerateAndVerify(t *testing.T) {
	p := authz.Principal{Subject: "u1", Role: "author"}
	raw, err := GenerateAccessToken("secret", p, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := NewVerifier("secret").Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != p {
		t.Fatalf("principal round-trip mismatch: %+v", got)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := GenerateAccessToken("secret", authz.Principal{Subject: "u1"}, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = NewVerifier("other").Verify(context.Background(), raw)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	raw, err := GenerateAccessToken("secret", authz.Principal{Subject: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = NewVerifier("secret").Verify(context.Background(), raw)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewVerifier("secret").Verify(context.Background(), "not-a-token")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestPrincipalFromClaims(t *testing.T) {
	p, err := PrincipalFromClaims(map[string]any{"sub": "u1", "role": "reader"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Subject != "u1" || p.Role != "reader" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	// role is optional, subject is not
	p, err = PrincipalFromClaims(map[string]any{"sub": "u1"})
	if err != nil || p.Role != "" {
		t.Fatalf("expected empty role, got %+v err=%v", p, err)
	}
	if _, err := PrincipalFromClaims(map[string]any{"role": "reader"}); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for missing sub, got %v", err)
	}
}
