package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/papyrus-app/papyrus/internal/authz"
)

// ErrInvalidLogin indicates a failed email/password check. The caller
// never learns which half was wrong.
var ErrInvalidLogin = errors.New("users: invalid login")

// DefaultRole is assigned to accounts created from external claims that
// carry no role of their own. The permission table decides what, if
// anything, it may do.
const DefaultRole = "reader"

// Service encapsulates user-related business logic.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Authenticate validates email/password credentials and returns the
// principal for the stored account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	return u, nil
}

// Register creates or updates an account with a freshly hashed password.
func (s *Service) Register(ctx context.Context, email, name, role, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, &User{Email: email, Name: name, Role: role, PasswordHash: string(hash)})
}

// UpsertFromClaims creates or updates an account from verified external
// claims (OIDC flow). The stored role wins over the claim's when present.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]any) (*User, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, nil
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = DefaultRole
	}
	return s.repo.Upsert(ctx, &User{Email: email, Name: name, Role: role})
}

// Principal maps a stored user to the gate's identity type.
func (u *User) Principal() authz.Principal {
	return authz.Principal{Subject: u.ID, Role: u.Role}
}
