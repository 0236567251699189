package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/config"
	"github.com/papyrus-app/papyrus/internal/sessions"
	"github.com/papyrus-app/papyrus/internal/tokens"
	"github.com/papyrus-app/papyrus/internal/users"
	"github.com/papyrus-app/papyrus/pkg/middleware"
)

// LoginRequest carries email/password credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest creates an account. Role is optional; new accounts
// default to the reader role and what that may do is up to the
// permission table.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
	Password string `json:"password" binding:"required,min=8"`
}

// ExchangeRequest trades an identity-provider token for this service's
// token pair.
type ExchangeRequest struct {
	Token string `json:"token" binding:"required"`
}

// ClaimsVerifier validates an externally issued identity token and returns
// its claim set. The OIDC verifiers implement it.
type ClaimsVerifier interface {
	Claims(ctx context.Context, raw string) (map[string]any, error)
}

// AuthHandler holds the auth flow dependencies.
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	claims      ClaimsVerifier
}

// NewAuthHandler builds the handler. claims may be nil when no identity
// provider is configured; the exchange route is then not mounted.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, claims ClaimsVerifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, claims: claims}
}

// Register routes under /auth.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.RegisterAccount)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	if h.claims != nil {
		a.POST("/exchange", h.Exchange)
	}
}

// RegisterAccount creates (or re-hashes) an account.
func (h *AuthHandler) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := req.Role
	if role == "" {
		role = users.DefaultRole
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Email, req.Name, role, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "email": u.Email, "role": u.Role})
}

// Login validates credentials and issues an access token plus refresh
// session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidLogin) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	principal := u.Principal()
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, principal, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	refresh, err := h.sessionsSvc.CreateSession(c.Request.Context(), principal.Subject, principal.Role, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"role":         principal.Role,
	})
}

// Exchange verifies an identity-provider token, provisions the account
// from its claims, and issues this service's token pair.
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := h.claims.Claims(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account provisioning failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token carries no email claim"})
		return
	}
	principal := u.Principal()
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, principal, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	refresh, err := h.sessionsSvc.CreateSession(c.Request.Context(), principal.Subject, principal.Role, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"role":         principal.Role,
	})
}

// Refresh issues a new access token for a valid refresh session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, authz.Principal{Subject: sess.Subject, Role: sess.Role}, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

// Logout revokes the presented access token and, when provided, the
// refresh session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, ok := middleware.BearerToken(c); ok {
		_ = sessions.BlacklistAccessToken(c.Request.Context(), raw, h.cfg.JWT.AccessTokenTTL)
	}
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		_ = h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken)
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
