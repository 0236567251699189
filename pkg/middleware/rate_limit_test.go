package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func rateLimitRouter(rps float64, burst int) *gin.Engine {
	g := gin.New()
	g.Use(RateLimitMiddleware(rps, burst))
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return g
}

func hitFrom(g *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitEnforcesBurst(t *testing.T) {
	// near-zero refill rate so only the burst allowance matters
	g := rateLimitRouter(0.0001, 2)
	ip := "10.1.1.1"

	require.Equal(t, http.StatusOK, hitFrom(g, ip))
	require.Equal(t, http.StatusOK, hitFrom(g, ip))
	require.Equal(t, http.StatusTooManyRequests, hitFrom(g, ip))
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	g := rateLimitRouter(0.0001, 1)

	require.Equal(t, http.StatusOK, hitFrom(g, "10.2.2.1"))
	require.Equal(t, http.StatusTooManyRequests, hitFrom(g, "10.2.2.1"))
	// a different client still has its own bucket
	require.Equal(t, http.StatusOK, hitFrom(g, "10.2.2.2"))
}
