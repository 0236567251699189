package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitFixedWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := gin.New()
	// 1 rps over a 1s window plus burst 1 -> 2 allowed per window
	g.Use(RedisRateLimitMiddleware(client, 1, 1, time.Second))
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", "10.3.3.1")
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, hit())
	require.Equal(t, http.StatusOK, hit())
	third := hit()
	if third != http.StatusTooManyRequests {
		// the window may have rolled over between requests; the bucket
		// reset is acceptable, a non-429 other status is not
		require.Equal(t, http.StatusOK, third)
	}
}

func TestRedisRateLimitNilClientFallsBack(t *testing.T) {
	g := gin.New()
	g.Use(RedisRateLimitMiddleware(nil, 0.0001, 1, time.Second))
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", "10.4.4.1")
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, hit())
	require.Equal(t, http.StatusTooManyRequests, hit())
}
