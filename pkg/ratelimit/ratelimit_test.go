package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(t *testing.T, l *Limiter) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	e.POST("/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, l.Middleware)
	return e
}

func TestLimiter_WithoutRedis(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.AuthRateLimitCapacity = 1
	l, err := New(cfg)
	require.NoError(t, err)
	defer l.Close()

	e := newEcho(t, l)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	}
}

func newRedisLimiter(t *testing.T, capacity int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := config.NewForTest()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.AuthRateLimitCapacity = capacity
	cfg.AuthRateLimitRefillInterval = time.Minute

	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func login(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestLimiter_TokenBucket(t *testing.T) {
	t.Parallel()

	l, mr := newRedisLimiter(t, 3)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	e := newEcho(t, l)

	for want := 2; want >= 0; want-- {
		rr := login(e, "203.0.113.7")
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(want), rr.Header().Get("X-RateLimit-Remaining"))
		assert.Empty(t, rr.Header().Get("Retry-After"))
	}

	rr := login(e, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"too_many_requests"`)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.True(t, mr.Exists("shelfdesk:ratelimit:POST /auth/login:203.0.113.7"))

	// Other clients have their own bucket.
	rr = login(e, "198.51.100.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Remaining"))

	// Part way through the interval the wait shrinks.
	now = now.Add(45 * time.Second)
	rr = login(e, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "15", rr.Header().Get("Retry-After"))

	// One interval refills one token.
	now = now.Add(15 * time.Second)
	rr = login(e, "203.0.113.7")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
}

func TestLimiter_FailsOpen(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	l, err := New(cfg)
	require.NoError(t, err)
	defer l.Close()

	rr := httptest.NewRecorder()
	newEcho(t, l).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.RedisURL = "not a url"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestLimiter_Key(t *testing.T) {
	t.Parallel()

	l := &Limiter{interval: time.Minute, capacity: 10}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/auth/login")

	assert.Equal(t, "shelfdesk:ratelimit:POST /auth/login:203.0.113.7", l.key(c))
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(999))
	assert.Equal(t, 2, retryAfterSeconds(1001))
	assert.Equal(t, 60, retryAfterSeconds(60000))
}
