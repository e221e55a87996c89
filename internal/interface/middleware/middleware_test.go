package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_ReusesWellFormedHeader(t *testing.T) {
	const incoming = "6b1f3c2a-9d4e-4f5a-8b7c-1d2e3f4a5b6c"
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(middleware.RequestIDHeader))
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RealIP())
	var ip string
	r.GET("/", func(c *gin.Context) {
		ip = c.GetString("real_ip")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.9")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p+"?x=1", nil))
	}

	require.Len(t, hook.Entries, 3)
	assert.Equal(t, logrus.InfoLevel, hook.Entries[0].Level)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[1].Level)
	assert.Equal(t, logrus.ErrorLevel, hook.Entries[2].Level)

	first := hook.Entries[0].Data
	assert.Equal(t, http.MethodGet, first["method"])
	assert.Equal(t, "/ok?x=1", first["uri"])
	assert.Equal(t, http.StatusOK, first["status"])
	assert.Len(t, first["request_id"], 36)
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := gin.New()
	r.GET("/", middleware.RateLimit(nil, 1, time.Minute, middleware.KeyByIP(), nil, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestAllowFuncs(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RealIP())
	allow := middleware.AllowAny(middleware.AllowPaths("/health"), middleware.AllowPrivateIP())
	results := map[string]bool{}
	handler := func(c *gin.Context) {
		results[c.Request.URL.Path+"|"+c.GetString("real_ip")] = allow(c)
		c.Status(http.StatusOK)
	}
	r.GET("/health", handler)
	r.GET("/users", handler)

	send := func(path, xff string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", xff)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	send("/health", "203.0.113.7")
	send("/users", "203.0.113.7")
	send("/users", "10.1.2.3")

	assert.True(t, results["/health|203.0.113.7"])
	assert.False(t, results["/users|203.0.113.7"])
	assert.True(t, results["/users|10.1.2.3"])
}

func newLimitedEngine(t *testing.T, max int, keyFn middleware.KeyFunc, allow middleware.AllowFunc) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	limit := middleware.RateLimit(rdb, max, time.Minute, keyFn, allow, nil)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/a", limit, ok)
	r.GET("/b", limit, ok)
	return r, mr
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	r, _ := newLimitedEngine(t, 2, middleware.KeyByIP(), nil)

	for i, remaining := range []string{"1", "0"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, remaining, w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
		assert.Empty(t, w.Header().Get("Retry-After"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimit_WindowExpires(t *testing.T) {
	r, mr := newLimitedEngine(t, 1, middleware.KeyByIP(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	mr.FastForward(time.Minute)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_KeyByIPAndPathCountsRoutesSeparately(t *testing.T) {
	r, mr := newLimitedEngine(t, 1, middleware.KeyByIPAndPath(), nil)

	for _, p := range []string{"/a", "/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, w.Code, p)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	assert.True(t, mr.Exists("rl:path:GET /a:ip:192.0.2.1"))
}

func TestRateLimit_AllowFuncBypasses(t *testing.T) {
	r, mr := newLimitedEngine(t, 1, middleware.KeyByIP(), middleware.AllowPaths("/a"))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.False(t, mr.Exists("rl:ip:192.0.2.1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
}
