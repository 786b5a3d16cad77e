package httpx_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = addr
	return req
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", want: "192.168.1.1"},
		{
			name:    "forwarding headers ignored by default",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "203.0.113.2"},
			want:    "192.168.1.1",
		},
		{
			name:       "first forwarded hop when trusted",
			trustProxy: true,
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"},
			want:       "203.0.113.1",
		},
		{
			name:       "real ip when trusted and no forwarded for",
			trustProxy: true,
			headers:    map[string]string{"X-Real-IP": " 203.0.113.2 "},
			want:       "203.0.113.2",
		},
		{
			name:       "trusted but no headers",
			trustProxy: true,
			want:       "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom("192.168.1.1:12345")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.ClientIP(req, tt.trustProxy))
		})
	}

	t.Run("remote addr without port", func(t *testing.T) {
		require.Equal(t, "pipe", httpx.ClientIP(requestFrom("pipe"), false))
	})
}

func TestKeyExtractors(t *testing.T) {
	req := requestFrom("192.168.1.1:12345")
	keyOf := httpx.FirstKey(httpx.SubjectKeyExtractor, httpx.IPKeyExtractor(false))

	require.Empty(t, httpx.SubjectKeyExtractor(req))
	require.Equal(t, "ip:192.168.1.1", keyOf(req))

	claims := jwtx.NewAccessClaims("42", "customer", "auth-service", time.Now())
	req = req.WithContext(httpx.ContextWithClaims(req.Context(), &claims))
	require.Equal(t, "sub:42", keyOf(req))

	empty := httpx.FirstKey(func(*http.Request) string { return "" })
	require.Empty(t, empty(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests up to the burst then refuses", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 3, Window: time.Minute, Burst: 3}
		h := httpx.RateLimitByIP(cfg, false)(okHandler())

		for i := range 3 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.JSONEq(t,
			`{"error":"rate_limit_exceeded","error_description":"too many requests, retry later"}`,
			rec.Body.String())
	})

	t.Run("keys are independent", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(cfg, false)(okHandler())

		for i := 1; i <= 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestFrom(fmt.Sprintf("10.0.0.%d:1", i)))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("spoofed forwarding headers do not escape the limit", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(cfg, false)(okHandler())

		codes := make([]int, 0, 3)
		for i := range 3 {
			req := requestFrom("192.168.1.1:12345")
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler())

		for range 3 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("zero requests disables the limit", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{}, false)(okHandler())

		for range 50 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitHeaders(t *testing.T) {
	cfg := httpx.RateLimitConfig{Requests: 2, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByIP(cfg, false)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.168.1.1:12345"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, retryAfter, 1)
	require.LessOrEqual(t, retryAfter, 30)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
}

func TestRateLimitByUser(t *testing.T) {
	cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByUser(cfg, false)(okHandler())

	as := func(sub string) *http.Request {
		req := requestFrom("192.168.1.1:12345")
		if sub == "" {
			return req
		}
		claims := jwtx.NewAccessClaims(sub, "customer", "auth-service", time.Now())
		return req.WithContext(httpx.ContextWithClaims(context.Background(), &claims))
	}

	serve := func(req *http.Request) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Two users behind one address each get their own bucket.
	require.Equal(t, http.StatusOK, serve(as("1")))
	require.Equal(t, http.StatusOK, serve(as("2")))
	require.Equal(t, http.StatusTooManyRequests, serve(as("1")))

	// Anonymous traffic falls back to the address.
	require.Equal(t, http.StatusOK, serve(as("")))
	require.Equal(t, http.StatusTooManyRequests, serve(as("")))
}

func TestDefaultRateLimits(t *testing.T) {
	d := httpx.DefaultRateLimits()

	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict": d.Strict, "moderate": d.Moderate, "lenient": d.Lenient, "public": d.Public,
	} {
		require.Positive(t, cfg.Requests, name)
		require.Equal(t, time.Minute, cfg.Window, name)
	}
	require.Less(t, d.Strict.Requests, d.Moderate.Requests)
	require.Less(t, d.Moderate.Requests, d.Lenient.Requests)
	require.Less(t, d.Lenient.Requests, d.Public.Requests)
}
