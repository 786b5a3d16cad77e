package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled at Requests per Window.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

func (c RateLimitConfig) limit() rate.Limit {
	if c.Requests <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Requests) / c.Window.Seconds())
}

func (c RateLimitConfig) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return max(c.Requests, 1)
}

// RateLimits groups the profiles routes pick from.
type RateLimits struct {
	// Strict guards credential endpoints against guessing.
	Strict RateLimitConfig `mapstructure:"strict"`
	// Moderate covers refresh and authenticated writes.
	Moderate RateLimitConfig `mapstructure:"moderate"`
	// Lenient covers authenticated reads and health probes.
	Lenient RateLimitConfig `mapstructure:"lenient"`
	// Public covers the key set, which every resource server polls.
	Public RateLimitConfig `mapstructure:"public"`
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{Requests: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{Requests: 100, Window: time.Minute, Burst: 100},
		Public:   RateLimitConfig{Requests: 1000, Window: time.Minute, Burst: 1000},
	}
}

// KeyExtractor picks the bucket a request is charged to. An empty key skips
// limiting for that request.
type KeyExtractor func(*http.Request) string

// ClientIP returns the caller's address. X-Forwarded-For and X-Real-IP are
// honoured only with trustProxy set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IPKeyExtractor keys requests by ClientIP.
func IPKeyExtractor(trustProxy bool) KeyExtractor {
	return func(r *http.Request) string {
		if ip := ClientIP(r, trustProxy); ip != "" {
			return "ip:" + ip
		}
		return ""
	}
}

// SubjectKeyExtractor keys requests by the authenticated subject. It must run
// after AuthnMiddleware.
func SubjectKeyExtractor(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return "sub:" + sub
	}
	return ""
}

// FirstKey uses the first extractor that yields a key.
func FirstKey(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				return key
			}
		}
		return ""
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter holds one token bucket per key. Buckets idle for longer than
// it takes to refill completely are dropped on the next sweep; a new bucket
// starts full, so dropping them changes nothing for the caller.
type KeyedLimiter struct {
	cfg  RateLimitConfig
	idle time.Duration
	now  func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

func NewKeyedLimiter(cfg RateLimitConfig) *KeyedLimiter {
	idle := time.Minute
	if l := cfg.limit(); l != rate.Inf && l > 0 {
		refill := time.Duration(float64(cfg.burst()) / float64(l) * float64(time.Second))
		idle = max(refill, time.Second)
	}
	return &KeyedLimiter{
		cfg:     cfg,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow charges one request to key. When it is refused, retryAfter is how
// long until the next token.
func (k *KeyedLimiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	k.sweep(now)

	b, found := k.buckets[key]
	if !found {
		b = &bucket{limiter: rate.NewLimiter(k.cfg.limit(), k.cfg.burst())}
		k.buckets[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}

	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// Len reports how many buckets are tracked.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedLimiter) sweep(now time.Time) {
	if now.Before(k.nextSweep) {
		return
	}
	k.nextSweep = now.Add(k.idle)
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) >= k.idle {
			delete(k.buckets, key)
		}
	}
}

// RateLimitMiddleware refuses requests over the limit with 429 and a
// Retry-After header.
func RateLimitMiddleware(cfg RateLimitConfig, keyOf KeyExtractor) Middleware {
	limiter := NewKeyedLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := limiter.Allow(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteError(w, &APIError{
				Status:      http.StatusTooManyRequests,
				Code:        "rate_limit_exceeded",
				Description: "too many requests, retry later",
			})
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimitConfig, trustProxy bool) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor(trustProxy))
}

// RateLimitByUser limits per authenticated subject, falling back to the
// client address for anonymous requests.
func RateLimitByUser(cfg RateLimitConfig, trustProxy bool) Middleware {
	return RateLimitMiddleware(cfg, FirstKey(SubjectKeyExtractor, IPKeyExtractor(trustProxy)))
}
