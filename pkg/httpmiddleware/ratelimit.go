package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client token bucket. A client may burst
// up to Max requests and regains Max tokens per Window.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	cfg   RateLimitConfig
	every rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Max <= 0 {
		cfg.Max = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &limiterSet{
		cfg:     cfg,
		every:   rate.Every(cfg.Window / time.Duration(cfg.Max)),
		buckets: make(map[string]*bucket),
	}
}

// take consumes a token for key. It returns the tokens left and, when the
// request is rejected, how long until a token is available.
func (s *limiterSet) take(key string, now time.Time) (remaining int, retryAfter time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, found := s.buckets[key]
	if !found {
		b = &bucket{lim: rate.NewLimiter(s.every, s.cfg.Max)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	if b.lim.AllowN(now, 1) {
		return int(math.Floor(b.lim.TokensAt(now))), 0, true
	}
	missing := 1 - b.lim.TokensAt(now)
	return 0, time.Duration(missing / float64(s.every) * float64(time.Second)), false
}

// evict drops buckets idle for longer than a full window; they would be full
// again anyway.
func (s *limiterSet) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > s.cfg.Window {
			delete(s.buckets, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit rejects clients exceeding the configured rate with 429. Every
// response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiterSet(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle clients
// once per window until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	s := newLimiterSet(cfg)
	go func() {
		ticker := time.NewTicker(s.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now)
			}
		}
	}()
	return s.middleware
}

func (s *limiterSet) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, ok := s.take(s.cfg.KeyFunc(r), time.Now())

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.cfg.Max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(retryAfter.Seconds())))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
