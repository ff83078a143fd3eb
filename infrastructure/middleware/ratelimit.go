package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// RateLimiter applies a per-key token bucket (keyed by authenticated user
// or, failing that, client IP) to every request that passes through its
// Handler, whatever the method.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	limit    int
	window   time.Duration
	logger   *logging.Logger
}

// NewRateLimiter builds a limiter configured by a fixed request budget over
// a window, e.g. 100 requests per minute.
func NewRateLimiter(limit int, window time.Duration, burst int, logger *logging.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	perSecond := float64(limit) / window.Seconds()
	if perSecond < 0 {
		perSecond = 0
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Handler returns the rate-limiting middleware.
func (rl *RateLimiter) Handler(keyFor func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFor(r)
			if key == "" {
				key = httputil.ClientIP(r)
			}
			if key == "" {
				key = "unknown"
			}

			if !rl.limiterFor(key).Allow() {
				if rl.logger != nil {
					rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
						"key": key, "path": r.URL.Path, "method": r.Method,
					})
				}
				if seconds := int(math.Ceil(rl.window.Seconds())); seconds > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
				}
				httputil.WriteError(w, cperrors.New(cperrors.Code("rate_limit_exceeded"), "rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Cleanup drops all tracked limiters once the map grows unreasonably large;
// a fresh limiter is allocated lazily for any key seen again.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup on a fixed interval until the returned stop
// function is called.
func (rl *RateLimiter) StartCleanup(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
