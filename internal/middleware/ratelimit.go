package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig controls a per-client token bucket.
type RateLimiterConfig struct {
	Rate            rate.Limit    // sustained requests per second
	Burst           int           // bucket size
	CleanupInterval time.Duration // how often idle client entries are dropped
}

// DefaultRateLimiterConfig allows 120 requests per minute per client.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(120.0 / 60.0),
		Burst:           120,
		CleanupInterval: 5 * time.Minute,
	}
}

// CheckoutRateLimiterConfig is the stricter bucket for checkout and
// fulfillment, which hit the payment provider on every request.
func CheckoutRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(10.0 / 60.0),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a token-bucket limit keyed by client IP. Distinct
// instances can guard different route groups with different budgets.
type RateLimiter struct {
	config RateLimiterConfig
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter starts a limiter and its background cleanup of idle
// client entries. Call Stop on shutdown.
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		logger:  logger,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects clients that exceed the configured rate with 429
// and a Retry-After header. The client key is r.RemoteAddr, which the
// chi RealIP middleware has already rewritten to the originating IP.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.limiterFor(r.RemoteAddr).Allow() {
				writeRateLimitResponse(w, rl.config.Rate)
				rl.logger.Warn("rate limit exceeded",
					slog.String("client", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientCount reports the number of tracked clients, for tests.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.clients[client]; ok {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.clients[client] = &clientLimiter{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, client)
		}
	}
}

func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Seconds until one token refills.
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limit_exceeded",
		"message": "too many requests, try again later",
	})
}
