package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-client limiter.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate allowed per client IP.
	RequestsPerSecond float64
	// Burst is how far a client may run ahead of the sustained rate.
	Burst int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 20, Burst: 40}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit throttles per client IP. Over-limit requests get 429 with the
// API error envelope so clients can back off and retry.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultRateLimitConfig()
	}

	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)
	lastSweep := time.Now()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			// Idle client entries are dropped opportunistically so the map
			// does not grow with every address ever seen.
			if now := time.Now(); now.Sub(lastSweep) > 3*time.Minute {
				for addr, cl := range clients {
					if now.Sub(cl.lastSeen) > 3*time.Minute {
						delete(clients, addr)
					}
				}
				lastSweep = now
			}
			cl, ok := clients[ip]
			if !ok {
				cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
				clients[ip] = cl
			}
			cl.lastSeen = time.Now()
			allowed := cl.limiter.Allow()
			mu.Unlock()

			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
