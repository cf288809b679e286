package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"teamflow/internal/config"
	"teamflow/internal/logging"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// 使われていないリミッタを掃除する間隔
const limiterCleanupEvery = 5 * time.Minute

// クライアントIPごとのトークンバケット
type RateLimiter struct {
	cfg   config.RateLimitConfig
	rate  rate.Limit
	burst int

	limiters    sync.Map // map[string]*rate.Limiter
	mu          sync.Mutex
	lastCleanup time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	perSecond := float64(cfg.Requests) / cfg.Window.Seconds()
	return &RateLimiter{
		cfg:         cfg,
		rate:        rate.Limit(perSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// バケットが満タン（しばらく使われていない）のものを捨てる
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < limiterCleanupEvery {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// 超えたら429とRetry-After
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if key == "" {
				return next(c)
			}

			l := rl.limiter(key)
			if l.Allow() {
				return next(c)
			}

			r := l.Reserve()
			delay := r.Delay()
			r.Cancel()
			retryAfter := max(int(delay.Seconds()), 1)

			h := c.Response().Header()
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Requests))
			h.Set("X-RateLimit-Window", rl.cfg.Window.String())

			logging.FromContext(c.Request().Context()).Warn("rate limit exceeded",
				"key", key,
				"path", c.Path(),
				"retry_after", retryAfter,
			)
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		}
	}
}
