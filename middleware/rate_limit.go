package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
	mu      sync.Mutex
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// RateLimitMiddleware applies a per-client token bucket sized by RateLimitPerMinute.
func RateLimitMiddleware() gin.HandlerFunc {
	return RateLimitPerMinute("default", config.Get().RateLimitPerMinute)
}

// RateLimitPerMinute applies a token bucket keyed by scope and client. Authenticated
// requests are keyed by user id, anonymous ones by IP.
func RateLimitPerMinute(scope string, perMinute int) gin.HandlerFunc {
	r := rate.Every(time.Minute / time.Duration(max(perMinute, 1)))
	burst := max(perMinute/2, 1)

	return func(ctx *gin.Context) {
		key := scope + ":ip:" + ctx.ClientIP()
		if id, ok := CurrentUserID(ctx); ok {
			key = scope + ":user:" + strconv.FormatUint(uint64(id), 10)
		}
		limiter := getLimiter(key, r, burst)

		limiter.mu.Lock()
		allowed := limiter.limiter.Allow()
		limiter.mu.Unlock()

		if !allowed {
			utils.Error(ctx, 429, 42901, "rate limit exceeded")
			return
		}

		ctx.Next()
	}
}

func getLimiter(key string, limit rate.Limit, burst int) *rateLimiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	cleanupExpiredLimitersLocked()

	if limiter, ok := limiters[key]; ok {
		limiter.expires = time.Now().Add(5 * time.Minute)
		return limiter
	}

	limiter := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: time.Now().Add(5 * time.Minute),
	}
	limiters[key] = limiter
	return limiter
}

func cleanupExpiredLimitersLocked() {
	now := time.Now()
	for key, limiter := range limiters {
		if now.After(limiter.expires) {
			delete(limiters, key)
		}
	}
}
