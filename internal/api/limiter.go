package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nekogravitycat/shareit-backend/internal/config"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/response"
)

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// rateLimiter keeps one token bucket per client key. Buckets idle for longer
// than limiterIdleTTL are dropped by a sweep that runs at most once per TTL.
type rateLimiter struct {
	clients   sync.Map
	cfg       config.RateLimitConfig
	now       func() time.Time
	lastSweep atomic.Int64
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg, now: time.Now}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	defer l.sweep(now)

	if v, ok := l.clients.Load(key); ok {
		if cl, ok := v.(*clientLimiter); ok {
			cl.lastSeen.Store(now)
			return cl.limiter
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	cl := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)}
	cl.lastSeen.Store(now)
	actual, loaded := l.clients.LoadOrStore(key, cl)
	if loaded {
		if actualCl, ok := actual.(*clientLimiter); ok {
			actualCl.lastSeen.Store(now)
			return actualCl.limiter
		}
	}
	return cl.limiter
}

func (l *rateLimiter) sweep(now int64) {
	last := l.lastSweep.Load()
	if now-last < int64(limiterIdleTTL) || !l.lastSweep.CompareAndSwap(last, now) {
		return
	}
	cutoff := now - int64(limiterIdleTTL)
	l.clients.Range(func(key, v any) bool {
		if cl, ok := v.(*clientLimiter); ok && cl.lastSeen.Load() < cutoff {
			l.clients.Delete(key)
		}
		return true
	})
}

// middleware rejects requests with 429 once the client's bucket is empty.
// A non-positive RPS disables limiting.
func (l *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.cfg.RPS <= 0 {
			c.Next()
			return
		}
		if !l.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
