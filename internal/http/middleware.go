package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/rbac"
)

// requestLogger attaches a request-scoped logger and logs one line per request.
func requestLogger(base logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		l := base.With("request_id", reqID)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), l))

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			l.Error("Request", kv...)
		case status >= 400:
			l.Warn("Request", kv...)
		default:
			l.Info("Request", kv...)
		}
	}
}

func requirePerm(chk rbac.Checker, permKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.CurrentClaims(c)
		if !ok || !chk.Can(cl.Role, permKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "missing": permKey})
			return
		}
		c.Next()
	}
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

func (l *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// drop idle visitors so the map does not grow without bound
	if len(l.limiters) > 10000 {
		for k, v := range l.limiters {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(l.limiters, k)
			}
		}
	}
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *ipLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP(), time.Now()).Allow() {
			logger.FromContext(c.Request.Context()).Warn("Rate limit exceeded", "ip", c.ClientIP(), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "muitas tentativas, aguarde alguns instantes"})
			return
		}
		c.Next()
	}
}
