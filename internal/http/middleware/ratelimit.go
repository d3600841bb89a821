// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge token-bucket limiter: an in-memory, per-key
// bucket with opportunistic garbage collection. It protects the API process
// itself and sits in front of the per-(address, post) view admission cap,
// which lives in Redis and is shared across replicas.
//
// Features:
//   - Per-key token buckets using golang.org/x/time/rate
//   - Pluggable identity function (client IP, or user then IP)
//   - Exempt paths (health and metrics probes)
//   - Best-effort cleanup of idle buckets to bound memory
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its bucket key ("ip:<addr>", "user:<id>").
type keyFunc func(*gin.Context) string

// KeyByIP keys buckets by client address. Tracking beacons are mostly
// anonymous, so this is the default for the public API.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// KeyByUserOrIP prefers the authenticated user under the "userID" context
// key and falls back to the client address.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor is one bucket and the last time its key was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// gcEvery is how many lookups pass between sweeps of idle buckets.
const gcEvery = 5000

var edgeRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_edge_rate_limited_total",
		Help: "Requests rejected by the edge token bucket.",
	},
	[]string{"route"},
)

func init() { prometheus.MustRegister(edgeRejections) }

// RateLimiter is a per-key token-bucket limiter. Buckets are created on
// demand and swept after ttl of inactivity. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64

	exempt map[string]struct{}
	now    func() time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to >= 1), keyed by keyFn. Requests whose path is in exempt
// are never limited.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, exempt ...string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	ex := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		ex[p] = struct{}{}
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		exempt:   ex,
		now:      time.Now,
	}
}

// getVisitor returns the bucket for key, creating it if absent. The sweep
// runs before the lookup so a stale bucket for key itself is replaced.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= gcEvery {
		rl.sweep(now)
		rl.lookups = 0
	}
	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// sweep drops buckets idle for at least ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
}

// retryAfter is the whole number of seconds until the bucket holds a token
// again, at least 1.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Handler returns a Gin middleware that enforces the limits. A denied request
// gets:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: <seconds until the next token>
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		now := rl.now()
		lim := rl.getVisitor(rl.keyFn(c))
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		edgeRejections.WithLabelValues(route).Inc()

		c.Header("Retry-After", strconv.Itoa(rl.retryAfter(lim, now)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
