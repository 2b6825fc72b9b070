package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitedBody = `{"success":false,"error":{"code":"RATE_LIMITED","message":"too many requests"}}`

const (
	defaultIdleTTL    = 10 * time.Minute
	defaultMaxClients = 10000
)

// ClientLimiter hands out one token bucket per client address. Buckets idle
// longer than idleTTL are swept, and the table never holds more than
// maxClients entries.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	maxSize   int
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewClientLimiter(perSecond float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients:   make(map[string]*clientBucket),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   defaultIdleTTL,
		maxSize:   defaultMaxClients,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (c *ClientLimiter) limiter(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idleTTL {
		c.sweep(now)
	}

	b, ok := c.clients[key]
	if !ok {
		if len(c.clients) >= c.maxSize {
			c.evictOldest()
		}
		b = &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets not used within idleTTL. A bucket idle that long has
// refilled, so a returning client loses nothing.
func (c *ClientLimiter) sweep(now time.Time) {
	for key, b := range c.clients {
		if now.Sub(b.lastSeen) >= c.idleTTL {
			delete(c.clients, key)
		}
	}
	c.lastSweep = now
}

func (c *ClientLimiter) evictOldest() {
	var (
		oldestKey  string
		oldestSeen time.Time
	)
	for key, b := range c.clients {
		if oldestKey == "" || b.lastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = key, b.lastSeen
		}
	}
	delete(c.clients, oldestKey)
}

// Len reports how many clients are currently tracked.
func (c *ClientLimiter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// RateLimit rejects requests over the client's budget with 429.
func RateLimit(c *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.limiter(clientKey(r)).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
