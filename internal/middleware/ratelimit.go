package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/abuobaidahamim/Unify/internal/apperror"
)

// idleLimiterTTL is how long an IP's limiter survives without requests.
const idleLimiterTTL = 10 * time.Minute

// sweepInterval is the minimum time between idle sweeps.
const sweepInterval = time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds one token bucket per client IP.
type ipLimiters struct {
	mu        sync.Mutex
	entries   map[string]*ipLimiter
	lastSweep time.Time
	limit     rate.Limit
	burst     int
}

func newIPLimiters(maxRequests int, window time.Duration) *ipLimiters {
	return &ipLimiters{
		entries: make(map[string]*ipLimiter),
		limit:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
	}
}

// allow reports whether ip may make a request at now. Idle entries are
// swept at most once per sweepInterval.
func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	entry, ok := l.entries[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ipLimiters) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

// RateLimit returns middleware that allows maxRequests per window for each
// client IP (c.RealIP, so TrustedProxies must be configured behind a proxy).
// A full burst of maxRequests is allowed up front and refills evenly over
// the window. Excess requests get a 429.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	limiters := newIPLimiters(maxRequests, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiters.allow(c.RealIP(), time.Now()) {
				return apperror.NewTooManyRequests("Rate limit exceeded. Please try again later.")
			}
			return next(c)
		}
	}
}
