package browser

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces a minimum interval between requests to the
// same host. It is the one piece of state shared between concurrent
// extraction runs.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	interval time.Duration
}

// NewDomainLimiter creates a limiter with the given default interval
// between requests per domain.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until the domain of rawURL may be requested again, or
// the context is cancelled. URLs without a host pass through.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	host := extractHost(rawURL)
	if host == "" || l.interval <= 0 {
		return nil
	}
	return l.limiterFor(host, l.interval).Wait(ctx)
}

// SetDomainInterval overrides the interval for a specific host.
func (l *DomainLimiter) SetDomainInterval(host string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[host] = rate.NewLimiter(rate.Every(interval), 1)
}

func (l *DomainLimiter) limiterFor(host string, interval time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
		l.limiters[host] = limiter
	}
	return limiter
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
