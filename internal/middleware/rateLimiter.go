package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxTrackedIPs = 10000
	idleIPTimeout = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	ips       map[string]*clientLimiter
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*clientLimiter), rateLimit: r, burstRate: b, now: time.Now}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	client, exists := i.ips[ip]
	if !exists {
		if len(i.ips) >= maxTrackedIPs {
			i.pruneIdle(now)
		}
		client = &clientLimiter{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = client
	}
	client.lastSeen = now
	return client.limiter
}

// pruneIdle drops clients not seen for idleIPTimeout. Caller holds mu.
func (i *IPRateLimiter) pruneIdle(now time.Time) {
	for ip, client := range i.ips {
		if now.Sub(client.lastSeen) > idleIPTimeout {
			delete(i.ips, ip)
		}
	}
}

// TODO: move the per IP limiters to redis once more than one replica serves the api
