package http

import (
	"sync"
	"time"
)

const (
	requestsPerMinute = 60
	cleanupInterval   = 5 * time.Minute
)

type clientWindow struct {
	count    int
	windowAt time.Time
}

// rateLimiter caps requests per client IP in fixed one-minute windows.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientWindow),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.clients[ip]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		rl.clients[ip] = &clientWindow{count: 1, windowAt: now}
		return true
	}
	if c.count >= requestsPerMinute {
		return false
	}
	c.count++
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-2 * time.Minute)
			for ip, c := range rl.clients {
				if c.windowAt.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}
