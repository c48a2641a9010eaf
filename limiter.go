package pocketscience

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter is one client's token bucket and when it was last used.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP. Each IP gets a token bucket
// holding max requests that refills over window.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
	window   time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a RateLimiter that allows max requests per window.
// Call Stop to end its cleanup goroutine.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max < 1 {
		max = 1
	}
	l := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Every(window / time.Duration(max)),
		burst:    max,
		window:   window,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// cleanup drops buckets idle for longer than a window; a fresh bucket is
// full, so forgetting them changes nothing.
func (l *RateLimiter) cleanup() {
	defer close(l.done)
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip, il := range l.limiters {
				if il.lastSeen.Before(cutoff) {
					delete(l.limiters, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *RateLimiter) Stop() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done
	})
}

func (l *RateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if il, ok := l.limiters[ip]; ok {
		il.lastSeen = time.Now()
		return il.limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow reports whether the IP may make a request now and spends a token if so.
func (l *RateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

// Remaining reports how many requests the IP may still make right away.
func (l *RateLimiter) Remaining(ip string) int {
	if n := int(l.get(ip).Tokens()); n > 0 {
		return n
	}
	return 0
}

// RetryAfter is how long a blocked client waits for its next token, in whole
// seconds and at least one.
func (l *RateLimiter) RetryAfter() int {
	return max(int(math.Ceil(l.window.Seconds()/float64(l.burst))), 1)
}
