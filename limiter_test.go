package pocketscience

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRateLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewRateLimiter(2, 200*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third request to be blocked")
	}
	if got := limiter.Remaining(ip); got != 0 {
		t.Fatalf("Remaining = %d, want 0", got)
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewRateLimiter(1, 150*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second request to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected request after window to be allowed")
	}
}

func TestRateLimiterIsPerIP(t *testing.T) {
	limiter := NewRateLimiter(1, 200*time.Millisecond)
	defer limiter.Stop()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestRateLimiterRemainingRefills(t *testing.T) {
	limiter := NewRateLimiter(3, 300*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.50"

	if got := limiter.Remaining(ip); got != 3 {
		t.Fatalf("Remaining for new ip = %d, want 3", got)
	}
	for i := 0; i < 3; i++ {
		limiter.Allow(ip)
	}
	if got := limiter.Remaining(ip); got != 0 {
		t.Fatalf("Remaining after burst = %d, want 0", got)
	}
	time.Sleep(150 * time.Millisecond)
	if got := limiter.Remaining(ip); got < 1 {
		t.Fatalf("Remaining after refill = %d, want at least 1", got)
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	limiter := NewRateLimiter(120, time.Minute)
	defer limiter.Stop()
	if got := limiter.RetryAfter(); got != 1 {
		t.Errorf("RetryAfter = %d, want 1", got)
	}

	slow := NewRateLimiter(2, time.Minute)
	defer slow.Stop()
	if got := slow.RetryAfter(); got != 30 {
		t.Errorf("RetryAfter = %d, want 30", got)
	}
}

func TestRateLimiterStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	limiter := NewRateLimiter(1, 10*time.Millisecond)
	limiter.Allow("203.0.113.40")
	time.Sleep(30 * time.Millisecond)
	limiter.Stop()
	limiter.Stop()
}
