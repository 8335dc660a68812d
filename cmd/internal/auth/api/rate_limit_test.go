package authapi

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPLimiter_BurstThenBlock(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 3)
	ip := net.ParseIP("203.0.113.7")

	for i := 0; i < 3; i++ {
		if ok, _ := l.allow(ip, now); !ok {
			t.Fatalf("expected attempt %d within burst to pass", i)
		}
	}

	ok, retry := l.allow(ip, now)
	if ok {
		t.Fatalf("expected block after burst")
	}
	if retry <= 0 || retry > time.Second {
		t.Fatalf("unexpected retry: %v", retry)
	}

	// A token refills after 1s at 1/s.
	if ok, _ := l.allow(ip, now.Add(time.Second)); !ok {
		t.Fatalf("expected refill after 1s")
	}
}

func TestIPLimiter_PerIP(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)

	if ok, _ := l.allow(net.ParseIP("203.0.113.1"), now); !ok {
		t.Fatalf("first ip should pass")
	}
	if ok, _ := l.allow(net.ParseIP("203.0.113.2"), now); !ok {
		t.Fatalf("second ip has its own bucket")
	}
	if ok, _ := l.allow(net.ParseIP("203.0.113.1"), now); ok {
		t.Fatalf("first ip should now be blocked")
	}
}

func TestIPLimiter_DisabledAndNilIP(t *testing.T) {
	var disabled *ipLimiter = newIPLimiter(0, 10)
	if disabled != nil {
		t.Fatalf("expected nil limiter when rate is 0")
	}
	if ok, _ := disabled.allow(net.ParseIP("203.0.113.1"), time.Now()); !ok {
		t.Fatalf("nil limiter must allow")
	}

	l := newIPLimiter(1, 1)
	for i := 0; i < 5; i++ {
		if ok, _ := l.allow(nil, time.Now()); !ok {
			t.Fatalf("unknown client ip must not be throttled")
		}
	}
}

func TestIPLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)

	for i := 0; i < limiterSweepSize; i++ {
		ip := net.IPv4(10, byte(i>>16), byte(i>>8), byte(i))
		l.allow(ip, now)
	}
	if got := l.size(); got != limiterSweepSize {
		t.Fatalf("expected %d buckets, got %d", limiterSweepSize, got)
	}

	l.allow(net.ParseIP("203.0.113.9"), now.Add(limiterIdleTTL+time.Second))
	if got := l.size(); got != 1 {
		t.Fatalf("expected idle buckets swept, got %d", got)
	}
}

func TestWriteRateLimited_RoundsRetryAfterUp(t *testing.T) {
	rr := httptest.NewRecorder()
	writeRateLimited(rr, 1500*time.Millisecond)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After=%q want 2", got)
	}
}
