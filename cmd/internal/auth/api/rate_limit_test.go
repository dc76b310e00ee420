package authapi

import (
	"testing"
	"time"
)

func TestIPLimiter_BurstThenBlock(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(10*time.Second, 3)

	for i := 0; i < 3; i++ {
		if ok, _ := l.allow("203.0.113.9", now); !ok {
			t.Fatalf("attempt %d should pass", i)
		}
	}

	ok, retry := l.allow("203.0.113.9", now)
	if ok {
		t.Fatalf("expected block after burst")
	}
	if retry != 10*time.Second {
		t.Fatalf("expected retry=10s, got %v", retry)
	}

	if ok, _ := l.allow("198.51.100.1", now); !ok {
		t.Fatalf("other IPs have their own bucket")
	}

	if ok, _ := l.allow("203.0.113.9", now.Add(10*time.Second)); !ok {
		t.Fatalf("expected one token refilled")
	}
}

func TestIPLimiter_BlockedAttemptsDoNotDrain(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(10*time.Second, 1)

	if ok, _ := l.allow("a", now); !ok {
		t.Fatalf("first attempt should pass")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := l.allow("a", now.Add(time.Second)); ok {
			t.Fatalf("expected block")
		}
	}
	if ok, _ := l.allow("a", now.Add(10*time.Second)); !ok {
		t.Fatalf("cancelled reservations must not push the refill back")
	}
}

func TestIPLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(time.Second, 1)

	l.allow("a", now)
	l.allow("b", now)
	if l.size() != 2 {
		t.Fatalf("size=%d", l.size())
	}

	l.allow("c", now.Add(time.Hour))
	if l.size() != 1 {
		t.Fatalf("expected idle buckets swept, size=%d", l.size())
	}
}
