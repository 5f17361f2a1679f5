package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/library-backend/internal/platform/logger"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "overdue_scan", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, "overdue_scan", time.Minute); ok {
		t.Fatalf("second TryLock: want held")
	}
	release()
	if _, ok, _ := l.TryLock(ctx, "overdue_scan", time.Minute); !ok {
		t.Fatalf("TryLock after release: want acquired")
	}
}

func TestLocalLockerExpires(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if _, ok, _ := l.TryLock(context.Background(), "k", time.Second); !ok {
		t.Fatalf("want acquired")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := l.TryLock(context.Background(), "k", time.Second); !ok {
		t.Fatalf("want acquired after ttl")
	}
}

func TestLocalLockerEvictsExpiredLeases(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, ok, _ := l.TryLock(ctx, "scan:2024-05-01", time.Second)
	if !ok {
		t.Fatalf("want acquired")
	}
	if _, ok, _ := l.TryLock(ctx, "scan:other", time.Hour); !ok {
		t.Fatalf("want acquired")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := l.TryLock(ctx, "scan:2024-05-02", time.Second); !ok {
		t.Fatalf("want acquired")
	}
	if _, ok := l.held["scan:2024-05-01"]; ok {
		t.Fatalf("expired lease still held: %v", l.held)
	}
	if len(l.held) != 2 {
		t.Fatalf("held: want=2 got=%d", len(l.held))
	}

	// The expired holder's release must not free a lease taken after it.
	if _, ok, _ := l.TryLock(ctx, "scan:other", time.Hour); ok {
		t.Fatalf("live lease: want held")
	}
	if _, ok, _ := l.TryLock(ctx, "scan:2024-05-02", time.Hour); ok {
		t.Fatalf("live lease: want held")
	}
	staleRelease()
	now = now.Add(2 * time.Second)
	if _, ok, _ := l.TryLock(ctx, "scan:2024-05-01", time.Second); !ok {
		t.Fatalf("want acquired after expiry")
	}
	second, _, _ := l.TryLock(ctx, "scan:2024-05-01", time.Second)
	if second != nil {
		t.Fatalf("want held")
	}
	staleRelease()
	if _, ok, _ := l.TryLock(ctx, "scan:2024-05-01", time.Second); ok {
		t.Fatalf("stale release freed a newer lease")
	}
}

func TestLocalLockerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok, err := NewLocalLocker().TryLock(ctx, "k", time.Second); ok || err == nil {
		t.Fatalf("canceled ctx: ok=%v err=%v", ok, err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	l, err := NewLocker(logger.Nop(), Config{Addr: addr, KeyPrefix: "test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatalf("NewLocker: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	release, ok, err := l.TryLock(ctx, "scan", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	if _, ok, err := l.TryLock(ctx, "scan", 5*time.Second); err != nil || ok {
		t.Fatalf("contended TryLock: ok=%v err=%v", ok, err)
	}
	release()
	if _, ok, err := l.TryLock(ctx, "scan", 5*time.Second); err != nil || !ok {
		t.Fatalf("TryLock after release: ok=%v err=%v", ok, err)
	}
}
