package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", statusErr(http.StatusTooManyRequests), true},
		{"503 wrapped", fmt.Errorf("send: %w", statusErr(http.StatusServiceUnavailable)), true},
		{"400", statusErr(http.StatusBadRequest), false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 10 * time.Second}
	for attempt, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 5: 10 * time.Second} {
		if got := b.Delay(attempt, nil); got != want {
			t.Fatalf("attempt %d: want=%s got=%s", attempt, want, got)
		}
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if got := b.Delay(1, resp); got != 10*time.Second {
		t.Fatalf("retry-after capped: want=10s got=%s", got)
	}
	resp.Header.Set("Retry-After", "3")
	if got := b.Delay(1, resp); got != 3*time.Second {
		t.Fatalf("retry-after: want=3s got=%s", got)
	}
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	b := Backoff{Base: time.Second, Jitter: 0.2}
	for i := 0; i < 50; i++ {
		got := b.Delay(1, nil)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of band: %s", got)
		}
	}
}

func TestWaitHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("Wait: want=context.Canceled got=%v", err)
	}
}
