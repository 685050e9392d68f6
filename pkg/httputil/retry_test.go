package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryExhausted(t *testing.T) {
	calls := 0
	want := errors.New("boom")
	err := Retry(context.Background(), 4, time.Millisecond, func() error {
		calls++
		return Retryable(want)
	})
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want wrapped %v", err, want)
	}
	if !IsRetryable(err) {
		t.Error("last error should still be retryable")
	}
}

func TestRetryZeroAttempts(t *testing.T) {
	calls := 0
	Retry(context.Background(), 0, 0, func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return Retryable(errors.New("flaky"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryableNil(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
}

func TestPolicyMaxDelay(t *testing.T) {
	p := Policy{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}
	start := time.Now()
	p.Do(context.Background(), func() error { return Retryable(errors.New("x")) })
	if time.Since(start) > time.Second {
		t.Error("MaxDelay should cap the backoff")
	}
}
