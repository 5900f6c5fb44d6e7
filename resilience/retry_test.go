package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	permanent := errors.New("permanent")
	tests := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first attempt", 0, errBoom, 3, 1, nil},
		{"succeeds after retries", 2, errBoom, 3, 3, nil},
		{"exhausted", 5, errBoom, 3, 3, errBoom},
		{"not retryable", 5, permanent, 3, 1, permanent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fastRetry(tc.attempts)
			cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }
			calls := 0
			got, err := Retry(context.Background(), cfg, func() (int, error) {
				calls++
				if calls <= tc.failures {
					return 0, tc.err
				}
				return calls, nil
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if calls != tc.wantCalls {
				t.Errorf("expected %d calls, got %d", tc.wantCalls, calls)
			}
			if err == nil && got != calls {
				t.Errorf("expected result %d, got %d", calls, got)
			}
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(10)
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	calls := 0
	err := RetryFunc(ctx, cfg, func() error {
		calls++
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_DefaultRetryIfSkipsContextErrors(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(3), func() error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 1 {
		t.Errorf("expected a single DeadlineExceeded attempt, got %v after %d", err, calls)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, tc := range tests {
		if got := Backoff(tc.attempt, cfg); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 20; i++ {
		d := Backoff(1, cfg)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered backoff %v out of range", d)
		}
	}
}
