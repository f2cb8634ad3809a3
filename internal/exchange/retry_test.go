package exchange

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRetryer(policy RetryPolicy) (*Retryer, *[]time.Duration) {
	r := NewRetryer(policy, IsTransient, nil)
	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

type transientErr struct{}

func (transientErr) Error() string   { return "connection reset" }
func (transientErr) Timeout() bool   { return true }
func (transientErr) Temporary() bool { return true }

func TestRetryerExhaustsAfterMaxRetries(t *testing.T) {
	r, delays := newTestRetryer(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second})

	attempts := 0
	cause := transientErr{}
	err := r.Do(context.Background(), "create_order", func() error {
		attempts++
		return cause
	})

	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (initial + 3 retries)", attempts)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delay count = %d, want %d", len(*delays), len(want))
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay %d = %v, want %v", i, (*delays)[i], d)
		}
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("exhausted error should unwrap to the last cause")
	}
}

func TestRetryerNonRetryableReturnsImmediately(t *testing.T) {
	r, delays := newTestRetryer(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second})

	attempts := 0
	cause := errors.New("invalid quantity")
	err := r.Do(context.Background(), "create_order", func() error {
		attempts++
		return cause
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(*delays) != 0 {
		t.Errorf("no sleep expected, got %v", *delays)
	}
	if !errors.Is(err, cause) {
		t.Errorf("non-retryable error must be returned unchanged, got %v", err)
	}
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		t.Errorf("non-retryable error must not be wrapped")
	}
}

func TestRetryerSucceedsAfterRetries(t *testing.T) {
	r, delays := newTestRetryer(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second})

	attempts := 0
	err := r.Do(context.Background(), "load_markets", func() error {
		attempts++
		if attempts < 3 {
			return transientErr{}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(*delays) != 2 {
		t.Errorf("delay count = %d, want 2", len(*delays))
	}
}

func TestRetryerDelayCappedAtMaxDelay(t *testing.T) {
	r, delays := newTestRetryer(RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second})

	_ = r.Do(context.Background(), "create_order", func() error {
		return transientErr{}
	})

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delay count = %d, want %d", len(*delays), len(want))
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay %d = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestRetryerStopsOnCanceledContext(t *testing.T) {
	r, _ := newTestRetryer(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := r.Do(ctx, "create_order", func() error {
		attempts++
		return transientErr{}
	})

	if attempts != 0 {
		t.Errorf("attempts = %d, want 0 for pre-canceled context", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Errorf("nil must not be transient")
	}
	if IsTransient(context.Canceled) {
		t.Errorf("context.Canceled must not be transient")
	}
	if IsTransient(context.DeadlineExceeded) {
		t.Errorf("context.DeadlineExceeded must not be transient")
	}
	if !IsTransient(transientErr{}) {
		t.Errorf("net.Error should be transient")
	}
	if IsTransient(errors.New("insufficient margin")) {
		t.Errorf("plain business error must not be transient")
	}
}
