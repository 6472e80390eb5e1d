package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsAfterRetryableFailures(t *testing.T) {
	attempts := 0
	result, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &ServerError{ProviderError{AdapterError: AdapterError{Message: "overloaded"}, Retryable: true}}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != "ok" || attempts != 3 {
		t.Errorf("result = %q after %d attempts", result, attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (int, error) {
		attempts++
		return 0, &AuthenticationError{ProviderError{AdapterError: AdapterError{Message: "bad key"}}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("non-retryable error retried %d times", attempts)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		attempts++
		return 0, &NetworkError{AdapterError{Message: "unreachable"}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want initial call plus 2 retries", attempts)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(3)
	policy.BaseDelay = 10 // long enough that cancel wins the select

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
			return 0, &NetworkError{AdapterError{Message: "unreachable"}}
		})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		var te *RequestTimeoutError
		if !errors.As(err, &te) {
			t.Errorf("error = %T, want *RequestTimeoutError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1, MaxDelay: 4, BackoffMultiplier: 2}
	if d := policy.Delay(0); d != time.Second {
		t.Errorf("Delay(0) = %v", d)
	}
	if d := policy.Delay(1); d != 2*time.Second {
		t.Errorf("Delay(1) = %v", d)
	}
	if d := policy.Delay(5); d != 4*time.Second {
		t.Errorf("Delay(5) = %v, want cap at MaxDelay", d)
	}
}
