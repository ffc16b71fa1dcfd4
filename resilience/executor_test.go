package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewExecutor(t *testing.T) {
	e := NewExecutor()

	if e.timeout != nil {
		t.Error("Default executor should not have timeout")
	}
	if e.retry != nil {
		t.Error("Default executor should not have retry")
	}
}

func TestExecutor_ZeroTimeoutDisabled(t *testing.T) {
	e := NewExecutor(WithTimeout(0))

	if e.timeout != nil {
		t.Error("WithTimeout(0) should leave the timeout disabled")
	}
}

func TestExecutor_IsolatesPanics(t *testing.T) {
	e := NewExecutor()

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		panic("probe exploded")
	})

	if !errors.Is(err, ErrExtensionFault) {
		t.Errorf("Execute() error = %v, want ErrExtensionFault", err)
	}
}

func TestExecutor_IsolatesPanicsInsideTimeout(t *testing.T) {
	e := NewExecutor(WithTimeout(time.Second))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		panic("probe exploded in the timeout goroutine")
	})

	if !errors.Is(err, ErrExtensionFault) {
		t.Errorf("Execute() error = %v, want ErrExtensionFault", err)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(10 * time.Millisecond))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecutor_RetryWrapsIsolation(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})))

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			panic("first attempt panics")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v, want nil after retry", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
