package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsAfterBudget(t *testing.T) {
	calls := 0
	errBoom := errors.New("boom")
	p := Policy{Attempts: 3, BaseWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 5, BaseWait: time.Millisecond}

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{Attempts: 3, BaseWait: time.Second}
	err := Do(ctx, p, func(context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
