package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream unavailable")

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("llm", maxFailures, time.Second)
	b.now = clock.now
	return b, clock
}

func trip(b *Breaker, n int) {
	for range n {
		_ = b.Execute(func() error { return errUpstream })
	}
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b, _ := newTestBreaker(3)
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestExecuteReturnsCallError(t *testing.T) {
	b, _ := newTestBreaker(3)
	wrapped := fmt.Errorf("chat completion: %w", errUpstream)
	if err := b.Execute(func() error { return wrapped }); !errors.Is(err, errUpstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(3)
	trip(b, 3)

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatal("fn must not run while open")
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}
}

func TestHalfOpenProbeClosesCircuit(t *testing.T) {
	b, clock := newTestBreaker(2)
	trip(b, 2)

	clock.advance(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", b.State())
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to run, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2)
	trip(b, 2)
	clock.advance(2 * time.Second)

	_ = b.Execute(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1)
	trip(b, 1)
	clock.advance(2 * time.Second)

	var inner error
	err := b.Execute(func() error {
		inner = b.Execute(func() error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Fatalf("expected concurrent call to be rejected during probe, got %v", inner)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	trip(b, 2)
	_ = b.Execute(func() error { return nil })
	trip(b, 2)

	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestCancellationDoesNotCount(t *testing.T) {
	b, _ := newTestBreaker(1)
	_ = b.Execute(func() error { return fmt.Errorf("http request: %w", context.Canceled) })
	if b.State() != StateClosed {
		t.Fatalf("cancellation must not trip the breaker, got %s", b.State())
	}
}

func TestFailureFilter(t *testing.T) {
	errBadRequest := errors.New("400 bad request")
	b, _ := newTestBreaker(1)
	b.SetFailureFilter(func(err error) bool { return !errors.Is(err, errBadRequest) })

	_ = b.Execute(func() error { return errBadRequest })
	if b.State() != StateClosed {
		t.Fatalf("filtered error must not trip the breaker, got %s", b.State())
	}

	_ = b.Execute(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
