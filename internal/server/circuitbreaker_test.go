package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBrowserGone = errors.New("browser gone")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	fail := func() error { return errBrowserGone }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail, nil); !errors.Is(err, errBrowserGone) {
			t.Fatalf("call %d: err = %v", i+1, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn ran while circuit open")
	}

	stats := cb.GetStats()
	if stats.RejectedRequests != 1 || stats.FailedRequests != 2 || stats.State != "open" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)
	_ = cb.Execute(func() error { return errBrowserGone }, nil)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state after timeout = %s, want half-open", cb.GetState())
	}

	if err := cb.Execute(func() error { return nil }, nil); err != nil {
		t.Fatalf("half-open call: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(3, 20*time.Millisecond)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBrowserGone }, nil)
	}
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(func() error { return errBrowserGone }, nil)
	if cb.GetState() != StateOpen {
		t.Errorf("state = %s, want open", cb.GetState())
	}
}

func TestCircuitBreaker_UncountedErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	ignoreCtx := func(err error) bool { return !errors.Is(err, context.DeadlineExceeded) }

	err := cb.Execute(func() error { return context.DeadlineExceeded }, ignoreCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed", cb.GetState())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)
	_ = cb.Execute(func() error { return errBrowserGone }, nil)
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed", cb.GetState())
	}
}

func TestGuardedRenderer_CancelledRenderDoesNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	stub := &stubRenderer{}
	g := NewGuardedRenderer(stub, cb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub.err = context.Canceled
	if _, err := g.RenderFile(ctx, t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s, want closed after cancelled render", cb.GetState())
	}

	stub.err = errBrowserGone
	if _, err := g.RenderFile(context.Background(), t.TempDir()); !errors.Is(err, errBrowserGone) {
		t.Fatalf("err = %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %s, want open", cb.GetState())
	}
	if _, err := g.RenderFile(context.Background(), t.TempDir()); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}
