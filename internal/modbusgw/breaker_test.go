package modbusgw

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerClosedAllowsCalls(t *testing.T) {
	b := newBreaker(3, time.Second)

	err := b.Call(func() error { return nil })
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := newBreaker(3, time.Second)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Call(func() error { return boom }); err == nil {
			t.Fatalf("expected failure on call %d", i+1)
		}
	}

	if b.State() != BreakerOpen {
		t.Fatalf("expected open after %d failures, got %s", 3, b.State())
	}

	calls := 0
	err := b.Call(func() error { calls++; return nil })
	if err == nil {
		t.Fatal("expected circuit-open error")
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindCircuit {
		t.Fatalf("expected KindCircuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected fn not to run while circuit is open, ran %d times", calls)
	}
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	b := newBreaker(1, 20*time.Millisecond)

	if err := b.Call(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(30 * time.Millisecond)

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreakerHalfOpenReopensOnFailure(t *testing.T) {
	b := newBreaker(1, 20*time.Millisecond)

	_ = b.Call(func() error { return errors.New("boom") })
	time.Sleep(30 * time.Millisecond)

	if err := b.Call(func() error { return errors.New("still broken") }); err == nil {
		t.Fatal("expected probe failure")
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected re-opened, got %s", b.State())
	}
}

func TestBreakerHalfOpenAdmitsOnlyOneProbe(t *testing.T) {
	b := newBreaker(1, 20*time.Millisecond)

	_ = b.Call(func() error { return errors.New("boom") })
	time.Sleep(30 * time.Millisecond)

	ok, _ := b.allow()
	if !ok {
		t.Fatal("expected first probe to be admitted")
	}
	ok, _ = b.allow()
	if ok {
		t.Fatal("expected second concurrent probe to be rejected")
	}
}
