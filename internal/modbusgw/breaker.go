package modbusgw

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// breaker is a per-gateway circuit breaker. It trips to open after
// failureThreshold consecutive failures, then after recoveryTimeout admits
// exactly one probe call in half-open state: success closes it, failure
// reopens it and resets the recovery clock.
type breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state           BreakerState
	consecutiveFail int
	openedAt        time.Time
	probeInFlight   bool
}

func newBreaker(failureThreshold int, recoveryTimeout time.Duration) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            BreakerClosed,
	}
}

// allow reports whether a call may proceed right now, and if not, how many
// seconds remain until the breaker's recovery timeout elapses.
func (b *breaker) allow() (ok bool, retryAfter float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true, 0
	case BreakerOpen:
		elapsed := time.Since(b.openedAt)
		if elapsed >= b.recoveryTimeout {
			b.state = BreakerHalfOpen
			b.probeInFlight = true
			return true, 0
		}
		return false, (b.recoveryTimeout - elapsed).Seconds()
	case BreakerHalfOpen:
		if b.probeInFlight {
			return false, 0
		}
		b.probeInFlight = true
		return true, 0
	default:
		return true, 0
	}
}

func (b *breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail = 0
	b.probeInFlight = false
	b.state = BreakerClosed
}

func (b *breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probeInFlight = false

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		return
	}

	b.consecutiveFail++
	if b.consecutiveFail >= b.failureThreshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Call runs fn if the breaker admits it, recording the outcome. It returns
// a CircuitOpen *Error without invoking fn when the breaker is tripped.
func (b *breaker) Call(fn func() error) error {
	ok, retryAfter := b.allow()
	if !ok {
		return newCircuitOpenErr(retryAfter)
	}

	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}
