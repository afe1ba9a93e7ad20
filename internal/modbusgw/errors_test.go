package modbusgw

import (
	"errors"
	"testing"
)

func TestErrorMessageWithCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := newTransportErr(cause, "open transport %s", "host:502")

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatal("expected *Error")
	}
	if gwErr.Kind != KindTransport {
		t.Errorf("expected KindTransport, got %s", gwErr.Kind)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause for errors.Is")
	}
}

func TestCircuitOpenErrCarriesRetryAfter(t *testing.T) {
	err := newCircuitOpenErr(12.5)

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatal("expected *Error")
	}
	if gwErr.Kind != KindCircuit {
		t.Errorf("expected KindCircuit, got %s", gwErr.Kind)
	}
	if gwErr.RetryAfter != 12.5 {
		t.Errorf("expected RetryAfter=12.5, got %f", gwErr.RetryAfter)
	}
}
