// Package modbusgw implements the runtime data plane of the gateway: the
// per-transport connection pool (Gateway), the device registry that routes
// requests onto it (ClientManager), the read cache, the background poller,
// the MQTT publisher, and the request pipeline the HTTP layer calls into.
package modbusgw

import "fmt"

// Kind classifies an Error so callers (the HTTP layer, the poller) can
// react without inspecting error strings.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindNotFound   Kind = "NotFound"
	KindConflict   Kind = "Conflict"
	KindDevice     Kind = "DeviceError"
	KindTransport  Kind = "TransportError"
	KindCircuit    Kind = "CircuitOpen"
	KindDependency Kind = "DependencyError"
)

// Error is the taxonomy-tagged error type returned by every modbusgw
// operation that can fail in a way the request pipeline needs to map to an
// HTTP status.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter float64 // seconds; only meaningful for KindCircuit
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newValidationErr(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newNotFoundErr(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func newConflictErr(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func newDeviceErr(cause error, format string, args ...any) error {
	return &Error{Kind: KindDevice, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func newTransportErr(cause error, format string, args ...any) error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func newCircuitOpenErr(retryAfter float64) error {
	return &Error{
		Kind:       KindCircuit,
		Message:    "gateway circuit breaker is open",
		RetryAfter: retryAfter,
	}
}

func newDependencyErr(cause error, format string, args ...any) error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...), Cause: cause}
}
