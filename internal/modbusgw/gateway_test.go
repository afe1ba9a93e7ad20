package modbusgw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/simonvetter/modbus"
)

func TestBitsToWords(t *testing.T) {
	out := bitsToWords([]bool{true, false, true, true})
	want := []uint16{1, 0, 1, 1}
	if len(out) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, out[i], want[i])
		}
	}
}

func TestClassifyReadErrDeviceRejection(t *testing.T) {
	for _, sentinel := range []error{modbus.ErrIllegalFunction, modbus.ErrIllegalDataAddress, modbus.ErrIllegalDataValue} {
		err := classifyReadErr(sentinel)
		var gwErr *Error
		if !errors.As(err, &gwErr) || gwErr.Kind != KindDevice {
			t.Errorf("expected KindDevice for %v, got %v", sentinel, err)
		}
	}
}

func TestClassifyReadErrTransportFault(t *testing.T) {
	err := classifyReadErr(errors.New("i/o timeout"))
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindTransport {
		t.Errorf("expected KindTransport, got %v", err)
	}
}

func TestGatewayConfigURLScheme(t *testing.T) {
	tcp := gatewayConfig{Host: "10.0.0.5", Port: 502, Framer: models.FramerSocket}
	if got := tcp.scheme() + tcp.url(); got != "tcp://10.0.0.5:502" {
		t.Errorf("unexpected tcp url: %s", got)
	}

	rtu := gatewayConfig{Host: "10.0.0.6", Port: 4196, Framer: models.FramerRTU}
	if got := rtu.scheme() + rtu.url(); got != "rtuovertcp://10.0.0.6:4196" {
		t.Errorf("unexpected rtu-over-tcp url: %s", got)
	}

	ascii := gatewayConfig{Host: "10.0.0.7", Port: 4197, Framer: models.FramerASCII}
	if got := ascii.scheme() + ascii.url(); got != "asciiovertcp://10.0.0.7:4197" {
		t.Errorf("unexpected ascii-over-tcp url: %s", got)
	}
}

func TestRunWithDeadlineResetsGatewayOnTimeout(t *testing.T) {
	gw := newGateway("host:1", gatewayConfig{Host: "host", Port: 1}, 5, time.Minute, testLogger())
	gw.opened = true // pretend a transport is open so Reset has something to tear down

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	blockUntil := make(chan struct{})
	_, err := runWithDeadline(ctx, gw, func() ([]uint16, error) {
		<-blockUntil
		return []uint16{1}, nil
	})
	close(blockUntil)

	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindTransport {
		t.Fatalf("expected KindTransport on deadline exceeded, got %v", err)
	}
	if gw.opened {
		t.Error("expected gateway transport reset (closed) after deadline")
	}
}
