package modbusgw

import (
	"context"
	"errors"
	"testing"

	"github.com/fluxionwatt/modbusgw/internal/models"
)

func TestManagerReadValidatesRegType(t *testing.T) {
	mgr := NewClientManager(nil, testLogger())

	_, err := mgr.Read(context.Background(), "dev1", models.RegType("bogus"), 0, 1)
	if err == nil {
		t.Fatal("expected validation error for unknown register type")
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}

func TestManagerReadValidatesCount(t *testing.T) {
	mgr := NewClientManager(nil, testLogger())

	_, err := mgr.Read(context.Background(), "dev1", models.RegHolding, 0, 0)
	if err == nil {
		t.Fatal("expected validation error for count below 1")
	}

	_, err = mgr.Read(context.Background(), "dev1", models.RegHolding, 0, 126)
	if err == nil {
		t.Fatal("expected validation error for count above MaxCount")
	}
}

func TestManagerReadUnknownDevice(t *testing.T) {
	mgr := NewClientManager(nil, testLogger())

	_, err := mgr.Read(context.Background(), "does-not-exist", models.RegHolding, 0, 1)
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestManagerWriteRejectsReadOnlyRegType(t *testing.T) {
	mgr := NewClientManager(nil, testLogger())

	err := mgr.Write(context.Background(), "dev1", models.RegInput, 0, 1)
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindValidation {
		t.Fatalf("expected KindValidation for read-only register type, got %v", err)
	}
}

func TestManagerListDevicesMergesGatewayStatus(t *testing.T) {
	mgr := NewClientManager(nil, testLogger())

	gw := newGateway("host:1", gatewayConfig{Host: "host", Port: 1}, 5, 0, testLogger())
	mgr.snap = &snapshot{
		devices: map[string]models.DeviceConfig{
			"dev1": {DeviceID: "dev1", Host: "host", Port: 1},
		},
		gateways: map[string]*Gateway{
			"host:1": gw,
		},
	}

	devices := mgr.ListDevices()
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Status.CircuitState != "closed" {
		t.Errorf("expected merged circuit state 'closed', got %q", devices[0].Status.CircuitState)
	}
}
