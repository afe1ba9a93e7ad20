package modbusgw

import (
	"testing"

	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/models"
)

func TestPublisherDisabledWhenNoBrokerConfigured(t *testing.T) {
	cfg := &config.Config{}
	p := NewPublisher(cfg, testLogger())

	if p.enabled {
		t.Fatal("expected publisher disabled when mqtt.broker_host is empty")
	}

	// Start/Stop/Publish must all be safe no-ops when disabled.
	if err := p.Start(); err != nil {
		t.Fatalf("expected Start to no-op, got %v", err)
	}
	p.Publish("dev1", models.RegHolding, 0, []uint16{1, 2})
	p.Stop()
}
