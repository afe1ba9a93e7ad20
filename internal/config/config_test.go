package config

import (
	"testing"
	"time"
)

func TestDurationHelpersFallBackToDefaults(t *testing.T) {
	var c Config

	if got := c.CacheTTL(); got != 300*time.Second {
		t.Errorf("expected default cache TTL 300s, got %s", got)
	}
	if got := c.PollInterval(); got != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %s", got)
	}
	if got := c.RecoveryTimeout(); got != 30*time.Second {
		t.Errorf("expected default recovery timeout 30s, got %s", got)
	}
}

func TestDurationHelpersRespectConfiguredValues(t *testing.T) {
	c := Config{}
	c.Cache.TTLSeconds = 60
	c.Poll.IntervalSeconds = 2
	c.CircuitBreaker.RecoveryTimeoutSec = 15

	if got := c.CacheTTL(); got != 60*time.Second {
		t.Errorf("expected 60s, got %s", got)
	}
	if got := c.PollInterval(); got != 2*time.Second {
		t.Errorf("expected 2s, got %s", got)
	}
	if got := c.RecoveryTimeout(); got != 15*time.Second {
		t.Errorf("expected 15s, got %s", got)
	}
}

func TestMQTTEnabled(t *testing.T) {
	var c Config
	if c.MQTTEnabled() {
		t.Error("expected disabled when broker_host is empty")
	}

	c.MQTT.BrokerHost = "broker.local"
	if !c.MQTTEnabled() {
		t.Error("expected enabled when broker_host is set")
	}
}
