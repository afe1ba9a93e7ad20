package models

import (
	"strconv"
	"time"
)

// Framer identifies the Modbus byte-framing used on a device's transport.
type Framer string

const (
	FramerRTU    Framer = "RTU"
	FramerSocket Framer = "SOCKET"
	FramerASCII  Framer = "ASCII"
)

// GatewayStatus is a runtime-only view merged onto a DeviceConfig in list
// responses; it is never persisted.
type GatewayStatus struct {
	Connected    bool   `gorm:"-" json:"connected"`
	CircuitState string `gorm:"-" json:"circuit_state"`
}

// GatewaySummary is the live view of one distinct (host, port) transport,
// returned by the gateway collection endpoint.
type GatewaySummary struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Connected    bool   `json:"connected"`
	CircuitState string `json:"circuit_state"`
}

// DeviceConfig is the persisted identity and transport parameters of one
// Modbus unit, addressable by (host, port, slave_id).
//
// Table: modbus_devices
type DeviceConfig struct {
	DeviceID          string `gorm:"column:device_id;primaryKey;size:50" json:"device_id"`
	Host              string `gorm:"column:host;size:255;not null" json:"host"`
	Port              int    `gorm:"column:port;not null" json:"port"`
	SlaveID           int    `gorm:"column:slave_id;not null;default:1" json:"slave_id"`
	TimeoutSeconds    int    `gorm:"column:timeout_seconds;not null;default:10" json:"timeout_seconds"`
	Framer            Framer `gorm:"column:framer;size:16;not null;default:RTU" json:"framer"`
	MaxRetries        int    `gorm:"column:max_retries;not null;default:5" json:"max_retries"`
	RetryDelaySeconds float64 `gorm:"column:retry_delay_seconds;not null;default:0.1" json:"retry_delay_seconds"`
	IsActive          bool   `gorm:"column:is_active;not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Status GatewayStatus `gorm:"-" json:"status,omitempty"`
}

func (DeviceConfig) TableName() string { return "modbus_devices" }

// GatewayKey returns the (host,port) identity of the physical transport this
// device shares with any other device configured against the same endpoint.
func (d DeviceConfig) GatewayKey() string {
	return GatewayKeyOf(d.Host, d.Port)
}

// GatewayKeyOf builds the canonical gateway key for a host/port pair.
func GatewayKeyOf(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
