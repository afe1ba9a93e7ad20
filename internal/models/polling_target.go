package models

import (
	"strconv"
	"time"
)

// PollingTarget is one register range the poller reads on a fixed cadence
// and publishes to the cache and MQTT.
//
// Table: polling_targets
type PollingTarget struct {
	ID           uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DeviceID     string  `gorm:"column:device_id;size:50;not null;index" json:"device_id"`
	RegisterType RegType `gorm:"column:register_type;size:16;not null" json:"register_type"`
	Address      int     `gorm:"column:address;not null" json:"address"`
	Count        int     `gorm:"column:count;not null;default:1" json:"count"`
	IsActive     bool    `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	Description  string  `gorm:"column:description;size:200" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PollingTarget) TableName() string { return "polling_targets" }

// RegType identifies which Modbus object space a target reads.
type RegType string

const (
	RegHolding  RegType = "holding"
	RegInput    RegType = "input"
	RegCoil     RegType = "coil"
	RegDiscrete RegType = "discrete"
)

// MaxCount returns the Modbus-protocol quantity ceiling for the register
// type: 125 for 16-bit register spaces, 2000 for single-bit spaces.
func (t RegType) MaxCount() int {
	switch t {
	case RegCoil, RegDiscrete:
		return 2000
	default:
		return 125
	}
}

// Writable reports whether the register type may be targeted by a write
// request. Only holding registers and coils are writable in Modbus.
func (t RegType) Writable() bool {
	return t == RegHolding || t == RegCoil
}

func (t RegType) Valid() bool {
	switch t {
	case RegHolding, RegInput, RegCoil, RegDiscrete:
		return true
	default:
		return false
	}
}

// CacheKey returns the composite key used by the Cache to store a reading
// for this (device, register_type, address, count) tuple.
func CacheKey(deviceID string, regType RegType, address, count int) string {
	return deviceID + ":" + string(regType) + ":" + strconv.Itoa(address) + ":" + strconv.Itoa(count)
}
