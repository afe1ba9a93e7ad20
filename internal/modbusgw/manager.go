package modbusgw

import (
	"context"
	"sync"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// snapshot is the immutable view ClientManager swaps in on Reload: the
// device registry and the (host,port)-deduplicated gateway pool it routes
// onto.
type snapshot struct {
	devices  map[string]models.DeviceConfig
	gateways map[string]*Gateway
}

// ClientManager is the device/gateway registry. Reload rebuilds it from
// the database and atomically swaps the old snapshot for the new one;
// in-flight reads/writes against the old snapshot finish against gateways
// that are only closed once nothing holds a reference to them anymore is
// not tracked precisely — Reload closes superseded gateways once the swap
// completes, which is safe because Gateway.Close only tears down the
// client, and a request already inside Gateway.Read holds its own pointer
// to the *Gateway it resolved before the swap.
type ClientManager struct {
	cfg *config.Config
	log logrus.FieldLogger

	mu   sync.RWMutex
	snap *snapshot
}

func NewClientManager(cfg *config.Config, log logrus.FieldLogger) *ClientManager {
	return &ClientManager{
		cfg: cfg,
		log: log.WithField("component", "client_manager"),
		snap: &snapshot{
			devices:  map[string]models.DeviceConfig{},
			gateways: map[string]*Gateway{},
		},
	}
}

// Reload re-reads active devices from the database, rebuilds the gateway
// pool (one Gateway per distinct host:port), and atomically swaps it in.
// Gateways whose key no longer appears in the new device set are closed
// after the swap.
func (m *ClientManager) Reload(db *gorm.DB) error {
	var rows []models.DeviceConfig
	if err := db.Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return newDependencyErr(err, "load device configs")
	}

	old := m.current()

	devices := make(map[string]models.DeviceConfig, len(rows))
	gateways := make(map[string]*Gateway, len(rows))

	for _, d := range rows {
		devices[d.DeviceID] = d
		key := d.GatewayKey()
		if _, ok := gateways[key]; ok {
			continue
		}
		if existing, ok := old.gateways[key]; ok {
			gateways[key] = existing
			continue
		}
		gateways[key] = newGateway(key, gatewayConfig{
			Host:           d.Host,
			Port:           d.Port,
			Framer:         d.Framer,
			TimeoutSeconds: d.TimeoutSeconds,
		}, m.cfg.CircuitBreaker.FailureThreshold, m.cfg.RecoveryTimeout(), m.log)
	}

	next := &snapshot{devices: devices, gateways: gateways}

	m.mu.Lock()
	m.snap = next
	m.mu.Unlock()

	for key, gw := range old.gateways {
		if _, stillUsed := gateways[key]; !stillUsed {
			gw.Close()
		}
	}

	m.log.WithField("device_count", len(devices)).WithField("gateway_count", len(gateways)).Info("device registry reloaded")
	return nil
}

func (m *ClientManager) current() *snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Device looks up a device's persisted configuration by ID.
func (m *ClientManager) Device(deviceID string) (models.DeviceConfig, bool) {
	snap := m.current()
	d, ok := snap.devices[deviceID]
	return d, ok
}

// ListDevices returns every currently active device, each annotated with
// its gateway's live connection/circuit status.
func (m *ClientManager) ListDevices() []models.DeviceConfig {
	snap := m.current()
	out := make([]models.DeviceConfig, 0, len(snap.devices))
	for _, d := range snap.devices {
		if gw, ok := snap.gateways[d.GatewayKey()]; ok {
			connected, state := gw.State()
			d.Status = models.GatewayStatus{Connected: connected, CircuitState: state.String()}
		}
		out = append(out, d)
	}
	return out
}

// GatewayStatuses returns the live state of every distinct transport.
func (m *ClientManager) GatewayStatuses() map[string]models.GatewayStatus {
	snap := m.current()
	out := make(map[string]models.GatewayStatus, len(snap.gateways))
	for key, gw := range snap.gateways {
		connected, state := gw.State()
		out[key] = models.GatewayStatus{Connected: connected, CircuitState: state.String()}
	}
	return out
}

// ListGateways returns the live state of every distinct transport as a
// host/port-addressed summary, for the gateway collection endpoint.
func (m *ClientManager) ListGateways() []models.GatewaySummary {
	snap := m.current()
	out := make([]models.GatewaySummary, 0, len(snap.gateways))
	for _, gw := range snap.gateways {
		connected, state := gw.State()
		out = append(out, models.GatewaySummary{
			Host:         gw.cfg.Host,
			Port:         gw.cfg.Port,
			Connected:    connected,
			CircuitState: state.String(),
		})
	}
	return out
}

// Read resolves deviceID to its gateway and performs a register/bit read.
// ctx bounds the call's wall-clock budget; see Pipeline.
func (m *ClientManager) Read(ctx context.Context, deviceID string, regType models.RegType, address, count int) ([]uint16, error) {
	if !regType.Valid() {
		return nil, newValidationErr("unknown register type %q", regType)
	}
	if count < 1 || count > regType.MaxCount() {
		return nil, newValidationErr("count %d out of range for %s (max %d)", count, regType, regType.MaxCount())
	}

	snap := m.current()
	d, ok := snap.devices[deviceID]
	if !ok {
		return nil, newNotFoundErr("device %q not found", deviceID)
	}
	gw, ok := snap.gateways[d.GatewayKey()]
	if !ok {
		return nil, newDependencyErr(nil, "no gateway bound to device %q", deviceID)
	}

	return gw.Read(ctx, uint8(d.SlaveID), regType, address, count,
		d.MaxRetries, time.Duration(d.RetryDelaySeconds*float64(time.Second)))
}

// Write resolves deviceID to its gateway and performs a single register
// or coil write. ctx bounds the call's wall-clock budget; see Pipeline.
func (m *ClientManager) Write(ctx context.Context, deviceID string, regType models.RegType, address int, value uint16) error {
	if !regType.Valid() {
		return newValidationErr("unknown register type %q", regType)
	}
	if !regType.Writable() {
		return newValidationErr("register type %q is read-only", regType)
	}

	snap := m.current()
	d, ok := snap.devices[deviceID]
	if !ok {
		return newNotFoundErr("device %q not found", deviceID)
	}
	gw, ok := snap.gateways[d.GatewayKey()]
	if !ok {
		return newDependencyErr(nil, "no gateway bound to device %q", deviceID)
	}

	return gw.Write(ctx, uint8(d.SlaveID), regType, address, value)
}

// CloseAll tears down every open gateway transport. Called on shutdown.
func (m *ClientManager) CloseAll() {
	snap := m.current()
	for _, gw := range snap.gateways {
		gw.Close()
	}
}
