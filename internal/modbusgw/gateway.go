package modbusgw

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/simonvetter/modbus"
	"github.com/sirupsen/logrus"
)

// gatewayConfig is the transport-level configuration a Gateway opens its
// client with. Several DeviceConfig rows that share (host, port) share one
// gatewayConfig and therefore one physical connection.
type gatewayConfig struct {
	Host           string
	Port           int
	Framer         models.Framer
	TimeoutSeconds int
}

func (c gatewayConfig) url() string {
	// Every framer here reaches a device through a serial-to-Ethernet
	// gateway, not a local tty, so Host:Port always addresses that
	// gateway regardless of framing.
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c gatewayConfig) scheme() string {
	switch c.Framer {
	case models.FramerRTU:
		return "rtuovertcp://"
	case models.FramerASCII:
		return "asciiovertcp://"
	default:
		return "tcp://"
	}
}

// Gateway owns one physical Modbus transport (a TCP socket or a serial
// line) shared by every device configured against the same (host, port).
// All calls against the underlying client are serialized through mu,
// because simonvetter/modbus.ModbusClient is not safe for concurrent use,
// and guarded by a circuit breaker so a wedged device stops accumulating
// timeouts for every caller behind it.
type Gateway struct {
	key string
	cfg gatewayConfig

	mu     sync.Mutex
	client *modbus.ModbusClient
	opened bool

	breaker *breaker
	log     logrus.FieldLogger
}

func newGateway(key string, cfg gatewayConfig, failureThreshold int, recoveryTimeout time.Duration, log logrus.FieldLogger) *Gateway {
	return &Gateway{
		key:     key,
		cfg:     cfg,
		breaker: newBreaker(failureThreshold, recoveryTimeout),
		log:     log.WithField("gateway", key),
	}
}

func (g *Gateway) ensureOpen() error {
	if g.opened {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     g.cfg.scheme() + g.cfg.url(),
		Timeout: time.Duration(g.cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return newTransportErr(err, "build modbus client for %s", g.key)
	}
	client.SetEncoding(modbus.BIG_ENDIAN, modbus.HIGH_WORD_FIRST)

	if err := client.Open(); err != nil {
		return newTransportErr(err, "open transport %s", g.key)
	}

	g.client = client
	g.opened = true
	return nil
}

func (g *Gateway) closeLocked() {
	if g.opened && g.client != nil {
		_ = g.client.Close()
	}
	g.opened = false
	g.client = nil
}

// Close tears down the underlying transport. Safe to call when already
// closed.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
}

// Reset tears down the underlying transport without touching the circuit
// breaker, forcing the next call to reopen it. Used when a request's
// wall-clock budget expires while the transport is presumed wedged.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
}

// State reports the gateway's circuit breaker state and whether the
// underlying transport is currently open.
func (g *Gateway) State() (connected bool, circuit BreakerState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened, g.breaker.State()
}

// Read performs a single register/bit read against unitID, retrying
// transport-level failures up to maxRetries times with retryDelay between
// attempts, behind the gateway's circuit breaker. If ctx is cancelled or
// its deadline elapses before the call returns, Read resets the transport
// and returns a TransportError instead of waiting on a wedged device.
func (g *Gateway) Read(ctx context.Context, unitID uint8, regType models.RegType, address, count int, maxRetries int, retryDelay time.Duration) ([]uint16, error) {
	return runWithDeadline(ctx, g, func() ([]uint16, error) {
		var out []uint16
		err := g.breaker.Call(func() error {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				if attempt > 0 {
					if sleepCtx(ctx, retryDelay) {
						return lastErr
					}
				}
				vals, err := g.readOnce(unitID, regType, address, count)
				if err == nil {
					out = vals
					return nil
				}
				lastErr = err
				if gwErr, ok := err.(*Error); ok && gwErr.Kind == KindDevice {
					// Device rejected the request (bad address/function/value);
					// retrying won't change the outcome.
					return lastErr
				}
				g.mu.Lock()
				g.closeLocked()
				g.mu.Unlock()
			}
			return lastErr
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// sleepCtx sleeps for d or returns early (true) if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// runWithDeadline runs fn on its own goroutine and races it against ctx.
// simonvetter/modbus calls block on the wire with no context support of
// their own, so a wall-clock budget can only be enforced from the
// outside: if ctx ends first, the transport is reset so the still-running
// call doesn't keep holding it wedged for the next caller.
func runWithDeadline(ctx context.Context, g *Gateway, fn func() ([]uint16, error)) ([]uint16, error) {
	type result struct {
		vals []uint16
		err  error
	}
	done := make(chan result, 1)
	go func() {
		vals, err := fn()
		done <- result{vals, err}
	}()

	select {
	case r := <-done:
		return r.vals, r.err
	case <-ctx.Done():
		g.Reset()
		return nil, newTransportErr(ctx.Err(), "request deadline exceeded on gateway %s", g.key)
	}
}

func (g *Gateway) readOnce(unitID uint8, regType models.RegType, address, count int) ([]uint16, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureOpen(); err != nil {
		return nil, err
	}
	if err := g.client.SetUnitId(unitID); err != nil {
		return nil, newTransportErr(err, "set unit id %d", unitID)
	}

	switch regType {
	case models.RegHolding:
		vals, err := g.client.ReadRegisters(uint16(address), uint16(count), modbus.HOLDING_REGISTER)
		if err != nil {
			return nil, classifyReadErr(err)
		}
		return vals, nil
	case models.RegInput:
		vals, err := g.client.ReadRegisters(uint16(address), uint16(count), modbus.INPUT_REGISTER)
		if err != nil {
			return nil, classifyReadErr(err)
		}
		return vals, nil
	case models.RegCoil:
		bits, err := g.client.ReadCoils(uint16(address), uint16(count))
		if err != nil {
			return nil, classifyReadErr(err)
		}
		return bitsToWords(bits), nil
	case models.RegDiscrete:
		bits, err := g.client.ReadDiscreteInputs(uint16(address), uint16(count))
		if err != nil {
			return nil, classifyReadErr(err)
		}
		return bitsToWords(bits), nil
	default:
		return nil, newValidationErr("unsupported register type %q", regType)
	}
}

// Write performs a single register/coil write against unitID. If ctx ends
// before the call returns, the transport is reset and a TransportError is
// returned.
func (g *Gateway) Write(ctx context.Context, unitID uint8, regType models.RegType, address int, value uint16) error {
	_, err := runWithDeadline(ctx, g, func() ([]uint16, error) {
		return nil, g.breaker.Call(func() error {
			g.mu.Lock()
			defer g.mu.Unlock()

			if err := g.ensureOpen(); err != nil {
				return err
			}
			if err := g.client.SetUnitId(unitID); err != nil {
				return newTransportErr(err, "set unit id %d", unitID)
			}

			var err error
			switch regType {
			case models.RegHolding:
				err = g.client.WriteRegister(uint16(address), value)
			case models.RegCoil:
				err = g.client.WriteCoil(uint16(address), value != 0)
			default:
				return newValidationErr("register type %q is not writable", regType)
			}
			if err != nil {
				g.closeLocked()
				return classifyReadErr(err)
			}
			return nil
		})
	})
	return err
}

func bitsToWords(bits []bool) []uint16 {
	out := make([]uint16, len(bits))
	for i, b := range bits {
		if b {
			out[i] = 1
		}
	}
	return out
}

// classifyReadErr distinguishes protocol-level rejections (bad address,
// bad function) from transport failures (timeout, broken pipe): the
// former is a DeviceError the caller shouldn't retry against, the latter
// is a TransportError worth retrying.
func classifyReadErr(err error) error {
	switch err {
	case modbus.ErrIllegalFunction, modbus.ErrIllegalDataAddress, modbus.ErrIllegalDataValue:
		return newDeviceErr(err, "device rejected request")
	default:
		return newTransportErr(err, "transport failure")
	}
}
