package api

import (
	"errors"
	"strconv"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/fluxionwatt/modbusgw/internal/modbusgw"
	"github.com/fluxionwatt/modbusgw/internal/response"
	"github.com/gofiber/fiber/v3"
)

// ListDevices
// @Summary List active devices
// @Tags Devices
// @Produce json
// @Success 200 {array} models.DeviceConfig
// @Router /api/v1/devices [get]
func (h *Server) ListDevices(c fiber.Ctx) error {
	return response.OK(c, h.Mgr.ListDevices())
}

// ListGateways
// @Summary List every distinct transport with its live status
// @Tags Devices
// @Produce json
// @Success 200 {array} models.GatewaySummary
// @Router /api/v1/devices/gateways [get]
func (h *Server) ListGateways(c fiber.Ctx) error {
	return response.OK(c, h.Mgr.ListGateways())
}

// GetGatewayStatus
// @Summary Get the live connection/circuit status of a device's gateway
// @Tags Devices
// @Produce json
// @Param device_id path string true "device id"
// @Router /api/v1/devices/{device_id}/gateway [get]
func (h *Server) GetGatewayStatus(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	d, ok := h.Mgr.Device(deviceID)
	if !ok {
		return response.NotFound(c, "device not found")
	}

	statuses := h.Mgr.GatewayStatuses()
	status, ok := statuses[d.GatewayKey()]
	if !ok {
		return response.NotFound(c, "gateway not found")
	}
	return response.OK(c, status)
}

// ReadRegister
// @Summary Read a register/bit range from a device
// @Description Serves from cache unless ?fresh=true is set.
// @Tags Devices
// @Produce json
// @Param device_id path string true "device id"
// @Param register_type path string true "holding|input|coil|discrete"
// @Param address path int true "start address"
// @Param count query int false "quantity, default 1"
// @Param fresh query bool false "bypass the cache"
// @Success 200 {object} modbusgw.ReadResult
// @Router /api/v1/devices/{device_id}/registers/{register_type}/{address} [get]
func (h *Server) ReadRegister(c fiber.Ctx) error {
	deviceID := c.Params("device_id")
	regType := models.RegType(c.Params("register_type"))

	address, err := strconv.Atoi(c.Params("address"))
	if err != nil {
		return response.BadRequest(c, "address must be an integer")
	}

	count := 1
	if q := c.Query("count"); q != "" {
		count, err = strconv.Atoi(q)
		if err != nil {
			return response.BadRequest(c, "count must be an integer")
		}
	}
	fresh := c.Query("fresh") == "true"

	result, err := h.Pipeline.Read(c.Context(), deviceID, regType, address, count, fresh)
	if err != nil {
		return translateGatewayErr(c, err)
	}
	return response.OK(c, result)
}

// WriteRegisterRequest is the body of a single register/coil write.
type WriteRegisterRequest struct {
	Address      int            `json:"address"`
	Value        uint16         `json:"value"`
	RegisterType models.RegType `json:"register_type"`
}

// WriteRegister
// @Summary Write a single holding register or coil
// @Tags Devices
// @Accept json
// @Produce json
// @Param device_id path string true "device id"
// @Param body body WriteRegisterRequest true "address, value, and register type to write"
// @Router /api/v1/devices/{device_id}/registers/write [post]
func (h *Server) WriteRegister(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	var req WriteRegisterRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.Pipeline.Write(c.Context(), deviceID, req.RegisterType, req.Address, req.Value); err != nil {
		return translateGatewayErr(c, err)
	}
	return response.OK(c, fiber.Map{"ok": true})
}

// GetMetrics
// @Summary Process-lifetime Modbus/cache/poller counters
// @Tags Metrics
// @Produce json
// @Success 200 {object} modbusgw.Snapshot
// @Router /api/v1/metrics [get]
func (h *Server) GetMetrics(c fiber.Ctx) error {
	return response.OK(c, h.Metrics.Snapshot(h.Cache.Stats()))
}

// AdminResetMetrics
// @Summary Zero every process-lifetime counter
// @Tags Admin
// @Produce json
// @Router /api/v1/admin/metrics/reset [post]
func (h *Server) AdminResetMetrics(c fiber.Ctx) error {
	h.Metrics.Reset()
	return response.OK(c, fiber.Map{"reset": true})
}

// translateGatewayErr maps a modbusgw.Error to the taxonomy-aware HTTP
// response; any other error is treated as internal.
func translateGatewayErr(c fiber.Ctx, err error) error {
	var gwErr *modbusgw.Error
	if errors.As(err, &gwErr) {
		return response.GatewayError(c, string(gwErr.Kind), gwErr.Message)
	}
	return response.Internal(c, err.Error())
}
