package api

import (
	"errors"
	"strings"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/fluxionwatt/modbusgw/internal/response"
	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

// CreateDeviceRequest is the body for registering a new Modbus device.
type CreateDeviceRequest struct {
	DeviceID          string        `json:"device_id"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	SlaveID           int           `json:"slave_id"`
	TimeoutSeconds    int           `json:"timeout_seconds"`
	Framer            models.Framer `json:"framer"`
	MaxRetries        int           `json:"max_retries"`
	RetryDelaySeconds float64       `json:"retry_delay_seconds"`
}

func (r CreateDeviceRequest) validate() error {
	if strings.TrimSpace(r.DeviceID) == "" {
		return errors.New("device_id is required")
	}
	if strings.TrimSpace(r.Host) == "" {
		return errors.New("host is required")
	}
	switch r.Framer {
	case models.FramerRTU, models.FramerSocket, models.FramerASCII:
	default:
		return errors.New("framer must be one of RTU|SOCKET|ASCII")
	}
	return nil
}

// AdminListDevices
// @Summary List every persisted device (admin)
// @Tags Admin Devices
// @Produce json
// @Success 200 {array} models.DeviceConfig
// @Router /api/v1/admin/devices [get]
func (h *Server) AdminListDevices(c fiber.Ctx) error {
	var items []models.DeviceConfig
	if err := h.DB.Order("device_id asc").Find(&items).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, items)
}

// AdminCreateDevice
// @Summary Register a new device
// @Tags Admin Devices
// @Accept json
// @Produce json
// @Param body body CreateDeviceRequest true "device"
// @Router /api/v1/admin/devices [post]
func (h *Server) AdminCreateDevice(c fiber.Ctx) error {
	var req CreateDeviceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := req.validate(); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = 10
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = 5
	}
	if req.RetryDelaySeconds <= 0 {
		req.RetryDelaySeconds = 0.1
	}
	if req.SlaveID <= 0 {
		req.SlaveID = 1
	}

	var cnt int64
	if err := h.DB.Model(&models.DeviceConfig{}).Where("device_id = ?", req.DeviceID).Count(&cnt).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	if cnt > 0 {
		return response.Conflict(c, "device_id already exists")
	}

	device := models.DeviceConfig{
		DeviceID:          req.DeviceID,
		Host:              req.Host,
		Port:              req.Port,
		SlaveID:           req.SlaveID,
		TimeoutSeconds:    req.TimeoutSeconds,
		Framer:            req.Framer,
		MaxRetries:        req.MaxRetries,
		RetryDelaySeconds: req.RetryDelaySeconds,
		IsActive:          true,
	}
	if err := h.DB.Create(&device).Error; err != nil {
		return response.Internal(c, err.Error())
	}

	if err := h.Mgr.Reload(h.DB); err != nil {
		return response.Internal(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(device)
}

// UpdateDeviceRequest is the body for updating a device's transport
// parameters. All fields optional; only non-zero values are applied.
type UpdateDeviceRequest struct {
	Host              *string        `json:"host"`
	Port              *int           `json:"port"`
	SlaveID           *int           `json:"slave_id"`
	TimeoutSeconds    *int           `json:"timeout_seconds"`
	Framer            *models.Framer `json:"framer"`
	MaxRetries        *int           `json:"max_retries"`
	RetryDelaySeconds *float64       `json:"retry_delay_seconds"`
	IsActive          *bool          `json:"is_active"`
}

// AdminUpdateDevice
// @Summary Update a device's transport configuration
// @Tags Admin Devices
// @Accept json
// @Produce json
// @Param device_id path string true "device id"
// @Param body body UpdateDeviceRequest true "fields to update"
// @Router /api/v1/admin/devices/{device_id} [put]
func (h *Server) AdminUpdateDevice(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	var device models.DeviceConfig
	if err := h.DB.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "device not found")
		}
		return response.Internal(c, err.Error())
	}

	var req UpdateDeviceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if req.Host != nil {
		device.Host = *req.Host
	}
	if req.Port != nil {
		device.Port = *req.Port
	}
	if req.SlaveID != nil {
		device.SlaveID = *req.SlaveID
	}
	if req.TimeoutSeconds != nil {
		device.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.Framer != nil {
		device.Framer = *req.Framer
	}
	if req.MaxRetries != nil {
		device.MaxRetries = *req.MaxRetries
	}
	if req.RetryDelaySeconds != nil {
		device.RetryDelaySeconds = *req.RetryDelaySeconds
	}
	if req.IsActive != nil {
		device.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&device).Error; err != nil {
		return response.Internal(c, err.Error())
	}

	if err := h.Mgr.Reload(h.DB); err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, device)
}

// AdminDeleteDevice
// @Summary Remove a device
// @Tags Admin Devices
// @Produce json
// @Param device_id path string true "device id"
// @Router /api/v1/admin/devices/{device_id} [delete]
func (h *Server) AdminDeleteDevice(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	res := h.DB.Model(&models.DeviceConfig{}).Where("device_id = ?", deviceID).Update("is_active", false)
	if res.Error != nil {
		return response.Internal(c, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "device not found")
	}

	if err := h.DB.Model(&models.PollingTarget{}).Where("device_id = ?", deviceID).Update("is_active", false).Error; err != nil {
		return response.Internal(c, err.Error())
	}

	if err := h.Mgr.Reload(h.DB); err != nil {
		return response.Internal(c, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminActivateDevice
// @Summary Reactivate a previously soft-deleted device
// @Tags Admin Devices
// @Produce json
// @Param device_id path string true "device id"
// @Router /api/v1/admin/devices/{device_id}/activate [post]
func (h *Server) AdminActivateDevice(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	res := h.DB.Model(&models.DeviceConfig{}).Where("device_id = ?", deviceID).Update("is_active", true)
	if res.Error != nil {
		return response.Internal(c, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "device not found")
	}

	if err := h.Mgr.Reload(h.DB); err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, fiber.Map{"device_id": deviceID, "is_active": true})
}

// AdminReloadDevices
// @Summary Force the device/gateway registry to re-read the database
// @Tags Admin Devices
// @Produce json
// @Router /api/v1/admin/devices/reload [post]
func (h *Server) AdminReloadDevices(c fiber.Ctx) error {
	if err := h.Mgr.Reload(h.DB); err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, fiber.Map{"reloaded": true, "devices": len(h.Mgr.ListDevices())})
}

// AdminClearCache
// @Summary Drop every cached reading
// @Tags Admin Cache
// @Produce json
// @Router /api/v1/admin/cache/clear [post]
func (h *Server) AdminClearCache(c fiber.Ctx) error {
	h.Cache.Clear()
	return response.OK(c, fiber.Map{"cleared": true})
}

// AdminListCache
// @Summary List every live cache key
// @Tags Admin Cache
// @Produce json
// @Router /api/v1/admin/cache [get]
func (h *Server) AdminListCache(c fiber.Ctx) error {
	return response.OK(c, h.Cache.Keys())
}

// AdminCacheStats
// @Summary Cache hit/miss/set/eviction counters
// @Tags Admin Cache
// @Produce json
// @Router /api/v1/admin/cache/stats [get]
func (h *Server) AdminCacheStats(c fiber.Ctx) error {
	return response.OK(c, h.Cache.Stats())
}

// AdminDeviceCache
// @Summary List live cache keys belonging to one device
// @Tags Admin Cache
// @Produce json
// @Param device_id path string true "device id"
// @Router /api/v1/admin/cache/device/{device_id} [get]
func (h *Server) AdminDeviceCache(c fiber.Ctx) error {
	deviceID := c.Params("device_id")
	return response.OK(c, h.Cache.DeviceKeys(deviceID))
}
