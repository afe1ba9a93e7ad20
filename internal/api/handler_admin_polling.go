package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/fluxionwatt/modbusgw/internal/response"
	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

// CreatePollingTargetRequest is the body for adding a register range the
// poller should read on a fixed cadence.
type CreatePollingTargetRequest struct {
	DeviceID     string         `json:"device_id"`
	RegisterType models.RegType `json:"register_type"`
	Address      int            `json:"address"`
	Count        int            `json:"count"`
	Description  string         `json:"description"`
}

// AdminListPollingTargets
// @Summary List polling targets
// @Tags Admin Polling
// @Produce json
// @Param device_id query string false "filter by device"
// @Router /api/v1/admin/polling [get]
func (h *Server) AdminListPollingTargets(c fiber.Ctx) error {
	q := h.DB.Model(&models.PollingTarget{})
	if deviceID := c.Query("device_id"); deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}

	var items []models.PollingTarget
	if err := q.Order("id asc").Find(&items).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, items)
}

// AdminCreatePollingTarget
// @Summary Add a polling target
// @Tags Admin Polling
// @Accept json
// @Produce json
// @Param body body CreatePollingTargetRequest true "target"
// @Router /api/v1/admin/polling [post]
func (h *Server) AdminCreatePollingTarget(c fiber.Ctx) error {
	var req CreatePollingTargetRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		return response.BadRequest(c, "device_id is required")
	}
	if !req.RegisterType.Valid() {
		return response.BadRequest(c, "register_type must be one of holding|input|coil|discrete")
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > req.RegisterType.MaxCount() {
		return response.BadRequest(c, "count exceeds the Modbus protocol limit for this register type")
	}

	var deviceCnt int64
	if err := h.DB.Model(&models.DeviceConfig{}).Where("device_id = ?", req.DeviceID).Count(&deviceCnt).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	if deviceCnt == 0 {
		return response.NotFound(c, "device not found")
	}

	target := models.PollingTarget{
		DeviceID:     req.DeviceID,
		RegisterType: req.RegisterType,
		Address:      req.Address,
		Count:        req.Count,
		Description:  req.Description,
		IsActive:     true,
	}
	if err := h.DB.Create(&target).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(target)
}

// UpdatePollingTargetRequest updates a polling target's enablement or
// description. Changing address/count/register_type is not supported in
// place; delete and recreate instead so the change is unambiguous to the
// in-flight poll cycle.
type UpdatePollingTargetRequest struct {
	IsActive    *bool   `json:"is_active"`
	Description *string `json:"description"`
}

// AdminUpdatePollingTarget
// @Summary Enable/disable or annotate a polling target
// @Tags Admin Polling
// @Accept json
// @Produce json
// @Param id path int true "target id"
// @Param body body UpdatePollingTargetRequest true "fields to update"
// @Router /api/v1/admin/polling/{id} [put]
func (h *Server) AdminUpdatePollingTarget(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "id must be an integer")
	}

	var target models.PollingTarget
	if err := h.DB.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "polling target not found")
		}
		return response.Internal(c, err.Error())
	}

	var req UpdatePollingTargetRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}
	if req.Description != nil {
		target.Description = *req.Description
	}

	if err := h.DB.Save(&target).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, target)
}

// AdminDeletePollingTarget
// @Summary Remove a polling target
// @Tags Admin Polling
// @Produce json
// @Param id path int true "target id"
// @Router /api/v1/admin/polling/{id} [delete]
func (h *Server) AdminDeletePollingTarget(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "id must be an integer")
	}

	res := h.DB.Model(&models.PollingTarget{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return response.Internal(c, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "polling target not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminActivatePollingTarget
// @Summary Reactivate a previously soft-deleted polling target
// @Tags Admin Polling
// @Produce json
// @Param id path int true "target id"
// @Router /api/v1/admin/polling/{id}/activate [post]
func (h *Server) AdminActivatePollingTarget(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "id must be an integer")
	}

	res := h.DB.Model(&models.PollingTarget{}).Where("id = ?", id).Update("is_active", true)
	if res.Error != nil {
		return response.Internal(c, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "polling target not found")
	}
	return response.OK(c, fiber.Map{"id": id, "is_active": true})
}

// AdminListActivePollingTargets
// @Summary List only active polling targets
// @Tags Admin Polling
// @Produce json
// @Router /api/v1/admin/polling/active [get]
func (h *Server) AdminListActivePollingTargets(c fiber.Ctx) error {
	var items []models.PollingTarget
	if err := h.DB.Where("is_active = ?", true).Order("id asc").Find(&items).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, items)
}

// AdminListPollingTargetsForDevice
// @Summary List polling targets for one device
// @Tags Admin Polling
// @Produce json
// @Param device_id path string true "device id"
// @Router /api/v1/admin/polling/device/{device_id} [get]
func (h *Server) AdminListPollingTargetsForDevice(c fiber.Ctx) error {
	deviceID := c.Params("device_id")

	var items []models.PollingTarget
	if err := h.DB.Where("device_id = ?", deviceID).Order("id asc").Find(&items).Error; err != nil {
		return response.Internal(c, err.Error())
	}
	return response.OK(c, items)
}
