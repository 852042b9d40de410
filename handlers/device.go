package handlers

import (
	"net/http"

	deviceRepo "classbook/database/repository/device"
	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers FCM device tokens for push delivery.
type DeviceHandler struct {
	Devices deviceRepo.Repository
}

func NewDeviceHandler(devices deviceRepo.Repository) *DeviceHandler {
	return &DeviceHandler{Devices: devices}
}

// RegisterToken stores the caller's current FCM token, replacing any previous one.
// PUT /api/devices/token
func (h *DeviceHandler) RegisterToken(c *gin.Context) {
	var input struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	accountID := c.GetString("accountID")
	if err := h.Devices.SaveToken(c.Request.Context(), accountID, input.Token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to register device token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
