package handlers

import (
	"errors"
	"net/http"
	"time"

	scheduleRepo "classbook/database/repository/schedule"
	"classbook/services/scheduling"
	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves the read side: day slots, blackout days and the
// next open day.
type AvailabilityHandler struct {
	Svc scheduling.AvailabilityService
}

func NewAvailabilityHandler(svc scheduling.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Svc: svc}
}

// GetDayAvailability returns the bookable slots for one instructor and date.
// GET /api/availability/:instructorID/day?date=YYYY-MM-DD
func (h *AvailabilityHandler) GetDayAvailability(c *gin.Context) {
	instructorID := c.Param("instructorID")
	date := c.Query("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "date must be YYYY-MM-DD")
		return
	}

	day, err := h.Svc.DayAvailability(c.Request.Context(), instructorID, date)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "instructor has no published schedule")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to compute availability", err.Error())
		return
	}
	c.JSON(http.StatusOK, day)
}

// GetBlackoutDays returns the fully-booked or closed dates in the horizon.
// GET /api/availability/:instructorID/blackouts
func (h *AvailabilityHandler) GetBlackoutDays(c *gin.Context) {
	instructorID := c.Param("instructorID")

	days, err := h.Svc.BlackoutDays(c.Request.Context(), instructorID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "instructor has no published schedule")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to compute blackout days", err.Error())
		return
	}
	if days == nil {
		days = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"blackoutDays": days})
}

// GetNextAvailableDay scans forward from a date for the first bookable day.
// GET /api/availability/:instructorID/next?from=YYYY-MM-DD
func (h *AvailabilityHandler) GetNextAvailableDay(c *gin.Context) {
	instructorID := c.Param("instructorID")
	from := c.Query("from")
	if _, err := time.Parse("2006-01-02", from); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "from must be YYYY-MM-DD")
		return
	}

	next, err := h.Svc.NextAvailableDay(c.Request.Context(), instructorID, from)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoAvailableDay) {
			c.JSON(http.StatusOK, gin.H{"nextAvailableDay": nil})
			return
		}
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "instructor has no published schedule")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to find next available day", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextAvailableDay": next})
}
