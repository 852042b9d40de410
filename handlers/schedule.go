package handlers

import (
	"errors"
	"net/http"
	"time"

	scheduleRepo "classbook/database/repository/schedule"
	"classbook/models"
	"classbook/services/scheduling"
	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler manages instructor schedule templates.
type ScheduleHandler struct {
	Repo         scheduleRepo.Repository
	Availability scheduling.AvailabilityService
}

func NewScheduleHandler(repo scheduleRepo.Repository, availability scheduling.AvailabilityService) *ScheduleHandler {
	return &ScheduleHandler{Repo: repo, Availability: availability}
}

// UpsertSchedule replaces the caller's schedule template.
// PUT /api/schedule
func (h *ScheduleHandler) UpsertSchedule(c *gin.Context) {
	var tpl models.ScheduleTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	tpl.InstructorID = c.GetString("accountID")
	tpl.UpdatedAt = time.Now()

	if err := scheduling.ValidateTemplate(&tpl); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid schedule", err.Error())
		return
	}
	if err := h.Repo.Upsert(c.Request.Context(), &tpl); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to save schedule", err.Error())
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// GetSchedule returns an instructor's schedule template.
// GET /api/schedule/:instructorID
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	tpl, err := h.Repo.GetByInstructor(c.Request.Context(), c.Param("instructorID"))
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch schedule", err.Error())
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// SetOverride replaces the caller's windows for one date. An empty slot list
// closes the day.
// PUT /api/schedule/overrides
func (h *ScheduleHandler) SetOverride(c *gin.Context) {
	var override models.DateOverride
	if err := c.ShouldBindJSON(&override); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if _, err := time.Parse("2006-01-02", override.Date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "date must be YYYY-MM-DD")
		return
	}
	instructorID := c.GetString("accountID")

	if err := h.Repo.SetOverride(c.Request.Context(), instructorID, override); err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "publish a schedule before adding overrides")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to save override", err.Error())
		return
	}
	h.Availability.InvalidateDay(c.Request.Context(), instructorID, override.Date)
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// RemoveOverride restores the weekly pattern for one date.
// DELETE /api/schedule/overrides/:date
func (h *ScheduleHandler) RemoveOverride(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "date must be YYYY-MM-DD")
		return
	}
	instructorID := c.GetString("accountID")

	if err := h.Repo.RemoveOverride(c.Request.Context(), instructorID, date); err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to remove override", err.Error())
		return
	}
	h.Availability.InvalidateDay(c.Request.Context(), instructorID, date)
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
