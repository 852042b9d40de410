package handlers

import (
	"errors"
	"net/http"

	bookingRepo "classbook/database/repository/booking"
	"classbook/services/booking"
	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking state machine over HTTP.
type BookingHandler struct {
	Admission booking.AdmissionService
	Bookings  bookingRepo.Repository
}

func NewBookingHandler(admission booking.AdmissionService, bookings bookingRepo.Repository) *BookingHandler {
	return &BookingHandler{Admission: admission, Bookings: bookings}
}

// Reserve claims a slot and opens a 5-minute payment hold.
// POST /api/bookings
func (h *BookingHandler) Reserve(c *gin.Context) {
	var req booking.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	// The caller's identity comes from the token, never the body.
	req.StudentID = c.GetString("accountID")

	result, err := h.Admission.Reserve(c.Request.Context(), req)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Confirm promotes a pending booking after client-side payment capture.
// POST /api/bookings/:bookingID/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	var input struct {
		PaymentRef string `json:"paymentRef" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := h.Admission.Confirm(c.Request.Context(), c.Param("bookingID"), input.PaymentRef)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Cancel releases a pending booking before payment.
// DELETE /api/bookings/:bookingID
func (h *BookingHandler) Cancel(c *gin.Context) {
	if err := h.Admission.Cancel(c.Request.Context(), c.Param("bookingID")); err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// GetBooking fetches one booking by id.
// GET /api/bookings/:bookingID
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Bookings.GetByID(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, b)
}

// Complete marks a confirmed booking completed after the session ends.
// POST /api/bookings/:bookingID/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	err := h.Bookings.MarkCompleted(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "no confirmed booking to complete", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to complete booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// ListMyBookings lists the caller's bookings, newest first.
// GET /api/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	studentID := c.GetString("accountID")
	bookings, err := h.Bookings.ByStudent(c.Request.Context(), studentID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// respondBookingError maps the admission error taxonomy onto HTTP statuses.
func respondBookingError(c *gin.Context, err error) {
	var be *booking.BookingError
	if !errors.As(err, &be) {
		utils.JSONError(c, http.StatusInternalServerError, "booking operation failed", err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, booking.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrSlotFull):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrExpiredHold):
		status = http.StatusGone
	case errors.Is(err, booking.ErrBookingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, booking.ErrUpstream):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": be.Message, "code": be.Code})
}
