package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UpdateMyBookingRequest struct {
	Email   string `json:"email" binding:"required"`
	StartAt string `json:"startAt" binding:"required"`
	EndAt   string `json:"endAt" binding:"required"`
}

type CancelMyBookingRequest struct {
	Email string `json:"email" binding:"required"`
}

// ListMyBookings GET /my-bookings?email=
func (h *Handler) ListMyBookings(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email query parameter is required")
		return
	}

	bookings, err := h.bookings.ListMyBookings(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err, "Failed to load bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// UpdateMyBooking POST /my-bookings/:id/update
func (h *Handler) UpdateMyBooking(c *gin.Context) {
	id, ok := paramID(c, "id", "booking")
	if !ok {
		return
	}
	var req UpdateMyBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.UpdateOwn(c.Request.Context(), id, req.Email, req.StartAt, req.EndAt)
	if err != nil {
		h.respondError(c, err, "Update failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelMyBooking POST /my-bookings/:id/cancel
func (h *Handler) CancelMyBooking(c *gin.Context) {
	id, ok := paramID(c, "id", "booking")
	if !ok {
		return
	}
	var req CancelMyBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.CancelOwn(c.Request.Context(), id, req.Email)
	if err != nil {
		h.respondError(c, err, "Cancel failed")
		return
	}
	c.JSON(http.StatusOK, result)
}
