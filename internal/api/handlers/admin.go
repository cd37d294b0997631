package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminUpdateBookingRequest struct {
	StartAt string `json:"startAt" binding:"required"`
	EndAt   string `json:"endAt" binding:"required"`
}

// AdminListBookings GET /admin/bookings, always enriched
func (h *Handler) AdminListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListEnrichedBookings(c.Request.Context(), passthrough(c))
	if err != nil {
		h.respondError(c, err, "Failed to load bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// AdminCreateBooking POST /admin/bookings/create
func (h *Handler) AdminCreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.AdminCreate(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err, "Booking failed")
		return
	}
	h.auditAdmin(c, "create", result.BookingRequestID)
	c.JSON(http.StatusCreated, result)
}

// AdminUpdateBooking POST /admin/bookings/:id/update
func (h *Handler) AdminUpdateBooking(c *gin.Context) {
	id, ok := paramID(c, "id", "booking")
	if !ok {
		return
	}
	var req AdminUpdateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.AdminUpdate(c.Request.Context(), id, req.StartAt, req.EndAt)
	if err != nil {
		h.respondError(c, err, "Update failed")
		return
	}
	h.auditAdmin(c, "update", result.BookingRequestID)
	c.JSON(http.StatusOK, result)
}

// AdminCancelBooking POST /admin/bookings/:id/cancel
func (h *Handler) AdminCancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id", "booking")
	if !ok {
		return
	}

	result, err := h.bookings.AdminCancel(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Cancel failed")
		return
	}
	h.auditAdmin(c, "cancel", result.BookingRequestID)
	c.JSON(http.StatusOK, result)
}

// AdminListLocations GET /admin/locations
// Only locations with at least one bookable EVSE are listed.
func (h *Handler) AdminListLocations(c *gin.Context) {
	sites, err := h.sites.ListBookableSites(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load locations")
		return
	}
	c.JSON(http.StatusOK, sites)
}

// AdminListLocationEVSEs GET /admin/locations/:locationId/evses
func (h *Handler) AdminListLocationEVSEs(c *gin.Context) {
	id, ok := paramID(c, "locationId", "location")
	if !ok {
		return
	}

	ports, err := h.sites.BookablePorts(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to load EVSEs")
		return
	}
	c.JSON(http.StatusOK, ports)
}

func (h *Handler) auditAdmin(c *gin.Context, action string, bookingRequestID int64) {
	subject := ""
	if p := PrincipalFrom(c); p != nil {
		subject = p.Subject
	}
	h.logger.Info("Admin booking request",
		zap.String("action", action),
		zap.String("principal", subject),
		zap.Int64("booking_request_id", bookingRequestID),
		zap.String("request_id", c.GetString(ctxRequestID)))
}
