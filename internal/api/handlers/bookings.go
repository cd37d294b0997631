package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/langchou/chargebook/internal/service"
)

// CreateBookingRequest is the body of POST /bookings and POST /admin/bookings/create.
type CreateBookingRequest struct {
	LocationID int64  `json:"locationId" binding:"required"`
	EVSEID     *int64 `json:"evseId"`
	StartAt    string `json:"startAt" binding:"required"`
	EndAt      string `json:"endAt" binding:"required"`
	Email      string `json:"email" binding:"required"`
}

func (r CreateBookingRequest) input() service.CreateBookingInput {
	evseID := r.EVSEID
	if evseID != nil && *evseID == 0 {
		evseID = nil
	}
	return service.CreateBookingInput{
		LocationID: r.LocationID,
		EVSEID:     evseID,
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		Email:      r.Email,
	}
}

// passthrough returns the query string as provider filters, nil when empty.
func passthrough(c *gin.Context) url.Values {
	query := c.Request.URL.Query()
	if len(query) == 0 {
		return nil
	}
	return query
}

// ListBookings GET /bookings
func (h *Handler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBookings(c.Request.Context(), passthrough(c))
	if err != nil {
		h.respondError(c, err, "Failed to load bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// CreateBooking POST /bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.Create(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err, "Booking failed")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetBooking GET /bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to load booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetBookingRequest GET /booking-requests/:id
// Lets the UI check whether a submitted request was approved.
func (h *Handler) GetBookingRequest(c *gin.Context) {
	id, ok := paramID(c, "id", "booking request")
	if !ok {
		return
	}

	br, err := h.bookings.GetBookingRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to load booking request")
		return
	}
	c.JSON(http.StatusOK, br)
}
