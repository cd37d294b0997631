package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/service"
)

const (
	msgNoAccount    = "No driver account found for this email. Please sign up in the Future Energy driver app first, then return here to book."
	msgForbidden    = "This booking does not belong to the provided email."
	msgNotActive    = "This booking can no longer be changed."
	msgInternal     = "An unexpected error occurred. Please try again."
	errInternal     = "Internal server error"
	errValidation   = "validation_error"
	errNoAccount    = "no_account"
	errForbidden    = "forbidden"
	errNotFound     = "not_found"
	errUnavailable  = "slot_unavailable"
	errNotActive    = "booking_not_active"
	errInvalidInput = "Invalid request"
	errTimeout      = "timeout"
	errBadGateway   = "bad_gateway"
	msgTimeout      = "The booking provider did not respond in time. Please try again."
	msgBadGateway   = "The booking provider returned an unreadable response."
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// respondError maps a service or provider error to a status and body.
// fallback names the failed operation and is used when Ampeco gives no message.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var (
		unavailable *service.UnavailableError
		apiErr      *ampeco.Error
	)

	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errValidation, Message: err.Error()})

	case errors.Is(err, service.ErrNoAccount):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errNoAccount, Message: msgNoAccount})

	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: errForbidden, Message: msgForbidden})

	case errors.Is(err, service.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errNotFound, Message: "Booking not found"})

	case errors.Is(err, service.ErrSiteNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errNotFound, Message: "Location not found"})

	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: errUnavailable, Message: unavailable.Message})

	case errors.Is(err, service.ErrBookingNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: errNotActive, Message: msgNotActive})

	case errors.As(err, &apiErr):
		h.logger.Error(fallback,
			zap.Int("provider_status", apiErr.Status),
			zap.String("provider_path", apiErr.Path),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err))

		message := apiErr.Message()
		if message == "" {
			message = fallback
		}
		c.JSON(providerStatus(apiErr.Status), ErrorResponse{Error: fallback, Message: message, Details: apiErr.Body})

	case errors.Is(err, service.ErrMalformedAvailability):
		h.logger.Error(fallback,
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: errBadGateway, Message: msgBadGateway})

	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Error(fallback,
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: errTimeout, Message: msgTimeout})

	default:
		h.logger.Error(fallback,
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errInternal, Message: msgInternal})
	}
}

// providerStatus passes Ampeco's status through, except that auth failures
// concern our own credentials and become 502.
func providerStatus(status int) int {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return http.StatusBadGateway
	case status < http.StatusBadRequest, status > 599:
		return http.StatusBadGateway
	}
	return status
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: errValidation, Message: message})
}

// paramID parses a positive integer path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body, answering 400 on malformed JSON or missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, errInvalidInput+": "+err.Error())
		return false
	}
	return true
}
