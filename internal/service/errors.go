package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNoAccount        = errors.New("no driver account found for this email")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrNotOwner         = errors.New("booking does not belong to the provided email")
	ErrBookingNotActive = errors.New("booking can no longer be changed")
	ErrSiteNotFound     = errors.New("site not found")

	ErrMalformedAvailability = errors.New("availability response is not json")
)

// UnavailableError is returned when the requested window is not free.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string {
	return "slot unavailable: " + e.Message
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type window struct {
	start, end time.Time
}

// parseWindow parses two RFC 3339 instants and enforces start < end.
func parseWindow(startAt, endAt string) (window, error) {
	if startAt == "" || endAt == "" {
		return window{}, validationf("start and end are required")
	}
	start, err := time.Parse(time.RFC3339, startAt)
	if err != nil {
		return window{}, validationf("invalid start %q", startAt)
	}
	end, err := time.Parse(time.RFC3339, endAt)
	if err != nil {
		return window{}, validationf("invalid end %q", endAt)
	}
	if !start.Before(end) {
		return window{}, validationf("start must be before end")
	}
	return window{start: start, end: end}, nil
}

// bookingLookupError maps a provider 404 on a booking to ErrBookingNotFound.
func bookingLookupError(id int64, err error) error {
	if ampeco.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %d", ErrBookingNotFound, id)
	}
	return fmt.Errorf("get booking %d: %w", id, err)
}
