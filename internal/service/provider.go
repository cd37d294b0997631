package service

import (
	"context"
	"net/url"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

// Provider is the subset of the Ampeco API the services depend on.
// *ampeco.Client implements it.
type Provider interface {
	ListLocations(ctx context.Context) ([]ampeco.Location, error)
	GetLocation(ctx context.Context, id int64) (*ampeco.Location, error)
	ListChargePoints(ctx context.Context, locationID int64) ([]ampeco.ChargePoint, error)
	ListEVSEs(ctx context.Context, chargePointID int64) ([]ampeco.EVSE, error)
	CheckBookingAvailability(ctx context.Context, locationID int64, req ampeco.AvailabilityRequest) (*ampeco.AvailabilityResponse, error)
	SubmitBookingRequest(ctx context.Context, body ampeco.BookingRequestBody) (*ampeco.BookingRequest, error)
	ListBookingRequests(ctx context.Context, query url.Values) ([]ampeco.BookingRequest, error)
	GetBookingRequest(ctx context.Context, id int64) (*ampeco.BookingRequest, error)
	ListBookings(ctx context.Context, query url.Values) ([]ampeco.Booking, error)
	GetBooking(ctx context.Context, id int64) (*ampeco.Booking, error)
	FindUserByEmail(ctx context.Context, email string) (*ampeco.User, error)
}

var _ Provider = (*ampeco.Client)(nil)
