package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/availability"
	"github.com/langchou/chargebook/internal/models"
	"github.com/langchou/chargebook/internal/state"
)

// Notifier is told about every booking request the gateway submits.
type Notifier interface {
	BookingRequestSubmitted(event models.BookingRequestEvent)
}

// CreateBookingInput carries a new booking. StartAt and EndAt are RFC 3339.
// A nil EVSEID lets Ampeco pick the charger.
type CreateBookingInput struct {
	LocationID int64
	EVSEID     *int64
	StartAt    string
	EndAt      string
	Email      string
}

// BookingService turns gateway calls into booking requests. Every write
// submits exactly one request and reports its status without waiting for
// approval.
type BookingService struct {
	provider Provider
	enricher *Enricher
	notifier Notifier
	logger   *zap.Logger
}

// NewBookingService creates the service. notifier may be nil.
func NewBookingService(provider Provider, enricher *Enricher, notifier Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{
		provider: provider,
		enricher: enricher,
		notifier: notifier,
		logger:   logger,
	}
}

// Create books on behalf of a driver.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.BookingRequestResult, error) {
	return s.create(ctx, in, models.SourceDriver)
}

// AdminCreate books on behalf of staff. The rules are the same as Create.
func (s *BookingService) AdminCreate(ctx context.Context, in CreateBookingInput) (*models.BookingRequestResult, error) {
	return s.create(ctx, in, models.SourceAdmin)
}

func (s *BookingService) create(ctx context.Context, in CreateBookingInput, source string) (*models.BookingRequestResult, error) {
	email := strings.TrimSpace(in.Email)
	if in.LocationID <= 0 || email == "" {
		return nil, validationf("locationId, startAt, endAt, and email are required")
	}
	w, err := parseWindow(in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.CheckBookingAvailability(ctx, in.LocationID, ampeco.AvailabilityRequest{
		StartAfter: w.start,
		EndBefore:  w.end,
	})
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if resp.Valid {
		if res := availability.Validate(resp.EVSEs, w.start, w.end, in.EVSEID); !res.Available {
			return nil, &UnavailableError{Message: res.Message}
		}
	} else {
		// Ampeco still rejects conflicts when the request is submitted
		s.logger.Warn("Malformed availability response, skipping slot check",
			zap.Int64("location_id", in.LocationID))
	}

	return s.submit(ctx, ampeco.CreateBookingRequest{
		UserID:     user.ID,
		LocationID: in.LocationID,
		StartAt:    w.start,
		EndAt:      w.end,
		EVSEID:     in.EVSEID,
	}, in.LocationID, source)
}

// ListBookings returns raw bookings; query is passed through to Ampeco.
func (s *BookingService) ListBookings(ctx context.Context, query url.Values) ([]ampeco.Booking, error) {
	bookings, err := s.provider.ListBookings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// ListEnrichedBookings returns bookings with location and EVSE details.
func (s *BookingService) ListEnrichedBookings(ctx context.Context, query url.Values) ([]models.EnrichedBooking, error) {
	return s.enricher.ListEnriched(ctx, query, nil)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*ampeco.Booking, error) {
	if id <= 0 {
		return nil, validationf("invalid booking id")
	}
	b, err := s.provider.GetBooking(ctx, id)
	if err != nil {
		return nil, bookingLookupError(id, err)
	}
	return b, nil
}

// GetBookingRequest lets a caller poll the outcome of a submission.
func (s *BookingService) GetBookingRequest(ctx context.Context, id int64) (*ampeco.BookingRequest, error) {
	if id <= 0 {
		return nil, validationf("invalid booking request id")
	}
	br, err := s.provider.GetBookingRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking request %d: %w", id, err)
	}
	return br, nil
}

// ListMyBookings returns the enriched bookings of the driver owning email.
func (s *BookingService) ListMyBookings(ctx context.Context, email string) ([]models.EnrichedBooking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationf("email is required")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	// the driver's own requests, so older assignments are not pushed off the first page
	byUser := url.Values{"filter[userId]": {strconv.FormatInt(user.ID, 10)}}
	return s.enricher.ListEnriched(ctx, byUser, byUser)
}

// UpdateOwn moves a driver's booking. Ownership and status are checked
// before anything is submitted.
func (s *BookingService) UpdateOwn(ctx context.Context, id int64, email, startAt, endAt string) (*models.BookingRequestResult, error) {
	email = strings.TrimSpace(email)
	if id <= 0 || email == "" {
		return nil, validationf("email, startAt, and endAt are required")
	}
	w, err := parseWindow(startAt, endAt)
	if err != nil {
		return nil, err
	}

	booking, err := s.ownedBooking(ctx, id, email)
	if err != nil {
		return nil, err
	}
	if !state.NewMachine(booking.Status).Can(state.EventUpdate) {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrBookingNotActive, id, booking.Status)
	}

	return s.submit(ctx, ampeco.UpdateBookingRequest{
		BookingID: id,
		StartAt:   &w.start,
		EndAt:     &w.end,
	}, booking.LocationID, models.SourceDriver)
}

// CancelOwn cancels a driver's booking, with the same checks as UpdateOwn.
func (s *BookingService) CancelOwn(ctx context.Context, id int64, email string) (*models.BookingRequestResult, error) {
	email = strings.TrimSpace(email)
	if id <= 0 || email == "" {
		return nil, validationf("email is required")
	}

	booking, err := s.ownedBooking(ctx, id, email)
	if err != nil {
		return nil, err
	}
	if !state.NewMachine(booking.Status).Can(state.EventCancel) {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrBookingNotActive, id, booking.Status)
	}

	return s.submit(ctx, ampeco.CancelBookingRequest{BookingID: id}, booking.LocationID, models.SourceDriver)
}

// AdminUpdate moves any booking. Ampeco decides whether the change is allowed.
func (s *BookingService) AdminUpdate(ctx context.Context, id int64, startAt, endAt string) (*models.BookingRequestResult, error) {
	if id <= 0 {
		return nil, validationf("invalid booking id")
	}
	w, err := parseWindow(startAt, endAt)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, ampeco.UpdateBookingRequest{
		BookingID: id,
		StartAt:   &w.start,
		EndAt:     &w.end,
	}, 0, models.SourceAdmin)
}

// AdminCancel cancels any booking.
func (s *BookingService) AdminCancel(ctx context.Context, id int64) (*models.BookingRequestResult, error) {
	if id <= 0 {
		return nil, validationf("invalid booking id")
	}
	return s.submit(ctx, ampeco.CancelBookingRequest{BookingID: id}, 0, models.SourceAdmin)
}

func (s *BookingService) findUser(ctx context.Context, email string) (*ampeco.User, error) {
	user, err := s.provider.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNoAccount
	}
	return user, nil
}

// ownedBooking loads a booking and checks it belongs to the user behind email.
func (s *BookingService) ownedBooking(ctx context.Context, id int64, email string) (*ampeco.Booking, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	booking, err := s.provider.GetBooking(ctx, id)
	if err != nil {
		return nil, bookingLookupError(id, err)
	}
	if booking.UserID != user.ID {
		return nil, ErrNotOwner
	}
	return booking, nil
}

func (s *BookingService) submit(ctx context.Context, body ampeco.BookingRequestBody, locationID int64, source string) (*models.BookingRequestResult, error) {
	br, err := s.provider.SubmitBookingRequest(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("submit %s request: %w", body.RequestType(), err)
	}

	s.logger.Info("Submitted booking request",
		zap.Int64("booking_request_id", br.ID),
		zap.String("type", body.RequestType()),
		zap.String("status", br.Status),
		zap.String("source", source))

	if s.notifier != nil {
		if locationID == 0 {
			locationID = br.LocationID
		}
		s.notifier.BookingRequestSubmitted(models.BookingRequestEvent{
			BookingRequestID: br.ID,
			Type:             body.RequestType(),
			Status:           br.Status,
			BookingID:        targetBooking(body, br),
			LocationID:       locationID,
			Source:           source,
			SubmittedAt:      time.Now(),
		})
	}

	return &models.BookingRequestResult{BookingRequestID: br.ID, Status: br.Status}, nil
}

func targetBooking(body ampeco.BookingRequestBody, br *ampeco.BookingRequest) int64 {
	switch b := body.(type) {
	case ampeco.UpdateBookingRequest:
		return b.BookingID
	case ampeco.CancelBookingRequest:
		return b.BookingID
	}
	return br.BookingID
}
