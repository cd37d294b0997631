package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/api/ampeco/ampecotest"
	"github.com/langchou/chargebook/internal/availability"
	"github.com/langchou/chargebook/internal/models"
)

const pathSubmit = "/resources/booking-requests/v1.0"

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.BookingRequestEvent
}

func (n *recordingNotifier) BookingRequestSubmitted(event models.BookingRequestEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type fixture struct {
	srv      *ampecotest.Server
	sites    *SiteService
	bookings *BookingService
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := ampecotest.NewServer()
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	client := ampeco.NewClient(srv.URL, "token", 5*time.Second)
	notifier := &recordingNotifier{}

	return &fixture{
		srv:      srv,
		sites:    NewSiteService(client, logger),
		bookings: NewBookingService(client, NewEnricher(client, logger), notifier, logger),
		notifier: notifier,
	}
}

func ts(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
}

func rfc(hour int) string {
	return ts(hour).Format(time.RFC3339)
}

// seed creates two locations with one charge point each.
func (f *fixture) seed() {
	f.srv.Locations[10] = ampeco.Location{ID: 10, Name: "Depot North", City: "Austin", State: "TX", Timezone: "America/Chicago"}
	f.srv.Locations[20] = ampeco.Location{ID: 20, Name: "Depot South", City: "Houston", State: "TX", Timezone: "America/Chicago"}
	f.srv.ChargePoints[10] = []ampeco.ChargePoint{{ID: 100, LocationID: 10, Name: "CP-North"}}
	f.srv.ChargePoints[20] = []ampeco.ChargePoint{{ID: 200, LocationID: 20, Name: "CP-South"}}
	f.srv.EVSEs[100] = []ampeco.EVSE{
		{ID: 1, ConnectorType: "CCS", MaxPowerKW: 50, BookingEnabled: true},
		{ID: 2, ConnectorType: "Type2", MaxPowerKW: 22, BookingEnabled: false},
	}
	f.srv.EVSEs[200] = []ampeco.EVSE{{ID: 3, ConnectorType: "CCS", MaxPowerKW: 150, BookingEnabled: true}}
	f.srv.Users = []ampeco.User{{ID: 7, Email: "alice@example.com"}, {ID: 8, Email: "bob@example.com"}}
}

func TestCreate_UnknownEmailNeverSubmits(t *testing.T) {
	f := newFixture(t)
	f.seed()

	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		LocationID: 10, StartAt: rfc(9), EndAt: rfc(10), Email: "nobody@example.com",
	})

	assert.ErrorIs(t, err, ErrNoAccount)
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, pathSubmit))
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, "/actions/locations/v2.0/10/check-booking-availability"))
	assert.Empty(t, f.notifier.events)
}

func TestCreate_ValidationMakesNoProviderCall(t *testing.T) {
	f := newFixture(t)
	f.seed()

	cases := []CreateBookingInput{
		{LocationID: 10, StartAt: rfc(10), EndAt: rfc(9), Email: "alice@example.com"},
		{LocationID: 10, StartAt: rfc(9), EndAt: rfc(9), Email: "alice@example.com"},
		{LocationID: 10, StartAt: "tomorrow", EndAt: rfc(9), Email: "alice@example.com"},
		{LocationID: 10, StartAt: rfc(9), EndAt: rfc(10), Email: "  "},
		{StartAt: rfc(9), EndAt: rfc(10), Email: "alice@example.com"},
	}
	for _, in := range cases {
		_, err := f.bookings.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, f.srv.TotalCalls())
}

func TestCreate_SlotUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Availability[10] = `{"data":[
		{"evseId":1,"availableSlots":[{"startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z"}]},
		{"evseId":3,"availableSlots":[{"startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T11:00:00Z"}]}
	]}`
	evseID := int64(1)

	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		LocationID: 10, EVSEID: &evseID, StartAt: rfc(9), EndAt: rfc(11), Email: "alice@example.com",
	})

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, availability.MsgChargerUnavailable, unavailable.Message)
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, pathSubmit))

	// any charger: EVSE 3 covers the window
	res, err := f.bookings.Create(context.Background(), CreateBookingInput{
		LocationID: 10, StartAt: rfc(9), EndAt: rfc(11), Email: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, ampeco.RequestStatusPending, res.Status)
}

func TestCreate_EmptyAvailabilityIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Availability[10] = `{"data":[]}`

	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		LocationID: 10, StartAt: rfc(9), EndAt: rfc(10), Email: "alice@example.com",
	})

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, availability.MsgNoneAvailable, unavailable.Message)
}

func TestCreate_MalformedAvailabilitySkipsCheck(t *testing.T) {
	for _, body := range []string{`{"data":{"unexpected":true}}`, `{}`, ``, `not json`} {
		f := newFixture(t)
		f.seed()
		f.srv.Availability[10] = body

		res, err := f.bookings.Create(context.Background(), CreateBookingInput{
			LocationID: 10, StartAt: rfc(9), EndAt: rfc(10), Email: "alice@example.com",
		})
		require.NoError(t, err, "%q", body)
		assert.Equal(t, int64(1001), res.BookingRequestID)
		assert.Equal(t, 1, f.srv.Calls(http.MethodPost, pathSubmit), "%q", body)
	}
}

func TestCreate_SubmitsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Availability[10] = `{"data":[{"evseId":1,"availableSlots":[{"startAt":"2026-03-01T08:00:00Z","endAt":"2026-03-01T12:00:00Z"}]}]}`
	evseID := int64(1)

	res, err := f.bookings.AdminCreate(context.Background(), CreateBookingInput{
		LocationID: 10, EVSEID: &evseID, StartAt: rfc(9), EndAt: rfc(10), Email: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, &models.BookingRequestResult{BookingRequestID: 1001, Status: ampeco.RequestStatusPending}, res)

	body := f.srv.Submitted()[0]
	assert.Equal(t, "create", body["type"])
	assert.Equal(t, float64(7), body["userId"])
	assert.Equal(t, float64(1), body["evseId"])

	require.Len(t, f.notifier.events, 1)
	event := f.notifier.events[0]
	assert.Equal(t, int64(1001), event.BookingRequestID)
	assert.Equal(t, ampeco.RequestTypeCreate, event.Type)
	assert.Equal(t, int64(10), event.LocationID)
	assert.Equal(t, models.SourceAdmin, event.Source)
}

func TestCreate_ProviderErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Availability[10] = `{"data":[{"evseId":1,"availableSlots":[{"startAt":"2026-03-01T08:00:00Z","endAt":"2026-03-01T12:00:00Z"}]}]}`
	f.srv.Fail(http.MethodPost, pathSubmit, http.StatusUnprocessableEntity, `{"message":"Slot taken"}`)

	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		LocationID: 10, StartAt: rfc(9), EndAt: rfc(10), Email: "alice@example.com",
	})

	var apiErr *ampeco.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Empty(t, f.notifier.events)
}

func TestUpdateOwn_RejectsOtherDriverBeforeSubmitting(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{{ID: 42, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 10, StartAt: ts(9), EndAt: ts(10)}}

	_, err := f.bookings.UpdateOwn(context.Background(), 42, "bob@example.com", rfc(11), rfc(12))

	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, pathSubmit))
	assert.Equal(t, ts(9), f.srv.Bookings[0].StartAt)
	assert.Equal(t, ts(10), f.srv.Bookings[0].EndAt)
}

func TestUpdateOwn_Submits(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{{ID: 42, Status: ampeco.BookingStatusReserved, UserID: 7, LocationID: 10, StartAt: ts(9), EndAt: ts(10)}}

	res, err := f.bookings.UpdateOwn(context.Background(), 42, "alice@example.com", rfc(11), rfc(12))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), res.BookingRequestID)

	body := f.srv.Submitted()[0]
	assert.Equal(t, "update", body["type"])
	assert.Equal(t, float64(42), body["bookingId"])
	assert.Equal(t, rfc(11), body["startAt"])

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, int64(42), f.notifier.events[0].BookingID)
	assert.Equal(t, int64(10), f.notifier.events[0].LocationID)
}

func TestUpdateOwn_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{{ID: 42, Status: ampeco.BookingStatusCompleted, UserID: 7, LocationID: 10, StartAt: ts(9), EndAt: ts(10)}}

	_, err := f.bookings.UpdateOwn(context.Background(), 42, "nobody@example.com", rfc(11), rfc(12))
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = f.bookings.UpdateOwn(context.Background(), 99, "alice@example.com", rfc(11), rfc(12))
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = f.bookings.UpdateOwn(context.Background(), 42, "alice@example.com", rfc(11), rfc(12))
	assert.ErrorIs(t, err, ErrBookingNotActive)

	_, err = f.bookings.UpdateOwn(context.Background(), 42, "alice@example.com", rfc(12), rfc(11))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, pathSubmit))
}

func TestCancelOwn(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{
		{ID: 42, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 10},
		{ID: 43, Status: ampeco.BookingStatusCancelled, UserID: 7, LocationID: 10},
	}

	_, err := f.bookings.CancelOwn(context.Background(), 42, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.bookings.CancelOwn(context.Background(), 43, "alice@example.com")
	assert.ErrorIs(t, err, ErrBookingNotActive)
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, pathSubmit))

	res, err := f.bookings.CancelOwn(context.Background(), 42, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, ampeco.RequestStatusPending, res.Status)
	assert.Equal(t, map[string]any{"type": "cancel", "bookingId": float64(42)}, f.srv.Submitted()[0])
}

func TestAdminWrites_SkipOwnership(t *testing.T) {
	f := newFixture(t)
	f.srv.NextRequestStatus = ampeco.RequestStatusApproved

	res, err := f.bookings.AdminUpdate(context.Background(), 42, rfc(11), rfc(12))
	require.NoError(t, err)
	assert.Equal(t, ampeco.RequestStatusApproved, res.Status)

	_, err = f.bookings.AdminCancel(context.Background(), 42)
	require.NoError(t, err)

	_, err = f.bookings.AdminUpdate(context.Background(), 42, rfc(12), rfc(11))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 2, f.srv.Calls(http.MethodPost, pathSubmit))
	assert.Equal(t, 0, f.srv.Calls(http.MethodGet, "/resources/users/v1.0"))
	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, models.SourceAdmin, f.notifier.events[1].Source)
}

func TestGetBooking(t *testing.T) {
	f := newFixture(t)
	f.srv.Bookings = []ampeco.Booking{{ID: 42, Status: ampeco.BookingStatusAccepted, UserID: 7}}

	b, err := f.bookings.GetBooking(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.UserID)

	_, err = f.bookings.GetBooking(context.Background(), 41)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = f.bookings.GetBooking(context.Background(), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListMyBookings_FiltersByResolvedUser(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{
		{ID: 1, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 10},
		{ID: 2, Status: ampeco.BookingStatusAccepted, UserID: 8, LocationID: 10},
		{ID: 3, Status: ampeco.BookingStatusCompleted, UserID: 7, LocationID: 20},
	}

	out, err := f.bookings.ListMyBookings(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(3), out[1].ID)
	assert.Equal(t, []string{"cancel", "update"}, out[0].Actions)
	assert.Empty(t, out[1].Actions)

	_, err = f.bookings.ListMyBookings(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = f.bookings.ListMyBookings(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListMyBookings_RequestsFilteredToDriver(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.PageSize = 2
	f.srv.Bookings = []ampeco.Booking{
		{ID: 1, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 10},
	}
	// newer requests of another driver fill the first page
	f.srv.BookingRequests = []ampeco.BookingRequest{
		{ID: 903, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, UserID: 8, BookingID: 5, EVSEID: 3},
		{ID: 902, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, UserID: 8, BookingID: 4, EVSEID: 3},
		{ID: 901, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, UserID: 7, BookingID: 1, EVSEID: 1},
	}

	out, err := f.bookings.ListMyBookings(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].EVSEID)
	assert.Equal(t, int64(1), *out[0].EVSEID)
	require.NotNil(t, out[0].EVSE)
	assert.Equal(t, "CP-North", out[0].EVSE.ChargePointName)
}
