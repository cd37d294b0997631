package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

func TestAssignedEVSEs(t *testing.T) {
	requests := []ampeco.BookingRequest{
		{ID: 1, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, BookingID: 42, EVSEID: 5},
		{ID: 2, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusPending, BookingID: 43, EVSEID: 6},
		{ID: 3, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusRejected, BookingID: 44, EVSEID: 7},
		{ID: 4, Type: ampeco.RequestTypeUpdate, Status: ampeco.RequestStatusApproved, BookingID: 45, EVSEID: 8},
		{ID: 5, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, BookingID: 46},
		{ID: 6, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, EVSEID: 9},
	}

	assert.Equal(t, map[int64]int64{42: 5}, AssignedEVSEs(requests))
}

func TestEnrich_LocationFailureDegradesOnlyThatLocation(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Bookings = []ampeco.Booking{
		{ID: 1, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 20},
		{ID: 2, Status: ampeco.BookingStatusAccepted, UserID: 7, LocationID: 10},
		{ID: 3, Status: ampeco.BookingStatusCancelled, UserID: 8, LocationID: 20},
		{ID: 4, Status: ampeco.BookingStatusReserved, UserID: 8, LocationID: 10},
	}
	f.srv.BookingRequests = []ampeco.BookingRequest{
		{ID: 900, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, BookingID: 1, EVSEID: 3},
		{ID: 901, Type: ampeco.RequestTypeCreate, Status: ampeco.RequestStatusApproved, BookingID: 2, EVSEID: 2},
	}
	f.srv.Fail(http.MethodGet, "/resources/locations/v1.1/20", http.StatusInternalServerError, `{"message":"boom"}`)

	out, err := f.bookings.ListEnrichedBookings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, out, 4)

	for i, id := range []int64{1, 2, 3, 4} {
		assert.Equal(t, id, out[i].ID, "order preserved")
	}

	// location 20 failed: no enrichment, but the assigned EVSE id still comes through
	assert.Nil(t, out[0].Location)
	assert.Nil(t, out[0].EVSE)
	require.NotNil(t, out[0].EVSEID)
	assert.Equal(t, int64(3), *out[0].EVSEID)
	assert.Nil(t, out[2].Location)

	// location 10 enriched, including a non-bookable EVSE
	require.NotNil(t, out[1].Location)
	assert.Equal(t, "Depot North", out[1].Location.Name)
	assert.Equal(t, "America/Chicago", out[1].Location.Timezone)
	require.NotNil(t, out[1].EVSE)
	assert.Equal(t, "CP-North", out[1].EVSE.ChargePointName)
	assert.Equal(t, "Type2", out[1].EVSE.ConnectorType)

	// no approved create request: location only
	require.NotNil(t, out[3].Location)
	assert.Nil(t, out[3].EVSEID)
	assert.Nil(t, out[3].EVSE)
}

func TestEnrich_EVSEFailureDropsWholeLocation(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.srv.Fail(http.MethodGet, "/resources/charge-points/v2.0/100/evses", http.StatusBadGateway, "")

	bookings := []ampeco.Booking{{ID: 1, LocationID: 10}, {ID: 2, LocationID: 20}}
	out := f.bookings.enricher.Enrich(context.Background(), bookings, nil)

	require.Len(t, out, 2)
	assert.Nil(t, out[0].Location)
	require.NotNil(t, out[1].Location)
	assert.Equal(t, "Depot South", out[1].Location.Name)
}

func TestEnrich_EmptyInput(t *testing.T) {
	f := newFixture(t)

	out := f.bookings.enricher.Enrich(context.Background(), nil, nil)
	assert.Empty(t, out)
	assert.Equal(t, 0, f.srv.TotalCalls())
}

func TestListEnriched_BookingsFailureFails(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodGet, "/resources/bookings/v1.0", http.StatusServiceUnavailable, "")

	_, err := f.bookings.ListEnrichedBookings(context.Background(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, ampeco.StatusOf(err))
}
