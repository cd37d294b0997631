package service

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/models"
	"github.com/langchou/chargebook/internal/state"
)

// maxLocationFetches bounds how many locations are resolved at once.
const maxLocationFetches = 8

// Enricher joins bookings with location and EVSE display data.
type Enricher struct {
	provider Provider
	logger   *zap.Logger
}

func NewEnricher(provider Provider, logger *zap.Logger) *Enricher {
	return &Enricher{provider: provider, logger: logger}
}

// locationResult is the outcome of resolving one location. A failed result
// contributes nothing to the lookup maps.
type locationResult struct {
	locationID int64
	location   *models.BookingLocation
	evses      map[int64]models.BookingEvse
	err        error
}

// ListEnriched fetches bookings and booking requests in parallel and enriches
// the bookings. query is passed through to the bookings endpoint and
// requestQuery to the booking-requests endpoint.
func (e *Enricher) ListEnriched(ctx context.Context, query, requestQuery url.Values) ([]models.EnrichedBooking, error) {
	var (
		bookings []ampeco.Booking
		requests []ampeco.BookingRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = e.provider.ListBookings(gctx, query)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		requests, err = e.provider.ListBookingRequests(gctx, requestQuery)
		if err != nil {
			return fmt.Errorf("list booking requests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.Enrich(ctx, bookings, requests), nil
}

// Enrich never fails: bookings whose location cannot be resolved keep a nil
// location and EVSE. The output has the same length and order as bookings.
func (e *Enricher) Enrich(ctx context.Context, bookings []ampeco.Booking, requests []ampeco.BookingRequest) []models.EnrichedBooking {
	assigned := AssignedEVSEs(requests)

	locations := make(map[int64]models.BookingLocation)
	evses := make(map[int64]models.BookingEvse)
	for _, res := range e.resolveLocations(ctx, distinctLocations(bookings)) {
		if res.err != nil {
			e.logger.Warn("Failed to enrich location",
				zap.Int64("location_id", res.locationID),
				zap.Error(res.err))
			continue
		}
		locations[res.locationID] = *res.location
		for id, evse := range res.evses {
			evses[id] = evse
		}
	}

	out := make([]models.EnrichedBooking, len(bookings))
	for i, b := range bookings {
		eb := models.EnrichedBooking{
			ID:         b.ID,
			Status:     b.Status,
			UserID:     b.UserID,
			LocationID: b.LocationID,
			StartAt:    b.StartAt,
			EndAt:      b.EndAt,
			Actions:    state.Actions(b.Status),
		}
		if loc, ok := locations[b.LocationID]; ok {
			eb.Location = &loc
		}
		if evseID, ok := assigned[b.ID]; ok {
			eb.EVSEID = &evseID
			if evse, ok := evses[evseID]; ok {
				eb.EVSE = &evse
			}
		}
		out[i] = eb
	}
	return out
}

// AssignedEVSEs maps booking IDs to the EVSE chosen by their approved create request.
// Update and cancel requests carry no assignment.
func AssignedEVSEs(requests []ampeco.BookingRequest) map[int64]int64 {
	out := make(map[int64]int64)
	for _, r := range requests {
		if r.Type != ampeco.RequestTypeCreate || r.Status != ampeco.RequestStatusApproved {
			continue
		}
		if r.BookingID == 0 || r.EVSEID == 0 {
			continue
		}
		out[r.BookingID] = r.EVSEID
	}
	return out
}

func distinctLocations(bookings []ampeco.Booking) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, b := range bookings {
		if b.LocationID == 0 || seen[b.LocationID] {
			continue
		}
		seen[b.LocationID] = true
		ids = append(ids, b.LocationID)
	}
	return ids
}

func (e *Enricher) resolveLocations(ctx context.Context, ids []int64) []locationResult {
	results := make([]locationResult, len(ids))

	var g errgroup.Group
	g.SetLimit(maxLocationFetches)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = e.resolveLocation(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// resolveLocation fetches the location and its charge points in parallel, then
// the EVSEs of every charge point. All EVSEs are kept, bookable or not, since
// an old booking may point at a charger that has since been disabled.
func (e *Enricher) resolveLocation(ctx context.Context, locationID int64) locationResult {
	res := locationResult{locationID: locationID}

	var (
		loc *ampeco.Location
		cps []ampeco.ChargePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loc, err = e.provider.GetLocation(gctx, locationID)
		return err
	})
	g.Go(func() error {
		var err error
		cps, err = e.provider.ListChargePoints(gctx, locationID)
		return err
	})
	if err := g.Wait(); err != nil {
		res.err = err
		return res
	}

	perCP := make([][]ampeco.EVSE, len(cps))
	g, gctx = errgroup.WithContext(ctx)
	for i, cp := range cps {
		g.Go(func() error {
			list, err := e.provider.ListEVSEs(gctx, cp.ID)
			if err != nil {
				return fmt.Errorf("charge point %d: %w", cp.ID, err)
			}
			perCP[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.err = err
		return res
	}

	bl := models.NewBookingLocation(*loc)
	res.location = &bl
	res.evses = make(map[int64]models.BookingEvse)
	for i, cp := range cps {
		for _, evse := range perCP[i] {
			res.evses[evse.ID] = models.NewBookingEvse(evse, cp.Name)
		}
	}
	return res
}
