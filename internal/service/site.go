package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/models"
)

// SiteService serves locations and their bookable ports.
type SiteService struct {
	provider Provider
	logger   *zap.Logger
}

func NewSiteService(provider Provider, logger *zap.Logger) *SiteService {
	return &SiteService{provider: provider, logger: logger}
}

// ListSites returns every location.
func (s *SiteService) ListSites(ctx context.Context) ([]models.Site, error) {
	locs, err := s.provider.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	sites := make([]models.Site, 0, len(locs))
	for _, loc := range locs {
		sites = append(sites, models.NewSite(loc))
	}
	return sites, nil
}

// ListBookableSites returns the locations that have at least one
// booking-enabled EVSE. Locations whose ports cannot be listed are skipped.
func (s *SiteService) ListBookableSites(ctx context.Context) ([]models.Site, error) {
	locs, err := s.provider.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	bookable := make([]bool, len(locs))
	var g errgroup.Group
	g.SetLimit(maxLocationFetches)
	for i, loc := range locs {
		g.Go(func() error {
			ports, err := s.BookablePorts(ctx, loc.ID)
			if err != nil {
				s.logger.Warn("Failed to list bookable ports",
					zap.Int64("location_id", loc.ID), zap.Error(err))
				return nil
			}
			bookable[i] = len(ports) > 0
			return nil
		})
	}
	_ = g.Wait()

	sites := make([]models.Site, 0, len(locs))
	for i, loc := range locs {
		if bookable[i] {
			sites = append(sites, models.NewSite(loc))
		}
	}
	return sites, nil
}

// GetSite returns a location with its bookable ports. Any location failure
// is ErrSiteNotFound; the port list is best-effort and empty on failure.
func (s *SiteService) GetSite(ctx context.Context, locationID int64) (*models.SiteDetail, error) {
	loc, err := s.provider.GetLocation(ctx, locationID)
	if err != nil {
		s.logger.Warn("Failed to get location", zap.Int64("location_id", locationID), zap.Error(err))
		return nil, fmt.Errorf("%w: %d", ErrSiteNotFound, locationID)
	}

	ports, err := s.BookablePorts(ctx, locationID)
	if err != nil {
		s.logger.Warn("Failed to list bookable ports", zap.Int64("location_id", locationID), zap.Error(err))
		ports = []models.Port{}
	}

	return &models.SiteDetail{Site: models.NewSite(*loc), EVSEs: ports}, nil
}

// BookablePorts lists the booking-enabled EVSEs of a location, in charge point order.
func (s *SiteService) BookablePorts(ctx context.Context, locationID int64) ([]models.Port, error) {
	cps, err := s.provider.ListChargePoints(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list charge points: %w", err)
	}

	perCP := make([][]ampeco.EVSE, len(cps))
	g, gctx := errgroup.WithContext(ctx)
	for i, cp := range cps {
		g.Go(func() error {
			list, err := s.provider.ListEVSEs(gctx, cp.ID)
			if err != nil {
				return fmt.Errorf("list evses of charge point %d: %w", cp.ID, err)
			}
			perCP[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ports := make([]models.Port, 0)
	for i, cp := range cps {
		for _, evse := range perCP[i] {
			if evse.BookingEnabled {
				ports = append(ports, models.NewPort(evse, cp.Name))
			}
		}
	}
	return ports, nil
}

// Availability proxies the availability check and returns Ampeco's payload as is.
func (s *SiteService) Availability(ctx context.Context, locationID int64, startAfter, endBefore string) (json.RawMessage, error) {
	window, err := parseWindow(startAfter, endBefore)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.CheckBookingAvailability(ctx, locationID, ampeco.AvailabilityRequest{
		StartAfter: window.start,
		EndBefore:  window.end,
	})
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if resp.Raw == nil {
		return nil, fmt.Errorf("check availability: %w", ErrMalformedAvailability)
	}
	return resp.Raw, nil
}
