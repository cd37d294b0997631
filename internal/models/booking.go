package models

import (
	"time"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

// Who submitted a booking request through the gateway
const (
	SourceDriver = "driver"
	SourceAdmin  = "admin"
)

// BookingLocation is the location summary attached to a booking.
type BookingLocation struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
	Timezone string `json:"timezone"`
}

func NewBookingLocation(loc ampeco.Location) BookingLocation {
	return BookingLocation{
		Name:     loc.Name.String(),
		City:     loc.City,
		State:    loc.State,
		Timezone: loc.Timezone,
	}
}

// BookingEvse is the charger summary attached to a booking.
type BookingEvse struct {
	ChargePointName   string  `json:"chargePointName"`
	Label             string  `json:"label,omitempty"`
	PhysicalReference string  `json:"physicalReference,omitempty"`
	ConnectorType     string  `json:"connectorType"`
	MaxPowerKW        float64 `json:"maxPowerKw"`
	CurrentType       string  `json:"currentType,omitempty"`
}

func NewBookingEvse(evse ampeco.EVSE, chargePointName string) BookingEvse {
	return BookingEvse{
		ChargePointName:   chargePointName,
		Label:             evse.Label,
		PhysicalReference: evse.PhysicalReference,
		ConnectorType:     evse.ConnectorType,
		MaxPowerKW:        evse.PowerKW(),
		CurrentType:       evse.CurrentType,
	}
}

// EnrichedBooking is a booking joined with its location, assigned EVSE and
// the actions a caller may still request. Location and EVSE are null when
// they could not be resolved.
type EnrichedBooking struct {
	ID         int64            `json:"id"`
	Status     string           `json:"status"`
	UserID     int64            `json:"userId"`
	LocationID int64            `json:"locationId"`
	EVSEID     *int64           `json:"evseId"`
	StartAt    time.Time        `json:"startAt"`
	EndAt      time.Time        `json:"endAt"`
	Location   *BookingLocation `json:"location"`
	EVSE       *BookingEvse     `json:"evse"`
	Actions    []string         `json:"actions"`
}

// BookingRequestResult is returned by every write. The request may still be pending.
type BookingRequestResult struct {
	BookingRequestID int64  `json:"bookingRequestId"`
	Status           string `json:"status"`
}

// BookingRequestEvent is pushed to the admin live feed after a submission.
type BookingRequestEvent struct {
	BookingRequestID int64     `json:"bookingRequestId"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	BookingID        int64     `json:"bookingId,omitempty"`
	LocationID       int64     `json:"locationId,omitempty"`
	Source           string    `json:"source"`
	SubmittedAt      time.Time `json:"submittedAt"`
}
