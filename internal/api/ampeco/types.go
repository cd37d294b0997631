package ampeco

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Booking request types
const (
	RequestTypeCreate = "create"
	RequestTypeUpdate = "update"
	RequestTypeCancel = "cancel"
)

// Booking request statuses
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Booking statuses, owned by Ampeco
const (
	BookingStatusAccepted  = "accepted"
	BookingStatusReserved  = "reserved"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
	BookingStatusNoShow    = "no-show"
	BookingStatusFailed    = "failed"
)

// LocalizedText is a display string that Ampeco sends either as a plain
// string or as a list of {locale, translation} pairs.
type LocalizedText string

type translation struct {
	Locale      string `json:"locale"`
	Translation string `json:"translation"`
}

// UnmarshalJSON accepts a string, a translation list or a locale map.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = LocalizedText(s)
		return nil
	}

	var list []translation
	if err := json.Unmarshal(data, &list); err == nil {
		*t = LocalizedText(pickTranslation(list))
		return nil
	}

	var byLocale map[string]string
	if err := json.Unmarshal(data, &byLocale); err == nil {
		locales := make([]string, 0, len(byLocale))
		for locale := range byLocale {
			locales = append(locales, locale)
		}
		sort.Strings(locales)
		list = make([]translation, 0, len(locales))
		for _, locale := range locales {
			list = append(list, translation{Locale: locale, Translation: byLocale[locale]})
		}
		*t = LocalizedText(pickTranslation(list))
		return nil
	}

	return fmt.Errorf("localized text: unsupported value %s", string(data))
}

// String returns the display form.
func (t LocalizedText) String() string {
	return string(t)
}

// pickTranslation prefers English, then the first non-empty entry.
func pickTranslation(list []translation) string {
	var first string
	for _, tr := range list {
		if tr.Translation == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(tr.Locale), "en") {
			return tr.Translation
		}
		if first == "" {
			first = tr.Translation
		}
	}
	return first
}

// Location is a physical site (v1.1).
type Location struct {
	ID         int64         `json:"id"`
	Name       LocalizedText `json:"name"`
	Address    LocalizedText `json:"address"`
	City       string        `json:"city"`
	State      string        `json:"state"`
	Country    string        `json:"country"`
	PostalCode string        `json:"postalCode"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	Timezone   string        `json:"timezone"`
}

// ChargePoint groups EVSEs (v2.0)
type ChargePoint struct {
	ID         int64  `json:"id"`
	LocationID int64  `json:"locationId"`
	Name       string `json:"name,omitempty"`
}

// PowerOptions carries the power rating in milliwatts.
type PowerOptions struct {
	MaxPower float64 `json:"maxPower"`
}

// EVSE is a single charging port.
type EVSE struct {
	ID                int64         `json:"id"`
	NetworkID         string        `json:"networkId"`
	Status            string        `json:"status"`
	ConnectorType     string        `json:"connectorType"`
	MaxPowerKW        float64       `json:"maxPowerKw"`
	PowerOptions      *PowerOptions `json:"powerOptions,omitempty"`
	BookingEnabled    bool          `json:"bookingEnabled"`
	Label             string        `json:"label,omitempty"`
	PhysicalReference string        `json:"physicalReference,omitempty"`
	CurrentType       string        `json:"currentType,omitempty"`
}

// PowerKW derives the rating from powerOptions when present.
func (e EVSE) PowerKW() float64 {
	if e.PowerOptions != nil && e.PowerOptions.MaxPower > 0 {
		return e.PowerOptions.MaxPower / 1000
	}
	return e.MaxPowerKW
}

// User is a driver account. This service never creates users.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Booking is a reservation materialised by Ampeco from an approved create request.
type Booking struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	UserID     int64     `json:"userId"`
	LocationID int64     `json:"locationId"`
	EVSEID     int64     `json:"evseId,omitempty"`
	StartAt    time.Time `json:"startAt"`
	EndAt      time.Time `json:"endAt"`
}

// BookingRequest is the record of a create/update/cancel action.
type BookingRequest struct {
	ID              int64      `json:"id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	UserID          int64      `json:"userId,omitempty"`
	LocationID      int64      `json:"locationId,omitempty"`
	BookingID       int64      `json:"bookingId,omitempty"`
	EVSEID          int64      `json:"evseId,omitempty"`
	StartAt         *time.Time `json:"startAt,omitempty"`
	EndAt           *time.Time `json:"endAt,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	LastUpdatedAt   *time.Time `json:"lastUpdatedAt,omitempty"`
}

// BookingRequestBody is one of CreateBookingRequest, UpdateBookingRequest
// or CancelBookingRequest. Each variant writes its own type discriminant.
type BookingRequestBody interface {
	RequestType() string
}

// CreateBookingRequest leaves EVSEID nil to let Ampeco pick an EVSE.
type CreateBookingRequest struct {
	UserID     int64     `json:"userId"`
	LocationID int64     `json:"locationId"`
	StartAt    time.Time `json:"startAt"`
	EndAt      time.Time `json:"endAt"`
	EVSEID     *int64    `json:"evseId,omitempty"`
}

type UpdateBookingRequest struct {
	BookingID int64      `json:"bookingId"`
	StartAt   *time.Time `json:"startAt,omitempty"`
	EndAt     *time.Time `json:"endAt,omitempty"`
}

type CancelBookingRequest struct {
	BookingID int64 `json:"bookingId"`
}

func (CreateBookingRequest) RequestType() string { return RequestTypeCreate }
func (UpdateBookingRequest) RequestType() string { return RequestTypeUpdate }
func (CancelBookingRequest) RequestType() string { return RequestTypeCancel }

func (r CreateBookingRequest) MarshalJSON() ([]byte, error) {
	type body CreateBookingRequest
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{RequestTypeCreate, body(r)})
}

func (r UpdateBookingRequest) MarshalJSON() ([]byte, error) {
	type body UpdateBookingRequest
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{RequestTypeUpdate, body(r)})
}

func (r CancelBookingRequest) MarshalJSON() ([]byte, error) {
	type body CancelBookingRequest
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{RequestTypeCancel, body(r)})
}

// AvailabilityRequest window is capped at 7 days by Ampeco.
type AvailabilityRequest struct {
	StartAfter time.Time `json:"startAfter"`
	EndBefore  time.Time `json:"endBefore"`
}

// Slot is a contiguous interval during which an EVSE is free.
type Slot struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// EvseAvailability lists the free slots of one EVSE.
type EvseAvailability struct {
	EVSEID         int64  `json:"evseId"`
	AvailableSlots []Slot `json:"availableSlots"`
}

// AvailabilityResponse keeps the raw payload for passthrough. Valid is false
// when data is missing or is not a well-formed list.
type AvailabilityResponse struct {
	Raw   json.RawMessage
	EVSEs []EvseAvailability
	Valid bool
}
