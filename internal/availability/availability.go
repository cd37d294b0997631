// Package availability decides whether a requested charging window can be
// booked, given the free slots Ampeco reports per EVSE.
package availability

import (
	"time"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

const (
	MsgChargerUnavailable = "The selected charger is not available for the requested time. Please choose a different time or charger."
	MsgNoneAvailable      = "No chargers are available for the requested time. Please choose a different time."
)

// Result of a slot check. Message is set only when Available is false.
type Result struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// Validate reports whether [startAt, endAt) fits entirely inside one free slot.
// With evseID set only that EVSE is considered; otherwise any EVSE will do and
// Ampeco picks the charger.
func Validate(data []ampeco.EvseAvailability, startAt, endAt time.Time, evseID *int64) Result {
	if evseID != nil {
		for _, evse := range data {
			if evse.EVSEID == *evseID && HasSlot(evse, startAt, endAt) {
				return Result{Available: true}
			}
		}
		return Result{Message: MsgChargerUnavailable}
	}

	for _, evse := range data {
		if HasSlot(evse, startAt, endAt) {
			return Result{Available: true}
		}
	}
	return Result{Message: MsgNoneAvailable}
}

// HasSlot reports whether some slot fully contains the window. Overlap is not enough.
func HasSlot(evse ampeco.EvseAvailability, startAt, endAt time.Time) bool {
	for _, slot := range evse.AvailableSlots {
		if !slot.StartAt.After(startAt) && !slot.EndAt.Before(endAt) {
			return true
		}
	}
	return false
}
