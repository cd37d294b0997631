// Package state models the booking lifecycle as observed through the gateway.
// Ampeco owns every status change; the machine only answers which changes a
// caller may still request.
package state

import (
	"sort"

	"github.com/looplab/fsm"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

// Events a caller may request through a booking request
const (
	EventUpdate = "update"
	EventCancel = "cancel"
)

// Events applied by Ampeco on its own
const (
	EventReserve  = "reserve"
	EventComplete = "complete"
	EventNoShow   = "no_show"
	EventFail     = "fail"
)

var active = []string{ampeco.BookingStatusAccepted, ampeco.BookingStatusReserved}

var events = fsm.Events{
	{Name: EventUpdate, Src: []string{ampeco.BookingStatusAccepted}, Dst: ampeco.BookingStatusAccepted},
	{Name: EventUpdate, Src: []string{ampeco.BookingStatusReserved}, Dst: ampeco.BookingStatusReserved},
	{Name: EventCancel, Src: active, Dst: ampeco.BookingStatusCancelled},

	{Name: EventReserve, Src: []string{ampeco.BookingStatusAccepted}, Dst: ampeco.BookingStatusReserved},
	{Name: EventComplete, Src: active, Dst: ampeco.BookingStatusCompleted},
	{Name: EventNoShow, Src: active, Dst: ampeco.BookingStatusNoShow},
	{Name: EventFail, Src: active, Dst: ampeco.BookingStatusFailed},
}

var requestable = map[string]bool{EventUpdate: true, EventCancel: true}

// Machine wraps an fsm positioned at a booking's current status.
// Unknown statuses have no transitions.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine creates a machine for the given status.
func NewMachine(status string) *Machine {
	return &Machine{fsm: fsm.NewFSM(status, events, fsm.Callbacks{})}
}

// Current returns the status the machine sits in.
func (m *Machine) Current() string {
	return m.fsm.Current()
}

// Can reports whether event is a valid transition from the current status.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Actions returns the events a caller may request, sorted.
func (m *Machine) Actions() []string {
	out := make([]string, 0, len(requestable))
	for _, event := range m.fsm.AvailableTransitions() {
		if requestable[event] {
			out = append(out, event)
		}
	}
	sort.Strings(out)
	return out
}

// Actions is shorthand for NewMachine(status).Actions().
func Actions(status string) []string {
	return NewMachine(status).Actions()
}
