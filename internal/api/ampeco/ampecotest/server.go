// Package ampecotest provides an in-memory Ampeco API for tests.
package ampecotest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/langchou/chargebook/internal/api/ampeco"
)

// Server fakes the subset of the Ampeco public API used by the gateway.
// Configure the exported fields before issuing requests.
type Server struct {
	*httptest.Server

	Locations       map[int64]ampeco.Location
	ChargePoints    map[int64][]ampeco.ChargePoint // by location
	EVSEs           map[int64][]ampeco.EVSE        // by charge point
	Users           []ampeco.User
	Bookings        []ampeco.Booking
	BookingRequests []ampeco.BookingRequest
	Availability    map[int64]string // raw response body by location

	// NextRequestStatus is the status assigned to submitted booking requests.
	NextRequestStatus string

	// PageSize caps list responses of bookings and booking requests to their
	// first page, like the real API. Zero means unlimited.
	PageSize int

	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]failure
	submitted []map[string]any
	nextID    int64
}

type failure struct {
	status int
	body   string
}

// NewServer starts a fake Ampeco API. It is closed with t.Cleanup by the caller.
func NewServer() *Server {
	s := &Server{
		Locations:         make(map[int64]ampeco.Location),
		ChargePoints:      make(map[int64][]ampeco.ChargePoint),
		EVSEs:             make(map[int64][]ampeco.EVSE),
		Availability:      make(map[int64]string),
		NextRequestStatus: ampeco.RequestStatusPending,
		calls:             make(map[string]int),
		failures:          make(map[string]failure),
		nextID:            1000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /resources/locations/v1.1", s.listLocations)
	mux.HandleFunc("GET /resources/locations/v1.1/{id}", s.getLocation)
	mux.HandleFunc("GET /resources/charge-points/v2.0", s.listChargePoints)
	mux.HandleFunc("GET /resources/charge-points/v2.0/{id}/evses", s.listEVSEs)
	mux.HandleFunc("POST /actions/locations/v2.0/{id}/check-booking-availability", s.checkAvailability)
	mux.HandleFunc("POST /resources/booking-requests/v1.0", s.submitBookingRequest)
	mux.HandleFunc("GET /resources/booking-requests/v1.0", s.listBookingRequests)
	mux.HandleFunc("GET /resources/booking-requests/v1.0/{id}", s.getBookingRequest)
	mux.HandleFunc("GET /resources/bookings/v1.0", s.listBookings)
	mux.HandleFunc("GET /resources/bookings/v1.0/{id}", s.getBooking)
	mux.HandleFunc("GET /resources/users/v1.0", s.listUsers)

	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// Fail makes every request matching method and path answer with status and body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Calls returns how many times method and path were requested.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls returns the number of requests received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Submitted returns the decoded bodies posted to the booking-requests endpoint.
func (s *Server) Submitted() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.submitted))
	copy(out, s.submitted)
	return out
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		s.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found."})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func queryID(r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ampeco.Location, 0, len(s.Locations))
	for _, loc := range s.Locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, out)
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := pathID(r)
	loc, ok := s.Locations[id]
	if !ok {
		notFound(w)
		return
	}
	writeData(w, loc)
}

func (s *Server) listChargePoints(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if locID, ok := queryID(r, "filter[locationId]"); ok {
		writeData(w, nonNil(s.ChargePoints[locID]))
		return
	}
	var out []ampeco.ChargePoint
	for _, cps := range s.ChargePoints {
		out = append(out, cps...)
	}
	writeData(w, nonNil(out))
}

func (s *Server) listEVSEs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := pathID(r)
	writeData(w, nonNil(s.EVSEs[id]))
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := pathID(r)
	body, ok := s.Availability[id]
	if !ok {
		body = `{"data":[]}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) submitBookingRequest(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Invalid JSON."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, body)
	s.nextID++

	typ, _ := body["type"].(string)
	br := ampeco.BookingRequest{ID: s.nextID, Type: typ, Status: s.NextRequestStatus}
	if v, ok := body["bookingId"].(float64); ok {
		br.BookingID = int64(v)
	}
	if v, ok := body["userId"].(float64); ok {
		br.UserID = int64(v)
	}
	if v, ok := body["locationId"].(float64); ok {
		br.LocationID = int64(v)
	}
	if v, ok := body["evseId"].(float64); ok {
		br.EVSEID = int64(v)
	}
	s.BookingRequests = append(s.BookingRequests, br)
	writeJSON(w, http.StatusCreated, map[string]any{"data": br})
}

func (s *Server) listBookingRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, byUser := queryID(r, "filter[userId]")
	out := make([]ampeco.BookingRequest, 0, len(s.BookingRequests))
	for _, br := range s.BookingRequests {
		if byUser && br.UserID != userID {
			continue
		}
		out = append(out, br)
	}
	writeData(w, firstPage(out, s.PageSize))
}

func (s *Server) getBookingRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := pathID(r)
	for _, br := range s.BookingRequests {
		if br.ID == id {
			writeData(w, br)
			return
		}
	}
	notFound(w)
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, byUser := queryID(r, "filter[userId]")
	out := make([]ampeco.Booking, 0, len(s.Bookings))
	for _, b := range s.Bookings {
		if byUser && b.UserID != userID {
			continue
		}
		out = append(out, b)
	}
	writeData(w, firstPage(out, s.PageSize))
}

func firstPage[T any](items []T, size int) []T {
	if size > 0 && len(items) > size {
		return items[:size]
	}
	return items
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := pathID(r)
	for _, b := range s.Bookings {
		if b.ID == id {
			writeData(w, b)
			return
		}
	}
	notFound(w)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := r.URL.Query().Get("filter[email]")
	out := make([]ampeco.User, 0, 1)
	for _, u := range s.Users {
		if email == "" || u.Email == email {
			out = append(out, u)
		}
	}
	writeData(w, out)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
