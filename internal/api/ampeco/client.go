package ampeco

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	pathLocations       = "/resources/locations/v1.1"
	pathChargePoints    = "/resources/charge-points/v2.0"
	pathBookingRequests = "/resources/booking-requests/v1.0"
	pathBookings        = "/resources/bookings/v1.0"
	pathUsers           = "/resources/users/v1.0"
)

// DefaultTimeout bounds a single provider round trip.
const DefaultTimeout = 15 * time.Second

// Client is an Ampeco public API client. It keeps the bearer token server-side
// and performs exactly one round trip per call, without retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

// NewClient creates a new Ampeco API client
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		token:      token,
		timeout:    timeout,
	}
}

// Error is returned for any non-2xx response. Body holds the decoded JSON
// error payload, or nil when the body was empty or not JSON.
type Error struct {
	Status int
	Path   string
	Body   any
}

func (e *Error) Error() string {
	return fmt.Sprintf("ampeco api %d: %s", e.Status, e.Path)
}

// Message extracts a human-readable message from the error body, checking
// message, error.message and errors[0].message in that order.
func (e *Error) Message() string {
	body, ok := e.Body.(map[string]any)
	if !ok {
		return ""
	}
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	if nested, ok := body["error"].(map[string]any); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if list, ok := body["errors"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			if msg, ok := first["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}

// StatusOf returns the provider status carried by err, or 0 when err is not an *Error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func newError(status int, path string, raw []byte) *Error {
	e := &Error{Status: status, Path: path}
	var body any
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &body) == nil {
		e.Body = body
	}
	return e
}

// envelope is the common {data: ...} response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// doRequest performs an authenticated request and returns the raw body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, path, raw)
	}

	return raw, nil
}

// fetch issues a request and decodes the data envelope.
func fetch[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var out envelope[T]
	raw, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return out.Data, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out.Data, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out.Data, nil
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

// Ping performs a cheap authenticated call to verify connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, pathLocations, url.Values{"per_page": {"1"}}, nil)
	return err
}

// ListLocations returns all locations
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	return fetch[[]Location](ctx, c, http.MethodGet, pathLocations, nil, nil)
}

// GetLocation returns a single location
func (c *Client) GetLocation(ctx context.Context, id int64) (*Location, error) {
	loc, err := fetch[Location](ctx, c, http.MethodGet, idPath(pathLocations, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListChargePoints returns the charge points of a location
func (c *Client) ListChargePoints(ctx context.Context, locationID int64) ([]ChargePoint, error) {
	query := url.Values{"filter[locationId]": {strconv.FormatInt(locationID, 10)}}
	return fetch[[]ChargePoint](ctx, c, http.MethodGet, pathChargePoints, query, nil)
}

// ListEVSEs returns every EVSE of a charge point, bookable or not
func (c *Client) ListEVSEs(ctx context.Context, chargePointID int64) ([]EVSE, error) {
	return fetch[[]EVSE](ctx, c, http.MethodGet, idPath(pathChargePoints, chargePointID)+"/evses", nil, nil)
}

// CheckBookingAvailability asks Ampeco for the free slots of each bookable
// EVSE at a location. A response that is empty, not JSON, or whose data is
// absent or not a list is returned with Valid=false rather than as an error.
// Raw is nil when the body was not JSON.
func (c *Client) CheckBookingAvailability(ctx context.Context, locationID int64, req AvailabilityRequest) (*AvailabilityResponse, error) {
	path := fmt.Sprintf("/actions/locations/v2.0/%d/check-booking-availability", locationID)
	raw, err := c.doRequest(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return &AvailabilityResponse{}, nil
	}
	return parseAvailability(raw), nil
}

func parseAvailability(raw []byte) *AvailabilityResponse {
	resp := &AvailabilityResponse{Raw: json.RawMessage(raw)}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '[' {
		return resp
	}

	var evses []EvseAvailability
	if err := json.Unmarshal(data, &evses); err != nil {
		return resp
	}
	resp.EVSEs = evses
	resp.Valid = true
	return resp
}

// SubmitBookingRequest posts a create, update or cancel action to the single
// polymorphic booking-requests endpoint.
func (c *Client) SubmitBookingRequest(ctx context.Context, body BookingRequestBody) (*BookingRequest, error) {
	br, err := fetch[BookingRequest](ctx, c, http.MethodPost, pathBookingRequests, nil, body)
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// ListBookingRequests returns booking requests, with query filters passed through
func (c *Client) ListBookingRequests(ctx context.Context, query url.Values) ([]BookingRequest, error) {
	return fetch[[]BookingRequest](ctx, c, http.MethodGet, pathBookingRequests, query, nil)
}

// GetBookingRequest returns a single booking request
func (c *Client) GetBookingRequest(ctx context.Context, id int64) (*BookingRequest, error) {
	br, err := fetch[BookingRequest](ctx, c, http.MethodGet, idPath(pathBookingRequests, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// ListBookings returns bookings, with query filters passed through
func (c *Client) ListBookings(ctx context.Context, query url.Values) ([]Booking, error) {
	return fetch[[]Booking](ctx, c, http.MethodGet, pathBookings, query, nil)
}

// GetBooking returns a single booking
func (c *Client) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	b, err := fetch[Booking](ctx, c, http.MethodGet, idPath(pathBookings, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindUserByEmail returns the first user with the given email, or nil when
// there is none. Drivers must already have an account; none is created here.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := fetch[[]User](ctx, c, http.MethodGet, pathUsers, url.Values{"filter[email]": {email}}, nil)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
