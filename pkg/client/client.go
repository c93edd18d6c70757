// Package client is a Go client for the hot-desking REST API. Client
// implements slots.Directory and slots.Session so a slots.Controller can
// drive a remote server.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/slots"
	"github.com/kozuki35/hot-desking/pkg/model"
)

const apiPrefix = "/api/v1"

type Client struct {
	httpClient *HttpClient

	mu     sync.RWMutex
	userID string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{httpClient: NewHttpClient(baseURL, timeout)}
}

// WithToken resumes a session from a previously issued token.
func (c *Client) WithToken(token, userID string) *Client {
	c.httpClient.SetToken(token)
	c.setUser(userID)
	return c
}

func (c *Client) Token() string {
	return c.httpClient.Token()
}

func (c *Client) CurrentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	resp, err := c.httpClient.POST(ctx, apiPrefix+"/users/login", model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var auth model.AuthResponse
	if err := resp.DecodeJSON(&auth); err != nil {
		return nil, fmt.Errorf("could not decode login response: %w", err)
	}
	c.httpClient.SetToken(auth.Token)
	c.setUser(auth.User.ID)
	return &auth, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	resp, err := c.httpClient.GET(ctx, apiPrefix+"/users/me")
	if err != nil {
		return nil, err
	}

	var out model.UserResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode user: %w", err)
	}
	c.setUser(out.User.ID)
	return &out.User, nil
}

// ListDesks lists desks with the given status ("" for all). A non-zero date
// attaches each desk's bookings for that day.
func (c *Client) ListDesks(ctx context.Context, status string, date domain.Date) ([]model.Desk, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if !date.IsZero() {
		q.Set("date", date.String())
	}

	path := apiPrefix + "/desks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}

	var out model.DesksResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode desks: %w", err)
	}
	return out.Desks, nil
}

func (c *Client) ListBookings(ctx context.Context, deskID string, date domain.Date) ([]domain.Booking, error) {
	q := url.Values{}
	q.Set("deskId", deskID)
	q.Set("date", date.String())

	resp, err := c.httpClient.GET(ctx, apiPrefix+"/bookings?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out model.BookingListResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode bookings: %w", err)
	}
	return FromBookings(out.Bookings)
}

func (c *Client) CreateBooking(ctx context.Context, deskID string, date domain.Date, set domain.SlotSet) ([]domain.Booking, error) {
	resp, err := c.httpClient.POST(ctx, apiPrefix+"/bookings", model.CreateBookingRequest{
		DeskID:         deskID,
		BookingDate:    date.String(),
		TimeSlotValues: set.Strings(),
	})
	if err != nil {
		return nil, err
	}

	var out model.BookingsResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode created bookings: %w", err)
	}
	return FromBookings(out.Booking)
}

func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	_, err := c.httpClient.DELETE(ctx, apiPrefix+"/bookings/"+url.PathEscape(bookingID))
	return err
}

// MoveBooking changes the date and slot of one of the caller's bookings.
// Zero values leave the field unchanged.
func (c *Client) MoveBooking(ctx context.Context, bookingID string, date domain.Date, slot domain.TimeSlot) (domain.Booking, error) {
	req := model.UpdateBookingRequest{}
	if !date.IsZero() {
		req.BookingDate = date.String()
	}
	if slot != "" {
		req.TimeSlot = &model.TimeSlot{Value: slot.String()}
	}

	resp, err := c.httpClient.PUT(ctx, apiPrefix+"/my-bookings/"+url.PathEscape(bookingID), req)
	if err != nil {
		return domain.Booking{}, err
	}

	var out model.BookingResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return domain.Booking{}, fmt.Errorf("could not decode booking: %w", err)
	}
	return FromBooking(out.Booking)
}

func (c *Client) setUser(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// FromBooking converts a wire booking into the domain type.
func FromBooking(b model.Booking) (domain.Booking, error) {
	date, err := domain.ParseDate(b.BookingDate)
	if err != nil {
		return domain.Booking{}, err
	}
	slot, err := domain.ParseTimeSlot(b.TimeSlot.Value)
	if err != nil {
		return domain.Booking{}, err
	}
	return domain.Booking{
		ID:          b.ID,
		UserID:      b.User,
		DeskID:      b.Desk,
		BookingDate: date,
		TimeSlot:    slot,
		Status:      domain.BookingStatus(b.Status),
		CreatedAt:   b.CreatedAt,
	}, nil
}

func FromBookings(bs []model.Booking) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(bs))
	for _, b := range bs {
		booking, err := FromBooking(b)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		out = append(out, booking)
	}
	return out, nil
}

var (
	_ slots.Directory = (*Client)(nil)
	_ slots.Session   = (*Client)(nil)
)

func (c *Client) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, maxWait)
}
