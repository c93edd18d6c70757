package slots

import (
	"context"
	"testing"
	"time"

	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListBookings(ctx context.Context, deskID string, date domain.Date) ([]domain.Booking, error) {
	args := m.Called(ctx, deskID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockDirectory) CreateBooking(ctx context.Context, deskID string, date domain.Date, slots domain.SlotSet) ([]domain.Booking, error) {
	args := m.Called(ctx, deskID, date, slots)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockDirectory) CancelBooking(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

var testDate = domain.NewDate(2024, time.October, 1)

func newTestController(t *testing.T, dir *MockDirectory, user string, existing []domain.Booking) *Controller {
	t.Helper()
	c := NewController(dir, StaticSession(user), "desk-1", testDate)
	require.NoError(t, c.Load(existing))
	return c
}

func TestController_RefreshDerivesSelectionAndDisabled(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	dir.On("ListBookings", ctx, "desk-1", testDate).Return([]domain.Booking{
		booking("b1", "U1", domain.SlotMorning, domain.BookingStatusActive),
		booking("b2", "U2", domain.SlotAfternoon, domain.BookingStatusActive),
	}, nil).Once()

	c := NewController(dir, StaticSession("U2"), "desk-1", testDate)
	require.NoError(t, c.Refresh(ctx))

	assert.Equal(t, afternoon, c.Selection())
	assert.Equal(t, morning, c.Disabled())
	assert.Equal(t, StateIdle, c.State())
	dir.AssertExpectations(t)
}

func TestController_ToggleAddsThenCancelsSessionBooking(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	c := newTestController(t, dir, "U2", nil)

	created := []domain.Booking{booking("new-1", "U2", domain.SlotMorning, domain.BookingStatusActive)}
	dir.On("CreateBooking", ctx, "desk-1", testDate, morning).Return(created, nil).Once()

	out, err := c.Toggle(ctx, morning)
	require.NoError(t, err)
	assert.NoError(t, out.Err())
	assert.Equal(t, created, out.Created)
	assert.Equal(t, morning, c.Selection())

	dir.On("CancelBooking", ctx, "new-1").Return(nil).Once()

	out, err = c.Toggle(ctx, none)
	require.NoError(t, err)
	assert.Equal(t, []CancelIntent{{Slot: domain.SlotMorning, BookingID: "new-1"}}, out.Cancelled)
	assert.Equal(t, none, c.Selection())

	// The cancelled session booking is not offered as a cancel target again.
	dir.On("CreateBooking", ctx, "desk-1", testDate, morning).Return([]domain.Booking{
		booking("new-2", "U2", domain.SlotMorning, domain.BookingStatusActive),
	}, nil).Once()
	dir.On("CancelBooking", ctx, "new-2").Return(nil).Once()

	_, err = c.Toggle(ctx, morning)
	require.NoError(t, err)
	_, err = c.Toggle(ctx, none)
	require.NoError(t, err)

	dir.AssertExpectations(t)
}

func TestController_CreateRejectionRevertsSelection(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	c := newTestController(t, dir, "U2", nil)

	dir.On("CreateBooking", ctx, "desk-1", testDate, both).Return(nil, apperr.SlotConflict("morning")).Once()

	out, err := c.Toggle(ctx, both)
	require.NoError(t, err)

	assert.Len(t, out.Failures, 2)
	assert.True(t, apperr.HasCode(out.Err(), apperr.CodeSlotConflict))
	assert.Equal(t, none, out.Selection)
	assert.Equal(t, none, c.Selection())
	dir.AssertExpectations(t)
}

func TestController_PartialFailureIsPerSlot(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	c := newTestController(t, dir, "U2", []domain.Booking{
		booking("b-am", "U2", domain.SlotMorning, domain.BookingStatusActive),
	})

	dir.On("CancelBooking", ctx, "b-am").Return(apperr.BookingNotFound("b-am")).Once()
	dir.On("CreateBooking", ctx, "desk-1", testDate, afternoon).Return([]domain.Booking{
		booking("b-pm", "U2", domain.SlotAfternoon, domain.BookingStatusActive),
	}, nil).Once()

	out, err := c.Toggle(ctx, afternoon)
	require.NoError(t, err)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, domain.SlotMorning, out.Failures[0].Slot)
	assert.Equal(t, both, c.Selection())
	dir.AssertExpectations(t)
}

func TestController_UnmatchedCancelIsNoOp(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	c := newTestController(t, dir, "U2", nil)

	// The service accepted the create but the response carried no bookings,
	// so there is nothing to cancel by id later.
	dir.On("CreateBooking", ctx, "desk-1", testDate, morning).Return([]domain.Booking{}, nil).Once()
	_, err := c.Toggle(ctx, morning)
	require.NoError(t, err)

	out, err := c.Toggle(ctx, none)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimeSlot{domain.SlotMorning}, out.Unmatched)
	assert.Empty(t, out.Failures)
	assert.Equal(t, none, out.Selection)

	dir.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
	dir.AssertExpectations(t)
}

func TestController_DisabledSlotNeverSent(t *testing.T) {
	dir := &MockDirectory{}
	ctx := context.Background()
	c := newTestController(t, dir, "U2", []domain.Booking{
		booking("b1", "U1", domain.SlotMorning, domain.BookingStatusActive),
	})

	dir.On("CreateBooking", ctx, "desk-1", testDate, afternoon).Return([]domain.Booking{
		booking("b2", "U2", domain.SlotAfternoon, domain.BookingStatusActive),
	}, nil).Once()

	out, err := c.Toggle(ctx, both)
	require.NoError(t, err)
	assert.Equal(t, morning, out.Ignored)
	assert.Equal(t, afternoon, out.Selection)
	dir.AssertExpectations(t)
}

type blockingDirectory struct {
	MockDirectory
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDirectory) CreateBooking(ctx context.Context, deskID string, date domain.Date, slots domain.SlotSet) ([]domain.Booking, error) {
	close(b.entered)
	<-b.release
	return []domain.Booking{booking("b1", "U2", domain.SlotMorning, domain.BookingStatusActive)}, nil
}

func TestController_OverlappingToggleRefused(t *testing.T) {
	dir := &blockingDirectory{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewController(dir, StaticSession("U2"), "desk-1", testDate)
	ctx := context.Background()

	done := make(chan *Outcome)
	go func() {
		out, _ := c.Toggle(ctx, morning)
		done <- out
	}()

	<-dir.entered
	assert.Equal(t, StatePending, c.State())

	_, err := c.Toggle(ctx, none)
	assert.ErrorIs(t, err, ErrToggleInFlight)
	assert.ErrorIs(t, c.Refresh(ctx), ErrToggleInFlight)

	close(dir.release)
	out := <-done
	assert.Equal(t, morning, out.Selection)
	assert.Equal(t, StateIdle, c.State())
}

type switchableSession struct{ id string }

func (s *switchableSession) CurrentUserID() string { return s.id }

func TestController_RecomputesOnUserChange(t *testing.T) {
	dir := &MockDirectory{}
	session := &switchableSession{id: "U1"}
	c := NewController(dir, session, "desk-1", testDate)
	require.NoError(t, c.Load([]domain.Booking{
		booking("b1", "U1", domain.SlotMorning, domain.BookingStatusActive),
	}))

	assert.Equal(t, morning, c.Selection())
	assert.Equal(t, none, c.Disabled())

	session.id = "U2"
	assert.Equal(t, none, c.Selection())
	assert.Equal(t, morning, c.Disabled())
}
