package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/events"
	"github.com/kozuki35/hot-desking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateActive(ctx context.Context, bookings []*domain.Booking) error {
	args := m.Called(ctx, bookings)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListViews(ctx context.Context, filter repository.BookingFilter) ([]domain.BookingView, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.BookingView), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) ArchiveBefore(ctx context.Context, date domain.Date) ([]domain.Booking, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockDeskRepository struct {
	mock.Mock
	repository.DeskRepository
}

func (m *MockDeskRepository) GetByID(ctx context.Context, id string) (*domain.Desk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Desk), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, deskID, date, slot, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) ReleaseSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, token string) error {
	args := m.Called(ctx, deskID, date, slot, token)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	today    = domain.NewDate(2024, time.September, 10)
	tomorrow = domain.NewDate(2024, time.September, 11)
	user     = domain.Actor{UserID: "u-1", Role: domain.RoleUser}
	admin    = domain.Actor{UserID: "admin", Role: domain.RoleAdmin}
)

type fixture struct {
	bookings *MockBookingRepository
	desks    *MockDeskRepository
	cache    *MockCache
	producer *MockProducer
	service  *BookingService
}

func newFixture() *fixture {
	f := &fixture{
		bookings: &MockBookingRepository{},
		desks:    &MockDeskRepository{},
		cache:    &MockCache{},
		producer: &MockProducer{},
	}
	f.service = NewBookingService(f.bookings, f.desks, f.cache, f.producer, "booking_topic", time.Second,
		WithNotificationsTopic("notifications_topic"),
		WithClock(func() time.Time { return today.Time().Add(9 * time.Hour) }),
	)
	return f
}

func TestBookingService_CreateBookings_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	both := domain.NewSlotSet(domain.SlotMorning, domain.SlotAfternoon)

	f.desks.On("GetByID", ctx, "d-1").Return(&domain.Desk{ID: "d-1", Status: domain.DeskStatusActive}, nil).Once()
	for _, slot := range domain.AllSlots {
		f.cache.On("AcquireSlotLock", ctx, "d-1", tomorrow, slot, time.Second).Return("tok-"+slot.String(), true, nil).Once()
		f.cache.On("ReleaseSlotLock", ctx, "d-1", tomorrow, slot, "tok-"+slot.String()).Return(nil).Once()
	}
	f.bookings.On("CreateActive", ctx, mock.MatchedBy(func(bs []*domain.Booking) bool {
		return len(bs) == 2 && bs[0].TimeSlot == domain.SlotMorning && bs[1].TimeSlot == domain.SlotAfternoon
	})).Run(func(args mock.Arguments) {
		for _, b := range args.Get(1).([]*domain.Booking) {
			b.Status = domain.BookingStatusActive
		}
	}).Return(nil).Once()
	f.producer.On("Publish", ctx, "booking_topic", mock.Anything, mock.AnythingOfType("events.BookingEvent")).Return(nil).Twice()
	f.producer.On("Publish", ctx, "notifications_topic", mock.Anything, mock.AnythingOfType("events.BookingEvent")).Return(nil).Twice()

	created, err := f.service.CreateBookings(ctx, user, CreateBookingInput{DeskID: "d-1", Date: tomorrow, Slots: both})

	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, b := range created {
		assert.Equal(t, "u-1", b.UserID)
		assert.Equal(t, domain.BookingStatusActive, b.Status)
		assert.NotEmpty(t, b.ID)
	}
	f.desks.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.producer.AssertExpectations(t)
}

func TestBookingService_CreateBookings_SlotTakenInDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.cache = nil
	both := domain.NewSlotSet(domain.SlotMorning, domain.SlotAfternoon)

	f.desks.On("GetByID", ctx, "d-1").Return(&domain.Desk{ID: "d-1", Status: domain.DeskStatusActive}, nil).Once()
	f.bookings.On("CreateActive", ctx, mock.Anything).
		Return(&repository.DuplicateError{Constraint: repository.ConstraintActiveSlot}).Once()
	f.bookings.On("List", ctx, repository.BookingFilter{
		DeskID:   "d-1",
		Date:     tomorrow,
		Statuses: []domain.BookingStatus{domain.BookingStatusActive},
	}).Return([]domain.Booking{{ID: "other", UserID: "u-2", TimeSlot: domain.SlotAfternoon, Status: domain.BookingStatusActive}}, nil).Once()

	_, err := f.service.CreateBookings(ctx, user, CreateBookingInput{DeskID: "d-1", Date: tomorrow, Slots: both})

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeSlotConflict, appErr.Code)
	assert.Equal(t, "afternoon", appErr.Details["time_slot"])
	f.producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBookings_LockHeldReleasesEarlierLocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	both := domain.NewSlotSet(domain.SlotMorning, domain.SlotAfternoon)

	f.desks.On("GetByID", ctx, "d-1").Return(&domain.Desk{ID: "d-1", Status: domain.DeskStatusActive}, nil).Once()
	f.cache.On("AcquireSlotLock", ctx, "d-1", tomorrow, domain.SlotMorning, time.Second).Return("tok-1", true, nil).Once()
	f.cache.On("AcquireSlotLock", ctx, "d-1", tomorrow, domain.SlotAfternoon, time.Second).Return("", false, nil).Once()
	f.cache.On("ReleaseSlotLock", ctx, "d-1", tomorrow, domain.SlotMorning, "tok-1").Return(nil).Once()

	_, err := f.service.CreateBookings(ctx, user, CreateBookingInput{DeskID: "d-1", Date: tomorrow, Slots: both})

	assert.True(t, apperr.HasCode(err, apperr.CodeSlotConflict))
	f.cache.AssertExpectations(t)
	f.bookings.AssertNotCalled(t, "CreateActive", mock.Anything, mock.Anything)
}

func TestBookingService_CreateBookings_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	morning := domain.NewSlotSet(domain.SlotMorning)

	f.desks.On("GetByID", ctx, "missing").Return(nil, repository.ErrNotFound).Once()
	f.desks.On("GetByID", ctx, "draft").Return(&domain.Desk{ID: "draft", Status: domain.DeskStatusDraft}, nil).Once()

	testCases := []struct {
		name  string
		input CreateBookingInput
		code  string
	}{
		{name: "no slots", input: CreateBookingInput{DeskID: "d-1", Date: tomorrow}, code: apperr.CodeInvalidInput},
		{name: "no desk", input: CreateBookingInput{Date: tomorrow, Slots: morning}, code: apperr.CodeInvalidInput},
		{name: "past date", input: CreateBookingInput{DeskID: "d-1", Date: domain.NewDate(2024, time.September, 9), Slots: morning}, code: apperr.CodeInvalidInput},
		{name: "unknown desk", input: CreateBookingInput{DeskID: "missing", Date: today, Slots: morning}, code: apperr.CodeNotFound},
		{name: "inactive desk", input: CreateBookingInput{DeskID: "draft", Date: today, Slots: morning}, code: apperr.CodeInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CreateBookings(ctx, user, tc.input)
			assert.True(t, apperr.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestBookingService_CancelBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	own := &domain.Booking{ID: "b-1", UserID: "u-1", Status: domain.BookingStatusActive}
	cancelled := &domain.Booking{ID: "b-1", UserID: "u-1", Status: domain.BookingStatusCancelled}
	f.bookings.On("GetByID", ctx, "b-1").Return(own, nil).Once()
	f.bookings.On("UpdateStatusIf", ctx, "b-1", domain.BookingStatusActive, domain.BookingStatusCancelled).Return(cancelled, nil).Once()
	f.producer.On("Publish", ctx, mock.Anything, "b-1", mock.MatchedBy(func(e events.BookingEvent) bool {
		return e.Type == events.BookingCancelled
	})).Return(nil).Twice()

	got, err := f.service.CancelBooking(ctx, user, "b-1")

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	f.producer.AssertExpectations(t)
}

func TestBookingService_CancelBooking_NotFoundCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bookings.On("GetByID", ctx, "gone").Return(nil, repository.ErrNotFound)
	f.bookings.On("GetByID", ctx, "theirs").Return(&domain.Booking{ID: "theirs", UserID: "u-2", Status: domain.BookingStatusActive}, nil)
	f.bookings.On("GetByID", ctx, "done").Return(&domain.Booking{ID: "done", UserID: "u-1", Status: domain.BookingStatusArchived}, nil)
	f.bookings.On("GetByID", ctx, "raced").Return(&domain.Booking{ID: "raced", UserID: "u-1", Status: domain.BookingStatusActive}, nil)
	f.bookings.On("UpdateStatusIf", ctx, "raced", domain.BookingStatusActive, domain.BookingStatusCancelled).Return(nil, repository.ErrNotFound)

	for _, id := range []string{"gone", "theirs", "done", "raced"} {
		t.Run(id, func(t *testing.T) {
			_, err := f.service.CancelBooking(ctx, user, id)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.CodeBookingNotFound, appErr.Code)
			assert.Equal(t, 404, appErr.HTTPStatus)
		})
	}
}

func TestBookingService_CancelBooking_AdminCancelsAnyone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.producer = nil

	f.bookings.On("GetByID", ctx, "b-9").Return(&domain.Booking{ID: "b-9", UserID: "u-9", Status: domain.BookingStatusActive}, nil).Once()
	f.bookings.On("UpdateStatusIf", ctx, "b-9", domain.BookingStatusActive, domain.BookingStatusCancelled).
		Return(&domain.Booking{ID: "b-9", UserID: "u-9", Status: domain.BookingStatusCancelled}, nil).Once()

	_, err := f.service.CancelBooking(ctx, admin, "b-9")

	assert.NoError(t, err)
}

func TestBookingService_UpdateBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.producer = nil

	booking := &domain.Booking{ID: "b-1", UserID: "u-1", DeskID: "d-1", BookingDate: tomorrow, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusActive}
	f.bookings.On("GetByID", ctx, "b-1").Return(booking, nil)
	f.bookings.On("Update", ctx, booking).Return(nil).Once()
	f.desks.On("GetByID", ctx, "d-1").Return(&domain.Desk{ID: "d-1", Status: domain.DeskStatusActive}, nil).Once()

	_, err := f.service.UpdateBooking(ctx, user, "b-1", UpdateBookingInput{Status: domain.BookingStatusArchived})
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	_, err = f.service.UpdateBooking(ctx, domain.Actor{UserID: "u-2"}, "b-1", UpdateBookingInput{TimeSlot: domain.SlotAfternoon})
	assert.True(t, apperr.HasCode(err, apperr.CodeBookingNotFound))

	updated, err := f.service.UpdateBooking(ctx, user, "b-1", UpdateBookingInput{TimeSlot: domain.SlotAfternoon})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAfternoon, updated.TimeSlot)
	assert.Equal(t, tomorrow, updated.BookingDate)

	f.bookings.AssertExpectations(t)
	f.desks.AssertExpectations(t)
}

func TestBookingService_UpdateBooking_Rejected(t *testing.T) {
	ctx := context.Background()
	yesterday := domain.NewDate(2024, time.September, 9)

	testCases := []struct {
		name    string
		actor   domain.Actor
		booking domain.Booking
		desk    *domain.Desk
		input   UpdateBookingInput
		code    string
	}{
		{
			name:    "active booking moved into the past",
			actor:   user,
			booking: domain.Booking{ID: "b-1", UserID: "u-1", DeskID: "d-1", BookingDate: tomorrow, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusActive},
			input:   UpdateBookingInput{Date: yesterday},
			code:    apperr.CodeInvalidInput,
		},
		{
			name:    "user reactivates archived booking",
			actor:   user,
			booking: domain.Booking{ID: "b-2", UserID: "u-1", DeskID: "d-1", BookingDate: yesterday, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusArchived},
			input:   UpdateBookingInput{Status: domain.BookingStatusActive},
			code:    apperr.CodeForbidden,
		},
		{
			name:    "admin reactivates past booking",
			actor:   admin,
			booking: domain.Booking{ID: "b-3", UserID: "u-1", DeskID: "d-1", BookingDate: yesterday, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusArchived},
			input:   UpdateBookingInput{Status: domain.BookingStatusActive},
			code:    apperr.CodeInvalidInput,
		},
		{
			name:    "reactivated on a draft desk",
			actor:   user,
			booking: domain.Booking{ID: "b-4", UserID: "u-1", DeskID: "d-draft", BookingDate: tomorrow, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusCancelled},
			desk:    &domain.Desk{ID: "d-draft", Status: domain.DeskStatusDraft},
			input:   UpdateBookingInput{Status: domain.BookingStatusActive},
			code:    apperr.CodeInvalidInput,
		},
		{
			name:    "moved on an archived desk",
			actor:   admin,
			booking: domain.Booking{ID: "b-5", UserID: "u-1", DeskID: "d-old", BookingDate: tomorrow, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusActive},
			desk:    &domain.Desk{ID: "d-old", Status: domain.DeskStatusArchived},
			input:   UpdateBookingInput{TimeSlot: domain.SlotAfternoon},
			code:    apperr.CodeInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			booking := tc.booking
			f.bookings.On("GetByID", ctx, booking.ID).Return(&booking, nil).Once()
			if tc.desk != nil {
				f.desks.On("GetByID", ctx, tc.desk.ID).Return(tc.desk, nil).Once()
			}

			_, err := f.service.UpdateBooking(ctx, tc.actor, booking.ID, tc.input)

			assert.True(t, apperr.HasCode(err, tc.code), "got %v", err)
			f.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			f.desks.AssertExpectations(t)
		})
	}
}

func TestBookingService_UpdateBooking_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	booking := &domain.Booking{ID: "b-1", UserID: "u-1", DeskID: "d-1", BookingDate: tomorrow, TimeSlot: domain.SlotMorning, Status: domain.BookingStatusCancelled}
	f.bookings.On("GetByID", ctx, "b-1").Return(booking, nil).Once()
	f.desks.On("GetByID", ctx, "d-1").Return(&domain.Desk{ID: "d-1", Status: domain.DeskStatusActive}, nil).Once()
	f.bookings.On("Update", ctx, booking).Return(&repository.DuplicateError{Constraint: repository.ConstraintActiveSlot}).Once()

	_, err := f.service.UpdateBooking(ctx, admin, "b-1", UpdateBookingInput{Status: domain.BookingStatusActive})

	assert.True(t, apperr.HasCode(err, apperr.CodeSlotConflict))
}

func TestBookingService_ListForDesk(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	want := []domain.Booking{{ID: "b-1"}}
	f.bookings.On("List", ctx, repository.BookingFilter{DeskID: "d-1", Date: tomorrow}).Return(want, nil).Once()

	got, err := f.service.ListForDesk(ctx, "d-1", tomorrow)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = f.service.ListForDesk(ctx, "", tomorrow)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))
}

func TestBookingService_ListAll_FiltersByName(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	statuses := []domain.BookingStatus{domain.BookingStatusActive}
	views := []domain.BookingView{
		{Booking: domain.Booking{ID: "b-1"}, UserFirstName: "Ada", UserLastName: "Lovelace"},
		{Booking: domain.Booking{ID: "b-2"}, UserFirstName: "Alan", UserLastName: "Turing"},
	}
	f.bookings.On("ListViews", ctx, repository.BookingFilter{Statuses: statuses}).Return(views, nil).Once()

	got, err := f.service.ListAll(ctx, ListFilter{Query: "turing", Statuses: statuses})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b-2", got[0].ID)
}

func TestBookingService_MyBookings_SortedByDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	later := domain.NewDate(2024, time.September, 20)
	views := []domain.BookingView{
		{Booking: domain.Booking{ID: "late", BookingDate: later, TimeSlot: domain.SlotMorning}},
		{Booking: domain.Booking{ID: "pm", BookingDate: tomorrow, TimeSlot: domain.SlotAfternoon}},
		{Booking: domain.Booking{ID: "am", BookingDate: tomorrow, TimeSlot: domain.SlotMorning}},
	}
	f.bookings.On("ListViews", ctx, repository.BookingFilter{UserID: "u-1", Statuses: []domain.BookingStatus{domain.BookingStatusActive}}).Return(views, nil).Once()

	got, err := f.service.MyBookings(ctx, user, domain.BookingStatusActive)

	require.NoError(t, err)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"am", "pm", "late"}, ids)

	_, err = f.service.MyBookings(ctx, user, "pending")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidInput))
}

func TestBookingService_ArchivePastBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	archived := []domain.Booking{{ID: "b-1", Status: domain.BookingStatusArchived}, {ID: "b-2", Status: domain.BookingStatusArchived}}
	f.bookings.On("ArchiveBefore", ctx, today).Return(archived, nil).Once()
	f.producer.On("Publish", ctx, "booking_topic", mock.Anything, mock.Anything).Return(nil).Twice()
	f.producer.On("Publish", ctx, "notifications_topic", mock.Anything, mock.Anything).Return(errors.New("broker down")).Twice()

	got, err := f.service.ArchivePastBookings(ctx)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	f.producer.AssertExpectations(t)
}
