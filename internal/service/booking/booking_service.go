package booking

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/events"
	"github.com/kozuki35/hot-desking/internal/repository"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBookings(ctx context.Context, actor domain.Actor, input CreateBookingInput) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, actor domain.Actor, id string, input UpdateBookingInput) (*domain.Booking, error)
	ListForDesk(ctx context.Context, deskID string, date domain.Date) ([]domain.Booking, error)
	ListAll(ctx context.Context, filter ListFilter) ([]domain.BookingView, error)
	MyBookings(ctx context.Context, actor domain.Actor, status domain.BookingStatus) ([]domain.BookingView, error)
	ArchivePastBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	// AcquireSlotLock returns the token that ReleaseSlotLock must present.
	AcquireSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, ttl time.Duration) (string, bool, error)
	ReleaseSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type CreateBookingInput struct {
	DeskID string
	Date   domain.Date
	Slots  domain.SlotSet
}

// UpdateBookingInput leaves zero fields unchanged.
type UpdateBookingInput struct {
	Date     domain.Date
	TimeSlot domain.TimeSlot
	Status   domain.BookingStatus
}

// ListFilter narrows the admin booking listing. Query matches a substring
// of the booker's full name, case-insensitively.
type ListFilter struct {
	Query    string
	Statuses []domain.BookingStatus
}

type BookingService struct {
	bookings           repository.BookingRepository
	desks              repository.DeskRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	now                func() time.Time
	log                *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	desks repository.DeskRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		desks:        desks,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		lockTTL:      lockTTL,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBookings books every requested slot for the actor or none of them.
func (s *BookingService) CreateBookings(ctx context.Context, actor domain.Actor, input CreateBookingInput) ([]domain.Booking, error) {
	if input.DeskID == "" || input.Date.IsZero() {
		return nil, apperr.InvalidInput("deskId and bookingDate are required")
	}
	if input.Slots.Empty() {
		return nil, apperr.InvalidInput("at least one time slot is required")
	}
	if input.Date.Before(s.today()) {
		return nil, apperr.InvalidInput("booking date is in the past")
	}

	if err := s.requireActiveDesk(ctx, input.DeskID); err != nil {
		return nil, err
	}

	release, err := s.lockSlots(ctx, input.DeskID, input.Date, input.Slots)
	if err != nil {
		return nil, err
	}
	defer release()

	pending := make([]*domain.Booking, 0, input.Slots.Len())
	for _, slot := range input.Slots.Slots() {
		pending = append(pending, &domain.Booking{
			ID:          uuid.NewString(),
			UserID:      actor.UserID,
			DeskID:      input.DeskID,
			BookingDate: input.Date,
			TimeSlot:    slot,
		})
	}

	if err := s.bookings.CreateActive(ctx, pending); err != nil {
		if repository.IsDuplicate(err, repository.ConstraintActiveSlot) {
			return nil, apperr.SlotConflict(s.conflictingSlot(ctx, input).String())
		}
		return nil, apperr.Internal("failed to create booking", err)
	}

	created := make([]domain.Booking, 0, len(pending))
	for _, b := range pending {
		created = append(created, *b)
		s.publish(ctx, events.BookingCreated, *b)
	}
	s.log.Info("bookings created",
		zap.String("user_id", actor.UserID),
		zap.String("desk_id", input.DeskID),
		zap.Stringer("date", input.Date),
		zap.Stringer("slots", input.Slots),
	)
	return created, nil
}

// CancelBooking cancels an active booking the actor owns, or any active
// booking for an admin. Everything else is reported as not found.
func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.BookingNotFound(id)
		}
		return nil, apperr.Internal("failed to load booking", err)
	}
	if !actor.CanActOn(current.UserID) || !current.Active() {
		return nil, apperr.BookingNotFound(id)
	}

	cancelled, err := s.bookings.UpdateStatusIf(ctx, id, domain.BookingStatusActive, domain.BookingStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.BookingNotFound(id)
		}
		return nil, apperr.Internal("failed to cancel booking", err)
	}

	s.publish(ctx, events.BookingCancelled, *cancelled)
	return cancelled, nil
}

// UpdateBooking changes date, slot or status. Non-admins may only edit their
// own bookings that are not archived, and only move them between active and
// cancelled. A booking that ends up active must be dated today or later on
// an active desk.
func (s *BookingService) UpdateBooking(ctx context.Context, actor domain.Actor, id string, input UpdateBookingInput) (*domain.Booking, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, apperr.InvalidInput("unknown booking status")
	}
	if input.TimeSlot != "" && !input.TimeSlot.Valid() {
		return nil, apperr.InvalidInput("unknown time slot")
	}
	if !actor.IsAdmin() && input.Status == domain.BookingStatusArchived {
		return nil, apperr.Forbidden("Only administrators can archive bookings")
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.BookingNotFound(id)
		}
		return nil, apperr.Internal("failed to load booking", err)
	}
	if !actor.CanActOn(booking.UserID) {
		return nil, apperr.BookingNotFound(id)
	}
	if !actor.IsAdmin() && booking.Status == domain.BookingStatusArchived {
		return nil, apperr.Forbidden("Only administrators can change archived bookings")
	}

	if !input.Date.IsZero() {
		booking.BookingDate = input.Date
	}
	if input.TimeSlot != "" {
		booking.TimeSlot = input.TimeSlot
	}
	if input.Status != "" {
		booking.Status = input.Status
	}

	if booking.Active() {
		if booking.BookingDate.Before(s.today()) {
			return nil, apperr.InvalidInput("booking date is in the past")
		}
		if err := s.requireActiveDesk(ctx, booking.DeskID); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.Update(ctx, booking); err != nil {
		switch {
		case repository.IsDuplicate(err, repository.ConstraintActiveSlot):
			return nil, apperr.SlotConflict(booking.TimeSlot.String())
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.BookingNotFound(id)
		}
		return nil, apperr.Internal("failed to update booking", err)
	}

	s.publish(ctx, events.BookingUpdated, *booking)
	return booking, nil
}

func (s *BookingService) ListForDesk(ctx context.Context, deskID string, date domain.Date) ([]domain.Booking, error) {
	if deskID == "" || date.IsZero() {
		return nil, apperr.InvalidInput("deskId and date are required")
	}
	bookings, err := s.bookings.List(ctx, repository.BookingFilter{DeskID: deskID, Date: date})
	if err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) ListAll(ctx context.Context, filter ListFilter) ([]domain.BookingView, error) {
	views, err := s.bookings.ListViews(ctx, repository.BookingFilter{Statuses: filter.Statuses})
	if err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	return FilterViews(views, filter.Query), nil
}

// MyBookings lists the actor's bookings by booking date, earliest first. An
// empty status lists every booking.
func (s *BookingService) MyBookings(ctx context.Context, actor domain.Actor, status domain.BookingStatus) ([]domain.BookingView, error) {
	filter := repository.BookingFilter{UserID: actor.UserID}
	if status != "" {
		if !status.Valid() {
			return nil, apperr.InvalidInput("unknown booking status")
		}
		filter.Statuses = []domain.BookingStatus{status}
	}

	views, err := s.bookings.ListViews(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	SortByDate(views)
	return views, nil
}

// ArchivePastBookings archives active bookings dated before today.
func (s *BookingService) ArchivePastBookings(ctx context.Context) ([]domain.Booking, error) {
	archived, err := s.bookings.ArchiveBefore(ctx, s.today())
	if err != nil {
		return nil, err
	}
	for _, b := range archived {
		s.publish(ctx, events.BookingArchived, b)
	}
	return archived, nil
}

func (s *BookingService) requireActiveDesk(ctx context.Context, deskID string) error {
	desk, err := s.desks.GetByID(ctx, deskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("desk")
		}
		return apperr.Internal("failed to load desk", err)
	}
	if desk.Status != domain.DeskStatusActive {
		return apperr.InvalidInput("desk is not available for booking")
	}
	return nil
}

func (s *BookingService) lockSlots(ctx context.Context, deskID string, date domain.Date, slots domain.SlotSet) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}

	held := make(map[domain.TimeSlot]string)
	release := func() {
		for slot, token := range held {
			if err := s.cache.ReleaseSlotLock(ctx, deskID, date, slot, token); err != nil {
				s.log.Warn("release slot lock", zap.String("desk_id", deskID), zap.Stringer("slot", slot), zap.Error(err))
			}
		}
	}

	for _, slot := range slots.Slots() {
		token, ok, err := s.cache.AcquireSlotLock(ctx, deskID, date, slot, s.lockTTL)
		if err != nil {
			release()
			return nil, apperr.Internal("failed to lock time slot", err)
		}
		if !ok {
			release()
			return nil, apperr.SlotConflict(slot.String())
		}
		held[slot] = token
	}
	return release, nil
}

// conflictingSlot names a requested slot someone already holds, falling back
// to the first requested slot when the holder cannot be determined.
func (s *BookingService) conflictingSlot(ctx context.Context, input CreateBookingInput) domain.TimeSlot {
	existing, err := s.bookings.List(ctx, repository.BookingFilter{
		DeskID:   input.DeskID,
		Date:     input.Date,
		Statuses: []domain.BookingStatus{domain.BookingStatusActive},
	})
	if err == nil {
		for _, b := range existing {
			if input.Slots.Has(b.TimeSlot) {
				return b.TimeSlot
			}
		}
	}
	return input.Slots.Slots()[0]
}

func (s *BookingService) today() domain.Date {
	return domain.DateOf(s.now())
}

// publish is best effort: a booking is never failed because its event
// could not be delivered.
func (s *BookingService) publish(ctx context.Context, eventType string, booking domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := events.NewBookingEvent(eventType, booking)
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.ID, event); err != nil {
		s.log.Warn("failed to publish booking event", zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			s.log.Warn("failed to publish notification", zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
}

// FilterViews keeps bookings whose booker's full name contains query.
func FilterViews(views []domain.BookingView, query string) []domain.BookingView {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return views
	}
	out := make([]domain.BookingView, 0, len(views))
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.UserFullName()), query) {
			out = append(out, v)
		}
	}
	return out
}

// SortByDate orders views by booking date, morning before afternoon.
func SortByDate(views []domain.BookingView) {
	slices.SortStableFunc(views, func(a, b domain.BookingView) int {
		if c := a.BookingDate.Time().Compare(b.BookingDate.Time()); c != 0 {
			return c
		}
		return slotOrder(a.TimeSlot) - slotOrder(b.TimeSlot)
	})
}

func slotOrder(slot domain.TimeSlot) int {
	return slices.Index(domain.AllSlots, slot)
}

var _ BookingUseCase = (*BookingService)(nil)
