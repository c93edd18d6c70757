package desks

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/repository"
	"go.uber.org/zap"
)

const duplicateCodeMessage = "Desk code already exists. Please choose a different code."

type DeskUseCase interface {
	Create(ctx context.Context, input DeskInput) (*domain.Desk, error)
	Update(ctx context.Context, id string, input DeskInput) (*domain.Desk, error)
	Get(ctx context.Context, id string) (*domain.Desk, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Desk, error)
}

type Cache interface {
	GetDesks(ctx context.Context, status string) ([]domain.Desk, error)
	SetDesks(ctx context.Context, status string, desks []domain.Desk) error
	InvalidateDesks(ctx context.Context) error
}

type DeskInput struct {
	Code        string
	Name        string
	Location    string
	Status      domain.DeskStatus
	Description string
}

// ListFilter narrows a desk listing. A non-zero Date attaches each desk's
// bookings for that day.
type ListFilter struct {
	Status domain.DeskStatus
	Query  string
	Date   domain.Date
}

type DeskService struct {
	desks    repository.DeskRepository
	bookings repository.BookingRepository
	cache    Cache
	log      *zap.Logger
}

type DeskServiceOption func(*DeskService)

func WithCache(cache Cache) DeskServiceOption {
	return func(s *DeskService) {
		s.cache = cache
	}
}

func WithLogger(log *zap.Logger) DeskServiceOption {
	return func(s *DeskService) {
		s.log = log
	}
}

func NewDeskService(desks repository.DeskRepository, bookings repository.BookingRepository, opts ...DeskServiceOption) *DeskService {
	service := &DeskService{desks: desks, bookings: bookings, log: zap.NewNop()}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *DeskService) Create(ctx context.Context, input DeskInput) (*domain.Desk, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	desk := &domain.Desk{
		ID:          uuid.NewString(),
		Code:        strings.TrimSpace(input.Code),
		Name:        strings.TrimSpace(input.Name),
		Location:    strings.TrimSpace(input.Location),
		Status:      input.Status,
		Description: input.Description,
	}
	if err := s.desks.Create(ctx, desk); err != nil {
		if repository.IsDuplicate(err, repository.ConstraintDeskCode) {
			return nil, apperr.Conflict(duplicateCodeMessage)
		}
		return nil, apperr.Internal("failed to create desk", err)
	}

	s.invalidate(ctx)
	s.log.Info("desk created", zap.String("desk_id", desk.ID), zap.String("code", desk.Code))
	return desk, nil
}

func (s *DeskService) Update(ctx context.Context, id string, input DeskInput) (*domain.Desk, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	desk, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	desk.Code = strings.TrimSpace(input.Code)
	desk.Name = strings.TrimSpace(input.Name)
	desk.Location = strings.TrimSpace(input.Location)
	desk.Status = input.Status
	desk.Description = input.Description

	if err := s.desks.Update(ctx, desk); err != nil {
		switch {
		case repository.IsDuplicate(err, repository.ConstraintDeskCode):
			return nil, apperr.Conflict(duplicateCodeMessage)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("desk")
		}
		return nil, apperr.Internal("failed to update desk", err)
	}

	s.invalidate(ctx)
	return desk, nil
}

func (s *DeskService) Get(ctx context.Context, id string) (*domain.Desk, error) {
	desk, err := s.desks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("desk")
		}
		return nil, apperr.Internal("failed to load desk", err)
	}
	return desk, nil
}

func (s *DeskService) List(ctx context.Context, filter ListFilter) ([]domain.Desk, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.InvalidInput("unknown desk status")
	}

	desks, err := s.listByStatus(ctx, filter.Status)
	if err != nil {
		return nil, err
	}
	desks = FilterDesks(desks, filter.Query)

	if filter.Date.IsZero() {
		return desks, nil
	}

	bookings, err := s.bookings.List(ctx, repository.BookingFilter{Date: filter.Date})
	if err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	byDesk := make(map[string][]domain.Booking)
	for _, b := range bookings {
		byDesk[b.DeskID] = append(byDesk[b.DeskID], b)
	}
	for i := range desks {
		desks[i].Bookings = byDesk[desks[i].ID]
		if desks[i].Bookings == nil {
			desks[i].Bookings = []domain.Booking{}
		}
	}
	return desks, nil
}

func (s *DeskService) listByStatus(ctx context.Context, status domain.DeskStatus) ([]domain.Desk, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetDesks(ctx, string(status)); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.log.Warn("desk cache read failed", zap.Error(err))
		}
	}

	desks, err := s.desks.List(ctx, status)
	if err != nil {
		return nil, apperr.Internal("failed to list desks", err)
	}
	if s.cache != nil {
		if err := s.cache.SetDesks(ctx, string(status), desks); err != nil {
			s.log.Warn("desk cache write failed", zap.Error(err))
		}
	}
	return desks, nil
}

func (s *DeskService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDesks(ctx); err != nil {
		s.log.Warn("desk cache invalidation failed", zap.Error(err))
	}
}

// FilterDesks keeps desks whose name contains query, case-insensitively.
func FilterDesks(desks []domain.Desk, query string) []domain.Desk {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return desks
	}
	out := make([]domain.Desk, 0, len(desks))
	for _, d := range desks {
		if strings.Contains(strings.ToLower(d.Name), query) {
			out = append(out, d)
		}
	}
	return out
}

func validate(input DeskInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Code) == "" {
		details["code"] = "required"
	}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.Location) == "" {
		details["location"] = "required"
	}
	if !input.Status.Valid() {
		details["status"] = "must be one of draft, active, archived"
	}
	if len(details) > 0 {
		return apperr.Validation("invalid desk", details)
	}
	return nil
}

var _ DeskUseCase = (*DeskService)(nil)
