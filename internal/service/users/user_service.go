package users

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/auth"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/repository"
	"go.uber.org/zap"
)

type UserUseCase interface {
	SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetProfile(ctx context.Context, actor domain.Actor, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, id string, input ProfileInput) (*domain.User, error)
	List(ctx context.Context, filter ListFilter) ([]domain.User, error)
	Update(ctx context.Context, id string, input UpdateInput) (*domain.User, error)
}

type TokenIssuer interface {
	Issue(u *domain.User) (string, error)
}

type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	// Password is left unchanged when empty.
	Password string
}

type UpdateInput struct {
	FirstName string
	LastName  string
	Status    domain.UserStatus
	Role      domain.Role
}

// ListFilter narrows the admin user listing. Query matches a substring of
// the full name, case-insensitively; an empty Roles matches every role.
type ListFilter struct {
	Status domain.UserStatus
	Query  string
	Roles  []domain.Role
}

type AuthResult struct {
	Token string
	User  *domain.User
}

type UserService struct {
	users       repository.UserRepository
	tokens      TokenIssuer
	adminEmails map[string]struct{}
	log         *zap.Logger
}

type UserServiceOption func(*UserService)

func WithAdminEmails(emails []string) UserServiceOption {
	return func(s *UserService) {
		for _, e := range emails {
			s.adminEmails[normalizeEmail(e)] = struct{}{}
		}
	}
}

func WithLogger(log *zap.Logger) UserServiceOption {
	return func(s *UserService) {
		s.log = log
	}
}

func NewUserService(users repository.UserRepository, tokens TokenIssuer, opts ...UserServiceOption) *UserService {
	service := &UserService{
		users:       users,
		tokens:      tokens,
		adminEmails: make(map[string]struct{}),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *UserService) SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" || strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, apperr.InvalidInput("first name, last name, email and password are required")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal("failed to create user", err)
	}

	role := domain.RoleUser
	if _, ok := s.adminEmails[email]; ok {
		role = domain.RoleAdmin
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err, repository.ConstraintUserEmail) {
			return nil, apperr.Conflict("Email address already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.authenticate(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal("failed to verify password", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperr.Forbidden("Account is inactive")
	}

	return s.authenticate(user)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if !actor.CanActOn(id) {
		return nil, apperr.Forbidden("You can only view your own profile")
	}
	return s.Get(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Actor, id string, input ProfileInput) (*domain.User, error) {
	if !actor.CanActOn(id) {
		return nil, apperr.Forbidden("You can only update your own profile")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(input.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(input.LastName); v != "" {
		user.LastName = v
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, apperr.Internal("failed to update profile", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperr.Internal("failed to update profile", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, filter ListFilter) ([]domain.User, error) {
	all, err := s.users.List(ctx, filter.Status)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return FilterUsers(all, filter.Query, filter.Roles), nil
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateInput) (*domain.User, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, apperr.InvalidInput("unknown user status")
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, apperr.InvalidInput("unknown user role")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(input.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(input.LastName); v != "" {
		user.LastName = v
	}
	if input.Status != "" {
		user.Status = input.Status
	}
	if input.Role != "" {
		user.Role = input.Role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperr.Internal("failed to update user", err)
	}
	s.log.Info("user updated", zap.String("user_id", user.ID), zap.String("status", string(user.Status)), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) authenticate(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// FilterUsers keeps users whose full name contains query and whose role is
// one of roles.
func FilterUsers(users []domain.User, query string, roles []domain.Role) []domain.User {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if query != "" && !strings.Contains(strings.ToLower(u.FullName()), query) {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, u.Role) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ UserUseCase = (*UserService)(nil)
