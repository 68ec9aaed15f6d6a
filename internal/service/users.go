// Package service holds the place and user operations behind the HTTP handlers.
// Every error it returns is an *apperr.Error.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/geocoder89/placeshub/internal/security"
	"github.com/google/uuid"
)

type UserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type UsersService struct {
	users    UserStore
	tokens   TokenIssuer
	hashCost int
	log      *slog.Logger
}

type UsersOption func(*UsersService)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) UsersOption {
	return func(s *UsersService) {
		s.hashCost = cost
	}
}

func NewUsersService(users UserStore, tokens TokenIssuer, log *slog.Logger, opts ...UsersOption) *UsersService {
	if log == nil {
		log = slog.Default()
	}

	s := &UsersService{
		users:    users,
		tokens:   tokens,
		hashCost: security.Cost,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UsersService) List(ctx context.Context) ([]user.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Storage("Fetching users failed, please try again later.", err)
	}
	return users, nil
}

func (s *UsersService) Signup(ctx context.Context, req user.SignupRequest, imagePath string) (user.AuthResponse, error) {
	email := user.NormalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return user.AuthResponse{}, apperr.Validation("User exists already, please login instead.")
	case !errors.Is(err, user.ErrNotFound):
		return user.AuthResponse{}, apperr.Storage("Signing up failed, please try again later.", err)
	}

	hash, err := security.HashPasswordWithCost(req.Password, s.hashCost)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return user.AuthResponse{}, apperr.Validation("Password must be at most 72 bytes long.")
	}
	if err != nil {
		return user.AuthResponse{}, apperr.Storage("Could not create user, please try again.", err)
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Image:        imagePath,
		PlaceIDs:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.AuthResponse{}, apperr.Validation("User exists already, please login instead.")
		}
		return user.AuthResponse{}, apperr.Storage("Signing up failed, please try again later.", err)
	}

	s.log.InfoContext(ctx, "user signed up", "user_id", u.ID)

	return s.respond(u)
}

func (s *UsersService) Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.AuthResponse{}, apperr.UnknownAccount("Not a registered user or correct email address. Please signup or try again.")
		}
		return user.AuthResponse{}, apperr.Storage("Logging in failed, please try again later.", err)
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return user.AuthResponse{}, apperr.InvalidCredentials("Invalid credentials, could not log you in.")
	}

	return s.respond(u)
}

func (s *UsersService) respond(u user.User) (user.AuthResponse, error) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return user.AuthResponse{}, apperr.Storage("Signing in failed, please try again later.", err)
	}

	return user.AuthResponse{UserID: u.ID, Email: u.Email, Token: token}, nil
}
