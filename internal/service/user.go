// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// UserService takes a repository.UserRepository (interface), NOT a
// *sqlite.DB, so tests can pass an in-memory fake and the service never
// imports a driver.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
	"github.com/sakif/user-service/internal/validation"
)

// DefaultTrialPeriod is how long after creation a user may still be soft-deleted.
const DefaultTrialPeriod = 14 * 24 * time.Hour

const (
	msgNotConnected       = "Database is not connected"
	msgInvalidCredentials = "Invalid email or password"
	msgAuthDisabled       = "authentication is not configured"
)

// UserService owns the registration, lookup and soft-delete rules.
//
// There is no in-process locking: uniqueness is guaranteed by the storage
// index, and a lost soft-delete race surfaces as NotFound.
type UserService struct {
	users       repository.UserRepository
	validator   *validation.Validator
	passwords   *auth.PasswordService
	tokens      *auth.TokenService // nil disables Authenticate
	trialPeriod time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService creates a UserService. tokens may be nil when no JWT
// secret is configured. A non-positive trialPeriod means DefaultTrialPeriod.
func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	trialPeriod time.Duration,
	logger *slog.Logger,
) *UserService {
	if trialPeriod <= 0 {
		trialPeriod = DefaultTrialPeriod
	}
	return &UserService{
		users:       users,
		validator:   validation.New(),
		passwords:   passwords,
		tokens:      tokens,
		trialPeriod: trialPeriod,
		now:         time.Now,
		logger:      logger,
	}
}

// AuthResult bundles the user record and the issued JWT.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Create validates and registers a new user.
//
// Steps: validate → resolve createdAt → email pre-check → bcrypt → insert.
// The returned user never carries the password or its hash.
func (s *UserService) Create(ctx context.Context, in model.CreateUserInput) (*model.User, error) {
	if s.users == nil {
		return nil, apperror.Server(msgNotConnected, nil)
	}

	if err := s.validator.ValidateCreateUser(in); err != nil {
		return nil, err
	}

	userType, _ := model.ParseUserType(in.UserType)
	createdAt := in.CreatedAt
	if createdAt == "" {
		createdAt = s.now().Format(model.TimestampLayout)
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	if exists {
		return nil, emailTaken(in.Email)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", validation.MsgPasswordLength)
		}
		return nil, apperror.Server("failed to create user", err)
	}

	user := &model.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		UserType:     userType,
		CreatedAt:    createdAt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost the race against a concurrent create: the index decided.
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, emailTaken(in.Email)
		}
		s.logger.Error("failed to create user",
			slog.String("email", in.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}
	if user.ID <= 0 {
		return nil, apperror.Server("failed to create user", nil)
	}

	user.PasswordHash = ""

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("userType", string(user.UserType)),
	)

	return user, nil
}

// GetByID returns the live user with the given id.
// A missing user is (nil, nil): absence is an outcome, not a failure.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.users == nil {
		return nil, apperror.Server(msgNotConnected, nil)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	if user == nil {
		return nil, nil
	}

	user.PasswordHash = ""
	user.DeletedAt = nil
	return user, nil
}

// SoftDelete marks the user deleted if it is still inside the trial window.
//
// Elapsed time is true wall-clock time between createdAt and now, with
// createdAt read in the clock's location.
func (s *UserService) SoftDelete(ctx context.Context, id int64) (*model.User, error) {
	if s.users == nil {
		return nil, apperror.Server(msgNotConnected, nil)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("soft-deleting user %d: %w", id, err)
	}
	if user == nil {
		return nil, apperror.NotFound("User", strconv.FormatInt(id, 10))
	}

	now := s.now()
	created, err := time.ParseInLocation(model.TimestampLayout, user.CreatedAt, now.Location())
	if err != nil {
		return nil, apperror.Server("stored createdAt is not a valid timestamp", err)
	}

	if now.Sub(created) > s.trialPeriod {
		return nil, apperror.Validation(fmt.Sprintf(
			"user is over the trial period of %d days", int(s.trialPeriod/(24*time.Hour)),
		))
	}

	deletedAt := now.Format(model.TimestampLayout)
	ok, err := s.users.SoftDelete(ctx, id, deletedAt)
	if err != nil {
		s.logger.Error("failed to soft-delete user",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("soft-deleting user %d: %w", id, err)
	}
	if !ok {
		// Someone else deleted it between our read and write.
		return nil, apperror.NotFound("User", strconv.FormatInt(id, 10))
	}

	user.PasswordHash = ""
	user.DeletedAt = &deletedAt

	s.logger.Info("user soft-deleted", slog.Int64("id", id))

	return user, nil
}

// DeleteAccount soft-deletes id on behalf of actorID. Users may only delete
// their own account.
func (s *UserService) DeleteAccount(ctx context.Context, actorID, id int64) (*model.User, error) {
	if actorID != id {
		return nil, apperror.Forbidden("you may only delete your own account")
	}
	return s.SoftDelete(ctx, id)
}

// Authenticate checks an email/password pair and issues an access token.
// Unknown email and wrong password produce the same Unauthorized error.
func (s *UserService) Authenticate(ctx context.Context, in model.LoginInput) (*AuthResult, error) {
	if s.tokens == nil {
		return nil, apperror.Server(msgAuthDisabled, nil)
	}
	if s.users == nil {
		return nil, apperror.Server(msgNotConnected, nil)
	}

	if err := s.validator.ValidateLogin(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	if user == nil {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("stored password hash is unreadable",
				slog.Int64("id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperror.Server("failed to issue token", err)
	}

	user.PasswordHash = ""

	s.logger.Info("user authenticated", slog.Int64("id", user.ID))

	return &AuthResult{Token: token, User: user}, nil
}

// Ping reports whether the store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	if s.users == nil {
		return apperror.Server(msgNotConnected, nil)
	}
	return s.users.Ping(ctx)
}

func emailTaken(email string) *apperror.AppError {
	return apperror.ValidationFailed("email", fmt.Sprintf(
		"User with the provided email = %s already exists use a different email address", email,
	))
}
