package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-user-accounts/app/tracer"
	"github.com/FACorreiaa/go-user-accounts/internal/api/token"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the identity lifecycle operations.
type UserService interface {
	// Register creates a new active user for the email and returns a fresh
	// bearer token bound to the new user ID. Returns types.ErrConflict if a
	// user with that email already exists.
	Register(ctx context.Context, email string) (*types.TokenResponse, error)

	// Login issues a fresh bearer token for an existing user. Identity is
	// established by email existence alone; no credential is checked.
	// Returns types.ErrNotFound for unknown emails and types.ErrUserInactive
	// for deactivated accounts.
	Login(ctx context.Context, email string) (*types.TokenResponse, error)

	// AuthenticateToken verifies a bearer token and rechecks the subject
	// against live user state. Every failure mode (bad signature, expiry,
	// malformed subject, unknown or inactive user) collapses into
	// types.ErrUnauthenticated so callers can't tell which check failed.
	AuthenticateToken(ctx context.Context, tokenString string) (*types.UserProfile, error)

	// GetUserProfile retrieves a user's profile by ID, served from a
	// short-lived read cache.
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)

	// UpdateUserProfile applies a partial patch to the user's profile and
	// returns the updated snapshot.
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)

	// DeleteUser soft-deletes the user: deleted_at set, is_active cleared.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type UserServiceImpl struct {
	logger    *slog.Logger
	repo      UserRepo
	tokens    *token.Codec
	userCache *cache.Cache
}

// NewUserService creates a new UserService backed by the given store and
// token codec.
func NewUserService(repo UserRepo, tokens *token.Codec, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:    logger,
		repo:      repo,
		tokens:    tokens,
		userCache: cache.New(30*time.Second, 1*time.Minute),
	}
}

func (s *UserServiceImpl) issueToken(userID uuid.UUID) (*types.TokenResponse, error) {
	accessToken, err := s.tokens.Issue(userID, s.tokens.DefaultTTL())
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	return &types.TokenResponse{AccessToken: accessToken, TokenType: "bearer"}, nil
}

func (s *UserServiceImpl) Register(ctx context.Context, email string) (*types.TokenResponse, error) {
	l := s.logger.With(slog.String("method", "Register"))
	tracer.IncRegisterRequests(ctx)

	// Fast-path duplicate check for a better error; the unique constraint
	// in the store remains the authority under concurrent registration.
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", types.ErrConflict)
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}

	newUser, err := s.repo.Insert(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", newUser.ID.String()))
	return s.issueToken(newUser.ID)
}

func (s *UserServiceImpl) Login(ctx context.Context, email string) (*types.TokenResponse, error) {
	l := s.logger.With(slog.String("method", "Login"))
	tracer.IncLoginRequests(ctx)

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or user not found", types.ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching user by email: %w", err)
	}
	if !existing.IsActive {
		return nil, types.ErrUserInactive
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", existing.ID.String()))
	return s.issueToken(existing.ID)
}

func (s *UserServiceImpl) AuthenticateToken(ctx context.Context, tokenString string) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "AuthenticateToken"))

	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		// Collapse all verification failures into a single error.
		l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
		tracer.IncAuthFailures(ctx)
		return nil, types.ErrUnauthenticated
	}

	// The recheck always goes to the store, never through the read cache:
	// a soft delete written by another process must take effect on the
	// next request, not after a cache window.
	current, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Token subject lookup failed", slog.String("userID", userID.String()))
		tracer.IncAuthFailures(ctx)
		return nil, types.ErrUnauthenticated
	}
	// A still-valid token for a deactivated or deleted user is rejected.
	if !current.IsActive {
		tracer.IncAuthFailures(ctx)
		return nil, types.ErrUnauthenticated
	}
	return current, nil
}

func (s *UserServiceImpl) invalidate(userID uuid.UUID) {
	s.userCache.Delete(userID.String())
}

// GetUserProfile serves profile reads through a short-lived cache. The
// cache holds display snapshots only; authorization decisions never read
// from it. Mutations go through invalidate so in-process changes are
// visible immediately.
func (s *UserServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	key := userID.String()
	if cached, found := s.userCache.Get(key); found {
		return cached.(*types.UserProfile), nil
	}

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}
	s.userCache.Set(key, profile, cache.DefaultExpiration)
	return profile, nil
}

func (s *UserServiceImpl) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID.String()))

	updated, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}

	s.invalidate(userID)
	l.InfoContext(ctx, "User profile updated")
	return updated, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	l := s.logger.With(slog.String("method", "DeleteUser"), slog.String("userID", userID.String()))

	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return err
		}
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.invalidate(userID)
	l.InfoContext(ctx, "User account deleted")
	return nil
}
