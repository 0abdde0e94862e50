package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-accounts/config"
	"github.com/FACorreiaa/go-user-accounts/internal/api/token"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

// MockUserRepo is a mock implementation of UserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockUserRepo) Insert(ctx context.Context, email string) (*types.UserProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockUserRepo) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testCodec() *token.Codec {
	return token.NewCodec(config.AuthConfig{
		SecretKey:          "unit-test-secret-key-that-is-long-enough",
		TokenExpireMinutes: 30,
		Issuer:             "go-user-accounts-test",
	})
}

func setupUserServiceTest() (*UserServiceImpl, *MockUserRepo, *token.Codec) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockUserRepo)
	codec := testCodec()
	service := NewUserService(mockRepo, codec, logger)
	return service, mockRepo, codec
}

func activeUser(email string) *types.UserProfile {
	now := time.Now()
	return &types.UserProfile{
		ID:        uuid.New(),
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues token bound to new user id", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		newUser := activeUser("fresh@example.com")
		mockRepo.On("GetUserByEmail", ctx, "fresh@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("Insert", ctx, "fresh@example.com").Return(newUser, nil).Once()

		resp, err := service.Register(ctx, "fresh@example.com")
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)

		subject, err := codec.Verify(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, newUser.ID, subject)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate email caught by pre-check", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		mockRepo.On("GetUserByEmail", ctx, "taken@example.com").Return(activeUser("taken@example.com"), nil).Once()

		_, err := service.Register(ctx, "taken@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrConflict))
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email caught by unique constraint", func(t *testing.T) {
		// Concurrent registration: the pre-check misses, the store's unique
		// constraint is the authority.
		service, mockRepo, _ := setupUserServiceTest()
		mockRepo.On("GetUserByEmail", ctx, "race@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("Insert", ctx, "race@example.com").Return(nil, types.ErrConflict).Once()

		_, err := service.Register(ctx, "race@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrConflict))
		mockRepo.AssertExpectations(t)
	})
}

func TestUserServiceImpl_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := service.Login(ctx, "ghost@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("deactivated user", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		inactive := activeUser("inactive@example.com")
		inactive.IsActive = false
		mockRepo.On("GetUserByEmail", ctx, "inactive@example.com").Return(inactive, nil).Once()

		_, err := service.Login(ctx, "inactive@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUserInactive))
	})

	t.Run("active user gets fresh token", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		existing := activeUser("alice@example.com")
		mockRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(existing, nil).Once()

		resp, err := service.Login(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)

		subject, err := codec.Verify(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, subject)
		mockRepo.AssertExpectations(t)
	})
}

func TestUserServiceImpl_AuthenticateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token for active user", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		existing := activeUser("bob@example.com")
		tok, err := codec.Issue(existing.ID, time.Hour)
		require.NoError(t, err)
		mockRepo.On("GetUserByID", ctx, existing.ID).Return(existing, nil).Once()

		got, err := service.AuthenticateToken(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, existing, got)
	})

	t.Run("every authentication rechecks live state", func(t *testing.T) {
		// A soft delete written by another process (second instance, admin
		// tooling) must reject the token on the very next request.
		service, mockRepo, codec := setupUserServiceTest()
		existing := activeUser("elsewhere@example.com")
		tok, err := codec.Issue(existing.ID, time.Hour)
		require.NoError(t, err)

		mockRepo.On("GetUserByID", ctx, existing.ID).Return(existing, nil).Once()
		_, err = service.AuthenticateToken(ctx, tok)
		require.NoError(t, err)

		deleted := *existing
		deleted.IsActive = false
		now := time.Now()
		deleted.DeletedAt = &now
		mockRepo.On("GetUserByID", ctx, existing.ID).Return(&deleted, nil).Once()

		_, err = service.AuthenticateToken(ctx, tok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mockRepo.AssertExpectations(t)
	})

	t.Run("expired token", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		tok, err := codec.Issue(uuid.New(), -1*time.Second)
		require.NoError(t, err)

		_, err = service.AuthenticateToken(ctx, tok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mockRepo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("malformed token", func(t *testing.T) {
		service, _, _ := setupUserServiceTest()

		_, err := service.AuthenticateToken(ctx, "garbage")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
	})

	t.Run("unknown subject", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		missingID := uuid.New()
		tok, err := codec.Issue(missingID, time.Hour)
		require.NoError(t, err)
		mockRepo.On("GetUserByID", ctx, missingID).Return(nil, types.ErrNotFound).Once()

		_, err = service.AuthenticateToken(ctx, tok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
	})

	t.Run("valid token rejected after soft delete", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		existing := activeUser("doomed@example.com")
		tok, err := codec.Issue(existing.ID, time.Hour)
		require.NoError(t, err)

		mockRepo.On("SoftDelete", ctx, existing.ID).Return(nil).Once()
		require.NoError(t, service.DeleteUser(ctx, existing.ID))

		deleted := *existing
		deleted.IsActive = false
		now := time.Now()
		deleted.DeletedAt = &now
		mockRepo.On("GetUserByID", ctx, existing.ID).Return(&deleted, nil).Once()

		// The token itself has not expired, but live user state wins.
		_, err = service.AuthenticateToken(ctx, tok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mockRepo.AssertExpectations(t)
	})
}

func TestUserServiceImpl_GetUserProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("second read served from cache", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		existing := activeUser("reader@example.com")
		mockRepo.On("GetUserByID", ctx, existing.ID).Return(existing, nil).Once()

		first, err := service.GetUserProfile(ctx, existing.ID)
		require.NoError(t, err)
		second, err := service.GetUserProfile(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		missingID := uuid.New()
		mockRepo.On("GetUserByID", ctx, missingID).Return(nil, types.ErrNotFound).Once()

		_, err := service.GetUserProfile(ctx, missingID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("update invalidates cached snapshot", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		existing := activeUser("old@example.com")
		mockRepo.On("GetUserByID", ctx, existing.ID).Return(existing, nil).Once()
		_, err := service.GetUserProfile(ctx, existing.ID)
		require.NoError(t, err)

		newEmail := "new@example.com"
		updated := *existing
		updated.Email = newEmail
		mockRepo.On("UpdateProfile", ctx, existing.ID, mock.Anything).Return(&updated, nil).Once()
		_, err = service.UpdateUserProfile(ctx, existing.ID, types.UpdateProfileParams{Email: &newEmail})
		require.NoError(t, err)

		mockRepo.On("GetUserByID", ctx, existing.ID).Return(&updated, nil).Once()
		got, err := service.GetUserProfile(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, newEmail, got.Email)
		mockRepo.AssertExpectations(t)
	})
}

func TestUserServiceImpl_UpdateUserProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("partial patch passed through", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		existing := activeUser("carol@example.com")
		isActive := false
		params := types.UpdateProfileParams{IsActive: &isActive}

		updated := *existing
		updated.IsActive = false
		updated.UpdatedAt = time.Now()
		mockRepo.On("UpdateProfile", ctx, existing.ID, params).Return(&updated, nil).Once()

		got, err := service.UpdateUserProfile(ctx, existing.ID, params)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.Equal(t, existing.Email, got.Email)
		assert.Equal(t, existing.ID, got.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("user not found", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		missingID := uuid.New()
		mockRepo.On("UpdateProfile", ctx, missingID, mock.Anything).Return(nil, types.ErrNotFound).Once()

		_, err := service.UpdateUserProfile(ctx, missingID, types.UpdateProfileParams{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("deactivation rejects subsequent authentication", func(t *testing.T) {
		service, mockRepo, codec := setupUserServiceTest()
		existing := activeUser("dave@example.com")
		tok, err := codec.Issue(existing.ID, time.Hour)
		require.NoError(t, err)

		mockRepo.On("GetUserByID", ctx, existing.ID).Return(existing, nil).Once()
		_, err = service.AuthenticateToken(ctx, tok)
		require.NoError(t, err)

		isActive := false
		deactivated := *existing
		deactivated.IsActive = false
		mockRepo.On("UpdateProfile", ctx, existing.ID, mock.Anything).Return(&deactivated, nil).Once()
		_, err = service.UpdateUserProfile(ctx, existing.ID, types.UpdateProfileParams{IsActive: &isActive})
		require.NoError(t, err)

		mockRepo.On("GetUserByID", ctx, existing.ID).Return(&deactivated, nil).Once()
		_, err = service.AuthenticateToken(ctx, tok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mockRepo.AssertExpectations(t)
	})
}

func TestUserServiceImpl_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		userID := uuid.New()
		mockRepo.On("SoftDelete", ctx, userID).Return(nil).Once()

		require.NoError(t, service.DeleteUser(ctx, userID))
		mockRepo.AssertExpectations(t)
	})

	t.Run("user not found", func(t *testing.T) {
		service, mockRepo, _ := setupUserServiceTest()
		userID := uuid.New()
		mockRepo.On("SoftDelete", ctx, userID).Return(types.ErrNotFound).Once()

		err := service.DeleteUser(ctx, userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}
