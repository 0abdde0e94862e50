package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/FACorreiaa/go-user-accounts/internal/api"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	GetCurrentUser(w http.ResponseWriter, r *http.Request)
	UpdateCurrentUser(w http.ResponseWriter, r *http.Request)
	DeleteCurrentUser(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register New User
// @Description  Registers a new user account with email and returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RegisterRequest true "Registration Parameters"
// @Success      201 {object} types.TokenResponse "Access Token"
// @Failure      400 {object} types.Response "Duplicate Email or Invalid Input"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		l.WarnContext(ctx, "Invalid register payload", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "A valid email is required")
		return
	}

	token, err := h.userService.Register(ctx, req.Email)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "User with this email already exists")
			return
		}
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to register user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, token)
}

// Login godoc
// @Summary      Login with Email
// @Description  Authenticates an existing user by email and returns a bearer token.
// @Tags         Auth
// @Produce      json
// @Param        email query string true "User Email"
// @Success      200 {object} types.TokenResponse "Access Token"
// @Failure      401 {object} types.Response "Unknown or Deactivated User"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	email := r.URL.Query().Get("email")
	if err := h.validate.Var(email, "required,email"); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "A valid email is required")
		return
	}

	token, err := h.userService.Login(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or user not found")
		case errors.Is(err, types.ErrUserInactive):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "User account is deactivated")
		default:
			l.ErrorContext(ctx, "Failed to login user", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to login")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, token)
}

// GetCurrentUser godoc
// @Summary      Get Current User
// @Description  Retrieves the authenticated user's profile information.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.UserProfile "User Profile"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *HandlerImpl) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetCurrentUser"))

	currentUser, ok := CurrentUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.userService.GetUserProfile(ctx, currentUser.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch user profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user profile")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateCurrentUser godoc
// @Summary      Update Current User
// @Description  Applies a partial update to the authenticated user's profile.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        body body types.UpdateProfileParams true "Profile Update Parameters"
// @Success      200 {object} types.UserProfile "Updated Profile"
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/me [put]
func (h *HandlerImpl) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateCurrentUser"))

	currentUser, ok := CurrentUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(params); err != nil {
		l.WarnContext(ctx, "Invalid update payload", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "A valid email is required")
		return
	}

	updated, err := h.userService.UpdateUserProfile(ctx, currentUser.ID, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusBadRequest, "User with this email already exists")
		default:
			l.ErrorContext(ctx, "Failed to update user profile", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update user profile")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// DeleteCurrentUser godoc
// @Summary      Delete Current User
// @Description  Soft deletes the authenticated user's account.
// @Tags         User
// @Produce      json
// @Success      204 "No Content"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/me [delete]
func (h *HandlerImpl) DeleteCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteCurrentUser"))

	currentUser, ok := CurrentUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.userService.DeleteUser(ctx, currentUser.ID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
