package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/service"
)

// UserService is what the handler needs from the business layer.
// *service.UserService satisfies it; tests can pass a stub.
type UserService interface {
	Create(ctx context.Context, in model.CreateUserInput) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	DeleteAccount(ctx context.Context, actorID, id int64) (*model.User, error)
	Authenticate(ctx context.Context, in model.LoginInput) (*service.AuthResult, error)
}

// UserHandler serves the /api/users endpoints.
//
// The handler only translates HTTP to service calls and back: it parses the
// body or the {id} path segment, calls the service and writes either the
// result or the error envelope.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// RegisterUserRoutes mounts the user endpoints on r. When requireAuth is nil
// (no JWT secret configured) the login and delete routes are not registered.
func RegisterUserRoutes(r chi.Router, h *UserHandler, requireAuth func(http.Handler) http.Handler) {
	r.Post("/users", h.HandleCreate)
	r.Get("/users/{id}", h.HandleGetByID)

	if requireAuth == nil {
		return
	}
	r.Post("/users/login", h.HandleLogin)
	r.With(requireAuth).Delete("/users/{id}", h.HandleDelete)
}

// HandleCreate registers a new user.
//
// HTTP: POST /api/users
// REQUEST BODY: {"fullName":"John Doe","email":"john@example.com","password":"Password123","userType":"student"}
// RESPONSE: 201 with the created user; the password is never echoed back.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		WriteError(w, apperror.BadRequest("Invalid JSON body"))
		return
	}

	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleGetByID returns one live user.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	// The service reports absence as (nil, nil); the 404 is an HTTP concern.
	if user == nil {
		WriteError(w, apperror.NotFound("User", strconv.FormatInt(id, 10)))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleDelete soft-deletes the caller's own account.
//
// HTTP: DELETE /api/users/{id}   (Authorization: Bearer <token>)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.users.DeleteAccount(r.Context(), actorID, id)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogin exchanges an email/password pair for an access token.
//
// HTTP: POST /api/users/login
// RESPONSE: 200 {"token":"...","user":{...}}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in model.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, apperror.BadRequest("Invalid JSON body"))
		return
	}

	res, err := h.users.Authenticate(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// parseUserID reads the {id} path segment. Anything that is not a base-10
// integer is a validation error echoing the raw value.
func parseUserID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", fmt.Sprintf(
			"Invalid ID provided; it must be a number provided id = %s", raw,
		))
	}
	return id, nil
}
