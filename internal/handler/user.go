package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apiproject/userapi/internal/handler/dto"
	"github.com/apiproject/userapi/internal/middleware"
	"github.com/apiproject/userapi/internal/model"
	"github.com/apiproject/userapi/internal/repository"
	"github.com/apiproject/userapi/internal/validation"
)

// statusClientClosedRequest is the nginx status for a caller that went away
// before the store call started.
const statusClientClosedRequest = 499

// UserStore is the subset of the record store the user endpoints need.
type UserStore interface {
	Create(ctx context.Context, name, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserHandler handles HTTP requests for user operations. Each request makes
// exactly one store call.
type UserHandler struct {
	store  UserStore
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		store:  store,
		logger: logger,
	}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := validation.DecodeCreateUser(r.Body)
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	user, err := h.store.Create(r.Context(), input.Name, input.Email)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.logger.Info("user_created",
		"request_id", middleware.GetRequestID(r.Context()),
		"user_id", user.ID,
	)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(users))
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	user, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.logger.Info("user_deleted",
		"request_id", middleware.GetRequestID(r.Context()),
		"user_id", id,
	)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}

// handleRequestError maps decode and validation failures to 4xx responses.
func (h *UserHandler) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *validation.ValidationError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body too large")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   verr.Message,
			Code:    "VALIDATION_ERROR",
			Details: verr.Details,
		})
	default:
		h.handleStoreError(w, r, err)
	}
}

// handleStoreError maps store errors to HTTP responses.
func (h *UserHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, repository.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already exists")
	case errors.Is(err, repository.ErrValueTooLong):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "name or email is too long")
	case errors.Is(err, context.Canceled):
		h.logger.Info("request_canceled",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, statusClientClosedRequest, "REQUEST_CANCELED", "Request canceled")
	default:
		h.logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
