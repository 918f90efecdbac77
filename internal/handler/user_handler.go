package handler

import (
	"net/http"

	"notedeck/internal/repository"
	"notedeck/pkg/helpers"
	"notedeck/pkg/logger"
)

// UserHandler serves the share-picker endpoints: the list of candidate
// recipients and batch identity lookup.
type UserHandler struct {
	userRepo  repository.UserRepository
	validator *helpers.CustomValidator
	log       *logger.Logger
}

func NewUserHandler(userRepo repository.UserRepository, validator *helpers.CustomValidator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userRepo:  userRepo,
		validator: validator,
		log:       log,
	}
}

type usersByIDsRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,dive,object_id"`
}

// HandleUsers serves GET /api/users: every user except the caller, for the
// share picker.
func (h *UserHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	users, err := h.userRepo.ListExcept(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleUsersByIDs serves POST /api/users/by-ids: resolves a batch of user
// ids to identity snapshots so clients can render share sets.
func (h *UserHandler) HandleUsersByIDs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := actorFromRequest(w, r); !ok {
		return
	}

	var req usersByIDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	users, err := h.userRepo.GetByIDs(r.Context(), req.UserIDs)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
