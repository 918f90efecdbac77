// Package handler exposes the HTTP API of the notes service. Routing is
// method-and-path based on the standard mux; handlers decode and validate
// the request, call the service layer and translate its errors.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"notedeck/internal/models"
	"notedeck/internal/service"
	"notedeck/pkg/helpers"
	"notedeck/pkg/logger"
)

// NoteHandler handles all note endpoints under /api/notes.
type NoteHandler struct {
	noteService service.NoteService
	validator   *helpers.CustomValidator
	log         *logger.Logger
}

func NewNoteHandler(noteService service.NoteService, validator *helpers.CustomValidator, log *logger.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		validator:   validator,
		log:         log,
	}
}

type createNoteRequest struct {
	Title      string          `json:"title" validate:"required,max=255"`
	ProjectID  *string         `json:"projectId" validate:"omitempty,object_id"`
	Blocks     json.RawMessage `json:"blocks"`
	Tags       []string        `json:"tags" validate:"omitempty,dive,tag_label"`
	IsPublic   bool            `json:"isPublic"`
	SharedWith []string        `json:"sharedWith" validate:"omitempty,dive,object_id"`
}

type updateNoteRequest struct {
	Title      *string         `json:"title" validate:"omitempty,max=255"`
	ProjectID  *string         `json:"projectId" validate:"omitempty,object_id"`
	Blocks     json.RawMessage `json:"blocks"`
	Tags       []string        `json:"tags" validate:"omitempty,dive,tag_label"`
	IsPublic   bool            `json:"isPublic"`
	SharedWith []string        `json:"sharedWith" validate:"omitempty,dive,object_id"`
}

type shareNoteRequest struct {
	TargetUserIDs []string `json:"targetUserIds" validate:"required,min=1,dive,object_id"`
}

// HandleNotes serves the /api/notes collection: GET lists everything the
// caller may read, POST creates a note.
func (h *NoteHandler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVisible(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleNoteSubroutes serves everything under /api/notes/: the named listing
// views, per-note CRUD, share and copy.
func (h *NoteHandler) HandleNoteSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notes/"), "/")
	if path == "" {
		h.HandleNotes(w, r)
		return
	}

	switch path {
	case "mine":
		h.listing(w, r, func(actor service.Actor) ([]*models.NoteView, error) {
			return h.noteService.ListMine(r.Context(), actor)
		})
		return
	case "public":
		h.listing(w, r, func(actor service.Actor) ([]*models.NoteView, error) {
			return h.noteService.ListPublic(r.Context(), actor)
		})
		return
	case "copies":
		h.listing(w, r, func(actor service.Actor) ([]*models.NoteView, error) {
			return h.noteService.ListCopies(r.Context(), actor)
		})
		return
	case "shared-with-me":
		h.listing(w, r, func(actor service.Actor) ([]*models.NoteView, error) {
			return h.noteService.ListSharedWithMe(r.Context(), actor)
		})
		return
	}

	if projectID, ok := strings.CutPrefix(path, "project/"); ok {
		if strings.Contains(projectID, "/") || projectID == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.listing(w, r, func(actor service.Actor) ([]*models.NoteView, error) {
			return h.noteService.ListByProject(r.Context(), actor, projectID)
		})
		return
	}

	parts := strings.Split(path, "/")
	noteID := parts[0]
	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, noteID)
		case http.MethodPut:
			h.update(w, r, noteID)
		case http.MethodDelete:
			h.delete(w, r, noteID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case 2:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		switch parts[1] {
		case "share":
			h.share(w, r, noteID)
		case "copy":
			h.copy(w, r, noteID)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *NoteHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	view, err := h.noteService.Create(r.Context(), actor, service.CreateNoteInput{
		Title:      req.Title,
		ProjectID:  req.ProjectID,
		Blocks:     req.Blocks,
		Tags:       req.Tags,
		IsPublic:   req.IsPublic,
		SharedWith: req.SharedWith,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"note_id": view.ID, "user_id": actor.ID}).Info("note created")
	writeJSON(w, http.StatusCreated, view)
}

func (h *NoteHandler) get(w http.ResponseWriter, r *http.Request, noteID string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.noteService.Get(r.Context(), actor, noteID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *NoteHandler) update(w http.ResponseWriter, r *http.Request, noteID string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req updateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	view, err := h.noteService.Update(r.Context(), actor, noteID, models.NoteUpdate{
		Title:      req.Title,
		ProjectID:  req.ProjectID,
		Blocks:     req.Blocks,
		Tags:       req.Tags,
		IsPublic:   req.IsPublic,
		SharedWith: req.SharedWith,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"note_id": noteID, "user_id": actor.ID}).Info("note updated")
	writeJSON(w, http.StatusOK, view)
}

func (h *NoteHandler) delete(w http.ResponseWriter, r *http.Request, noteID string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.noteService.Delete(r.Context(), actor, noteID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"note_id": noteID, "user_id": actor.ID}).Info("note deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

func (h *NoteHandler) share(w http.ResponseWriter, r *http.Request, noteID string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req shareNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	view, err := h.noteService.Share(r.Context(), actor, noteID, req.TargetUserIDs)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"note_id": noteID, "user_id": actor.ID}).Info("note shared")
	writeJSON(w, http.StatusOK, view)
}

func (h *NoteHandler) copy(w http.ResponseWriter, r *http.Request, noteID string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.noteService.Copy(r.Context(), actor, noteID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"note_id": view.ID, "user_id": actor.ID}).Info("note copied")
	writeJSON(w, http.StatusCreated, view)
}

// listing handles the GET-only listing views with a shared shape.
func (h *NoteHandler) listing(w http.ResponseWriter, r *http.Request, list func(service.Actor) ([]*models.NoteView, error)) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	views, err := list(actor)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *NoteHandler) listVisible(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	views, err := h.noteService.ListVisible(r.Context(), actor)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
