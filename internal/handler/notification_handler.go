package handler

import (
	"net/http"
	"strconv"
	"strings"

	"notedeck/internal/models"
	"notedeck/internal/service"
	"notedeck/pkg/logger"
)

// NotificationHandler serves the persisted notification feed.
type NotificationHandler struct {
	notificationService service.NotificationService
	log                 *logger.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

type notificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"perPage"`
}

// HandleNotifications serves GET /api/notifications with page, per_page and
// unread query parameters.
func (h *NotificationHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter := models.NotificationFilter{
		Page:       parseIntParam(r, "page", 1),
		PerPage:    parseIntParam(r, "per_page", 10),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}

	notifications, total, err := h.notificationService.List(r.Context(), actor.ID, filter)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, notificationListResponse{
		Notifications: notifications,
		Total:         total,
		Page:          filter.Page,
		PerPage:       filter.PerPage,
	})
}

// HandleNotificationSubroutes serves POST /api/notifications/{id}/read and
// POST /api/notifications/read-all.
func (h *NotificationHandler) HandleNotificationSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notifications/"), "/")
	if path == "" {
		h.HandleNotifications(w, r)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if path == "read-all" {
		if err := h.notificationService.MarkAllAsRead(r.Context(), actor.ID); err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
		return
	}

	notificationID, ok := strings.CutSuffix(path, "/read")
	if !ok || notificationID == "" || strings.Contains(notificationID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.notificationService.MarkAsRead(r.Context(), notificationID, actor.ID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
