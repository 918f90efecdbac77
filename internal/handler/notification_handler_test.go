package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedeck/internal/models"
	"notedeck/internal/service"
	"notedeck/pkg/logger"
)

type mockNotificationService struct {
	listFunc          func(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error)
	markAsReadFunc    func(ctx context.Context, notificationID, userID string) error
	markAllAsReadFunc func(ctx context.Context, userID string) error
}

func (m *mockNotificationService) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, filter)
	}
	return []models.Notification{}, 0, nil
}

func (m *mockNotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	if m.markAsReadFunc != nil {
		return m.markAsReadFunc(ctx, notificationID, userID)
	}
	return nil
}

func (m *mockNotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if m.markAllAsReadFunc != nil {
		return m.markAllAsReadFunc(ctx, userID)
	}
	return nil
}

func newNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return NewNotificationHandler(svc, logger.NewLogger("test"))
}

func TestListNotifications(t *testing.T) {
	var gotFilter models.NotificationFilter
	svc := &mockNotificationService{
		listFunc: func(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error) {
			gotFilter = filter
			return []models.Notification{{ID: "n1", UserID: userID}}, 1, nil
		},
	}
	h := newNotificationHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleNotifications(rec, authedRequest(http.MethodGet, "/api/notifications?page=2&per_page=5&unread=true", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, gotFilter.Page)
	assert.Equal(t, 5, gotFilter.PerPage)
	assert.True(t, gotFilter.UnreadOnly)

	var resp notificationListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "n1", resp.Notifications[0].ID)
}

func TestListNotificationsDefaultPaging(t *testing.T) {
	var gotFilter models.NotificationFilter
	svc := &mockNotificationService{
		listFunc: func(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error) {
			gotFilter = filter
			return []models.Notification{}, 0, nil
		},
	}
	h := newNotificationHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleNotifications(rec, authedRequest(http.MethodGet, "/api/notifications?page=bogus", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gotFilter.Page)
	assert.Equal(t, 10, gotFilter.PerPage)
	assert.False(t, gotFilter.UnreadOnly)
}

func TestMarkNotificationRead(t *testing.T) {
	marked := ""
	svc := &mockNotificationService{
		markAsReadFunc: func(ctx context.Context, notificationID, userID string) error {
			marked = notificationID
			return nil
		},
	}
	h := newNotificationHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleNotificationSubroutes(rec, authedRequest(http.MethodPost, "/api/notifications/n1/read", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "n1", marked)
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	svc := &mockNotificationService{
		markAsReadFunc: func(ctx context.Context, notificationID, userID string) error {
			return service.ErrNotificationNotFound
		},
	}
	h := newNotificationHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleNotificationSubroutes(rec, authedRequest(http.MethodPost, "/api/notifications/missing/read", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	called := false
	svc := &mockNotificationService{
		markAllAsReadFunc: func(ctx context.Context, userID string) error {
			called = true
			return nil
		},
	}
	h := newNotificationHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleNotificationSubroutes(rec, authedRequest(http.MethodPost, "/api/notifications/read-all", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestNotificationSubrouteMethodNotAllowed(t *testing.T) {
	h := newNotificationHandler(&mockNotificationService{})

	rec := httptest.NewRecorder()
	h.HandleNotificationSubroutes(rec, authedRequest(http.MethodGet, "/api/notifications/n1/read", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUnknownNotificationSubroute(t *testing.T) {
	h := newNotificationHandler(&mockNotificationService{})

	rec := httptest.NewRecorder()
	h.HandleNotificationSubroutes(rec, authedRequest(http.MethodPost, "/api/notifications/n1/archive", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
