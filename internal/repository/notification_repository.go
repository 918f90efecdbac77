package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notedeck/internal/models"
)

// NotificationRepository handles database interactions for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string) error
}

// notificationData is the JSON structure stored in the data column.
type notificationData struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	ReferenceID string `json:"reference_id,omitempty"`
	URL         string `json:"url,omitempty"`
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	dataBytes, err := json.Marshal(notificationData{
		Title:       notification.Title,
		Message:     notification.Message,
		ReferenceID: notification.ReferenceID,
		URL:         notification.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	now := time.Now()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}

	query := `
		INSERT INTO notifications (id, user_id, actor_id, type, data, read_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.ActorID,
		notification.Kind,
		string(dataBytes),
		notification.ReadAt,
		notification.CreatedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List retrieves notifications for a user along with the total count.
func (r *notificationRepository) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	// Set defaults for pagination
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100 // limit max page size
	}
	offset := (page - 1) * perPage

	whereClause := "user_id = ?"
	if filter.UnreadOnly {
		whereClause += " AND read_at IS NULL"
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM notifications WHERE %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, type, data, read_at, created_at, updated_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, userID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var notif models.Notification
		var dataJSON string
		var readAt sql.NullTime

		err := rows.Scan(
			&notif.ID,
			&notif.ActorID,
			&notif.Kind,
			&dataJSON,
			&readAt,
			&notif.CreatedAt,
			&notif.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}

		var data notificationData
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}

		notif.UserID = userID
		notif.Title = data.Title
		notif.Message = data.Message
		notif.ReferenceID = data.ReferenceID
		notif.URL = data.URL
		if readAt.Valid {
			notif.ReadAt = &readAt.Time
		}

		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks a single notification as read. It reports whether a row
// was actually updated, so the caller can distinguish a missing notification
// from an already-read one without string matching.
func (r *notificationRepository) MarkAsRead(ctx context.Context, notificationID, userID string) (bool, error) {
	query := `
		UPDATE notifications
		SET read_at = NOW(), updated_at = NOW()
		WHERE id = ? AND user_id = ? AND read_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification as read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkAllAsRead marks all notifications as read for a user.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = NOW(), updated_at = NOW()
		WHERE user_id = ? AND read_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}
