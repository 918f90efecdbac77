package service

import (
	"context"
	"errors"
	"fmt"

	"notedeck/internal/models"
	"notedeck/internal/repository"
)

// ErrNotificationNotFound indicates the notification does not exist for the
// user or was already marked as read.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService exposes the persisted notification feed.
type NotificationService interface {
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	notifications, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	updated, err := s.repo.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !updated {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}
