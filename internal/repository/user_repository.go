package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"notedeck/internal/models"
)

// UserRepository provides access to identity snapshots for recipient
// resolution and the user listing endpoints.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.UserInfo, error)
	GetByIDs(ctx context.Context, userIDs []string) ([]*models.UserInfo, error)
	ListExcept(ctx context.Context, excludeUserID string) ([]*models.UserInfo, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.UserInfo, error) {
	query := `SELECT id, username, email, role, is_admin FROM users WHERE id = ?`
	info := &models.UserInfo{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&info.ID, &info.Username, &info.Email, &info.Role, &info.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return info, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, userIDs []string) ([]*models.UserInfo, error) {
	if len(userIDs) == 0 {
		return []*models.UserInfo{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	query := fmt.Sprintf(`SELECT id, username, email FROM users WHERE id IN (%s)`, placeholders)
	args := make([]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.UserInfo, 0, len(userIDs))
	for rows.Next() {
		info := &models.UserInfo{}
		if err := rows.Scan(&info.ID, &info.Username, &info.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListExcept(ctx context.Context, excludeUserID string) ([]*models.UserInfo, error) {
	query := `SELECT id, username, email, role, is_admin FROM users WHERE id <> ? ORDER BY username ASC`
	rows, err := r.db.QueryContext(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.UserInfo, 0)
	for rows.Next() {
		info := &models.UserInfo{}
		if err := rows.Scan(&info.ID, &info.Username, &info.Email, &info.Role, &info.IsAdmin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
