package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoMock(t *testing.T) (UserRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewUserRepository(db), mock, func() { db.Close() }
}

func TestUserRepoGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock, closeDB := newUserRepoMock(t)
		defer closeDB()

		rows := sqlmock.NewRows([]string{"id", "username", "email", "role", "is_admin"}).
			AddRow("u1", "alice", "alice@example.com", "member", false)
		mock.ExpectQuery(`SELECT id, username, email, role, is_admin FROM users WHERE id = \?`).
			WithArgs("u1").
			WillReturnRows(rows)

		user, err := repo.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent user is nil, nil", func(t *testing.T) {
		repo, mock, closeDB := newUserRepoMock(t)
		defer closeDB()

		mock.ExpectQuery(`SELECT id, username, email, role, is_admin FROM users WHERE id = \?`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(context.Background(), "missing")
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoGetByIDs(t *testing.T) {
	t.Run("batch lookup", func(t *testing.T) {
		repo, mock, closeDB := newUserRepoMock(t)
		defer closeDB()

		rows := sqlmock.NewRows([]string{"id", "username", "email"}).
			AddRow("u2", "bob", "bob@example.com").
			AddRow("u3", "carol", "carol@example.com")
		mock.ExpectQuery(`SELECT id, username, email FROM users WHERE id IN \(\?,\?\)`).
			WithArgs("u2", "u3").
			WillReturnRows(rows)

		users, err := repo.GetByIDs(context.Background(), []string{"u2", "u3"})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "bob", users[0].Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty input skips the query", func(t *testing.T) {
		repo, mock, closeDB := newUserRepoMock(t)
		defer closeDB()

		users, err := repo.GetByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoListExcept(t *testing.T) {
	repo, mock, closeDB := newUserRepoMock(t)
	defer closeDB()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "role", "is_admin"}).
		AddRow("u2", "bob", "bob@example.com", "member", false).
		AddRow("u3", "carol", "carol@example.com", "admin", true)
	mock.ExpectQuery(`SELECT id, username, email, role, is_admin FROM users WHERE id <> \? ORDER BY username ASC`).
		WithArgs("u1").
		WillReturnRows(rows)

	users, err := repo.ListExcept(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.True(t, users[1].IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}
