package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedeck/internal/models"
)

func newNoteRepoMock(t *testing.T) (NoteRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewNoteRepository(db), mock, func() { db.Close() }
}

var noteRows = []string{
	"id", "title", "project_id", "blocks", "tags", "is_public",
	"created_by", "created_username", "shared_original", "copied_from",
	"created_at", "updated_at",
}

func TestNoteRepoCreate(t *testing.T) {
	tests := []struct {
		name        string
		note        *models.Note
		setupMock   func(sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "note with shares",
			note: &models.Note{
				ID:              "note-1",
				Title:           "Weekly plan",
				Blocks:          []byte(`[{"type":"text"}]`),
				Tags:            []string{"work"},
				CreatedBy:       "u1",
				CreatedUsername: "alice",
				SharedWith:      []string{"u2", "u3"},
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO notes`).
					WithArgs(
						"note-1",
						"Weekly plan",
						nil,
						`[{"type":"text"}]`,
						`["work"]`,
						false,
						"u1",
						"alice",
						nil,
						nil,
						sqlmock.AnyArg(), // created_at
						sqlmock.AnyArg(), // updated_at
					).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
					WithArgs("note-1", "u2", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
					WithArgs("note-1", "u3", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectError: false,
		},
		{
			name: "database error rolls back",
			note: &models.Note{
				ID:        "note-2",
				Title:     "Weekly plan",
				CreatedBy: "u1",
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO notes`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, closeDB := newNoteRepoMock(t)
			defer closeDB()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), tt.note)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNoteRepoGetByID(t *testing.T) {
	t.Run("resolves nullable columns and share set", func(t *testing.T) {
		repo, mock, closeDB := newNoteRepoMock(t)
		defer closeDB()

		now := time.Now()
		rows := sqlmock.NewRows(noteRows).
			AddRow("note-1", "Weekly plan", nil, `[{"type":"text"}]`, `["work"]`,
				false, "u1", "alice", "orig-1", "u9", now, now)
		mock.ExpectQuery(`SELECT .+ FROM notes WHERE id = \?`).
			WithArgs("note-1").
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT note_id, user_id FROM note_shares WHERE note_id IN`).
			WithArgs("note-1").
			WillReturnRows(sqlmock.NewRows([]string{"note_id", "user_id"}).
				AddRow("note-1", "u2").
				AddRow("note-1", "u3"))

		note, err := repo.GetByID(context.Background(), "note-1")
		require.NoError(t, err)
		require.NotNil(t, note)

		assert.Nil(t, note.ProjectID)
		require.NotNil(t, note.SharedOriginal)
		assert.Equal(t, "orig-1", *note.SharedOriginal)
		require.NotNil(t, note.CopiedFrom)
		assert.Equal(t, "u9", *note.CopiedFrom)
		assert.True(t, note.IsCopy())
		assert.Equal(t, []string{"work"}, note.Tags)
		assert.Equal(t, []string{"u2", "u3"}, note.SharedWith)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent note is nil, nil", func(t *testing.T) {
		repo, mock, closeDB := newNoteRepoMock(t)
		defer closeDB()

		mock.ExpectQuery(`SELECT .+ FROM notes WHERE id = \?`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		note, err := repo.GetByID(context.Background(), "missing")
		assert.NoError(t, err)
		assert.Nil(t, note)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteRepoUpdate(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	projectID := "proj-1"
	note := &models.Note{
		ID:        "note-1",
		Title:     "Renamed",
		ProjectID: &projectID,
		Blocks:    []byte(`[]`),
		Tags:      []string{"work", "planning"},
		IsPublic:  true,
		UpdatedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notes`).
		WithArgs("Renamed", "proj-1", `[]`, `["work","planning"]`, true, sqlmock.AnyArg(), "note-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
		WithArgs("note-1", "u3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), note, []string{"u3"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoAddSharesReportsOnlyNewRows(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	// u2 is already in the junction table, so its INSERT IGNORE touches no
	// row; only u3 comes back as added.
	mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
		WithArgs("note-1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
		WithArgs("note-1", "u3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	added, err := repo.AddShares(context.Background(), "note-1", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoAddSharesAllExisting(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	mock.ExpectExec(`INSERT IGNORE INTO note_shares`).
		WithArgs("note-1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddShares(context.Background(), "note-1", []string{"u2"})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoDeleteScopedToOneNote(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	// Both statements carry only the target note's id; copies referencing it
	// through shared_original are untouched.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM note_shares WHERE note_id = \?`).
		WithArgs("note-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM notes WHERE id = \?`).
		WithArgs("note-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "note-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoListVisible(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	now := time.Now()
	rows := sqlmock.NewRows(noteRows).
		AddRow("note-1", "Mine", nil, `[]`, `[]`, false, "u1", "alice", nil, nil, now, now).
		AddRow("note-2", "Public", nil, `[]`, `[]`, true, "u9", "zoe", nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM notes\s+WHERE created_by = \? OR is_public = TRUE OR EXISTS`).
		WithArgs("u1", "u1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT note_id, user_id FROM note_shares WHERE note_id IN`).
		WithArgs("note-1", "note-2").
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "user_id"}).
			AddRow("note-1", "u2"))

	notes, err := repo.ListVisible(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, []string{"u2"}, notes[0].SharedWith)
	assert.Equal(t, []string{}, notes[1].SharedWith)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoListCopies(t *testing.T) {
	repo, mock, closeDB := newNoteRepoMock(t)
	defer closeDB()

	now := time.Now()
	rows := sqlmock.NewRows(noteRows).
		AddRow("copy-1", "Weekly plan", nil, `[]`, `[]`, false, "u2", "bob", "note-1", "u1", now, now)
	mock.ExpectQuery(`SELECT .+ FROM notes WHERE created_by = \? AND shared_original IS NOT NULL`).
		WithArgs("u2").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT note_id, user_id FROM note_shares WHERE note_id IN`).
		WithArgs("copy-1").
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "user_id"}))

	notes, err := repo.ListCopies(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].IsCopy())
	assert.NoError(t, mock.ExpectationsWereMet())
}
