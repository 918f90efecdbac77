package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notedeck/internal/models"
)

// NoteRepository is the persistence surface for notes. The share set lives
// in the note_shares junction table; merging into it goes through AddShares
// so concurrent merges cannot lose updates.
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	Update(ctx context.Context, note *models.Note, addShares []string) error
	Delete(ctx context.Context, id string) error
	AddShares(ctx context.Context, noteID string, userIDs []string) ([]string, error)
	ListVisible(ctx context.Context, viewerID string) ([]*models.Note, error)
	ListOwned(ctx context.Context, ownerID string) ([]*models.Note, error)
	ListPublic(ctx context.Context) ([]*models.Note, error)
	ListCopies(ctx context.Context, ownerID string) ([]*models.Note, error)
	ListSharedWith(ctx context.Context, userID string) ([]*models.Note, error)
	ListByProjectVisible(ctx context.Context, projectID, viewerID string) ([]*models.Note, error)
}

type noteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) NoteRepository {
	return &noteRepository{db: db}
}

const noteColumns = `id, title, project_id, blocks, tags, is_public, created_by, created_username, shared_original, copied_from, created_at, updated_at`

// Newest-created first with a stable id tie-break, so every listing
// endpoint returns the same order for equal timestamps.
const noteOrder = ` ORDER BY created_at DESC, id ASC`

func (r *noteRepository) Create(ctx context.Context, note *models.Note) error {
	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	blocks := note.Blocks
	if len(blocks) == 0 {
		blocks = json.RawMessage("[]")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notes (id, title, project_id, blocks, tags, is_public, created_by, created_username, shared_original, copied_from, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		note.ID,
		note.Title,
		nullable(note.ProjectID),
		string(blocks),
		string(tagsJSON),
		note.IsPublic,
		note.CreatedBy,
		note.CreatedUsername,
		nullable(note.SharedOriginal),
		nullable(note.CopiedFrom),
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	for _, userID := range note.SharedWith {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO note_shares (note_id, user_id, created_at) VALUES (?, ?, ?)`,
			note.ID, userID, note.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create note share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note creation: %w", err)
	}
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ?`
	note, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	shares, err := r.loadShares(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	note.SharedWith = shares[id]
	return note, nil
}

// Update rewrites the mutable note fields and merges addShares into the
// share set. Both happen in one transaction so the mutation either fully
// applies or not at all.
func (r *noteRepository) Update(ctx context.Context, note *models.Note, addShares []string) error {
	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	blocks := note.Blocks
	if len(blocks) == 0 {
		blocks = json.RawMessage("[]")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE notes
		SET title = ?, project_id = ?, blocks = ?, tags = ?, is_public = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, query,
		note.Title,
		nullable(note.ProjectID),
		string(blocks),
		string(tagsJSON),
		note.IsPublic,
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	now := time.Now()
	for _, userID := range addShares {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO note_shares (note_id, user_id, created_at) VALUES (?, ?, ?)`,
			note.ID, userID, now,
		); err != nil {
			return fmt.Errorf("failed to add note share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note update: %w", err)
	}
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_shares WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note shares: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note deletion: %w", err)
	}
	return nil
}

// AddShares merges userIDs into the note's share set and returns the ids
// that were actually added. Each INSERT IGNORE is atomic at the storage
// layer, so two concurrent merges on the same note both survive.
func (r *noteRepository) AddShares(ctx context.Context, noteID string, userIDs []string) ([]string, error) {
	now := time.Now()
	added := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		res, err := r.db.ExecContext(ctx,
			`INSERT IGNORE INTO note_shares (note_id, user_id, created_at) VALUES (?, ?, ?)`,
			noteID, userID, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add note share: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected > 0 {
			added = append(added, userID)
		}
	}
	return added, nil
}

func (r *noteRepository) ListVisible(ctx context.Context, viewerID string) ([]*models.Note, error) {
	query := `
		SELECT ` + noteColumns + ` FROM notes
		WHERE created_by = ? OR is_public = TRUE OR EXISTS (
			SELECT 1 FROM note_shares WHERE note_id = notes.id AND user_id = ?
		)` + noteOrder
	return r.queryNotes(ctx, query, viewerID, viewerID)
}

func (r *noteRepository) ListOwned(ctx context.Context, ownerID string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE created_by = ?` + noteOrder
	return r.queryNotes(ctx, query, ownerID)
}

func (r *noteRepository) ListPublic(ctx context.Context) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE is_public = TRUE` + noteOrder
	return r.queryNotes(ctx, query)
}

func (r *noteRepository) ListCopies(ctx context.Context, ownerID string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE created_by = ? AND shared_original IS NOT NULL` + noteOrder
	return r.queryNotes(ctx, query, ownerID)
}

func (r *noteRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.Note, error) {
	query := `
		SELECT ` + noteColumns + ` FROM notes
		WHERE EXISTS (
			SELECT 1 FROM note_shares WHERE note_id = notes.id AND user_id = ?
		)` + noteOrder
	return r.queryNotes(ctx, query, userID)
}

func (r *noteRepository) ListByProjectVisible(ctx context.Context, projectID, viewerID string) ([]*models.Note, error) {
	query := `
		SELECT ` + noteColumns + ` FROM notes
		WHERE project_id = ? AND (created_by = ? OR is_public = TRUE OR EXISTS (
			SELECT 1 FROM note_shares WHERE note_id = notes.id AND user_id = ?
		))` + noteOrder
	return r.queryNotes(ctx, query, projectID, viewerID, viewerID)
}

func (r *noteRepository) queryNotes(ctx context.Context, query string, args ...interface{}) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	ids := make([]string, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
		ids = append(ids, note.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	shares, err := r.loadShares(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		note.SharedWith = shares[note.ID]
	}
	return notes, nil
}

// loadShares fetches the share sets for the given note ids in one query.
func (r *noteRepository) loadShares(ctx context.Context, noteIDs []string) (map[string][]string, error) {
	shares := make(map[string][]string, len(noteIDs))
	for _, id := range noteIDs {
		shares[id] = []string{}
	}
	if len(noteIDs) == 0 {
		return shares, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(noteIDs)), ",")
	query := fmt.Sprintf(
		`SELECT note_id, user_id FROM note_shares WHERE note_id IN (%s) ORDER BY created_at ASC`,
		placeholders,
	)
	args := make([]interface{}, 0, len(noteIDs))
	for _, id := range noteIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query note shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID, userID string
		if err := rows.Scan(&noteID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan note share: %w", err)
		}
		shares[noteID] = append(shares[noteID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note shares: %w", err)
	}
	return shares, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		note           models.Note
		projectID      sql.NullString
		blocksJSON     string
		tagsJSON       string
		sharedOriginal sql.NullString
		copiedFrom     sql.NullString
	)
	err := row.Scan(
		&note.ID,
		&note.Title,
		&projectID,
		&blocksJSON,
		&tagsJSON,
		&note.IsPublic,
		&note.CreatedBy,
		&note.CreatedUsername,
		&sharedOriginal,
		&copiedFrom,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if projectID.Valid {
		note.ProjectID = &projectID.String
	}
	if sharedOriginal.Valid {
		note.SharedOriginal = &sharedOriginal.String
	}
	if copiedFrom.Valid {
		note.CopiedFrom = &copiedFrom.String
	}

	note.Blocks = json.RawMessage(blocksJSON)
	note.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &note.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	note.SharedWith = []string{}
	return &note, nil
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
