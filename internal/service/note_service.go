package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"notedeck/internal/models"
	"notedeck/internal/repository"
	"notedeck/internal/visibility"
	"notedeck/pkg/helpers"
)

var (
	ErrNoteNotFound  = errors.New("note not found")
	ErrForbidden     = errors.New("not the note owner")
	ErrTitleRequired = errors.New("title required")
	ErrNoRecipients  = errors.New("no users selected")
)

// Actor identifies the authenticated caller of a note operation.
type Actor struct {
	ID       string
	Username string
}

// CreateNoteInput carries the fields of a note creation request.
type CreateNoteInput struct {
	Title      string
	ProjectID  *string
	Blocks     json.RawMessage
	Tags       []string
	IsPublic   bool
	SharedWith []string
}

// NotificationDispatcher sends notification batches without blocking the
// caller. Satisfied by *Dispatcher.
type NotificationDispatcher interface {
	Dispatch(inputs ...NotificationInput)
}

// NoteService encapsulates note business logic: ownership checks, share-set
// merging, copy provenance and the notification fan-out per mutation.
type NoteService interface {
	Create(ctx context.Context, actor Actor, input CreateNoteInput) (*models.NoteView, error)
	Get(ctx context.Context, actor Actor, noteID string) (*models.NoteView, error)
	Update(ctx context.Context, actor Actor, noteID string, update models.NoteUpdate) (*models.NoteView, error)
	Delete(ctx context.Context, actor Actor, noteID string) error
	Share(ctx context.Context, actor Actor, noteID string, targetUserIDs []string) (*models.NoteView, error)
	Copy(ctx context.Context, actor Actor, noteID string) (*models.NoteView, error)
	ListVisible(ctx context.Context, actor Actor) ([]*models.NoteView, error)
	ListMine(ctx context.Context, actor Actor) ([]*models.NoteView, error)
	ListPublic(ctx context.Context, actor Actor) ([]*models.NoteView, error)
	ListCopies(ctx context.Context, actor Actor) ([]*models.NoteView, error)
	ListSharedWithMe(ctx context.Context, actor Actor) ([]*models.NoteView, error)
	ListByProject(ctx context.Context, actor Actor, projectID string) ([]*models.NoteView, error)
}

type noteService struct {
	noteRepo   repository.NoteRepository
	userRepo   repository.UserRepository
	dispatcher NotificationDispatcher
	ids        *helpers.IDGenerator
}

func NewNoteService(
	noteRepo repository.NoteRepository,
	userRepo repository.UserRepository,
	dispatcher NotificationDispatcher,
) NoteService {
	return &noteService{
		noteRepo:   noteRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		ids:        helpers.NewIDGenerator(),
	}
}

func (s *noteService) Create(ctx context.Context, actor Actor, input CreateNoteInput) (*models.NoteView, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	sharedWith := cleanShareSet(input.SharedWith, actor.ID)
	now := time.Now()

	note := &models.Note{
		ID:              s.ids.GenerateUUID(),
		Title:           input.Title,
		ProjectID:       input.ProjectID,
		Blocks:          cloneBlocks(input.Blocks),
		Tags:            cloneTags(input.Tags),
		IsPublic:        input.IsPublic,
		CreatedBy:       actor.ID,
		CreatedUsername: actor.Username,
		SharedWith:      sharedWith,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	// Self-ack to the creator, plus a fanout to the share set when present.
	inputs := []NotificationInput{}
	if len(sharedWith) > 0 {
		inputs = append(inputs, NotificationInput{
			ActorID:     actor.ID,
			Recipients:  []string{actor.ID},
			Kind:        models.KindNoteSharedSelf,
			Title:       fmt.Sprintf("You shared a note %q", note.Title),
			Message:     fmt.Sprintf("📝 You shared a new note %q with %d users.", note.Title, len(sharedWith)),
			ReferenceID: note.ID,
			URL:         noteURL(note.ID),
		}, NotificationInput{
			ActorID:     actor.ID,
			Recipients:  sharedWith,
			Kind:        models.KindNoteSharedWithUser,
			Title:       "New note shared with you",
			Message:     fmt.Sprintf("📝 %s shared a note %q with you.", actor.Username, note.Title),
			ReferenceID: note.ID,
			URL:         noteURL(note.ID),
		})
	} else {
		inputs = append(inputs, NotificationInput{
			ActorID:     actor.ID,
			Recipients:  []string{actor.ID},
			Kind:        models.KindNoteCreated,
			Title:       fmt.Sprintf("Note %q created", note.Title),
			Message:     fmt.Sprintf("📝 You created a new note %q.", note.Title),
			ReferenceID: note.ID,
			URL:         noteURL(note.ID),
		})
	}
	s.dispatcher.Dispatch(inputs...)

	return visibility.Project(note, actor.ID), nil
}

func (s *noteService) Get(ctx context.Context, actor Actor, noteID string) (*models.NoteView, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanRead(note, actor.ID) {
		return nil, ErrForbidden
	}
	return visibility.Project(note, actor.ID), nil
}

func (s *noteService) Update(ctx context.Context, actor Actor, noteID string, update models.NoteUpdate) (*models.NoteView, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanEdit(note, actor.ID) {
		return nil, ErrForbidden
	}

	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return nil, ErrTitleRequired
		}
		note.Title = *update.Title
	}
	note.ProjectID = update.ProjectID
	if len(update.Blocks) > 0 {
		note.Blocks = cloneBlocks(update.Blocks)
	}
	note.IsPublic = update.IsPublic
	note.Tags = cloneTags(update.Tags)
	note.UpdatedAt = time.Now()

	// Merge the supplied share set into the existing one; the owner id and
	// duplicates never enter the set.
	addShares := diffShareSet(cleanShareSet(update.SharedWith, actor.ID), note.SharedWith)
	if err := s.noteRepo.Update(ctx, note, addShares); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	note.SharedWith = append(note.SharedWith, addShares...)

	if len(note.SharedWith) > 0 {
		s.dispatcher.Dispatch(
			NotificationInput{
				ActorID:     actor.ID,
				Recipients:  []string{actor.ID},
				Kind:        models.KindNoteUpdatedSelf,
				Title:       "You updated a shared note",
				Message:     fmt.Sprintf("📝 You updated the note %q shared with %s.", note.Title, s.usernamesFor(ctx, note.SharedWith)),
				ReferenceID: note.ID,
				URL:         noteURL(note.ID),
			},
			NotificationInput{
				ActorID:     actor.ID,
				Recipients:  note.SharedWith,
				Kind:        models.KindNoteUpdatedShared,
				Title:       fmt.Sprintf("Note %q updated", note.Title),
				Message:     fmt.Sprintf("📝 %s updated a shared note %q.", note.CreatedUsername, note.Title),
				ReferenceID: note.ID,
				URL:         noteURL(note.ID),
			},
		)
	}

	return visibility.Project(note, actor.ID), nil
}

func (s *noteService) Delete(ctx context.Context, actor Actor, noteID string) error {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return err
	}
	if !visibility.CanEdit(note, actor.ID) {
		return ErrForbidden
	}

	// Deletion is unconditional on notification outcome: the record goes
	// first, the fan-out follows.
	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if len(note.SharedWith) > 0 {
		s.dispatcher.Dispatch(NotificationInput{
			ActorID:     actor.ID,
			Recipients:  note.SharedWith,
			Kind:        models.KindNoteDeleted,
			Title:       fmt.Sprintf("Note %q deleted", note.Title),
			Message:     fmt.Sprintf("🗑️ The shared note %q was deleted.", note.Title),
			ReferenceID: note.ID,
		})
	}
	return nil
}

func (s *noteService) Share(ctx context.Context, actor Actor, noteID string, targetUserIDs []string) (*models.NoteView, error) {
	if len(targetUserIDs) == 0 {
		return nil, ErrNoRecipients
	}

	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanEdit(note, actor.ID) {
		return nil, ErrForbidden
	}

	targets := cleanShareSet(targetUserIDs, actor.ID)
	if len(targets) == 0 {
		return nil, ErrNoRecipients
	}

	added, err := s.noteRepo.AddShares(ctx, noteID, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to share note: %w", err)
	}
	note.SharedWith = append(note.SharedWith, added...)

	// Only the ids actually added are notified, so re-sharing with an
	// already-shared user stays silent for that user.
	if len(added) > 0 {
		s.dispatcher.Dispatch(NotificationInput{
			ActorID:     actor.ID,
			Recipients:  added,
			Kind:        models.KindNoteSharedWithUser,
			Title:       "Note shared",
			Message:     fmt.Sprintf("📝 %s shared %q with you.", actor.Username, note.Title),
			ReferenceID: note.ID,
			URL:         noteURL(note.ID),
		})
	}

	return visibility.Project(note, actor.ID), nil
}

func (s *noteService) Copy(ctx context.Context, actor Actor, noteID string) (*models.NoteView, error) {
	original, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	copied := &models.Note{
		ID:              s.ids.GenerateUUID(),
		Title:           original.Title,
		ProjectID:       original.ProjectID,
		Blocks:          cloneBlocks(original.Blocks),
		Tags:            cloneTags(original.Tags),
		IsPublic:        false,
		CreatedBy:       actor.ID,
		CreatedUsername: actor.Username,
		SharedWith:      []string{},
		SharedOriginal:  &original.ID,
		CopiedFrom:      &original.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.noteRepo.Create(ctx, copied); err != nil {
		return nil, fmt.Errorf("failed to copy note: %w", err)
	}

	if original.CreatedBy != actor.ID {
		username := actor.Username
		if username == "" {
			username = "Someone"
		}
		s.dispatcher.Dispatch(NotificationInput{
			ActorID:     actor.ID,
			Recipients:  []string{original.CreatedBy},
			Kind:        models.KindNoteCopied,
			Title:       fmt.Sprintf("Your note %q was copied", original.Title),
			Message:     fmt.Sprintf("📋 %s copied your note %q.", username, original.Title),
			ReferenceID: copied.ID,
			URL:         noteURL(copied.ID),
		})
	}

	return visibility.Project(copied, actor.ID), nil
}

func (s *noteService) ListVisible(ctx context.Context, actor Actor) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListVisible(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

func (s *noteService) ListMine(ctx context.Context, actor Actor) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListOwned(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

func (s *noteService) ListPublic(ctx context.Context, actor Actor) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list public notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

func (s *noteService) ListCopies(ctx context.Context, actor Actor) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListCopies(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list copied notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

func (s *noteService) ListSharedWithMe(ctx context.Context, actor Actor) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListSharedWith(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

func (s *noteService) ListByProject(ctx context.Context, actor Actor, projectID string) ([]*models.NoteView, error) {
	notes, err := s.noteRepo.ListByProjectVisible(ctx, projectID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project notes: %w", err)
	}
	return visibility.ProjectAll(notes, actor.ID), nil
}

// getNote resolves a note or ErrNoteNotFound. The repository already wraps
// its errors, so they pass through unchanged.
func (s *noteService) getNote(ctx context.Context, noteID string) (*models.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// usernamesFor resolves recipient usernames for the self-ack message. Best
// effort: on lookup failure the count is used instead.
func (s *noteService) usernamesFor(ctx context.Context, userIDs []string) string {
	users, err := s.userRepo.GetByIDs(ctx, userIDs)
	if err != nil || len(users) == 0 {
		return fmt.Sprintf("%d users", len(userIDs))
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return strings.Join(names, ", ")
}

// cleanShareSet dedupes the given ids and drops the owner id and blanks,
// preserving first-seen order.
func cleanShareSet(userIDs []string, ownerID string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	clean := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || id == ownerID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	return clean
}

// diffShareSet returns the ids in candidates that are not already present.
func diffShareSet(candidates, existing []string) []string {
	current := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		current[id] = struct{}{}
	}
	added := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := current[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}

func cloneBlocks(blocks json.RawMessage) json.RawMessage {
	if len(blocks) == 0 {
		return json.RawMessage("[]")
	}
	out := make(json.RawMessage, len(blocks))
	copy(out, blocks)
	return out
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func noteURL(noteID string) string {
	return "/notes/" + noteID
}
