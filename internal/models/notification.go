package models

import "time"

// Notification kinds emitted by note mutations.
const (
	KindNoteCreated        = "note_created"
	KindNoteSharedSelf     = "note_shared_self"
	KindNoteSharedWithUser = "note_shared_with_user"
	KindNoteUpdatedSelf    = "note_updated_self"
	KindNoteUpdatedShared  = "note_updated_shared"
	KindNoteDeleted        = "note_deleted"
	KindNoteCopied         = "note_copied"
)

// Notification represents a persisted in-app notification for one user.
type Notification struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	ActorID     string     `json:"actorId"`
	Kind        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ReferenceID string     `json:"referenceId,omitempty"`
	URL         string     `json:"url,omitempty"`
	ReadAt      *time.Time `json:"readAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NotificationFilter controls notification feed pagination.
type NotificationFilter struct {
	Page       int
	PerPage    int
	UnreadOnly bool
}
