// Package visibility is the single authority for note access decisions.
// Every query and mutation path resolves read/edit rights through it so the
// check cannot drift between endpoints.
package visibility

import (
	"notedeck/internal/models"
)

// CanEdit reports whether the viewer may mutate the note. Only the owner may
// edit, share or delete; sharing and public visibility never grant edit.
func CanEdit(note *models.Note, viewerID string) bool {
	return viewerID != "" && note.CreatedBy == viewerID
}

// CanRead reports whether the viewer may see the note: owner, public note,
// or member of the share set. There is no fourth path.
func CanRead(note *models.Note, viewerID string) bool {
	if CanEdit(note, viewerID) {
		return true
	}
	if note.IsPublic {
		return true
	}
	for _, id := range note.SharedWith {
		if id == viewerID {
			return true
		}
	}
	return false
}

// Project builds the caller-facing view of a note, annotated with the
// derived canEdit/isCopy flags.
func Project(note *models.Note, viewerID string) *models.NoteView {
	return &models.NoteView{
		Note:    *note,
		CanEdit: CanEdit(note, viewerID),
		IsCopy:  note.IsCopy(),
	}
}

// ProjectAll annotates a list of notes for the viewer, preserving order.
func ProjectAll(notes []*models.Note, viewerID string) []*models.NoteView {
	views := make([]*models.NoteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, Project(note, viewerID))
	}
	return views
}
