package models

import (
	"encoding/json"
	"time"
)

// Note represents a user-owned content record with sharing and visibility
// attributes. Blocks is the editor's opaque payload and is stored wholesale;
// its inner structure is owned by the front end.
type Note struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	ProjectID       *string         `json:"projectId"`
	Blocks          json.RawMessage `json:"blocks"`
	Tags            []string        `json:"tags"`
	IsPublic        bool            `json:"isPublic"`
	CreatedBy       string          `json:"createdBy"`
	CreatedUsername string          `json:"createdUsername"`
	SharedWith      []string        `json:"sharedWith"`
	SharedOriginal  *string         `json:"sharedOriginal"`
	CopiedFrom      *string         `json:"copiedFrom"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsCopy reports whether the note was produced by copying another note.
func (n *Note) IsCopy() bool {
	return n.SharedOriginal != nil
}

// NoteView is the note representation exposed to callers: the record plus
// derived display flags. The flags are view projections, never persisted.
type NoteView struct {
	Note
	CanEdit bool `json:"canEdit"`
	IsCopy  bool `json:"isCopy"`
}

// NoteUpdate carries the fields of an update request. Title is applied only
// when present, Blocks only when non-empty, Tags and IsPublic are replaced
// wholesale and SharedWith is merged into the existing share set.
type NoteUpdate struct {
	Title      *string
	ProjectID  *string
	Blocks     json.RawMessage
	Tags       []string
	IsPublic   bool
	SharedWith []string
}
