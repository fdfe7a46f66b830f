package models

// Note event actions pushed to connected dashboards.
const (
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteArchived   = "note.archived"
	EventNoteUnarchived = "note.unarchived"
	EventNoteDeleted    = "note.deleted"
	EventNotesPurged    = "notes.purged"
)

// NoteEvent describes a change to a user's notes.
type NoteEvent struct {
	Type   string `json:"type"`
	UserID string `json:"-"`
	NoteID string `json:"noteId,omitempty"`
	Title  string `json:"title,omitempty"`
	Count  int64  `json:"count,omitempty"`
}
