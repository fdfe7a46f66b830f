package models

import "time"

// Note is a single Markdown note. HTML is the rendered form of Text and is
// rewritten on every change to Text.
type Note struct {
	ID         string    `json:"_id"`
	UserID     string    `json:"-"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	HTML       string    `json:"html"`
	CreatedAt  time.Time `json:"created"`
	UpdatedAt  time.Time `json:"updated"`
	IsArchived bool      `json:"isArchived"`
}

// NoteSummary is a row of the notes listing. Highlights holds the title with
// matched search terms wrapped in <mark>, or nil when no search was given.
type NoteSummary struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created"`
	IsArchived bool      `json:"isArchived"`
	Highlights *string   `json:"highlights"`
}

// NoteList is one page of the notes listing.
type NoteList struct {
	Data    []NoteSummary `json:"data"`
	HasMore bool          `json:"hasMore"`
}
