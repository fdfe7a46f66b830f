package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/skillnotes-be/internal/markdown"
	"github.com/isdelr/skillnotes-be/internal/models"
)

// NoteServiceProvider defines the interface for note services.
type NoteServiceProvider interface {
	ListNotes(ctx context.Context, userID string, params ListParams) (models.NoteList, error)
	CreateNote(ctx context.Context, userID, title, text string) (models.Note, error)
	GetNote(ctx context.Context, userID, id string) (models.Note, error)
	UpdateNote(ctx context.Context, userID, id, title, text string) (models.Note, error)
	ArchiveNote(ctx context.Context, userID, id string) error
	UnarchiveNote(ctx context.Context, userID, id string) error
	DeleteNote(ctx context.Context, userID, id string) error
	DeleteArchived(ctx context.Context, userID string) (int64, error)
	HasNotes(ctx context.Context, userID string) (bool, error)
}

// NoteNotifier receives note change events.
type NoteNotifier interface {
	Publish(event models.NoteEvent)
}

// NoteService provides business logic for note management.
type NoteService struct {
	db       *sql.DB
	notifier NoteNotifier
}

// NewNoteService creates a new NoteService. notifier may be nil.
func NewNoteService(db *sql.DB, notifier NoteNotifier) *NoteService {
	return &NoteService{db: db, notifier: notifier}
}

// ListNotes returns one page of the owner's notes matching params.
func (s *NoteService) ListNotes(ctx context.Context, userID string, params ListParams) (models.NoteList, error) {
	q := BuildNoteQuery(userID, params)

	rows, err := s.db.QueryContext(ctx, q.SQL(), q.Args()...)
	if err != nil {
		return models.NoteList{}, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.NoteSummary, 0, PageSize+1)
	for rows.Next() {
		var n models.NoteSummary
		var title, highlights sql.NullString
		if err := rows.Scan(&n.ID, &title, &n.CreatedAt, &n.IsArchived, &highlights); err != nil {
			return models.NoteList{}, fmt.Errorf("scan note: %w", err)
		}
		n.Title = title.String

		if highlights.Valid && highlights.String != "" {
			h := highlights.String
			n.Highlights = &h
		} else if params.Search != "" {
			h := HighlightTitle(n.Title, params.Search)
			n.Highlights = &h
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return models.NoteList{}, fmt.Errorf("list notes: %w", err)
	}

	hasMore := len(notes) > PageSize
	if hasMore {
		notes = notes[:PageSize]
	}
	return models.NoteList{Data: notes, HasMore: hasMore}, nil
}

// CreateNote stores a new note with freshly rendered HTML.
func (s *NoteService) CreateNote(ctx context.Context, userID, title, text string) (models.Note, error) {
	html, err := markdown.Render(text)
	if err != nil {
		return models.Note{}, fmt.Errorf("render markdown: %w", err)
	}

	note := models.Note{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  title,
		Text:   text,
		HTML:   html,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO notes(id, user_id, title, text, html) VALUES($1, $2, $3, $4, $5)",
		note.ID, note.UserID, note.Title, note.Text, note.HTML)
	if err != nil {
		return models.Note{}, fmt.Errorf("insert note: %w", err)
	}

	s.publish(models.NoteEvent{Type: models.EventNoteCreated, UserID: userID, NoteID: note.ID, Title: note.Title})
	return note, nil
}

// GetNote retrieves a single note owned by userID.
func (s *NoteService) GetNote(ctx context.Context, userID, id string) (models.Note, error) {
	if !validID(id) {
		return models.Note{}, models.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT id, title, text, html, created_at, updated_at, is_archived
	FROM notes WHERE id = $1 AND user_id = $2`, id, userID)

	note, err := scanNote(row)
	if err != nil {
		return models.Note{}, err
	}
	note.UserID = userID
	return note, nil
}

// UpdateNote replaces the title and text of a note and re-renders its HTML.
// Concurrent updates are last-writer-wins.
func (s *NoteService) UpdateNote(ctx context.Context, userID, id, title, text string) (models.Note, error) {
	if !validID(id) {
		return models.Note{}, models.ErrNotFound
	}

	html, err := markdown.Render(text)
	if err != nil {
		return models.Note{}, fmt.Errorf("render markdown: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
	UPDATE notes SET title = $1, text = $2, html = $3
	WHERE id = $4 AND user_id = $5
	RETURNING id, title, text, html, created_at, updated_at, is_archived`,
		title, text, html, id, userID)

	note, err := scanNote(row)
	if err != nil {
		return models.Note{}, err
	}
	note.UserID = userID

	s.publish(models.NoteEvent{Type: models.EventNoteUpdated, UserID: userID, NoteID: note.ID, Title: note.Title})
	return note, nil
}

// ArchiveNote moves a note to the archive. Archiving a missing note is not an error.
func (s *NoteService) ArchiveNote(ctx context.Context, userID, id string) error {
	return s.setArchived(ctx, userID, id, true)
}

// UnarchiveNote returns a note from the archive. Unarchiving a missing note is not an error.
func (s *NoteService) UnarchiveNote(ctx context.Context, userID, id string) error {
	return s.setArchived(ctx, userID, id, false)
}

func (s *NoteService) setArchived(ctx context.Context, userID, id string, archived bool) error {
	if !validID(id) {
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET is_archived = $1 WHERE id = $2 AND user_id = $3",
		archived, id, userID)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		eventType := models.EventNoteUnarchived
		if archived {
			eventType = models.EventNoteArchived
		}
		s.publish(models.NoteEvent{Type: eventType, UserID: userID, NoteID: id})
	}
	return nil
}

// DeleteNote permanently removes an archived note. Notes that are not archived
// are reported as not found.
func (s *NoteService) DeleteNote(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return models.ErrNotFound
	}

	var deletedID string
	err := s.db.QueryRowContext(ctx,
		"DELETE FROM notes WHERE id = $1 AND user_id = $2 AND is_archived = true RETURNING id",
		id, userID).Scan(&deletedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}

	s.publish(models.NoteEvent{Type: models.EventNoteDeleted, UserID: userID, NoteID: deletedID})
	return nil
}

// DeleteArchived removes every archived note of the user and returns how many were deleted.
func (s *NoteService) DeleteArchived(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE user_id = $1 AND is_archived = true", userID)
	if err != nil {
		return 0, fmt.Errorf("delete archived notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete archived notes: %w", err)
	}

	if n > 0 {
		s.publish(models.NoteEvent{Type: models.EventNotesPurged, UserID: userID, Count: n})
	}
	return n, nil
}

// HasNotes reports whether the user owns at least one note.
func (s *NoteService) HasNotes(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM notes WHERE user_id = $1)", userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notes: %w", err)
	}
	return exists, nil
}

func (s *NoteService) publish(event models.NoteEvent) {
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

// scanNote is a helper function to scan a single row into a Note struct.
func scanNote(scanner interface{ Scan(...any) error }) (models.Note, error) {
	var note models.Note
	var title, text, html sql.NullString
	err := scanner.Scan(&note.ID, &title, &text, &html, &note.CreatedAt, &note.UpdatedAt, &note.IsArchived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, models.ErrNotFound
		}
		return models.Note{}, fmt.Errorf("scan note: %w", err)
	}
	note.Title = title.String
	note.Text = text.String
	note.HTML = html.String
	return note, nil
}

// Note ids are UUIDs; anything else cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
