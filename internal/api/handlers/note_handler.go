package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/skillnotes-be/internal/auth"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/isdelr/skillnotes-be/internal/services"
	"github.com/rs/zerolog/log"
)

// NoteHandler handles HTTP requests for a user's notes.
type NoteHandler struct {
	notes   services.NoteServiceProvider
	exports services.ExportServiceProvider
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes services.NoteServiceProvider, exports services.ExportServiceProvider) *NoteHandler {
	return &NoteHandler{notes: notes, exports: exports}
}

// NotePayload defines the structure for create and update requests.
type NotePayload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CreatedNote is the response body of a create request.
type CreatedNote struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// decodeNote reads a JSON note body. An empty body is an empty note.
func decodeNote(r *http.Request) (NotePayload, error) {
	var payload NotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return NotePayload{}, err
	}
	return payload, nil
}

func userID(r *http.Request) string {
	data, _ := auth.FromContext(r.Context())
	return data.UserID
}

// List handles the filtered, paginated note listing.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := services.NewListParams(q.Get("age"), q.Get("search"), q.Get("page"))

	list, err := h.notes.ListNotes(r.Context(), userID(r), params)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID(r)).Str("age", string(params.Age)).Msg("Failed to list notes")
		writeError(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles the request to create a new note.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNote(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.notes.CreateNote(r.Context(), userID(r), payload.Title, payload.Text)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID(r)).Msg("Failed to create note")
		writeError(w, http.StatusInternalServerError, "Failed to create note")
		return
	}
	writeJSON(w, http.StatusOK, CreatedNote{ID: note.ID, Title: note.Title, Text: note.Text, HTML: note.HTML})
}

// Get handles the request to get a single note by its ID.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.notes.GetNote(r.Context(), userID(r), id)
	if err != nil {
		h.noteError(w, err, id, "Failed to get note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Update handles the request to update an existing note.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, err := decodeNote(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.notes.UpdateNote(r.Context(), userID(r), id, payload.Title, payload.Text)
	if err != nil {
		h.noteError(w, err, id, "Failed to update note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Archive moves a note to the archive.
func (h *NoteHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notes.ArchiveNote(r.Context(), userID(r), id); err != nil {
		h.noteError(w, err, id, "Failed to archive note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Unarchive restores a note from the archive.
func (h *NoteHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notes.UnarchiveNote(r.Context(), userID(r), id); err != nil {
		h.noteError(w, err, id, "Failed to unarchive note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete permanently removes an archived note.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.notes.DeleteNote(r.Context(), userID(r), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found or not archived")
		return
	}
	if err != nil {
		h.noteError(w, err, id, "Failed to delete note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DeleteArchived removes every archived note of the user.
func (h *NoteHandler) DeleteArchived(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.DeleteArchived(r.Context(), userID(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID(r)).Msg("Failed to delete archived notes")
		writeError(w, http.StatusInternalServerError, "Failed to delete archived notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// PDF streams the note rendered as a PDF attachment.
func (h *NoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	export, err := h.exports.ExportPDF(r.Context(), userID(r), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("note_id", id).Msg("Failed to export note")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	if _, err := w.Write(export.Content); err != nil {
		log.Warn().Err(err).Str("note_id", id).Msg("Failed to write PDF response")
	}
}

func (h *NoteHandler) noteError(w http.ResponseWriter, err error, id, msg string) {
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	log.Error().Err(err).Str("note_id", id).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}
