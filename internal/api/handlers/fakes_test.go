package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/skillnotes-be/internal/auth"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/isdelr/skillnotes-be/internal/services"
)

const testUser = "7d3c1b8e-8f63-4c1f-9d57-1a0f5d4b2c10"

// stubNotes records calls and returns canned results.
type stubNotes struct {
	list      models.NoteList
	listErr   error
	gotParams services.ListParams
	note      models.Note
	err       error
	deleted   int64
	calls     []string
}

func (s *stubNotes) ListNotes(_ context.Context, _ string, p services.ListParams) (models.NoteList, error) {
	s.gotParams = p
	s.calls = append(s.calls, "list")
	return s.list, s.listErr
}

func (s *stubNotes) CreateNote(_ context.Context, userID, title, text string) (models.Note, error) {
	s.calls = append(s.calls, "create")
	if s.err != nil {
		return models.Note{}, s.err
	}
	return models.Note{ID: "n-new", UserID: userID, Title: title, Text: text, HTML: "<p>" + text + "</p>\n"}, nil
}

func (s *stubNotes) GetNote(context.Context, string, string) (models.Note, error) {
	s.calls = append(s.calls, "get")
	return s.note, s.err
}

func (s *stubNotes) UpdateNote(_ context.Context, _, id, title, text string) (models.Note, error) {
	s.calls = append(s.calls, "update")
	if s.err != nil {
		return models.Note{}, s.err
	}
	return models.Note{ID: id, Title: title, Text: text, HTML: "<p>" + text + "</p>\n"}, nil
}

func (s *stubNotes) ArchiveNote(context.Context, string, string) error {
	s.calls = append(s.calls, "archive")
	return s.err
}

func (s *stubNotes) UnarchiveNote(context.Context, string, string) error {
	s.calls = append(s.calls, "unarchive")
	return s.err
}

func (s *stubNotes) DeleteNote(context.Context, string, string) error {
	s.calls = append(s.calls, "delete")
	return s.err
}

func (s *stubNotes) DeleteArchived(context.Context, string) (int64, error) {
	s.calls = append(s.calls, "deleteArchived")
	return s.deleted, s.err
}

func (s *stubNotes) HasNotes(context.Context, string) (bool, error) { return false, nil }

type stubExports struct {
	export services.PDFExport
	err    error
}

func (s *stubExports) ExportPDF(context.Context, string, string) (services.PDFExport, error) {
	return s.export, s.err
}

// stubUsers returns canned users or errors.
type stubUsers struct {
	user  models.User
	err   error
	oauth struct{ provider, externalID, username string }
}

func (s *stubUsers) GetUserByID(context.Context, string) (models.User, error) { return s.user, s.err }

func (s *stubUsers) SignUp(_ context.Context, username, password string) (models.User, error) {
	if username == "" || password == "" {
		return models.User{}, models.ErrMissingCredentials
	}
	return s.user, s.err
}

func (s *stubUsers) Authenticate(_ context.Context, username, password string) (models.User, error) {
	if username == "" || password == "" {
		return models.User{}, models.ErrMissingCredentials
	}
	return s.user, s.err
}

func (s *stubUsers) FindOrCreateOAuthUser(_ context.Context, provider, externalID, username string) (models.User, error) {
	s.oauth.provider, s.oauth.externalID, s.oauth.username = provider, externalID, username
	return s.user, s.err
}

// memStore is an in-memory sessions.Store.
type memStore struct {
	data map[string]models.SessionData
}

func newMemStore() *memStore { return &memStore{data: map[string]models.SessionData{}} }

func (s *memStore) Get(_ context.Context, sid string) (models.SessionData, error) {
	d, ok := s.data[sid]
	if !ok {
		return models.SessionData{}, models.ErrNotFound
	}
	return d, nil
}

func (s *memStore) Save(_ context.Context, sid string, data models.SessionData, _ time.Time) error {
	s.data[sid] = data
	return nil
}

func (s *memStore) Destroy(_ context.Context, sid string) error {
	delete(s.data, sid)
	return nil
}

func (s *memStore) PruneExpired(context.Context) (int64, error) { return 0, nil }

// signedIn injects a session for testUser.
func signedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithSession(r.Context(), models.SessionData{UserID: testUser, Username: "alice"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func noteRouter(h *NoteHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(signedIn)
	r.Get("/notes", h.List)
	r.Post("/notes", h.Create)
	r.Delete("/notes", h.DeleteArchived)
	r.Get("/notes/{id}", h.Get)
	r.Put("/notes/{id}", h.Update)
	r.Delete("/notes/{id}", h.Delete)
	r.Post("/notes/{id}/archive", h.Archive)
	r.Post("/notes/{id}/unarchive", h.Unarchive)
	r.Get("/notes/{id}/pdf", h.PDF)
	return r
}
