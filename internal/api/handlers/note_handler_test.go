package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/isdelr/skillnotes-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNoteHandler_List(t *testing.T) {
	hl := "<mark>Demo</mark>"
	notes := &stubNotes{list: models.NoteList{
		Data:    []models.NoteSummary{{ID: "n1", Title: "Demo", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Highlights: &hl}},
		HasMore: true,
	}}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodGet, "/notes?age=3months&search=%20demo%20&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ListParams{Age: services.AgeQuarter, Search: "demo", Page: 2}, notes.gotParams)

	var body struct {
		Data []struct {
			ID         string  `json:"_id"`
			Title      string  `json:"title"`
			Created    string  `json:"created"`
			IsArchived bool    `json:"isArchived"`
			Highlights *string `json:"highlights"`
		} `json:"data"`
		HasMore bool `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.HasMore)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "n1", body.Data[0].ID)
	assert.Equal(t, "<mark>Demo</mark>", *body.Data[0].Highlights)
}

func TestNoteHandler_ListDefaults(t *testing.T) {
	notes := &stubNotes{list: models.NoteList{Data: []models.NoteSummary{}}}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodGet, "/notes?age=bogus&page=-3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ListParams{Age: services.AgeWeek, Page: 1}, notes.gotParams)
	assert.JSONEq(t, `{"data":[],"hasMore":false}`, rec.Body.String())
}

func TestNoteHandler_ListError(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{listErr: errors.New("db down")}, &stubExports{}))

	rec := serve(h, http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to list notes"}`, rec.Body.String())
}

func TestNoteHandler_Create(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{}, &stubExports{}))

	rec := serve(h, http.MethodPost, "/notes", `{"title":"T","text":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"_id":"n-new","title":"T","text":"x","html":"<p>x</p>\n"}`, rec.Body.String())
}

func TestNoteHandler_CreateEmptyBody(t *testing.T) {
	notes := &stubNotes{}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodPost, "/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"create"}, notes.calls)
}

func TestNoteHandler_CreateInvalidJSON(t *testing.T) {
	notes := &stubNotes{}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodPost, "/notes", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, notes.calls)
}

func TestNoteHandler_GetAndUpdateNotFound(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{err: models.ErrNotFound}, &stubExports{}))

	rec := serve(h, http.MethodGet, "/notes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = serve(h, http.MethodPut, "/notes/missing", `{"title":"a","text":"b"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoteHandler_Get(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	notes := &stubNotes{note: models.Note{ID: "n1", UserID: testUser, Title: "T", Text: "x", HTML: "<p>x</p>", CreatedAt: created, UpdatedAt: created}}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodGet, "/notes/n1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "n1", body["_id"])
	assert.Equal(t, "<p>x</p>", body["html"])
	assert.Equal(t, false, body["isArchived"])
	assert.NotContains(t, body, "userId")
}

func TestNoteHandler_Update(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{}, &stubExports{}))

	rec := serve(h, http.MethodPut, "/notes/n1", `{"title":"New","text":"body"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "New", body["title"])
	assert.Equal(t, "<p>body</p>\n", body["html"])
}

func TestNoteHandler_ArchiveUnarchive(t *testing.T) {
	notes := &stubNotes{}
	h := noteRouter(NewNoteHandler(notes, &stubExports{}))

	rec := serve(h, http.MethodPost, "/notes/n1/archive", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/notes/n1/unarchive", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	assert.Equal(t, []string{"archive", "unarchive"}, notes.calls)
}

func TestNoteHandler_Delete(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{}, &stubExports{}))
	rec := serve(h, http.MethodDelete, "/notes/n1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	h = noteRouter(NewNoteHandler(&stubNotes{err: models.ErrNotFound}, &stubExports{}))
	rec = serve(h, http.MethodDelete, "/notes/n1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found or not archived"}`, rec.Body.String())
}

func TestNoteHandler_DeleteArchived(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{deleted: 3}, &stubExports{}))

	rec := serve(h, http.MethodDelete, "/notes", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())
}

func TestNoteHandler_PDF(t *testing.T) {
	exports := &stubExports{export: services.PDFExport{Filename: "My_note.pdf", Content: []byte("%PDF-1.4")}}
	h := noteRouter(NewNoteHandler(&stubNotes{}, exports))

	rec := serve(h, http.MethodGet, "/notes/n1/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="My_note.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestNoteHandler_PDFErrors(t *testing.T) {
	h := noteRouter(NewNoteHandler(&stubNotes{}, &stubExports{err: models.ErrNotFound}))
	rec := serve(h, http.MethodGet, "/notes/n1/pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found\n", rec.Body.String())

	h = noteRouter(NewNoteHandler(&stubNotes{}, &stubExports{err: errors.New("chromium missing")}))
	rec = serve(h, http.MethodGet, "/notes/n1/pdf", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error\n", rec.Body.String())
}
