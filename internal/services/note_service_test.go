package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = "7d3c1b8e-8f63-4c1f-9d57-1a0f5d4b2c10"
	testNoteID = "0b9f6a52-3c8e-4f7a-8a61-5e2d9c7b4f31"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NoteEvent
}

func (n *recordingNotifier) Publish(e models.NoteEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func newNoteServiceWithMock(t *testing.T) (*NoteService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	notifier := &recordingNotifier{}
	return NewNoteService(db, notifier), mock, notifier
}

var summaryColumns = []string{"id", "title", "created_at", "is_archived", "highlights"}
var noteColumns = []string{"id", "title", "text", "html", "created_at", "updated_at", "is_archived"}

func TestListNotes_DefaultPage(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(summaryColumns).
		AddRow("n-1", "First", now, false, nil).
		AddRow("n-2", nil, now.Add(-time.Hour), false, nil)
	mock.ExpectQuery(`(?s)SELECT id, title, created_at, is_archived, NULL::text AS highlights\s+FROM notes\s+WHERE user_id = \$1.*is_archived = false.*interval '1 week'.*ORDER BY created_at DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(testUserID, PageSize+1, 0).
		WillReturnRows(rows)

	got, err := svc.ListNotes(context.Background(), testUserID, NewListParams("bogus", "", ""))
	require.NoError(t, err)

	assert.False(t, got.HasMore)
	require.Len(t, got.Data, 2)
	assert.Equal(t, "First", got.Data[0].Title)
	assert.Equal(t, "", got.Data[1].Title)
	assert.Nil(t, got.Data[0].Highlights)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotes_HasMoreDropsExtraRow(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(summaryColumns)
	for i := 0; i < PageSize+1; i++ {
		rows.AddRow(fmt.Sprintf("n-%d", i), fmt.Sprintf("Note %d", i), now.Add(-time.Duration(i)*time.Minute), false, nil)
	}
	mock.ExpectQuery(`(?s)FROM notes.*LIMIT \$2 OFFSET \$3`).
		WithArgs(testUserID, PageSize+1, PageSize).
		WillReturnRows(rows)

	got, err := svc.ListNotes(context.Background(), testUserID, ListParams{Age: AgeAllTime, Page: 2})
	require.NoError(t, err)

	assert.True(t, got.HasMore)
	require.Len(t, got.Data, PageSize)
	assert.Equal(t, "n-19", got.Data[PageSize-1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotes_ExactlyOnePageHasNoMore(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	rows := sqlmock.NewRows(summaryColumns)
	for i := 0; i < PageSize; i++ {
		rows.AddRow(fmt.Sprintf("n-%d", i), "t", time.Now(), false, nil)
	}
	mock.ExpectQuery(`(?s)FROM notes`).WillReturnRows(rows)

	got, err := svc.ListNotes(context.Background(), testUserID, ListParams{Age: AgeAllTime, Page: 1})
	require.NoError(t, err)
	assert.False(t, got.HasMore)
	assert.Len(t, got.Data, PageSize)
}

func TestListNotes_SearchHighlights(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(summaryColumns).
		AddRow("n-1", "Weekly groceries", now, false, "Weekly <mark>groceries</mark>").
		AddRow("n-2", "Groceries again", now, false, nil)
	mock.ExpectQuery(`(?s)ts_headline\('simple'.*@@.*plainto_tsquery\('english', \$2\)`).
		WithArgs(testUserID, "groceries", PageSize+1, 0).
		WillReturnRows(rows)

	got, err := svc.ListNotes(context.Background(), testUserID, NewListParams("alltime", "  groceries ", "1"))
	require.NoError(t, err)
	require.Len(t, got.Data, 2)

	require.NotNil(t, got.Data[0].Highlights)
	assert.Equal(t, "Weekly <mark>groceries</mark>", *got.Data[0].Highlights)

	// No headline from the database: fall back to substring wrapping.
	require.NotNil(t, got.Data[1].Highlights)
	assert.Equal(t, "<mark>Groceries</mark> again", *got.Data[1].Highlights)
}

func TestListNotes_SearchWithoutMatchesIsEmpty(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`(?s)@@`).
		WithArgs(testUserID, "absent", PageSize+1, 0).
		WillReturnRows(sqlmock.NewRows(summaryColumns))

	got, err := svc.ListNotes(context.Background(), testUserID, NewListParams("alltime", "absent", "1"))
	require.NoError(t, err)
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.Data)
	assert.False(t, got.HasMore)
}

func TestListNotes_ArchiveFilter(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`(?s)WHERE user_id = \$1\s+AND is_archived = true\s+ORDER BY`).
		WithArgs(testUserID, PageSize+1, 0).
		WillReturnRows(sqlmock.NewRows(summaryColumns).AddRow("n-1", "old", time.Now(), true, nil))

	got, err := svc.ListNotes(context.Background(), testUserID, NewListParams("archive", "", ""))
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.True(t, got.Data[0].IsArchived)
}

func TestListNotes_DBError(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`(?s)FROM notes`).WillReturnError(errors.New("db down"))

	_, err := svc.ListNotes(context.Background(), testUserID, ListParams{Age: AgeWeek, Page: 1})
	require.Error(t, err)
	assert.Regexp(t, `list notes: .*db down`, err.Error())
}

func TestCreateNote_RendersMarkdown(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes(id, user_id, title, text, html) VALUES($1, $2, $3, $4, $5)")).
		WithArgs(sqlmock.AnyArg(), testUserID, "Hello", "**bold**", "<p><strong>bold</strong></p>\n").
		WillReturnResult(sqlmock.NewResult(0, 1))

	note, err := svc.CreateNote(context.Background(), testUserID, "Hello", "**bold**")
	require.NoError(t, err)

	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Hello", note.Title)
	assert.Contains(t, note.HTML, "<strong>bold</strong>")
	assert.Equal(t, []string{models.EventNoteCreated}, notifier.types())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNote_DBError(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(`INSERT INTO notes`).WillReturnError(errors.New("disk full"))

	_, err := svc.CreateNote(context.Background(), testUserID, "t", "x")
	require.Error(t, err)
	assert.Empty(t, notifier.types())
}

func TestGetNote_Found(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT id, title, text, html, created_at, updated_at, is_archived\s+FROM notes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(testNoteID, testUserID).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(testNoteID, "T", "txt", "<p>txt</p>", now, now, false))

	note, err := svc.GetNote(context.Background(), testUserID, testNoteID)
	require.NoError(t, err)
	assert.Equal(t, testNoteID, note.ID)
	assert.Equal(t, "<p>txt</p>", note.HTML)
	assert.Equal(t, testUserID, note.UserID)
}

func TestGetNote_NotOwned(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`FROM notes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(testNoteID, "someone-else").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetNote(context.Background(), "someone-else", testNoteID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetNote_MalformedIDSkipsDatabase(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	_, err := svc.GetNote(context.Background(), testUserID, "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNote_RegeneratesHTML(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)UPDATE notes SET title = \$1, text = \$2, html = \$3\s+WHERE id = \$4 AND user_id = \$5\s+RETURNING`).
		WithArgs("New", "*it*", "<p><em>it</em></p>\n", testNoteID, testUserID).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(testNoteID, "New", "*it*", "<p><em>it</em></p>\n", now, now, false))

	note, err := svc.UpdateNote(context.Background(), testUserID, testNoteID, "New", "*it*")
	require.NoError(t, err)
	assert.Equal(t, "<p><em>it</em></p>\n", note.HTML)
	assert.Equal(t, []string{models.EventNoteUpdated}, notifier.types())
}

func TestUpdateNote_NotFound(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectQuery(`UPDATE notes`).WillReturnError(sql.ErrNoRows)

	_, err := svc.UpdateNote(context.Background(), testUserID, testNoteID, "t", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, notifier.types())
}

func TestArchiveAndUnarchive(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET is_archived = $1 WHERE id = $2 AND user_id = $3")).
		WithArgs(true, testNoteID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET is_archived = $1 WHERE id = $2 AND user_id = $3")).
		WithArgs(false, testNoteID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.ArchiveNote(context.Background(), testUserID, testNoteID))
	require.NoError(t, svc.UnarchiveNote(context.Background(), testUserID, testNoteID))

	assert.Equal(t, []string{models.EventNoteArchived, models.EventNoteUnarchived}, notifier.types())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchive_MissingNoteIsNotAnError(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(`UPDATE notes SET is_archived`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.ArchiveNote(context.Background(), testUserID, testNoteID))
	require.NoError(t, svc.ArchiveNote(context.Background(), testUserID, "garbage"))
	assert.Empty(t, notifier.types())
}

func TestDeleteNote_Archived(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1 AND user_id = $2 AND is_archived = true RETURNING id")).
		WithArgs(testNoteID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testNoteID))

	require.NoError(t, svc.DeleteNote(context.Background(), testUserID, testNoteID))
	assert.Equal(t, []string{models.EventNoteDeleted}, notifier.types())
}

func TestDeleteNote_NotArchivedIsNotFound(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`DELETE FROM notes`).
		WithArgs(testNoteID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.DeleteNote(context.Background(), testUserID, testNoteID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteArchived_ReturnsCount(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE user_id = $1 AND is_archived = true")).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.DeleteArchived(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{models.EventNotesPurged}, notifier.types())
}

func TestDeleteArchived_NothingToDelete(t *testing.T) {
	svc, mock, notifier := newNoteServiceWithMock(t)

	mock.ExpectExec(`DELETE FROM notes`).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := svc.DeleteArchived(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.types())
}

func TestHasNotes(t *testing.T) {
	svc, mock, _ := newNoteServiceWithMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := svc.HasNotes(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestNoteService_NilNotifier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewNoteService(db, nil)

	mock.ExpectExec(`INSERT INTO notes`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = svc.CreateNote(context.Background(), testUserID, "t", "x")
	require.NoError(t, err)
}
