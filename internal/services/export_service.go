package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// PDFRenderer turns a complete HTML document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, document string) ([]byte, error)
}

// PDFExport is a rendered note ready to be sent as an attachment.
type PDFExport struct {
	Filename string
	Content  []byte
}

// ExportServiceProvider defines the interface for note export.
type ExportServiceProvider interface {
	ExportPDF(ctx context.Context, userID, id string) (PDFExport, error)
}

// ExportService renders notes to PDF.
type ExportService struct {
	notes    NoteServiceProvider
	renderer PDFRenderer
}

// NewExportService creates a new ExportService.
func NewExportService(notes NoteServiceProvider, renderer PDFRenderer) *ExportService {
	return &ExportService{notes: notes, renderer: renderer}
}

// ExportPDF renders the note id owned by userID. Notes of other users are
// reported as models.ErrNotFound.
func (s *ExportService) ExportPDF(ctx context.Context, userID, id string) (PDFExport, error) {
	note, err := s.notes.GetNote(ctx, userID, id)
	if err != nil {
		return PDFExport{}, err
	}

	content, err := s.renderer.Render(ctx, BuildDocument(note.Title, note.HTML))
	if err != nil {
		return PDFExport{}, fmt.Errorf("export note %s: %w", id, err)
	}

	return PDFExport{Filename: SafeFilename(note.Title), Content: content}, nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes text for embedding in HTML element content or attributes.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

const documentShell = `<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
  <style>
    body { font-family: Arial, sans-serif; padding: 24px; max-width: 800px; margin: auto; }
    h1 { font-size: 24px; }
    .content { margin-top: 16px; }
  </style>
</head>
<body>
  <h1>%s</h1>
  <div class="content">%s</div>
</body>
</html>
`

// BuildDocument wraps a note's rendered HTML in a printable page. The title is
// escaped; body is trusted as it comes from the Markdown renderer.
func BuildDocument(title, body string) string {
	pageTitle := title
	if pageTitle == "" {
		pageTitle = "Note"
	}
	return fmt.Sprintf(documentShell, EscapeHTML(pageTitle), EscapeHTML(title), body)
}

var unsafeFilenameChars = regexp.MustCompile(`(?i)[^a-z0-9_.\-]`)

// SafeFilename derives an attachment filename from a note title. Every
// character outside [a-z0-9_.-] becomes an underscore.
func SafeFilename(title string) string {
	if title == "" {
		title = "note"
	}
	return unsafeFilenameChars.ReplaceAllString(title, "_") + ".pdf"
}
