package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PageSize is the number of notes returned per listing page.
const PageSize = 20

// Age selects which slice of a user's notes the listing shows.
type Age string

const (
	AgeWeek     Age = "1week"
	AgeMonth    Age = "1month"
	AgeQuarter  Age = "3months"
	AgeAllTime  Age = "alltime"
	AgeArchived Age = "archive"
)

// Creation-time lower bounds per age bucket. alltime and archive have none.
var ageIntervals = map[Age]string{
	AgeWeek:    "1 week",
	AgeMonth:   "1 month",
	AgeQuarter: "3 months",
}

// ParseAge validates an age value, falling back to AgeWeek.
func ParseAge(s string) Age {
	switch a := Age(strings.TrimSpace(s)); a {
	case AgeWeek, AgeMonth, AgeQuarter, AgeAllTime, AgeArchived:
		return a
	default:
		return AgeWeek
	}
}

// MaxPage is the largest page whose offset still fits in an int.
const MaxPage = math.MaxInt/PageSize + 1

// ParsePage parses a 1-based page number. Anything unparsable or below 1 is
// page 1; larger values are capped at MaxPage.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(s), "-") {
			return MaxPage
		}
		return 1
	}
	return clampPage(n)
}

func clampPage(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxPage:
		return MaxPage
	default:
		return n
	}
}

// ListParams are the validated inputs of a notes listing.
type ListParams struct {
	Age    Age
	Search string
	Page   int
}

// NewListParams validates raw request values.
func NewListParams(age, search, page string) ListParams {
	return ListParams{
		Age:    ParseAge(age),
		Search: strings.TrimSpace(search),
		Page:   ParsePage(page),
	}
}

// Offset is the number of rows skipped before this page.
func (p ListParams) Offset() int {
	return (clampPage(p.Page) - 1) * PageSize
}

// Weighted title vector. Kept identical to the notes_title_tsv_idx expression.
const titleVector = `(
	setweight(to_tsvector('english', coalesce(title,'')), 'A') ||
	setweight(to_tsvector('russian', coalesce(title,'')), 'A') ||
	setweight(to_tsvector('simple',  coalesce(title,'')), 'B')
)`

func titleQuery(param string) string {
	return fmt.Sprintf(`(
	plainto_tsquery('english', %[1]s) ||
	plainto_tsquery('russian', %[1]s) ||
	plainto_tsquery('simple',  %[1]s)
)`, param)
}

// NoteQuery is a notes listing statement assembled from predicate clauses and
// bound parameters. User input only ever reaches the statement through args.
type NoteQuery struct {
	clauses    []string
	args       []any
	highlights string
	limit      string
	offset     string
}

// bind appends a parameter and returns its placeholder.
func (q *NoteQuery) bind(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *NoteQuery) where(clause string) {
	q.clauses = append(q.clauses, clause)
}

// BuildNoteQuery assembles the listing query for one owner.
func BuildNoteQuery(userID string, p ListParams) *NoteQuery {
	q := &NoteQuery{highlights: "NULL::text"}

	q.where("user_id = " + q.bind(userID))

	if p.Age == AgeArchived {
		q.where("is_archived = true")
	} else {
		q.where("is_archived = false")
	}

	if interval, ok := ageIntervals[p.Age]; ok {
		q.where(fmt.Sprintf("created_at >= now() - interval '%s'", interval))
	}

	if p.Search != "" {
		tsq := titleQuery(q.bind(p.Search))
		q.where(titleVector + " @@ " + tsq)
		q.highlights = fmt.Sprintf("ts_headline('simple', coalesce(title,''), %s, 'StartSel=<mark>, StopSel=</mark>')", tsq)
	}

	// One extra row tells us whether another page exists.
	q.limit = q.bind(PageSize + 1)
	q.offset = q.bind(p.Offset())
	return q
}

// SQL returns the statement text.
func (q *NoteQuery) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT id, title, created_at, is_archived, ")
	b.WriteString(q.highlights)
	b.WriteString(" AS highlights\nFROM notes\nWHERE ")
	b.WriteString(strings.Join(q.clauses, "\n  AND "))
	b.WriteString("\nORDER BY created_at DESC\nLIMIT ")
	b.WriteString(q.limit)
	b.WriteString(" OFFSET ")
	b.WriteString(q.offset)
	return b.String()
}

// Args returns the bound parameters in placeholder order.
func (q *NoteQuery) Args() []any {
	return q.args
}

// HighlightTitle wraps case-insensitive occurrences of term in <mark>. It is
// the fallback when the database produced no headline.
func HighlightTitle(title, term string) string {
	if title == "" || term == "" {
		return title
	}
	re := regexp.MustCompile("(?i)(" + regexp.QuoteMeta(term) + ")")
	return re.ReplaceAllString(title, "<mark>$1</mark>")
}
