// Package index keeps scraped persons in a local SQLite database so they
// can be searched and served after a crawl has finished.
package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/mostwanted/crawl"
	"github.com/pevans/mostwanted/persons"
)

// Custom errors for index operations
var (
	ErrPersonNotFound  = errors.New("person not found")
	ErrInvalidIDScheme = errors.New("id scheme must be stable or positional")
)

// IDScheme decides how a person's document ID is derived.
type IDScheme string

const (
	// IDStable derives the ID from source code and name, so reloading a
	// result updates the same documents even when list order changes.
	IDStable IDScheme = "stable"
	// IDPositional numbers persons by their 1-based position in the result,
	// prefixed with the source code.
	IDPositional IDScheme = "positional"
)

// personNamespace seeds stable person IDs.
var personNamespace = uuid.MustParse("0b7c5a4e-3f0e-4c1f-9a57-6d2f3b8e91c4")

// ParseIDScheme converts a scheme name. The empty string means stable.
func ParseIDScheme(name string) (IDScheme, error) {
	switch IDScheme(name) {
	case "", IDStable:
		return IDStable, nil
	case IDPositional:
		return IDPositional, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidIDScheme, name)
	}
}

// PersonID returns the document ID of the person at 0-based position i of a
// result.
func PersonID(scheme IDScheme, sourceCode string, i int, p persons.Person) string {
	if scheme == IDPositional {
		return sourceCode + "-" + strconv.Itoa(i+1)
	}
	key := sourceCode + "|" + p.Firstname + "|" + p.Lastname
	return uuid.NewSHA1(personNamespace, []byte(key)).String()
}

// Store manages indexed persons and crawl runs using SQLite.
type Store struct {
	db *sql.DB
}

// Document is an indexed person.
type Document struct {
	ID         string    `json:"id"`
	SourceCode string    `json:"source_code"`
	Position   int       `json:"position"`
	IndexedAt  time.Time `json:"indexed_at"`
	persons.Person
}

// Filter represents filtering options for listing persons.
type Filter struct {
	SourceCode string // Exact source code
	Q          string // Substring of name or general description
	Limit      int
	Offset     int
}

// Run is the stored summary of one crawl.
type Run struct {
	RunID      uuid.UUID           `json:"run_id"`
	SourceCode string              `json:"source_code"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Links      int                 `json:"links"`
	Persons    int                 `json:"persons"`
	Failures   []crawl.PageFailure `json:"failures"`
	Error      string              `json:"error,omitempty"`
}

// RunFromReport summarizes a crawl report and the error Run returned with
// it. report may be nil when the crawl never started.
func RunFromReport(code string, report *crawl.Report, runErr error) Run {
	run := Run{
		RunID:      uuid.New(),
		SourceCode: code,
		Failures:   []crawl.PageFailure{},
	}

	if report != nil {
		run.StartedAt = report.StartedAt
		run.FinishedAt = report.FinishedAt
		run.Links = len(report.Links)
		run.Failures = append(run.Failures, report.Failures...)
		if report.Result != nil {
			run.SourceCode = report.Result.SourceCode
			run.Persons = report.Result.Len()
		}
	}

	if runErr != nil {
		run.Error = runErr.Error()
	}

	return run
}

// NewStore opens or creates the index database at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		position INTEGER NOT NULL,
		firstname TEXT NOT NULL,
		lastname TEXT NOT NULL,
		general TEXT NOT NULL,
		crime TEXT NOT NULL,
		about TEXT NOT NULL,
		other TEXT NOT NULL,
		indexed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_persons_source ON persons(source_code);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		links INTEGER NOT NULL,
		persons INTEGER NOT NULL,
		failures TEXT NOT NULL,
		error TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load indexes every person of result, replacing documents that already
// have the same ID. It returns the number of documents written.
func (s *Store) Load(result *persons.Result, scheme IDScheme) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO persons (
			id, source_code, position, firstname, lastname, general,
			crime, about, other, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for i, p := range result.Persons {
		groups, err := marshalGroups(p)
		if err != nil {
			return 0, err
		}

		_, err = stmt.Exec(
			PersonID(scheme, result.SourceCode, i, p),
			result.SourceCode,
			i+1,
			p.Firstname,
			p.Lastname,
			p.General,
			groups[0], groups[1], groups[2],
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to index person %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return len(result.Persons), nil
}

const documentColumns = `
	id, source_code, position, firstname, lastname, general,
	crime, about, other, indexed_at
`

// Get retrieves a person by document ID.
func (s *Store) Get(id string) (*Document, error) {
	row := s.db.QueryRow("SELECT "+documentColumns+" FROM persons WHERE id = ?", id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query person: %w", err)
	}

	return doc, nil
}

// where builds the WHERE clause for the matching part of filter. Limit and
// Offset are not part of it.
func (f Filter) where() (string, []any) {
	var whereClauses []string
	var args []any

	if f.SourceCode != "" {
		whereClauses = append(whereClauses, "source_code = ?")
		args = append(args, f.SourceCode)
	}

	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		whereClauses = append(whereClauses,
			"(lower(firstname) LIKE ? OR lower(lastname) LIKE ? OR lower(general) LIKE ?)")
		args = append(args, like, like, like)
	}

	if len(whereClauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(whereClauses, " AND "), args
}

// List returns persons matching filter, ordered by source and position.
func (s *Store) List(filter Filter) ([]Document, error) {
	where, args := filter.where()
	query := "SELECT " + documentColumns + " FROM persons" + where

	query += " ORDER BY source_code, position"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// Count returns the number of persons matching filter, ignoring its Limit
// and Offset.
func (s *Store) Count(filter Filter) (int, error) {
	where, args := filter.where()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM persons"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return n, nil
}

// RecordRun stores a crawl summary.
func (s *Store) RecordRun(run Run) error {
	failures, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (
			run_id, source_code, started_at, finished_at,
			links, persons, failures, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.SourceCode,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Links,
		run.Persons,
		string(failures),
		runErr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// ListRuns returns recorded runs, most recent first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source_code, started_at, finished_at,
		       links, persons, failures, error
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var runIDStr, startedAt, finishedAt, failures string
		var runErr sql.NullString
		var run Run

		err := rows.Scan(
			&runIDStr, &run.SourceCode, &startedAt, &finishedAt,
			&run.Links, &run.Persons, &failures, &runErr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.RunID, err = uuid.Parse(runIDStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run ID: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		run.FinishedAt = parseTime(finishedAt)
		run.Error = runErr.String

		if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failures: %w", err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var crime, about, other, indexedAt string

	err := row.Scan(
		&doc.ID, &doc.SourceCode, &doc.Position,
		&doc.Firstname, &doc.Lastname, &doc.General,
		&crime, &about, &other, &indexedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.IndexedAt = parseTime(indexedAt)

	groups := []struct {
		raw string
		dst *map[string]string
	}{
		{crime, &doc.Crime},
		{about, &doc.About},
		{other, &doc.Other},
	}
	for _, g := range groups {
		if err := json.Unmarshal([]byte(g.raw), g.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
		if *g.dst == nil {
			*g.dst = map[string]string{}
		}
	}

	return &doc, nil
}

func marshalGroups(p persons.Person) ([3]string, error) {
	var out [3]string
	for i, m := range []map[string]string{p.Crime, p.About, p.Other} {
		if m == nil {
			m = map[string]string{}
		}
		data, err := json.Marshal(m)
		if err != nil {
			return out, fmt.Errorf("failed to marshal attributes: %w", err)
		}
		out[i] = string(data)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
