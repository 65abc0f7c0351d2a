package registry

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/railkit/stationcode/pkg/code"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Registry persisted in a SQLite database. Codes written by
// earlier runs stay reserved, so re-running over a grown station list keeps
// every published code stable.
type SQLite struct {
	db    *sql.DB
	path  string
	runID string
}

var _ Registry = (*SQLite)(nil)

// NewSQLite creates an unopened SQLite registry.
func NewSQLite() *SQLite {
	return &SQLite{}
}

// Open connects to the database at path, creates the schema and starts a
// new run. Use ":memory:" for a throwaway database.
func (s *SQLite) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	} else {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and writes ordered
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	runID := uuid.New().String()
	if _, err := db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, runID, time.Now().UTC()); err != nil {
		db.Close()
		return fmt.Errorf("failed to record run: %w", err)
	}

	s.db, s.path, s.runID = db, path, runID
	log.Debug("registry opened", "path", path, "run", runID)
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunID identifies the run this registry session writes under.
func (s *SQLite) RunID() string {
	return s.runID
}

func (s *SQLite) Contains(c code.Code) (bool, error) {
	if s.db == nil {
		return false, ErrNotOpen
	}
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM codes WHERE code = ?`, string(c)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up code %s: %w", c, err)
	}
	return true, nil
}

func (s *SQLite) Insert(c code.Code, sourceID string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %q", code.ErrInvalidCode, string(c))
	}
	if owner, ok, err := s.SourceOf(c); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s belongs to %s", ErrCodeTaken, c, owner)
	}
	if held, ok, err := s.CodeOf(sourceID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s holds %s", ErrSourceAssigned, sourceID, held)
	}

	_, err := s.db.Exec(
		`INSERT INTO codes (code, source_id, encoded, run_id) VALUES (?, ?, ?, ?)`,
		string(c), sourceID, int(c.Encode()), s.runID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: %s", ErrCodeTaken, c)
		}
		return fmt.Errorf("failed to insert code %s: %w", c, err)
	}
	return nil
}

func (s *SQLite) SourceOf(c code.Code) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrNotOpen
	}
	var src string
	err := s.db.QueryRow(`SELECT source_id FROM codes WHERE code = ?`, string(c)).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up code %s: %w", c, err)
	}
	return src, true, nil
}

func (s *SQLite) CodeOf(sourceID string) (code.Code, bool, error) {
	if s.db == nil {
		return "", false, ErrNotOpen
	}
	var c string
	err := s.db.QueryRow(`SELECT code FROM codes WHERE source_id = ?`, sourceID).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up source %s: %w", sourceID, err)
	}
	return code.Code(c), true, nil
}

func (s *SQLite) Entries() ([]Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.Query(`SELECT code, source_id FROM codes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var c, src string
		if err := rows.Scan(&c, &src); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		out = append(out, Entry{Code: code.Code(c), SourceID: src})
	}
	return out, rows.Err()
}

func (s *SQLite) Len() (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM codes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count codes: %w", err)
	}
	return n, nil
}

// RunCount returns how many runs have written to this database.
func (s *SQLite) RunCount() (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
