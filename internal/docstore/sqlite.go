package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HendryAvila/Receptionist/internal/knowledge"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database file name inside the data directory.
const DBFile = "receptionist.db"

// SQLiteStore keeps drafts, revisions and knowledge records in SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy io.Reader
}

// OpenSQLite opens (creating if needed) the database under dataDir, with
// WAL mode, and runs migrations.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("docstore: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("docstore: open database: %w", err)
	}
	// One connection keeps the pragmas in force and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("docstore: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS drafts (
			identity   TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS draft_revisions (
			id         TEXT PRIMARY KEY,
			identity   TEXT NOT NULL,
			fields     TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_draft_revisions_identity
			ON draft_revisions(identity, id);

		CREATE TABLE IF NOT EXISTS knowledge (
			identity   TEXT PRIMARY KEY,
			record     TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) newID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// LoadDraft returns the identity's draft document.
func (s *SQLiteStore) LoadDraft(ctx context.Context, identity string) ([]byte, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM drafts WHERE identity = ?`, identity).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("docstore: load draft: %w", err)
	}
	return []byte(doc), true, nil
}

// MergeWrite overlays fields onto the stored draft and records a revision,
// in one transaction.
func (s *SQLiteStore) MergeWrite(ctx context.Context, identity string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM drafts WHERE identity = ?`, identity).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("docstore: read draft: %w", err)
	}

	doc, keys, err := mergeDoc([]byte(existing), fields)
	if err != nil {
		return fmt.Errorf("docstore: merge draft: %w", err)
	}

	now := timeNow().UTC()
	stamp := now.Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (identity, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		identity, string(doc), stamp,
	); err != nil {
		return fmt.Errorf("docstore: write draft: %w", err)
	}

	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("docstore: encode revision: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO draft_revisions (id, identity, fields, created_at) VALUES (?, ?, ?, ?)`,
		s.newID(now), identity, string(keysJSON), stamp,
	); err != nil {
		return fmt.Errorf("docstore: write revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}
	return nil
}

// Revisions returns the identity's most recent revisions, newest first.
// A limit of zero or less means 20.
func (s *SQLiteStore) Revisions(ctx context.Context, identity string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields, created_at FROM draft_revisions
		 WHERE identity = ? ORDER BY id DESC LIMIT ?`, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("docstore: list revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			r       Revision
			fields  string
			created string
		)
		if err := rows.Scan(&r.ID, &fields, &created); err != nil {
			return nil, fmt.Errorf("docstore: scan revision: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("docstore: decode revision %s: %w", r.ID, err)
		}
		r.Identity = identity
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadKnowledge returns the identity's runtime knowledge record.
func (s *SQLiteStore) LoadKnowledge(ctx context.Context, identity string) (*knowledge.Knowledge, bool, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM knowledge WHERE identity = ?`, identity).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("docstore: load knowledge: %w", err)
	}
	var k knowledge.Knowledge
	if err := json.Unmarshal([]byte(record), &k); err != nil {
		return nil, false, fmt.Errorf("docstore: decode knowledge: %w", err)
	}
	return &k, true, nil
}

// SaveKnowledge replaces the identity's runtime knowledge record.
func (s *SQLiteStore) SaveKnowledge(ctx context.Context, identity string, k knowledge.Knowledge) error {
	record, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("docstore: encode knowledge: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge (identity, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		identity, string(record), timeNow().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("docstore: save knowledge: %w", err)
	}
	return nil
}
