// Package state persists what the firewall has materialised between runs.
//
// The store keeps:
//   - the running zones with their materialised targets and tables
//   - the families whose base chains are hooked into the builtin chains
//   - a bounded history of applied restore documents, keyed by a UUID
//
// Storage is SQLite through the pure-Go modernc.org/sqlite driver so the
// binary cross-compiles without CGO.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"grimm.is/zonefw/internal/clock"
)

// ErrNotFound is returned when no matching apply exists.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// RunningZone is one zone as materialised in the live ruleset.
type RunningZone struct {
	Name string
	// Flags are target names, e.g. "SRC_ACCEPT".
	Flags []string
	// Tables are "table/family" pairs, e.g. "filter/ipv4".
	Tables []string
}

// Snapshot is the complete running state.
type Snapshot struct {
	Zones     []RunningZone
	Installed []string
}

// Apply is one applied restore document.
type Apply struct {
	ID        uuid.UUID
	Family    string
	Kind      string
	Document  string
	AppliedAt time.Time
}

// SQLiteStore implements the state store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.Mutex
	closed    bool
	clock     clock.Clock
	retention int
}

// Options configures the SQLite store.
type Options struct {
	Path    string // Database file path (":memory:" for in-memory)
	WALMode bool
	// ApplyRetention is how many applies are kept per family.
	ApplyRetention int
	Clock          clock.Clock // defaults to RealClock
}

// DefaultOptions returns sensible defaults.
func DefaultOptions(path string) Options {
	return Options{
		Path:           path,
		WALMode:        true,
		ApplyRetention: 20,
	}
}

// NewSQLiteStore opens (and if needed creates) the state database.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if opts.WALMode && opts.Path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		clock:     clock.OrReal(opts.Clock),
		retention: opts.ApplyRetention,
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS running_zones (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			flags TEXT NOT NULL,
			tables TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS installed_families (
			family TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS applies (
			id TEXT PRIMARY KEY,
			family TEXT NOT NULL,
			kind TEXT NOT NULL,
			document TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_applies_family ON applies(family, applied_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRunning replaces the stored running state.
func (s *SQLiteStore) SaveRunning(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM running_zones"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM installed_families"); err != nil {
		return err
	}

	now := s.clock.Now().UTC().UnixNano()
	for i, z := range snap.Zones {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO running_zones (name, position, flags, tables, updated_at) VALUES (?, ?, ?, ?, ?)",
			z.Name, i, strings.Join(z.Flags, ","), strings.Join(z.Tables, ","), now)
		if err != nil {
			return fmt.Errorf("save zone %s: %w", z.Name, err)
		}
	}
	for _, f := range snap.Installed {
		if _, err := tx.ExecContext(ctx, "INSERT INTO installed_families (family) VALUES (?)", f); err != nil {
			return fmt.Errorf("save family %s: %w", f, err)
		}
	}

	return tx.Commit()
}

// LoadRunning returns the stored running state. An empty database yields
// an empty snapshot.
func (s *SQLiteStore) LoadRunning(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap Snapshot
	if s.closed {
		return snap, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, flags, tables FROM running_zones ORDER BY position")
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var z RunningZone
		var flags, tables string
		if err := rows.Scan(&z.Name, &flags, &tables); err != nil {
			return snap, err
		}
		z.Flags = splitList(flags)
		z.Tables = splitList(tables)
		snap.Zones = append(snap.Zones, z)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	frows, err := s.db.QueryContext(ctx, "SELECT family FROM installed_families ORDER BY family")
	if err != nil {
		return snap, err
	}
	defer frows.Close()
	for frows.Next() {
		var f string
		if err := frows.Scan(&f); err != nil {
			return snap, err
		}
		snap.Installed = append(snap.Installed, f)
	}
	return snap, frows.Err()
}

// RecordApply stores an applied document and prunes the family's history
// beyond the retention limit. A zero ID is replaced by a new UUID and a
// zero AppliedAt by the store clock.
func (s *SQLiteStore) RecordApply(ctx context.Context, a Apply) (Apply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return a, ErrClosed
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = s.clock.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO applies (id, family, kind, document, applied_at) VALUES (?, ?, ?, ?, ?)",
		a.ID.String(), a.Family, a.Kind, a.Document, a.AppliedAt.UnixNano())
	if err != nil {
		return a, fmt.Errorf("record apply: %w", err)
	}

	if s.retention > 0 {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM applies WHERE family = ? AND id NOT IN (
				SELECT id FROM applies WHERE family = ? ORDER BY applied_at DESC LIMIT ?
			)`, a.Family, a.Family, s.retention)
		if err != nil {
			return a, fmt.Errorf("prune applies: %w", err)
		}
	}
	return a, nil
}

// LastApply returns the most recent apply for a family, optionally limited
// to the given kinds.
func (s *SQLiteStore) LastApply(ctx context.Context, family string, kinds ...string) (Apply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Apply{}, ErrClosed
	}

	query := "SELECT id, family, kind, document, applied_at FROM applies WHERE family = ?"
	args := []any{family}
	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += " ORDER BY applied_at DESC LIMIT 1"

	a, err := scanApply(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Apply{}, ErrNotFound
	}
	return a, err
}

// History returns up to limit applies, newest first, without documents.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Apply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, family, kind, '', applied_at FROM applies ORDER BY applied_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Apply
	for rows.Next() {
		a, err := scanApply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApply(row scanner) (Apply, error) {
	var a Apply
	var id string
	var at int64
	if err := row.Scan(&id, &a.Family, &a.Kind, &a.Document, &at); err != nil {
		return a, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return a, fmt.Errorf("bad apply id %q: %w", id, err)
	}
	a.ID = parsed
	a.AppliedAt = time.Unix(0, at).UTC()
	return a, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
