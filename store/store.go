// Package store persists named canvas snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"hcanvas/diagram"
)

// ErrNotFound is returned when no snapshot has the requested name.
var ErrNotFound = errors.New("snapshot not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	engine     TEXT NOT NULL DEFAULT '',
	nodes      INTEGER NOT NULL,
	edges      INTEGER NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON snapshots(updated_at DESC);
`

// Entry describes a stored snapshot without its payload.
type Entry struct {
	Name      string
	Engine    string // layout engine that produced the snapshot
	Nodes     int
	Edges     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SQLite is a snapshot store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*SQLite, error) {
	dsn := path
	if path != MemoryPath {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db, path: path, now: time.Now}, nil
}

// Path returns the database path the store was opened with.
func (s *SQLite) Path() string { return s.path }

// Close closes the database connection
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores data under name, replacing any snapshot with that name.
func (s *SQLite) Save(ctx context.Context, name, engine string, data *diagram.CanvasData) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("snapshot name is empty")
	}
	if data == nil {
		data = &diagram.CanvasData{Camera: diagram.DefaultCamera()}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", name, err)
	}
	now := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, engine, nodes, edges, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			engine = excluded.engine,
			nodes = excluded.nodes,
			edges = excluded.edges,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		name, engine, data.NodeCount(), len(data.OriginalEdges), string(payload), now, now)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

// Load returns the snapshot stored under name.
func (s *SQLite) Load(ctx context.Context, name string) (*diagram.CanvasData, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	var data diagram.CanvasData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return &data, nil
}

// List returns the stored snapshots, most recently updated first.
func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, engine, nodes, edges, created_at, updated_at
		FROM snapshots
		ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created, updated int64
		if err := rows.Scan(&e.Name, &e.Engine, &e.Nodes, &e.Edges, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		e.UpdatedAt = time.UnixMilli(updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the snapshot stored under name.
func (s *SQLite) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
