package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS canvases (
    id         TEXT PRIMARY KEY,
    record     BLOB NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLite is a Store persisted in a single database file. Change
// notification only reaches subscribers in the same process.
type SQLite struct {
	db  *sql.DB
	hub *hub

	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, hub: newHub()}, nil
}

func (s *SQLite) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SQLite) Get(ctx context.Context, id string) (Record, error) {
	if s.isClosed() {
		return Record{}, ErrClosed
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM canvases WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return DecodeRecord(blob)
}

func (s *SQLite) Upsert(ctx context.Context, id string, rec Record) error {
	if s.isClosed() {
		return ErrClosed
	}
	blob, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO canvases (id, record, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at
    `, id, blob, rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}

	s.hub.publish(Document{ID: id, Exists: true, Record: rec})
	return nil
}

func (s *SQLite) Subscribe(ctx context.Context, id string, onSnapshot func(Document), onError func(error)) (func(), error) {
	sub := s.hub.add(id, onSnapshot, onError)
	unsubscribe := s.hub.remove(id, sub)

	sub.mu.Lock()
	rec, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		sub.mu.Unlock()
		unsubscribe()
		return nil, err
	}
	sub.deliverLocked(Document{ID: id, Exists: err == nil, Record: rec})
	sub.mu.Unlock()
	return unsubscribe, nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.failAll(ErrClosed)
	return s.db.Close()
}
