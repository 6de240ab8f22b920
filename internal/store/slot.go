package store

import (
	"context"
	"database/sql"
	"sync"
)

// Slot is a durable key-value cell. Values are whole JSON snapshots; every
// write replaces the previous value (last-writer-wins).
type Slot interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// DBSlots persists slots in the sigma SQLite database, one row per key.
type DBSlots struct {
	DB *sql.DB
}

func (s DBSlots) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM slots WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s DBSlots) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO slots(key,value) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// MemSlots is an in-memory Slot for tests and ephemeral runs.
type MemSlots struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemSlots() *MemSlots {
	return &MemSlots{values: map[string]string{}}
}

func (s *MemSlots) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemSlots) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
