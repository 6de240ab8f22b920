package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"sigma/internal/domain"
	"sigma/internal/seed"
)

// SeedActionsFunc reseeds the action log from a reference time.
type SeedActionsFunc func(now time.Time) []domain.ActionLogEntry

// ActionLogStore is the append-only record of agent actions. Same
// persistence and subscription shape as EventStore, minus updates.
type ActionLogStore struct {
	mu      sync.Mutex
	slots   Slot
	key     string
	now     func() time.Time
	seed    SeedActionsFunc
	entries []domain.ActionLogEntry
	subs    map[int]func()
	nextSub int
}

// NewActionLogStore loads the prior snapshot, reseeding on absent or
// malformed data.
func NewActionLogStore(ctx context.Context, slots Slot, key string, now func() time.Time, seedFn SeedActionsFunc) (*ActionLogStore, error) {
	if now == nil {
		now = time.Now
	}
	s := &ActionLogStore{
		slots: slots,
		key:   key,
		now:   now,
		seed:  seedFn,
		subs:  map[int]func(){},
	}
	raw, ok, err := slots.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if entries, valid := decodeActions(raw, ok); valid {
		s.entries = entries
		return s, nil
	}
	s.entries = seedFn(now())
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeActions(raw string, present bool) ([]domain.ActionLogEntry, bool) {
	if !present {
		return nil, false
	}
	var entries []domain.ActionLogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// List returns the full log, most recent first.
func (s *ActionLogStore) List() []domain.ActionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ActionLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Add prepends an entry. When the entry carries no id a time-based one with
// a random suffix is assigned.
func (s *ActionLogStore) Add(ctx context.Context, entry domain.ActionLogEntry) (domain.ActionLogEntry, error) {
	s.mu.Lock()
	if entry.ID == "" {
		entry.ID = seed.NextActionID(s.now(), uuid.NewString()[:8])
	}
	if entry.TS == 0 {
		entry.TS = s.now().UnixMilli()
	}
	s.entries = append([]domain.ActionLogEntry{entry}, s.entries...)
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return domain.ActionLogEntry{}, err
	}
	s.notify()
	return entry, nil
}

// Subscribe registers a listener invoked after every successful mutation.
func (s *ActionLogStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Reset reseeds the fixed action list keyed off the current clock.
func (s *ActionLogStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.entries = s.seed(s.now())
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *ActionLogStore) persist(ctx context.Context) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	return s.slots.Set(ctx, s.key, string(data))
}

func (s *ActionLogStore) notify() {
	s.mu.Lock()
	listeners := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
