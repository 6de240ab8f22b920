package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"sigma/internal/derive"
	"sigma/internal/domain"
	"sigma/internal/seed"
)

var ErrNotFound = errors.New("not found")

// EventFilter narrows List output. All supplied predicates must hold.
type EventFilter struct {
	AgentID           domain.AgentID
	Status            []string
	RequiresAttention *bool
}

// SeedEventsFunc reseeds the store from a reference time.
type SeedEventsFunc func(now time.Time) []domain.Event

// EventStore is the single source of truth for events. Mutations persist
// the whole snapshot to the slot and then notify subscribers synchronously.
type EventStore struct {
	mu      sync.Mutex
	slots   Slot
	key     string
	now     func() time.Time
	seed    SeedEventsFunc
	events  []domain.Event
	subs    map[int]func()
	nextSub int
}

// NewEventStore loads the prior snapshot from the slot, reseeding when the
// value is absent or unparsable.
func NewEventStore(ctx context.Context, slots Slot, key string, now func() time.Time, seedFn SeedEventsFunc) (*EventStore, error) {
	if now == nil {
		now = time.Now
	}
	s := &EventStore{
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
	if events, valid := decodeEvents(raw, ok); valid {
		s.events = events
		return s, nil
	}
	s.events = seedFn(now())
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeEvents parses a persisted snapshot. A missing or malformed value
// reports valid=false so the caller reseeds instead of failing; silent
// recovery is the contract for persisted demo state.
func decodeEvents(raw string, present bool) ([]domain.Event, bool) {
	if !present {
		return nil, false
	}
	var events []domain.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, false
	}
	return events, true
}

// List returns all events, or the subset matching every supplied predicate.
// Order is store order: most recently added first.
func (s *EventStore) List(f *EventFilter) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		if f != nil && !matchEvent(e, f) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchEvent(e domain.Event, f *EventFilter) bool {
	if f.AgentID != "" {
		got, ok := derive.AgentForEvent(e)
		if !ok || got != f.AgentID {
			return false
		}
	}
	if len(f.Status) > 0 {
		found := false
		for _, st := range f.Status {
			if e.Msg.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RequiresAttention != nil && derive.RequiresAttention(e) != *f.RequiresAttention {
		return false
	}
	return true
}

// Get looks up an event by id.
func (s *EventStore) Get(id int64) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}

// Update merges a patch into the event with the given id. Returns
// ErrNotFound without persisting or notifying when the id is unknown.
func (s *EventStore) Update(ctx context.Context, id int64, patch domain.EventPatch) (domain.Event, error) {
	s.mu.Lock()
	var updated domain.Event
	idx := -1
	for i := range s.events {
		if s.events[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.Event{}, ErrNotFound
	}
	patch.Apply(&s.events[idx])
	updated = s.events[idx]
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return domain.Event{}, err
	}
	s.notify()
	return updated, nil
}

// Add prepends a fully-formed event, keeping newest-first order for fresh
// additions.
func (s *EventStore) Add(ctx context.Context, e domain.Event) error {
	s.mu.Lock()
	s.events = append([]domain.Event{e}, s.events...)
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// AddFromOverride resolves a loose definition against the current clock and
// adds the result.
func (s *EventStore) AddFromOverride(ctx context.Context, def seed.EventOverride, stale map[domain.AgentID]bool) (domain.Event, error) {
	e := seed.EventFromOverride(def, s.now(), stale)
	if err := s.Add(ctx, e); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

// CloseRequest carries closure metadata for Close.
type CloseRequest struct {
	Status   string `json:"status,omitempty" enum:"resolved,closed"`
	Comment  string `json:"comment,omitempty"`
	Reason   string `json:"reason,omitempty"`
	ClosedBy string `json:"closed_by,omitempty"`
}

// Close transitions an event to resolved or closed and stamps closure
// metadata plus a fresh updated_at. Returns ErrNotFound for unknown ids.
func (s *EventStore) Close(ctx context.Context, id int64, req CloseRequest) (domain.Event, error) {
	status := req.Status
	if status == "" {
		status = domain.StatusResolved
	}
	now := s.now().UnixMilli()
	patch := domain.EventPatch{Msg: &domain.PayloadPatch{
		Status:    &status,
		UpdatedAt: &now,
		ClosedAt:  &now,
	}}
	if req.ClosedBy != "" {
		patch.Msg.ClosedBy = &req.ClosedBy
	}
	if req.Comment != "" {
		patch.Msg.CloseComment = &req.Comment
	}
	if req.Reason != "" {
		patch.Msg.CloseReason = &req.Reason
	}
	return s.Update(ctx, id, patch)
}

// Subscribe registers a listener invoked after every successful mutation.
// No payload is passed; subscribers re-read state. The returned function
// removes the listener.
func (s *EventStore) Subscribe(fn func()) func() {
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

// Reset discards current state and reseeds from the generator at the
// current clock.
func (s *EventStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.events = s.seed(s.now())
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *EventStore) persist(ctx context.Context) error {
	data, err := json.Marshal(s.events)
	if err != nil {
		return err
	}
	return s.slots.Set(ctx, s.key, string(data))
}

func (s *EventStore) notify() {
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
