// Package control is the demo control surface: per-domain stale and pause
// toggles feeding the generator, plus the injected-event id counter.
package control

import (
	"sync"

	"sigma/internal/domain"
)

// Surface holds the mutable demo flags. It never touches the stores
// directly; the engine reads flags from here when seeding or injecting.
type Surface struct {
	mu     sync.Mutex
	stale  map[domain.AgentID]bool
	paused map[domain.AgentID]bool
	nextID int64
}

// New returns a Surface whose injected-event ids start at idSeed.
func New(idSeed int64) *Surface {
	return &Surface{
		stale:  map[domain.AgentID]bool{},
		paused: map[domain.AgentID]bool{},
		nextID: idSeed,
	}
}

// SetStale marks a domain as simulating stale data.
func (s *Surface) SetStale(id domain.AgentID, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stale {
		s.stale[id] = true
	} else {
		delete(s.stale, id)
	}
}

// SetPaused toggles a domain's pause flag.
func (s *Surface) SetPaused(id domain.AgentID, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if paused {
		s.paused[id] = true
	} else {
		delete(s.paused, id)
	}
}

// Stale returns a copy of the stale flag set.
func (s *Surface) Stale() map[domain.AgentID]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFlags(s.stale)
}

// Paused returns a copy of the pause flag set.
func (s *Surface) Paused() map[domain.AgentID]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFlags(s.paused)
}

// NextEventID allocates the next injected-event id. Ids increase strictly
// for the lifetime of the process.
func (s *Surface) NextEventID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

func copyFlags(in map[domain.AgentID]bool) map[domain.AgentID]bool {
	out := make(map[domain.AgentID]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
