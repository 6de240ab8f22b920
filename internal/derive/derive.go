// Package derive holds the pure status computations layered over store
// output: event classification, closed/attention predicates and agent
// state derivation. Nothing here mutates or persists.
package derive

import (
	"strings"
	"time"

	"sigma/internal/catalog"
	"sigma/internal/domain"
)

// StalenessThreshold is how old an agent's latest activity may be before the
// agent is shown as not receiving data.
const StalenessThreshold = 15 * time.Minute

// closedMarkers are matched as lower-case substrings of an event status.
// The two localized variants come from the upstream data feeds.
var closedMarkers = []string{"closed", "resolved", "done", "устранено", "закрыто"}

// AgentForEvent classifies an event into a catalog agent by keyword
// matching over its text-bearing payload fields. Returns false when no
// keyword matches; ties break in catalog order.
func AgentForEvent(e domain.Event) (domain.AgentID, bool) {
	text := strings.ToLower(strings.Join([]string{
		e.Msg.Domain,
		e.Msg.System,
		e.Msg.Category,
		e.Msg.Type,
		e.Msg.Title,
		e.Msg.Description,
		e.Msg.Text,
		e.Msg.NetworkID,
	}, " "))
	for _, entry := range catalog.Entries() {
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				return entry.ID, true
			}
		}
	}
	return "", false
}

// FilterByAgent keeps the events classified into the given agent,
// preserving input order.
func FilterByAgent(events []domain.Event, id domain.AgentID) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if got, ok := AgentForEvent(e); ok && got == id {
			out = append(out, e)
		}
	}
	return out
}

// Closed reports whether the event's status marks it as finished. Events
// without a status are not closed.
func Closed(e domain.Event) bool {
	if e.Msg.Status == "" {
		return false
	}
	status := strings.ToLower(e.Msg.Status)
	for _, marker := range closedMarkers {
		if strings.Contains(status, marker) {
			return true
		}
	}
	return false
}

// RequiresAttention reports whether an event needs operator intervention.
// Closed events never do. An explicit flag wins; otherwise severity levels
// 1 and 2 require attention.
func RequiresAttention(e domain.Event) bool {
	if Closed(e) {
		return false
	}
	if e.Msg.RequiresAttention != nil {
		return *e.Msg.RequiresAttention
	}
	return e.Msg.Level == domain.LevelCritical || e.Msg.Level == domain.LevelWarning
}

// LastEventAt returns the most recent activity timestamp (updated_at when
// set, else created_at) across the events. ok is false for an empty set.
func LastEventAt(events []domain.Event) (ts int64, ok bool) {
	for _, e := range events {
		at := e.CreatedAt
		if e.Msg.UpdatedAt != 0 {
			at = e.Msg.UpdatedAt
		}
		if !ok || at > ts {
			ts, ok = at, true
		}
	}
	return ts, ok
}

// AgentState derives an agent's operational state from its pause flag and
// the latest activity across its scoped events. lastAt is epoch ms; hasLast
// is false when the agent has no events at all.
func AgentState(paused bool, lastAt int64, hasLast bool, now time.Time) domain.AgentState {
	if paused {
		return domain.StatePaused
	}
	if !hasLast {
		return domain.StateNoData
	}
	age := now.Sub(time.UnixMilli(lastAt))
	if age > StalenessThreshold {
		return domain.StateNoData
	}
	return domain.StateActive
}
