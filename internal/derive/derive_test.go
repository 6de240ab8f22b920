package derive

import (
	"testing"
	"time"

	"sigma/internal/domain"
)

func eventWithStatus(status string) domain.Event {
	return domain.Event{ID: 1, Msg: domain.EventPayload{Status: status}}
}

func TestClosedStatusMarkers(t *testing.T) {
	closed := []string{"closed", "resolved", "done", "устранено", "закрыто", "RESOLVED", "auto-closed"}
	for _, status := range closed {
		if !Closed(eventWithStatus(status)) {
			t.Errorf("status %q: expected closed", status)
		}
	}
	open := []string{"", "new", "in_progress", "pending"}
	for _, status := range open {
		if Closed(eventWithStatus(status)) {
			t.Errorf("status %q: expected open", status)
		}
	}
}

func TestRequiresAttention(t *testing.T) {
	yes := true
	no := false
	cases := []struct {
		name string
		evt  domain.Event
		want bool
	}{
		{"critical level", domain.Event{Msg: domain.EventPayload{Level: domain.LevelCritical, Status: domain.StatusNew}}, true},
		{"warning level", domain.Event{Msg: domain.EventPayload{Level: domain.LevelWarning, Status: domain.StatusInProgress}}, true},
		{"info level", domain.Event{Msg: domain.EventPayload{Level: domain.LevelInfo, Status: domain.StatusNew}}, false},
		{"explicit flag beats level", domain.Event{Msg: domain.EventPayload{Level: domain.LevelInfo, Status: domain.StatusNew, RequiresAttention: &yes}}, true},
		{"explicit false beats level", domain.Event{Msg: domain.EventPayload{Level: domain.LevelCritical, Status: domain.StatusNew, RequiresAttention: &no}}, false},
		{"closed never needs attention", domain.Event{Msg: domain.EventPayload{Level: domain.LevelCritical, Status: domain.StatusResolved, RequiresAttention: &yes}}, false},
		{"no level no flag", domain.Event{Msg: domain.EventPayload{Status: domain.StatusNew}}, false},
	}
	for _, tc := range cases {
		if got := RequiresAttention(tc.evt); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAgentForEventKeywordMatch(t *testing.T) {
	cases := []struct {
		name  string
		evt   domain.Event
		want  domain.AgentID
		found bool
	}{
		{"domain field", domain.Event{Msg: domain.EventPayload{Domain: "heat"}}, domain.AgentHeat, true},
		{"title keyword", domain.Event{Msg: domain.EventPayload{Title: "Boiler plant deviation"}}, domain.AgentHeat, true},
		{"description keyword", domain.Event{Msg: domain.EventPayload{Description: "PM2.5 above daily limit"}}, domain.AgentAir, true},
		{"free text keyword", domain.Event{Msg: domain.EventPayload{Text: "58 dBA measured at night"}}, domain.AgentNoise, true},
		{"case-insensitive", domain.Event{Msg: domain.EventPayload{Title: "NOISE exceedance"}}, domain.AgentNoise, true},
		{"no keyword", domain.Event{Msg: domain.EventPayload{Title: "Water pipe burst"}}, "", false},
		{"empty payload", domain.Event{}, "", false},
	}
	for _, tc := range cases {
		got, ok := AgentForEvent(tc.evt)
		if ok != tc.found || got != tc.want {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.found)
		}
	}
}

func TestAgentForEventCatalogOrderBreaksTies(t *testing.T) {
	// Text matches both heat and air keywords; heat comes first in the
	// catalog and must win.
	evt := domain.Event{Msg: domain.EventPayload{Title: "Heating plant smog output above limit"}}
	got, ok := AgentForEvent(evt)
	if !ok || got != domain.AgentHeat {
		t.Fatalf("got (%q, %v), want (heat, true)", got, ok)
	}
}

func TestFilterByAgent(t *testing.T) {
	events := []domain.Event{
		{ID: 1, Msg: domain.EventPayload{Domain: "heat"}},
		{ID: 2, Msg: domain.EventPayload{Domain: "air"}},
		{ID: 3, Msg: domain.EventPayload{Title: "boiler leak"}},
		{ID: 4, Msg: domain.EventPayload{Title: "unclassifiable"}},
	}
	got := FilterByAgent(events, domain.AgentHeat)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}

func TestLastEventAt(t *testing.T) {
	if _, ok := LastEventAt(nil); ok {
		t.Fatal("empty set should report no activity")
	}
	events := []domain.Event{
		{ID: 1, CreatedAt: 100},
		{ID: 2, CreatedAt: 50, Msg: domain.EventPayload{UpdatedAt: 300}},
		{ID: 3, CreatedAt: 200},
	}
	ts, ok := LastEventAt(events)
	if !ok || ts != 300 {
		t.Fatalf("got (%d, %v), want (300, true)", ts, ok)
	}
}

func TestAgentState(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-5 * time.Minute).UnixMilli()
	old := now.Add(-StalenessThreshold - time.Minute).UnixMilli()

	if got := AgentState(true, fresh, true, now); got != domain.StatePaused {
		t.Errorf("paused wins: got %q", got)
	}
	if got := AgentState(false, 0, false, now); got != domain.StateNoData {
		t.Errorf("no events: got %q", got)
	}
	if got := AgentState(false, old, true, now); got != domain.StateNoData {
		t.Errorf("stale activity: got %q", got)
	}
	if got := AgentState(false, fresh, true, now); got != domain.StateActive {
		t.Errorf("fresh activity: got %q", got)
	}
}
