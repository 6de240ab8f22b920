package seed

import (
	"reflect"
	"testing"
	"time"

	"sigma/internal/derive"
	"sigma/internal/domain"
)

var refTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEventsDeterministic(t *testing.T) {
	opts := Options{StaleAgents: map[domain.AgentID]bool{domain.AgentAir: true}}
	first := Events(refTime, opts)
	second := Events(refTime, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same reference time and flags must produce identical events")
	}
}

func TestEventsClassifyIntoOwnDomain(t *testing.T) {
	events := Events(refTime, Options{})
	if len(events) == 0 {
		t.Fatal("no seed events")
	}
	for _, def := range eventDefs {
		var evt *domain.Event
		for i := range events {
			if events[i].ID == def.id {
				evt = &events[i]
				break
			}
		}
		if evt == nil {
			t.Fatalf("seed event %d missing", def.id)
		}
		got, ok := derive.AgentForEvent(*evt)
		if !ok || got != def.agent {
			t.Errorf("event %d classified as (%q, %v), want %q", def.id, got, ok, def.agent)
		}
	}
}

func TestEventsStaleOverride(t *testing.T) {
	events := Events(refTime, Options{StaleAgents: map[domain.AgentID]bool{domain.AgentNoise: true}})
	wantStale := refTime.Add(-(derive.StalenessThreshold + staleExtra)).UnixMilli()
	for _, e := range events {
		agent, _ := derive.AgentForEvent(e)
		if agent == domain.AgentNoise {
			if e.Msg.UpdatedAt != wantStale {
				t.Errorf("event %d: updated_at %d, want forced %d", e.ID, e.Msg.UpdatedAt, wantStale)
			}
		} else if e.Msg.UpdatedAt == wantStale {
			t.Errorf("event %d: stale override leaked to %q", e.ID, agent)
		}
	}
	// The forged timestamp must actually read as stale.
	noise := derive.FilterByAgent(events, domain.AgentNoise)
	lastAt, ok := derive.LastEventAt(noise)
	if !ok {
		t.Fatal("noise events missing")
	}
	if got := derive.AgentState(false, lastAt, true, refTime); got != domain.StateNoData {
		t.Fatalf("stale domain state %q, want no_data", got)
	}
}

func TestEventFromOverrideAbsoluteWins(t *testing.T) {
	def := EventOverride{
		ID:                1000,
		Domain:            domain.AgentHeat,
		Title:             "manual event",
		CreatedAt:         1111,
		UpdatedAt:         2222,
		CreatedMinutesAgo: 30,
		UpdatedMinutesAgo: 5,
	}
	evt := EventFromOverride(def, refTime, nil)
	if evt.CreatedAt != 1111 || evt.Msg.UpdatedAt != 2222 {
		t.Fatalf("absolute timestamps must win: got created=%d updated=%d", evt.CreatedAt, evt.Msg.UpdatedAt)
	}
}

func TestEventFromOverrideRelativeFallback(t *testing.T) {
	def := EventOverride{ID: 1001, Domain: domain.AgentAir, Title: "manual", CreatedMinutesAgo: 30, UpdatedMinutesAgo: 5}
	evt := EventFromOverride(def, refTime, nil)
	if want := refTime.Add(-30 * time.Minute).UnixMilli(); evt.CreatedAt != want {
		t.Errorf("created_at %d, want %d", evt.CreatedAt, want)
	}
	if want := refTime.Add(-5 * time.Minute).UnixMilli(); evt.Msg.UpdatedAt != want {
		t.Errorf("updated_at %d, want %d", evt.Msg.UpdatedAt, want)
	}
}

func TestCriticalHeatEvent(t *testing.T) {
	evt := EventFromOverride(CriticalHeatEvent(1000, refTime), refTime, nil)
	if evt.ID != 1000 {
		t.Errorf("id %d, want 1000", evt.ID)
	}
	if evt.Msg.Level != domain.LevelCritical {
		t.Errorf("level %d, want critical", evt.Msg.Level)
	}
	if evt.Msg.Status != domain.StatusNew {
		t.Errorf("status %q, want new", evt.Msg.Status)
	}
	if evt.CreatedAt != refTime.UnixMilli() || evt.Msg.UpdatedAt != refTime.UnixMilli() {
		t.Error("critical event must be stamped at the reference time")
	}
	agent, ok := derive.AgentForEvent(evt)
	if !ok || agent != domain.AgentHeat {
		t.Errorf("classified as (%q, %v), want heat", agent, ok)
	}
	if !derive.RequiresAttention(evt) {
		t.Error("critical event must require attention")
	}
}

func TestActionLogDeterministic(t *testing.T) {
	first := ActionLog(refTime)
	second := ActionLog(refTime)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("action log must be deterministic for a fixed reference time")
	}
	if len(first) != len(actionDefs) {
		t.Fatalf("got %d entries, want %d", len(first), len(actionDefs))
	}
}

func TestTasksOverdueDueDate(t *testing.T) {
	tasks := Tasks(refTime)
	var overdue *domain.Task
	for i := range tasks {
		if tasks[i].Status == domain.TaskOverdue {
			overdue = &tasks[i]
			break
		}
	}
	if overdue == nil {
		t.Fatal("seed tasks must include an overdue task")
	}
	if overdue.DueAt >= refTime.UnixMilli() {
		t.Fatalf("overdue task due_at %d is not in the past", overdue.DueAt)
	}
}

func TestTimeseriesShape(t *testing.T) {
	series := Timeseries(refTime)
	for _, id := range []domain.AgentID{domain.AgentHeat, domain.AgentAir, domain.AgentNoise} {
		points := series[id]
		if len(points) != seriesPoints {
			t.Fatalf("%s: %d points, want %d", id, len(points), seriesPoints)
		}
		if points[len(points)-1].TS != refTime.UnixMilli() {
			t.Errorf("%s: last point at %d, want %d", id, points[len(points)-1].TS, refTime.UnixMilli())
		}
		for i := 1; i < len(points); i++ {
			if points[i].TS-points[i-1].TS != time.Hour.Milliseconds() {
				t.Fatalf("%s: non-hourly spacing at index %d", id, i)
			}
		}
		for _, spec := range metricTables[id] {
			if _, ok := points[0].Values[spec.name]; !ok {
				t.Errorf("%s: metric %q missing", id, spec.name)
			}
		}
	}
	if !reflect.DeepEqual(series, Timeseries(refTime)) {
		t.Fatal("series must be deterministic for a fixed reference time")
	}
}
