package engine

import (
	"context"
	"testing"
	"time"

	"sigma/internal/config"
	"sigma/internal/db"
	"sigma/internal/derive"
	"sigma/internal/domain"
	"sigma/internal/migrate"
	"sigma/internal/store"
)

var refTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewWithSlots(context.Background(), store.NewMemSlots(), config.Default("sigma-test"), func() time.Time { return refTime })
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestEngineOverSQLite(t *testing.T) {
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	cfg := config.Default("sigma-test")

	e, err := New(ctx, conn, cfg, func() time.Time { return refTime })
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := e.InjectCritical(ctx); err != nil {
		t.Fatalf("inject: %v", err)
	}

	// A second engine over the same database sees the injected event.
	e2, err := New(ctx, conn, cfg, func() time.Time { return refTime })
	if err != nil {
		t.Fatalf("second engine: %v", err)
	}
	if _, ok := e2.Events.Get(1000); !ok {
		t.Fatal("injected event not visible through a fresh engine")
	}
}

func TestInjectCriticalAllocatesSequentialIDs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.InjectCritical(ctx)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	second, err := e.InjectCritical(ctx)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if first.ID != 1000 || second.ID != 1001 {
		t.Fatalf("got ids %d, %d; want 1000, 1001", first.ID, second.ID)
	}
	if first.Msg.Level != domain.LevelCritical || first.Msg.Status != domain.StatusNew {
		t.Fatalf("unexpected injected payload: %+v", first.Msg)
	}
	agent, ok := derive.AgentForEvent(first)
	if !ok || agent != domain.AgentHeat {
		t.Fatalf("injected event classified as (%q, %v), want heat", agent, ok)
	}
	if e.Events.List(nil)[0].ID != second.ID {
		t.Fatal("latest injected event must be first in the list")
	}
}

func TestAgentsDeriveState(t *testing.T) {
	e := newTestEngine(t)
	views := e.Agents()
	if len(views) != 3 {
		t.Fatalf("got %d agents, want 3", len(views))
	}
	for _, v := range views {
		if v.State != domain.StateActive {
			t.Errorf("agent %s state %q, want active on fresh seeds", v.ID, v.State)
		}
		if v.LastEventAt == 0 {
			t.Errorf("agent %s missing last activity", v.ID)
		}
	}
}

func TestAgentsPausedState(t *testing.T) {
	e := newTestEngine(t)
	e.Control.SetPaused(domain.AgentAir, true)
	for _, v := range e.Agents() {
		want := domain.StateActive
		if v.ID == domain.AgentAir {
			want = domain.StatePaused
		}
		if v.State != want {
			t.Errorf("agent %s state %q, want %q", v.ID, v.State, want)
		}
	}
	e.Control.SetPaused(domain.AgentAir, false)
	for _, v := range e.Agents() {
		if v.State != domain.StateActive {
			t.Errorf("agent %s state %q after resume, want active", v.ID, v.State)
		}
	}
}

func TestStaleFlagTakesEffectAfterReset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.Control.SetStale(domain.AgentNoise, true)
	if err := e.Events.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, v := range e.Agents() {
		want := domain.StateActive
		if v.ID == domain.AgentNoise {
			want = domain.StateNoData
		}
		if v.State != want {
			t.Errorf("agent %s state %q, want %q", v.ID, v.State, want)
		}
	}
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.InjectCritical(ctx); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if _, err := e.Actions.Add(ctx, domain.ActionLogEntry{AgentID: domain.AgentHeat, Action: domain.ActionNotify}); err != nil {
		t.Fatalf("add action: %v", err)
	}
	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(e.Events.List(nil)) != 6 {
		t.Fatal("event store not reseeded")
	}
	if len(e.Actions.List()) != 8 {
		t.Fatal("action log not reseeded")
	}
	// The id counter is not part of store state and keeps counting.
	evt, err := e.InjectCritical(ctx)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if evt.ID != 1001 {
		t.Fatalf("post-reset injected id %d, want 1001", evt.ID)
	}
}

func TestTimeseriesFor(t *testing.T) {
	e := newTestEngine(t)
	points, ok := e.TimeseriesFor(domain.AgentHeat)
	if !ok || len(points) != 24 {
		t.Fatalf("heat series: ok=%v len=%d", ok, len(points))
	}
	if _, ok := e.TimeseriesFor("water"); ok {
		t.Fatal("unknown agent must report ok=false")
	}
}

func TestTasks(t *testing.T) {
	e := newTestEngine(t)
	tasks := e.Tasks()
	if len(tasks) != 5 {
		t.Fatalf("got %d tasks, want 5", len(tasks))
	}
}
