package store

import (
	"context"
	"strings"
	"testing"

	"sigma/internal/domain"
	"sigma/internal/seed"
)

func newTestActionStore(t *testing.T) (*ActionLogStore, *MemSlots) {
	t.Helper()
	slots := NewMemSlots()
	s, err := NewActionLogStore(context.Background(), slots, "test.actions", fixedNow, seed.ActionLog)
	if err != nil {
		t.Fatalf("new action store: %v", err)
	}
	return s, slots
}

func TestActionStoreSeedsWhenEmpty(t *testing.T) {
	s, _ := newTestActionStore(t)
	if len(s.List()) != 8 {
		t.Fatalf("got %d entries, want 8 seeds", len(s.List()))
	}
}

func TestActionStoreAddPrependsAndAssignsID(t *testing.T) {
	s, _ := newTestActionStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, domain.ActionLogEntry{
		AgentID: domain.AgentHeat,
		Action:  domain.ActionNotify,
		Summary: "runtime entry",
		Result:  domain.ResultSuccess,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == "" || !strings.HasPrefix(added.ID, "act-") {
		t.Fatalf("generated id %q, want act- prefix", added.ID)
	}
	if added.TS != refTime.UnixMilli() {
		t.Errorf("ts %d, want store clock %d", added.TS, refTime.UnixMilli())
	}
	entries := s.List()
	if entries[0].ID != added.ID {
		t.Fatal("new entry must be first")
	}

	// Caller-supplied id and ts are kept as-is.
	kept, err := s.Add(ctx, domain.ActionLogEntry{ID: "act-custom", AgentID: domain.AgentAir, Action: domain.ActionComment, TS: 12345})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if kept.ID != "act-custom" || kept.TS != 12345 {
		t.Fatalf("caller id/ts not preserved: %+v", kept)
	}
}

func TestActionStorePersistsAcrossReopen(t *testing.T) {
	s, slots := newTestActionStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, domain.ActionLogEntry{AgentID: domain.AgentNoise, Action: domain.ActionEscalate, Summary: "kept"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	reopened, err := NewActionLogStore(ctx, slots, "test.actions", fixedNow, seed.ActionLog)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(reopened.List()) != 9 {
		t.Fatalf("got %d entries after reopen, want 9", len(reopened.List()))
	}
	if reopened.List()[0].Summary != "kept" {
		t.Fatal("runtime entry lost across reopen")
	}
}

func TestActionStoreReset(t *testing.T) {
	s, _ := newTestActionStore(t)
	ctx := context.Background()
	notified := 0
	s.Subscribe(func() { notified++ })
	if _, err := s.Add(ctx, domain.ActionLogEntry{AgentID: domain.AgentHeat, Action: domain.ActionNotify}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(s.List()) != 8 {
		t.Fatal("reset must restore the seed log")
	}
	if notified != 2 {
		t.Fatalf("got %d notifications, want 2", notified)
	}
}

func TestActionStoreReseedsOnMalformedSnapshot(t *testing.T) {
	slots := NewMemSlots()
	ctx := context.Background()
	if err := slots.Set(ctx, "test.actions", "[{broken"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := NewActionLogStore(ctx, slots, "test.actions", fixedNow, seed.ActionLog)
	if err != nil {
		t.Fatalf("new action store: %v", err)
	}
	if len(s.List()) != 8 {
		t.Fatal("malformed snapshot must be replaced by fresh seeds")
	}
}
