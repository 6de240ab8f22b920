package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("sigma-demo")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Project.ID != "sigma-demo" {
		t.Errorf("project id %q", cfg.Project.ID)
	}
	if cfg.Demo.EventSlot == cfg.Demo.ActionSlot {
		t.Error("default slots must be distinct")
	}
	if cfg.Demo.EventIDSeed != 1000 {
		t.Errorf("event id seed %d, want 1000", cfg.Demo.EventIDSeed)
	}
	if cfg.Server.BasePath != "/v0" || !cfg.Server.AllowAnonymous {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing project id", "demo:\n  event_slot: a\n  action_slot: b\n  event_id_seed: 1"},
		{"same slots", "project:\n  id: p\ndemo:\n  event_slot: a\n  action_slot: a\n  event_id_seed: 1"},
		{"zero seed", "project:\n  id: p\ndemo:\n  event_slot: a\n  action_slot: b\n  event_id_seed: 0"},
		{"bad base path", "project:\n  id: p\ndemo:\n  event_slot: a\n  action_slot: b\n  event_id_seed: 1\nserver:\n  base_path: v0"},
		{"empty webhook url", "project:\n  id: p\ndemo:\n  event_slot: a\n  action_slot: b\n  event_id_seed: 1\nwebhooks:\n  - url: \"\""},
	}
	for _, tc := range cases {
		if _, err := FromYAML([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := LoadOptional(workspace)
	if err != nil || cfg != nil {
		t.Fatalf("missing file: cfg=%v err=%v", cfg, err)
	}

	content := "project:\n  id: demo\ndemo:\n  event_slot: ev\n  action_slot: ac\n  event_id_seed: 2000\n"
	if err := os.WriteFile(filepath.Join(workspace, "sigma.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadOptional(workspace)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Demo.EventIDSeed != 2000 || cfg.Demo.EventSlot != "ev" {
		t.Fatalf("loaded config: %+v", cfg)
	}
}
