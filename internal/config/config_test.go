package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if cfg.Actor == "" {
		t.Error("actor default should not be empty")
	}
	if cfg.BoardsDir != "boards" {
		t.Errorf("boards_dir = %q, want boards", cfg.BoardsDir)
	}
	if cfg.DashboardPort != 8080 {
		t.Errorf("dashboard_port = %d, want 8080", cfg.DashboardPort)
	}
	if cfg.WatchDebounceMS != 250 {
		t.Errorf("watch_debounce_ms = %d, want 250", cfg.WatchDebounceMS)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `actor: sync@ci
boards_dir: tracks
dashboard_port: 9000
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Actor != "sync@ci" {
		t.Errorf("actor = %q, want sync@ci", cfg.Actor)
	}
	if cfg.BoardsDir != "tracks" {
		t.Errorf("boards_dir = %q, want tracks", cfg.BoardsDir)
	}
	if cfg.DashboardPort != 9000 {
		t.Errorf("dashboard_port = %d, want 9000", cfg.DashboardPort)
	}
	// Unset keys keep their defaults.
	if cfg.WatchDebounceMS != 250 {
		t.Errorf("watch_debounce_ms = %d, want default 250", cfg.WatchDebounceMS)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("boards_dir: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestDefaultContent_Parses(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(WritePath(dir), []byte(DefaultContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("default config content must parse: %v", err)
	}
	if cfg.BoardsDir != "boards" || cfg.DashboardPort != 8080 {
		t.Errorf("unexpected defaults from default content: %+v", cfg)
	}
}
