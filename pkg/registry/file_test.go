package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_Missing(t *testing.T) {
	store, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")

	store := NewStore()
	off := false
	err := store.Set("calc", ServerConfig{
		Command:     "deno",
		Args:        []string{"run", "calc.ts"},
		Env:         map[string]string{"DENO_DIR": "/tmp/deno"},
		WorkingDir:  "/srv/calc",
		DisplayName: "Calculator",
		AutoConnect: &off,
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := store.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg, ok := loaded.Get("calc")
	if !ok {
		t.Fatal("Get() after reload returned false")
	}
	if cfg.Command != "deno" {
		t.Errorf("Command = %q, want %q", cfg.Command, "deno")
	}
	if len(cfg.Args) != 2 || cfg.Args[1] != "calc.ts" {
		t.Errorf("Args = %v", cfg.Args)
	}
	if cfg.Env["DENO_DIR"] != "/tmp/deno" {
		t.Errorf("Env = %v", cfg.Env)
	}
	if cfg.WorkingDir != "/srv/calc" {
		t.Errorf("WorkingDir = %q", cfg.WorkingDir)
	}
	if cfg.ShouldAutoConnect() {
		t.Error("AutoConnect=false was not preserved")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	if err := os.WriteFile(path, []byte("servers: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() on malformed YAML returned nil error")
	}
}

func TestLoadFile_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	data := []byte("servers:\n  calc:\n    args: [run]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() accepted a config without a command")
	}
}

func TestSaveFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "servers.yaml")

	store := NewStore()
	_ = store.Set("calc", ServerConfig{Command: "deno"})
	if err := store.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("registry file missing after save: %v", err)
	}
}
