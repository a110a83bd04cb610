package registry

import (
	"errors"
	"testing"
)

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore()

	err := store.Set("calc", ServerConfig{Command: "deno", Args: []string{"run", "calc.ts"}})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cfg, ok := store.Get("calc")
	if !ok {
		t.Fatal("Get() returned false")
	}
	if cfg.Command != "deno" {
		t.Errorf("Command = %q, want %q", cfg.Command, "deno")
	}
}

func TestStore_SetValidation(t *testing.T) {
	store := NewStore()

	if err := store.Set("", ServerConfig{Command: "x"}); !errors.Is(err, ErrMissingName) {
		t.Errorf("Set() error = %v, want ErrMissingName", err)
	}
	if err := store.Set("calc", ServerConfig{}); !errors.Is(err, ErrMissingCommand) {
		t.Errorf("Set() error = %v, want ErrMissingCommand", err)
	}
}

func TestStore_Remove(t *testing.T) {
	store := NewStore()
	_ = store.Set("calc", ServerConfig{Command: "deno"})

	if !store.Remove("calc") {
		t.Error("Remove() = false, want true")
	}
	if store.Remove("calc") {
		t.Error("Remove() on absent name = true, want false")
	}
	if _, ok := store.Get("calc"); ok {
		t.Error("Get() after Remove() returned true")
	}
}

func TestStore_Names(t *testing.T) {
	store := NewStore()
	_ = store.Set("b", ServerConfig{Command: "x"})
	_ = store.Set("a", ServerConfig{Command: "x"})

	names := store.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	store := NewStore()
	_ = store.Set("calc", ServerConfig{Command: "deno"})

	all := store.All()
	delete(all, "calc")

	if _, ok := store.Get("calc"); !ok {
		t.Error("mutating All() result affected the store")
	}
}

func TestServerConfig_ShouldAutoConnect(t *testing.T) {
	if !(ServerConfig{}).ShouldAutoConnect() {
		t.Error("unset AutoConnect should default to true")
	}

	off := false
	if (ServerConfig{AutoConnect: &off}).ShouldAutoConnect() {
		t.Error("AutoConnect=false should disable auto-connect")
	}

	on := true
	if !(ServerConfig{AutoConnect: &on}).ShouldAutoConnect() {
		t.Error("AutoConnect=true should enable auto-connect")
	}
}
