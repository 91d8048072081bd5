package plugins

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/linht/bgt60/bgt60"
)

func TestPresetStoreBuiltins(t *testing.T) {
	s, err := NewPresetStore(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	list := s.List()
	if len(list) != len(bgt60.Presets) {
		t.Fatalf("got %d presets, want %d", len(list), len(bgt60.Presets))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Fatalf("list not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
	p, err := s.Get("low_framerate")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Builtin || p.Config.FIFOLimit() != 2048 {
		t.Fatalf("low_framerate = %+v", p)
	}
	if _, err := s.Get("nope"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestPresetStoreSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	s, err := NewPresetStore(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := bgt60.HighFrameratePreset()
	if err := s.Save("fast", "copy of high_framerate", cfg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "0x") {
		t.Fatalf("register list not written as hex:\n%s", data)
	}

	reloaded, err := NewPresetStore(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := reloaded.Get("fast")
	if err != nil {
		t.Fatal(err)
	}
	if p.Builtin || p.Description != "copy of high_framerate" {
		t.Fatalf("preset = %+v", p)
	}
	if p.Config.Registers != cfg.Registers {
		t.Fatal("registers changed across save and reload")
	}
	if p.Config.Shape() != cfg.Shape() || p.Config.FrameRepetitionTime != cfg.FrameRepetitionTime {
		t.Fatalf("config changed: %v", p.Config)
	}
}

func TestPresetStoreShadowsBuiltin(t *testing.T) {
	s, err := NewPresetStore(filepath.Join(t.TempDir(), "presets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("test", "tuned", bgt60.LowFrameratePreset()); err != nil {
		t.Fatal(err)
	}
	p, err := s.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if p.Builtin || p.Config.FIFOLimit() != 2048 {
		t.Fatalf("file entry does not shadow built-in: %+v", p)
	}
	// Deleting the file entry uncovers the built-in again.
	if err := s.Delete("test"); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Get("test"); !p.Builtin {
		t.Fatal("built-in not restored")
	}
}

func TestPresetStoreDelete(t *testing.T) {
	s, err := NewPresetStore(filepath.Join(t.TempDir(), "presets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("high_framerate"); err == nil || errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("deleting a built-in: %v", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestPresetStoreRejects(t *testing.T) {
	s, err := NewPresetStore(filepath.Join(t.TempDir(), "presets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "../x", "a b", strings.Repeat("a", 65)} {
		if err := s.Save(name, "", bgt60.TestPreset()); err == nil {
			t.Errorf("Save(%q) accepted", name)
		}
	}

	memory, _ := NewPresetStore("")
	if err := memory.Save("x", "", bgt60.TestPreset()); err == nil {
		t.Error("Save without a file accepted")
	}
}

func TestPresetStoreBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	bad := "presets:\n  short:\n    config:\n      rx_antennas: 1\n    registers: [0x011e8270, 0x03088210]\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPresetStore(path); err == nil {
		t.Fatal("expected error for a short register list")
	}
}

func TestPresetsPluginRoutes(t *testing.T) {
	store, err := NewPresetStore(filepath.Join(t.TempDir(), "presets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	radar := newSimRadar(t)
	p, err := NewPresetsPlugin(store, radar)
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New()
	p.RegisterRoutes(app)

	// Without a config in the body the radar's active one is saved.
	mustStatus(t, app, http.MethodPost, "/api/presets/current", `{"description":"from radar"}`, 200)
	saved, err := store.Get("current")
	if err != nil {
		t.Fatal(err)
	}
	if saved.Config.Registers != bgt60.TestPreset().Registers {
		t.Fatal("saved preset does not match the active config")
	}

	mustStatus(t, app, http.MethodGet, "/api/presets/current", "", 200)
	mustStatus(t, app, http.MethodGet, "/api/presets/missing", "", 404)
	mustStatus(t, app, http.MethodDelete, "/api/presets/test", "", 400)
	mustStatus(t, app, http.MethodDelete, "/api/presets/current", "", 200)
	mustStatus(t, app, http.MethodDelete, "/api/presets/current", "", 404)

	resp := mustStatus(t, app, http.MethodGet, "/api/presets/", "", 200)
	if !strings.Contains(string(resp.Data), "high_framerate") {
		t.Fatalf("list = %s", resp.Data)
	}
}
