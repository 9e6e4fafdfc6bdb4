package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.AppName != "draftpad" || cfg.Document != "content.draft" {
		t.Fatalf("unexpected names: %q %q", cfg.AppName, cfg.Document)
	}
	if cfg.Autosave.Interval != 500*time.Millisecond {
		t.Fatalf("got interval %v, want 500ms", cfg.Autosave.Interval)
	}
	if !cfg.Storage.Compression || cfg.Storage.Encryption {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Window.Width != DefaultWindowWidth {
		t.Fatalf("expected default width, got %d", cfg.Window.Width)
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
data_dir: ` + dir + `
document: notes.draft
autosave:
  interval: 2s
storage:
  compression: false
window:
  width: 640
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Autosave.Interval != 2*time.Second {
		t.Fatalf("got interval %v, want 2s", cfg.Autosave.Interval)
	}
	if cfg.Storage.Compression {
		t.Fatal("compression should be disabled")
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != DefaultWindowHeight {
		t.Fatalf("unexpected window %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if want := filepath.Join(dir, "draftpad", "notes.draft"); cfg.DocumentPath() != want {
		t.Fatalf("got path %q, want %q", cfg.DocumentPath(), want)
	}
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero interval": "autosave:\n  interval: 0s\n",
		"font size":     "editor:\n  font_size: 200\n",
		"nested doc":    "document: a/b.draft\n",
		"log level":     "log_level: loud\n",
		"no pw env":     "storage:\n  encryption: true\n  password_env: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadFromMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("window: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.DataDir = dir
	cfg.Autosave.Interval = 750 * time.Millisecond
	cfg.Editor.FontSize = 18
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if got.Autosave.Interval != cfg.Autosave.Interval || got.Editor.FontSize != 18 || got.DataDir != dir {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPasswordFromEnvironment(t *testing.T) {
	cfg := Default()
	cfg.Storage.Encryption = true
	cfg.Storage.PasswordEnv = "DRAFTPAD_TEST_PASSWORD"

	t.Setenv("DRAFTPAD_TEST_PASSWORD", "")
	if _, err := cfg.SaveOptions(); !errors.Is(err, ErrMissingPassword) {
		t.Fatalf("expected ErrMissingPassword, got %v", err)
	}

	t.Setenv("DRAFTPAD_TEST_PASSWORD", "hunter2")
	opts, err := cfg.SaveOptions()
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Encryption.Enabled || opts.Encryption.Password != "hunter2" {
		t.Fatalf("unexpected save options: %+v", opts)
	}
	if cfg.LoadOptions().Password != "hunter2" {
		t.Fatal("load options missing password")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/docs"); got != filepath.Join(home, "docs") {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
