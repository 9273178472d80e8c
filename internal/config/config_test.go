package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/fakeyudi/stint/internal/config"
)

// chdir changes the working directory for the duration of the test, restoring
// it on cleanup (stand-in for t.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func TestLoadGlobalWithoutFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("load global: %v", err)
	}
	if !reflect.DeepEqual(*cfg, config.Defaults()) {
		t.Fatalf("config = %+v, want defaults", cfg)
	}
}

func TestLoadGlobalParsesDurations(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, ".config", "stint", "config.yaml"),
		"reading_timeout: 5s\nuser_timeout: 1m\nserver_url: http://tracker:9000\n")

	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("load global: %v", err)
	}
	if cfg.ReadingTimeout != 5*time.Second {
		t.Fatalf("reading timeout = %v", cfg.ReadingTimeout)
	}
	if cfg.UserTimeout != time.Minute {
		t.Fatalf("user timeout = %v", cfg.UserTimeout)
	}
	if cfg.TypingTimeout != 0 {
		t.Fatalf("typing timeout = %v, want unset", cfg.TypingTimeout)
	}
	if cfg.ServerURL != "http://tracker:9000" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
}

func TestLoadProjectAbsentIsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.LoadProject()
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	if cfg != nil {
		t.Fatalf("config = %+v, want nil for absent file", cfg)
	}
}

func TestLoadProjectReadsDotfile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, filepath.Join(dir, ".stintconfig"),
		"typing_timeout: 10s\nignore_patterns:\n  - vendor\n  - \"*.log\"\n")

	cfg, err := config.LoadProject()
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	if cfg.TypingTimeout != 10*time.Second {
		t.Fatalf("typing timeout = %v", cfg.TypingTimeout)
	}
	if len(cfg.IgnorePatterns) != 2 || cfg.IgnorePatterns[1] != "*.log" {
		t.Fatalf("ignore patterns = %v", cfg.IgnorePatterns)
	}
}

func TestInvalidYAMLIsParseError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, ".config", "stint", "config.yaml")
	writeConfig(t, path, "reading_timeout: [broken\n")

	_, err := config.LoadGlobal()
	var perr *config.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Path != path {
		t.Fatalf("error path = %q, want %q", perr.Path, path)
	}
}

func TestInvalidDurationIsParseError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, ".config", "stint", "config.yaml"),
		"reading_timeout: soon\n")

	_, err := config.LoadGlobal()
	var perr *config.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestMergePrecedence(t *testing.T) {
	global := &config.Config{ReadingTimeout: 5 * time.Second, ServerURL: "http://global:1"}
	project := &config.Config{ReadingTimeout: 9 * time.Second, LogPath: "/tmp/p.jsonl"}

	merged := config.Merge(global, project)

	if merged.ReadingTimeout != 9*time.Second {
		t.Fatalf("reading timeout = %v, want project value", merged.ReadingTimeout)
	}
	if merged.ServerURL != "http://global:1" {
		t.Fatalf("server url = %q, want global value", merged.ServerURL)
	}
	if merged.LogPath != "/tmp/p.jsonl" {
		t.Fatalf("log path = %q, want project value", merged.LogPath)
	}
	// Untouched keys fall through to defaults.
	if merged.UserTimeout != config.Defaults().UserTimeout {
		t.Fatalf("user timeout = %v, want default", merged.UserTimeout)
	}
}

func TestMergeNilInputsYieldDefaults(t *testing.T) {
	merged := config.Merge(nil, nil)
	if !reflect.DeepEqual(merged, config.Defaults()) {
		t.Fatalf("merged = %+v, want defaults", merged)
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
