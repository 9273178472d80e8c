// Package config loads and merges stint configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable stint settings.
type Config struct {
	// Inactivity windows for the interval state machine.
	ReadingTimeout time.Duration `yaml:"reading_timeout"`
	TypingTimeout  time.Duration `yaml:"typing_timeout"`
	UserTimeout    time.Duration `yaml:"user_timeout"`

	ServerURL string `yaml:"server_url"` // push/serve endpoint
	LogPath   string `yaml:"log_path"`   // override the XDG data location

	// Patterns excluded by the filesystem activity watcher.
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		ReadingTimeout: 3 * time.Second,
		TypingTimeout:  3 * time.Second,
		UserTimeout:    16 * time.Second,
		ServerURL:      "http://localhost:8720",
		IgnorePatterns: []string{},
	}
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("3s",
// "250ms") rather than raw nanosecond integers.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ReadingTimeout string   `yaml:"reading_timeout"`
		TypingTimeout  string   `yaml:"typing_timeout"`
		UserTimeout    string   `yaml:"user_timeout"`
		ServerURL      string   `yaml:"server_url"`
		LogPath        string   `yaml:"log_path"`
		IgnorePatterns []string `yaml:"ignore_patterns"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parse := func(s string, dst *time.Duration) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	if err := parse(raw.ReadingTimeout, &c.ReadingTimeout); err != nil {
		return fmt.Errorf("reading_timeout: %w", err)
	}
	if err := parse(raw.TypingTimeout, &c.TypingTimeout); err != nil {
		return fmt.Errorf("typing_timeout: %w", err)
	}
	if err := parse(raw.UserTimeout, &c.UserTimeout); err != nil {
		return fmt.Errorf("user_timeout: %w", err)
	}
	c.ServerURL = raw.ServerURL
	c.LogPath = raw.LogPath
	c.IgnorePatterns = raw.IgnorePatterns
	return nil
}

// ParseError wraps a config file syntax error with its path.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadGlobal reads ~/.config/stint/config.yaml.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "stint", "config.yaml")
	return loadFile(path, true)
}

// LoadProject reads .stintconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".stintconfig", false)
}

// loadFile reads and parses a YAML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply := func(c *Config) {
		if c == nil {
			return
		}
		if c.ReadingTimeout > 0 {
			result.ReadingTimeout = c.ReadingTimeout
		}
		if c.TypingTimeout > 0 {
			result.TypingTimeout = c.TypingTimeout
		}
		if c.UserTimeout > 0 {
			result.UserTimeout = c.UserTimeout
		}
		if c.ServerURL != "" {
			result.ServerURL = c.ServerURL
		}
		if c.LogPath != "" {
			result.LogPath = c.LogPath
		}
		if len(c.IgnorePatterns) > 0 {
			result.IgnorePatterns = c.IgnorePatterns
		}
	}
	apply(global)
	apply(project)
	return result
}
