// Package store persists closed intervals to an append-only JSON-lines log
// on disk. The log registers as a close listener on the interval manager, so
// every closed interval becomes a durable record the moment it is emitted.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/testrun"
)

// ErrNoRecords is returned by Records when no log file exists on disk.
var ErrNoRecords = errors.New("no recorded intervals")

// Record is the serialized shape of one closed interval: kind, start and end
// in epoch milliseconds, and the kind-specific payload fields.
type Record struct {
	ID          string               `json:"id"`
	Kind        interval.Kind        `json:"kind"`
	Start       int64                `json:"start"`
	End         int64                `json:"end"`
	Reason      interval.CloseReason `json:"reason,omitempty"`
	Document    *interval.Document   `json:"document,omitempty"`
	Editor      interval.EditorRef   `json:"editor,omitempty"`
	ModCount    int                  `json:"mod_count,omitempty"`
	Perspective interval.Perspective `json:"perspective,omitempty"`
	TestRun     *testrun.Execution   `json:"test_run,omitempty"`
}

// FromInterval converts a closed interval into its record shape.
func FromInterval(iv *interval.Interval, reason interval.CloseReason) Record {
	return Record{
		ID:          iv.ID,
		Kind:        iv.Kind,
		Start:       iv.Start.UnixMilli(),
		End:         iv.End.UnixMilli(),
		Reason:      reason,
		Document:    iv.Document,
		Editor:      iv.Editor,
		ModCount:    iv.ModCount,
		Perspective: iv.Perspective,
		TestRun:     iv.TestRun,
	}
}

// StartTime returns the start as a time.Time.
func (r Record) StartTime() time.Time { return time.UnixMilli(r.Start) }

// EndTime returns the end as a time.Time.
func (r Record) EndTime() time.Time { return time.UnixMilli(r.End) }

// Duration returns the recorded span length.
func (r Record) Duration() time.Duration { return r.EndTime().Sub(r.StartTime()) }

// Log is the on-disk interval log.
type Log struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewLog returns a Log in the XDG data directory.
// Path: $XDG_DATA_HOME/stint/intervals.jsonl or ~/.local/share/stint/intervals.jsonl
func NewLog(logger *slog.Logger) (*Log, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return OpenLog(filepath.Join(dir, "intervals.jsonl"), logger), nil
}

// OpenLog returns a Log at an explicit path.
func OpenLog(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, logger: logger}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// dataDir returns the stint-specific XDG data directory.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "stint"), nil
}

// Append writes one record as a JSON line. The file is opened with O_APPEND
// so concurrent appenders never interleave partial lines.
func (l *Log) Append(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode interval record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open interval log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write interval record: %w", err)
	}
	return nil
}

// Records reads the whole log in insertion order.
// Returns ErrNoRecords if the file does not exist.
func (l *Log) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecords
		}
		return nil, fmt.Errorf("failed to read interval log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			// A torn trailing line (crash mid-write) is skipped, not fatal.
			l.logger.Warn("skipping malformed interval record", "err", err)
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read interval log: %w", err)
	}
	return records, nil
}

// Clear removes the log file from disk.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete interval log: %w", err)
	}
	return nil
}

// IntervalOpened implements interval.Listener. Open intervals are not
// persisted; only the close is durable.
func (l *Log) IntervalOpened(iv *interval.Interval) {}

// IntervalClosed implements interval.Listener with a best-effort append.
// Persistence failures are logged, never propagated into event processing.
func (l *Log) IntervalClosed(iv *interval.Interval, reason interval.CloseReason) {
	if err := l.Append(FromInterval(iv, reason)); err != nil {
		l.logger.Error("failed to persist closed interval", "err", err, "kind", iv.Kind)
	}
}
