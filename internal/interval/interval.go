// Package interval holds the typed activity intervals and the manager that
// maintains the open-interval slots and the closed-interval log.
package interval

import (
	"strings"
	"time"

	"github.com/fakeyudi/stint/internal/testrun"
)

// Kind is the category of an activity interval.
type Kind string

const (
	KindWindowActive Kind = "window_active"
	KindUserActive   Kind = "user_active"
	KindIDEOpen      Kind = "ide_open"
	KindViewPanel    Kind = "view_panel"
	KindDebug        Kind = "debug"
	KindPerspective  Kind = "perspective"
	KindReading      Kind = "reading"
	KindTyping       Kind = "typing"
	KindTestRun      Kind = "test_run"
)

// IsEditorKind reports whether k occupies the shared editor slot.
// Reading and Typing are mutually exclusive for a given editor focus.
func (k Kind) IsEditorKind() bool {
	return k == KindReading || k == KindTyping
}

// Perspective identifies the IDE perspective the developer works in.
type Perspective string

const (
	PerspectiveUnknown Perspective = "unknown"
	PerspectiveCode    Perspective = "code"
	PerspectiveDebug   Perspective = "debug"
	PerspectiveOther   Perspective = "other"
)

// EditorRef is the opaque identity of an open editor pane, issued by the
// editor resolver. Equality is by identity, never by content.
type EditorRef string

// DocumentCategory classifies the file attached to a Reading/Typing interval.
type DocumentCategory string

const (
	CategoryProduction DocumentCategory = "production"
	CategoryTest       DocumentCategory = "test"
	CategoryUndefined  DocumentCategory = "undefined"
)

// Document identifies the file under the editor.
type Document struct {
	Title    string           `json:"title"`
	Category DocumentCategory `json:"category"`
}

// ClassifyDocument builds a Document from a file title/path, deciding the
// category from the path convention: anything under a test directory or with
// a test-style name counts as test code.
func ClassifyDocument(title string) Document {
	cat := CategoryProduction
	lower := strings.ToLower(title)
	switch {
	case title == "":
		cat = CategoryUndefined
	case strings.Contains(lower, "test"):
		cat = CategoryTest
	}
	return Document{Title: title, Category: cat}
}

// Interval is a single typed activity span. End is the zero time while the
// interval is open; once closed the interval is immutable.
type Interval struct {
	ID    string    `json:"id"`
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`

	// Reading/Typing payload.
	Editor   EditorRef `json:"editor,omitempty"`
	Document *Document `json:"document,omitempty"`
	// ModCount is a lower-bound count of single-character edits accumulated
	// during a Typing interval. It only grows until the interval closes.
	ModCount int `json:"mod_count,omitempty"`

	// Perspective payload.
	Perspective Perspective `json:"perspective,omitempty"`

	// TestRun payload.
	TestRun *testrun.Execution `json:"test_run,omitempty"`

	closed bool
}

// Closed reports whether the interval has been closed.
func (iv *Interval) Closed() bool {
	return iv == nil || iv.closed
}

// Duration returns End-Start for a closed interval and the elapsed time
// since Start for an open one.
func (iv *Interval) Duration() time.Duration {
	if iv.closed {
		return iv.End.Sub(iv.Start)
	}
	return time.Since(iv.Start)
}

// AddModCount increases the accumulated edit magnitude of an open Typing
// interval. No-op on any other interval.
func (iv *Interval) AddModCount(n int) {
	if iv == nil || iv.closed || iv.Kind != KindTyping || n <= 0 {
		return
	}
	iv.ModCount += n
}
