// Package dispatch maps incoming typed UI events onto interval manager
// transitions and inactivity-timer resets.
package dispatch

import (
	"time"

	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/testrun"
)

// Type enumerates the UI events the dispatcher understands.
type Type string

const (
	TypeWindowActivated   Type = "window_activated"
	TypeWindowDeactivated Type = "window_deactivated"
	TypeIDEStarted        Type = "ide_started"
	TypeIDEStopped        Type = "ide_stopped"
	TypeFocusGained       Type = "focus_gained"
	TypeFocusLost         Type = "focus_lost"
	TypeStartEdit         Type = "start_edit"
	TypeEdit              Type = "edit"
	TypeCaretMoved        Type = "caret_moved"
	TypePaint             Type = "paint"
	TypePerspective       Type = "perspective"
	TypeUserActive        Type = "user_active"
	TypeUserInactive      Type = "user_inactive"
	TypeTypingIdle        Type = "typing_idle"
	TypeReadingIdle       Type = "reading_idle"
	TypePanelShown        Type = "panel_shown"
	TypePanelHidden       Type = "panel_hidden"
	TypeDebugStarted      Type = "debug_started"
	TypeDebugEnded        Type = "debug_ended"
	TypeTestRun           Type = "test_run"
)

// Event is one timestamped UI event with its type-specific payload.
type Event struct {
	Type Type
	At   time.Time

	// Editor is the opaque editor handle for focus, caret, paint and edit
	// events. The injected EditorResolver turns it into a stable reference.
	Editor any
	// ModCount is the edit magnitude of an edit event: a lower bound on the
	// number of single-character operations it represents.
	ModCount int

	Perspective interval.Perspective

	// Project and TestRun carry a completed test execution.
	Project string
	TestRun *testrun.Node
}

// EditorResolver is the injected capability that identifies editors and
// their documents. Resolve reports false for an editor it cannot identify;
// the dispatcher then degrades per the unknown-editor policy instead of
// failing.
type EditorResolver interface {
	Resolve(handle any) (interval.EditorRef, bool)
	Document(handle any) interval.Document
}
