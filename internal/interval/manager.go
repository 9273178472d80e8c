package interval

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrIntervalOpen is returned by Add when an interval of the same singleton
// kind (or the shared editor slot) is already open. The caller must close
// the open interval first; prior state is left intact.
var ErrIntervalOpen = errors.New("interval of this kind already open")

// CloseReason says why an interval was closed, published with every close
// notification.
type CloseReason string

const (
	ReasonEvent    CloseReason = "event"    // an authoritative UI event
	ReasonTimeout  CloseReason = "timeout"  // an inactivity countdown elapsed
	ReasonShutdown CloseReason = "shutdown" // the tracker is stopping
	ReasonComplete CloseReason = "complete" // duration was known upfront
)

// Listener observes interval lifecycle transitions. Closed intervals are
// handed out as read-only facts and must not be mutated.
type Listener interface {
	IntervalOpened(iv *Interval)
	IntervalClosed(iv *Interval, reason CloseReason)
}

// Manager owns the open-interval slots (at most one per singleton kind, one
// shared slot for Reading/Typing) and the append-only log of closed
// intervals. All mutations are serialized through a single mutex; reads
// observe a consistent snapshot.
type Manager struct {
	mu        sync.Mutex
	current   map[Kind]*Interval
	editor    *Interval // shared Reading/Typing slot
	recorded  []*Interval
	listeners []Listener
	logger    *slog.Logger
}

// NewManager creates an empty Manager. A nil logger falls back to the
// default slog logger.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		current: make(map[Kind]*Interval),
		logger:  logger,
	}
}

// AddListener registers an observer for open/close notifications.
// Listeners are invoked outside the manager lock, in registration order.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// NewInterval creates an open interval of the given kind starting at start.
func NewInterval(kind Kind, start time.Time) *Interval {
	return &Interval{ID: uuid.New().String(), Kind: kind, Start: start}
}

// Add records iv as the current open interval of its kind. It fails with
// ErrIntervalOpen if the slot is already occupied by an open interval; the
// offending add is rejected and prior state is untouched.
func (m *Manager) Add(iv *Interval) error {
	m.mu.Lock()
	if open := m.slotLocked(iv.Kind); !open.Closed() {
		m.mu.Unlock()
		m.logger.Warn("rejected interval open, slot occupied",
			"kind", iv.Kind, "open_since", open.Start)
		return ErrIntervalOpen
	}
	if iv.Kind.IsEditorKind() {
		m.editor = iv
	} else {
		m.current[iv.Kind] = iv
	}
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.IntervalOpened(iv)
	}
	return nil
}

// AddClosed appends an interval whose duration was known upfront (test
// runs) straight to the closed log, bypassing the open slots.
func (m *Manager) AddClosed(iv *Interval) {
	iv.closed = true
	if iv.End.Before(iv.Start) {
		iv.End = iv.Start
	}
	m.mu.Lock()
	m.recorded = append(m.recorded, iv)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.IntervalClosed(iv, ReasonComplete)
	}
}

// Close sets the end timestamp of iv, moves it from its current slot to the
// closed log, and returns it. It is a no-op on a nil or already-closed
// interval, so duplicate or racing close events resolve silently. A close
// timestamp before the interval's start is clamped to the start and logged.
func (m *Manager) Close(iv *Interval, at time.Time, reason CloseReason) *Interval {
	if iv.Closed() {
		return nil
	}

	m.mu.Lock()
	if iv.closed { // re-check under the lock
		m.mu.Unlock()
		return nil
	}
	if at.Before(iv.Start) {
		m.logger.Warn("close timestamp precedes interval start, clamping",
			"kind", iv.Kind, "start", iv.Start, "end", at)
		at = iv.Start
	}
	iv.End = at
	iv.closed = true
	if iv.Kind.IsEditorKind() {
		if m.editor == iv {
			m.editor = nil
		}
	} else if m.current[iv.Kind] == iv {
		delete(m.current, iv.Kind)
	}
	m.recorded = append(m.recorded, iv)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.IntervalClosed(iv, reason)
	}
	return iv
}

// CloseAll closes every open interval at the given timestamp. Used when the
// tracker shuts down.
func (m *Manager) CloseAll(at time.Time, reason CloseReason) {
	m.mu.Lock()
	open := make([]*Interval, 0, len(m.current)+1)
	for _, iv := range m.current {
		open = append(open, iv)
	}
	if m.editor != nil {
		open = append(open, m.editor)
	}
	m.mu.Unlock()

	for _, iv := range open {
		m.Close(iv, at, reason)
	}
}

// Current returns the open interval of the given singleton kind, or nil.
// For Reading/Typing use EditorInterval.
func (m *Manager) Current(kind Kind) *Interval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotLocked(kind)
}

// EditorInterval returns the open Reading-or-Typing interval, or nil.
func (m *Manager) EditorInterval() *Interval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editor
}

// Recorded returns the closed intervals in insertion order. The returned
// slice is a copy; the intervals themselves are shared read-only facts.
func (m *Manager) Recorded() []*Interval {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Interval, len(m.recorded))
	copy(out, m.recorded)
	return out
}

func (m *Manager) slotLocked(kind Kind) *Interval {
	if kind.IsEditorKind() {
		return m.editor
	}
	return m.current[kind]
}

func (m *Manager) listenersLocked() []Listener {
	return append([]Listener(nil), m.listeners...)
}
