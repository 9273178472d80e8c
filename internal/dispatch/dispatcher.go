package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fakeyudi/stint/internal/inactivity"
	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/testrun"
)

// Config holds the inactivity windows. Zero values fall back to defaults.
type Config struct {
	ReadingTimeout time.Duration
	TypingTimeout  time.Duration
	UserTimeout    time.Duration
}

const (
	defaultReadingTimeout = 3 * time.Second
	defaultTypingTimeout  = 3 * time.Second
	defaultUserTimeout    = 16 * time.Second
)

// Dispatcher serializes all incoming events — UI callbacks, timer firings,
// forced cancels — through a run-to-completion queue: each event's
// transition runs fully before the next is admitted, and a transition that
// produces follow-up events (a forced timer cancel) has them appended to the
// same queue rather than processed re-entrantly.
type Dispatcher struct {
	manager  *interval.Manager
	resolver EditorResolver
	logger   *slog.Logger

	reading *inactivity.Notifier
	typing  *inactivity.Notifier
	user    *inactivity.Notifier

	mu       sync.Mutex
	queue    []Event
	draining bool
}

// New wires a Dispatcher to its manager and editor resolver. The inactivity
// notifiers feed their timeouts back in as events.
func New(manager *interval.Manager, resolver EditorResolver, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.ReadingTimeout <= 0 {
		cfg.ReadingTimeout = defaultReadingTimeout
	}
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = defaultTypingTimeout
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = defaultUserTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{manager: manager, resolver: resolver, logger: logger}
	d.reading = inactivity.New(cfg.ReadingTimeout, d.timeoutEvent(TypeReadingIdle))
	d.typing = inactivity.New(cfg.TypingTimeout, d.timeoutEvent(TypeTypingIdle))
	d.user = inactivity.New(cfg.UserTimeout, d.timeoutEvent(TypeUserInactive))
	return d
}

func (d *Dispatcher) timeoutEvent(t Type) inactivity.Timeout {
	return func(at time.Time) {
		d.Submit(Event{Type: t, At: at})
	}
}

// Manager exposes the underlying interval manager for queries.
func (d *Dispatcher) Manager() *interval.Manager {
	return d.manager
}

// Current returns the open interval of the given singleton kind, or nil.
func (d *Dispatcher) Current(kind interval.Kind) *interval.Interval {
	return d.manager.Current(kind)
}

// EditorInterval returns the open Reading-or-Typing interval, or nil.
func (d *Dispatcher) EditorInterval() *interval.Interval {
	return d.manager.EditorInterval()
}

// Recorded returns the closed-interval log in insertion order.
func (d *Dispatcher) Recorded() []*interval.Interval {
	return d.manager.Recorded()
}

// Shutdown closes all open intervals at the given time and silences the
// timers. Submitting events after Shutdown is allowed but pointless.
func (d *Dispatcher) Shutdown(at time.Time) {
	d.reading.Stop()
	d.typing.Stop()
	d.user.Stop()
	d.manager.CloseAll(at, interval.ReasonShutdown)
}

// Submit enqueues an event and drains the queue unless another goroutine is
// already draining. Events are applied atomically and serially; a malformed
// event degrades to a no-op, it never aborts processing.
func (d *Dispatcher) Submit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	d.mu.Lock()
	d.queue = append(d.queue, ev)
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		d.apply(next)
		d.mu.Lock()
	}
	d.draining = false
	d.mu.Unlock()
}

// apply is the transition table. Every open transition is guarded against
// double-opening a singleton kind; every close is a no-op on an absent or
// already-closed interval.
func (d *Dispatcher) apply(ev Event) {
	m := d.manager
	switch ev.Type {
	case TypeWindowActivated:
		if m.Current(interval.KindWindowActive).Closed() {
			d.add(interval.NewInterval(interval.KindWindowActive, ev.At))
		}
		d.user.TriggerAt(ev.At)

	case TypeWindowDeactivated:
		m.Close(m.Current(interval.KindWindowActive), ev.At, interval.ReasonEvent)

	case TypeIDEStarted:
		d.add(interval.NewInterval(interval.KindIDEOpen, ev.At))
		d.user.TriggerAt(ev.At)

	case TypeIDEStopped:
		m.Close(m.Current(interval.KindIDEOpen), ev.At, interval.ReasonEvent)
		d.user.Cancel(ev.At)

	case TypeFocusGained, TypeCaretMoved, TypePaint:
		d.processReadingEvent(ev)

	case TypeFocusLost:
		m.Close(m.EditorInterval(), ev.At, interval.ReasonEvent)
		d.reading.Cancel(ev.At)
		d.typing.Cancel(ev.At)

	case TypeStartEdit:
		d.processStartEdit(ev)

	case TypeEdit:
		d.processEdit(ev)

	case TypePerspective:
		d.processPerspective(ev)

	case TypeUserActive:
		if m.Current(interval.KindUserActive).Closed() {
			d.add(interval.NewInterval(interval.KindUserActive, ev.At))
		}
		d.user.Trigger()

	case TypeUserInactive:
		m.Close(m.Current(interval.KindUserActive), ev.At, interval.ReasonTimeout)
		d.typing.Cancel(ev.At)
		d.reading.Cancel(ev.At)

	case TypeTypingIdle:
		if ed := m.EditorInterval(); existsAndIsOfKind(ed, interval.KindTyping) {
			m.Close(ed, ev.At, interval.ReasonTimeout)
		}

	case TypeReadingIdle:
		if ed := m.EditorInterval(); existsAndIsOfKind(ed, interval.KindReading) {
			m.Close(ed, ev.At, interval.ReasonTimeout)
		}

	case TypePanelShown:
		if !existsAndIsOfKind(m.Current(interval.KindViewPanel), interval.KindViewPanel) {
			d.add(interval.NewInterval(interval.KindViewPanel, ev.At))
		}
		d.user.TriggerAt(ev.At)

	case TypePanelHidden:
		if iv := m.Current(interval.KindViewPanel); existsAndIsOfKind(iv, interval.KindViewPanel) {
			m.Close(iv, ev.At, interval.ReasonEvent)
		}

	case TypeDebugStarted:
		if !existsAndIsOfKind(m.Current(interval.KindDebug), interval.KindDebug) {
			d.add(interval.NewInterval(interval.KindDebug, ev.At))
		}
		d.user.TriggerAt(ev.At)

	case TypeDebugEnded:
		if iv := m.Current(interval.KindDebug); existsAndIsOfKind(iv, interval.KindDebug) {
			m.Close(iv, ev.At, interval.ReasonEvent)
		}

	case TypeTestRun:
		d.processTestRun(ev)

	default:
		d.logger.Warn("unknown event type", "type", ev.Type)
	}
}

// processReadingEvent handles focus, caret and repaint events. A new Reading
// interval is opened only when the current editor interval is closed, absent
// or bound to a different editor; an open same-editor Typing interval is
// left alone so a caret move mid-edit never downgrades it.
func (d *Dispatcher) processReadingEvent(ev Event) {
	m := d.manager
	ed := m.EditorInterval()

	ref, ok := d.resolver.Resolve(ev.Editor)
	if !ok {
		// Unknown editor: close whatever is current with the document
		// reference it already carries and stop there.
		d.logger.Warn("unresolvable editor on reading event", "type", ev.Type)
		m.Close(ed, ev.At, interval.ReasonEvent)
		return
	}

	if ed.Closed() || ed.Editor != ref {
		if !ed.Closed() {
			m.Close(ed, ev.At, interval.ReasonEvent)
		}
		iv := interval.NewInterval(interval.KindReading, ev.At)
		iv.Editor = ref
		doc := d.resolver.Document(ev.Editor)
		iv.Document = &doc
		d.add(iv)
	}

	d.reading.Trigger()
	d.user.TriggerAt(ev.At)
}

// processStartEdit opens a Typing interval for the editor unless one is
// already open for it. The document is carried over from the interval being
// replaced when the editor is unchanged.
func (d *Dispatcher) processStartEdit(ev Event) {
	m := d.manager
	ed := m.EditorInterval()

	ref, ok := d.resolver.Resolve(ev.Editor)
	if !ok {
		d.logger.Warn("unresolvable editor on edit event")
		m.Close(ed, ev.At, interval.ReasonEvent)
		return
	}

	d.reading.Cancel(ev.At)
	if existsAndIsOfKind(ed, interval.KindTyping) && ed.Editor == ref {
		return
	}

	m.Close(ed, ev.At, interval.ReasonEvent)

	iv := interval.NewInterval(interval.KindTyping, ev.At)
	iv.Editor = ref
	iv.ModCount = ev.ModCount
	if ed != nil && ed.Editor == ref {
		iv.Document = ed.Document
	} else {
		doc := d.resolver.Document(ev.Editor)
		iv.Document = &doc
	}
	d.add(iv)

	d.typing.Trigger()
	d.user.TriggerAt(ev.At)
}

// processEdit accumulates edit magnitude on the open Typing interval, or
// falls back to opening one when the current editor interval is absent,
// closed, not Typing, or bound to a different editor.
func (d *Dispatcher) processEdit(ev Event) {
	ed := d.manager.EditorInterval()

	ref, resolved := d.resolver.Resolve(ev.Editor)
	if ed.Closed() || ed.Kind != interval.KindTyping || !resolved || ed.Editor != ref {
		d.processStartEdit(ev)
		return
	}

	ed.AddModCount(ev.ModCount)
	d.typing.Trigger()
	d.user.TriggerAt(ev.At)
}

// processPerspective closes any open perspective interval and opens one of
// the new kind, unless that kind is already the open one.
func (d *Dispatcher) processPerspective(ev Event) {
	m := d.manager
	cur := m.Current(interval.KindPerspective)
	if cur == nil || cur.Perspective != ev.Perspective {
		m.Close(cur, ev.At, interval.ReasonEvent)
		iv := interval.NewInterval(interval.KindPerspective, ev.At)
		iv.Perspective = ev.Perspective
		d.add(iv)
	}
	d.user.TriggerAt(ev.At)
}

// processTestRun mirrors the runner's result tree into a completed record.
// Duration is known upfront, so the interval skips the open/close lifecycle.
func (d *Dispatcher) processTestRun(ev Event) {
	if ev.TestRun == nil {
		d.logger.Warn("test run event without result tree")
		return
	}
	exec := testrun.Build(ev.Project, *ev.TestRun)

	iv := interval.NewInterval(interval.KindTestRun, ev.At)
	if exec.Duration != nil {
		iv.Start = ev.At.Add(-time.Duration(*exec.Duration * float64(time.Second)))
	}
	iv.End = ev.At
	iv.TestRun = exec
	d.manager.AddClosed(iv)
}

// add forwards to Manager.Add; a rejected open leaves prior state intact
// and was already logged by the manager.
func (d *Dispatcher) add(iv *interval.Interval) {
	_ = d.manager.Add(iv)
}

func existsAndIsOfKind(iv *interval.Interval, kind interval.Kind) bool {
	return iv != nil && iv.Kind == kind
}
