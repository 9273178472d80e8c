package interval_test

import (
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/stint/internal/interval"
)

var singletonKinds = []interval.Kind{
	interval.KindWindowActive,
	interval.KindUserActive,
	interval.KindIDEOpen,
	interval.KindViewPanel,
	interval.KindDebug,
	interval.KindPerspective,
}

func generateKind(t *rapid.T) interval.Kind {
	return rapid.SampledFrom(singletonKinds).Draw(t, "kind")
}

// Feature: stint, Property 1: Non-overlap per singleton kind
//
// Over an arbitrary sequence of open/close operations with increasing
// timestamps, no two closed intervals of the same singleton kind overlap.
func TestNonOverlapPerKind(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := interval.NewManager(nil)
		at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			at = at.Add(time.Duration(rapid.IntRange(1, 5000).Draw(rt, "advance")) * time.Millisecond)
			kind := generateKind(rt)
			if rapid.Bool().Draw(rt, "open") {
				_ = m.Add(interval.NewInterval(kind, at))
			} else {
				m.Close(m.Current(kind), at, interval.ReasonEvent)
			}
		}

		recorded := m.Recorded()
		for i := 0; i < len(recorded); i++ {
			for j := i + 1; j < len(recorded); j++ {
				a, b := recorded[i], recorded[j]
				if a.Kind != b.Kind {
					continue
				}
				if a.End.After(b.Start) && b.End.After(a.Start) {
					rt.Fatalf("intervals of kind %s overlap: [%v,%v) and [%v,%v)",
						a.Kind, a.Start, a.End, b.Start, b.End)
				}
			}
		}
	})
}

// Feature: stint, Property 2: Closed-once
func TestCloseIsIdempotent(t *testing.T) {
	m := interval.NewManager(nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	iv := interval.NewInterval(interval.KindDebug, start)
	if err := m.Add(iv); err != nil {
		t.Fatalf("Add: %v", err)
	}

	first := m.Close(iv, start.Add(time.Second), interval.ReasonEvent)
	if first == nil {
		t.Fatal("first Close returned nil")
	}
	end := iv.End

	if again := m.Close(iv, start.Add(2*time.Second), interval.ReasonEvent); again != nil {
		t.Fatal("second Close was not a no-op")
	}
	if !iv.End.Equal(end) {
		t.Fatalf("End changed after second Close: %v -> %v", end, iv.End)
	}
	if got := len(m.Recorded()); got != 1 {
		t.Fatalf("recorded %d intervals, want 1", got)
	}
}

// Feature: stint, Property 3: Idempotent-open
func TestAddRejectsSecondOpen(t *testing.T) {
	m := interval.NewManager(nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := interval.NewInterval(interval.KindWindowActive, start)
	if err := m.Add(first); err != nil {
		t.Fatalf("Add: %v", err)
	}

	second := interval.NewInterval(interval.KindWindowActive, start.Add(time.Second))
	if err := m.Add(second); !errors.Is(err, interval.ErrIntervalOpen) {
		t.Fatalf("Add returned %v, want ErrIntervalOpen", err)
	}
	if m.Current(interval.KindWindowActive) != first {
		t.Fatal("original interval is no longer current after rejected open")
	}
}

// Reading and Typing share the single editor slot: opening one while the
// other is open is rejected.
func TestEditorSlotIsShared(t *testing.T) {
	m := interval.NewManager(nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	reading := interval.NewInterval(interval.KindReading, start)
	reading.Editor = "editor-a"
	if err := m.Add(reading); err != nil {
		t.Fatalf("Add reading: %v", err)
	}

	typing := interval.NewInterval(interval.KindTyping, start.Add(time.Second))
	typing.Editor = "editor-a"
	if err := m.Add(typing); !errors.Is(err, interval.ErrIntervalOpen) {
		t.Fatalf("Add typing over open reading returned %v, want ErrIntervalOpen", err)
	}
	if m.EditorInterval() != reading {
		t.Fatal("editor slot no longer holds the reading interval")
	}

	m.Close(reading, start.Add(2*time.Second), interval.ReasonEvent)
	if err := m.Add(typing); err != nil {
		t.Fatalf("Add typing after close: %v", err)
	}
	if m.EditorInterval() != typing {
		t.Fatal("editor slot does not hold the typing interval")
	}
}

// A close timestamp before the interval's start is clamped to the start.
func TestCloseClampsEarlyTimestamp(t *testing.T) {
	m := interval.NewManager(nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	iv := interval.NewInterval(interval.KindUserActive, start)
	if err := m.Add(iv); err != nil {
		t.Fatalf("Add: %v", err)
	}

	m.Close(iv, start.Add(-time.Minute), interval.ReasonEvent)
	if !iv.End.Equal(start) {
		t.Fatalf("End = %v, want clamped to start %v", iv.End, start)
	}
}

type recordingListener struct {
	opened []*interval.Interval
	closed []*interval.Interval
	reason []interval.CloseReason
}

func (l *recordingListener) IntervalOpened(iv *interval.Interval) {
	l.opened = append(l.opened, iv)
}

func (l *recordingListener) IntervalClosed(iv *interval.Interval, reason interval.CloseReason) {
	l.closed = append(l.closed, iv)
	l.reason = append(l.reason, reason)
}

// Every open and close is published to listeners, in order.
func TestListenerNotifications(t *testing.T) {
	m := interval.NewManager(nil)
	l := &recordingListener{}
	m.AddListener(l)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	iv := interval.NewInterval(interval.KindDebug, start)
	if err := m.Add(iv); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.Close(iv, start.Add(time.Second), interval.ReasonTimeout)

	if len(l.opened) != 1 || l.opened[0] != iv {
		t.Fatalf("opened notifications = %v", l.opened)
	}
	if len(l.closed) != 1 || l.closed[0] != iv || l.reason[0] != interval.ReasonTimeout {
		t.Fatalf("closed notifications = %v reasons = %v", l.closed, l.reason)
	}
}

// AddClosed appends straight to the log and publishes a close.
func TestAddClosedBypassesSlots(t *testing.T) {
	m := interval.NewManager(nil)
	l := &recordingListener{}
	m.AddListener(l)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	iv := interval.NewInterval(interval.KindTestRun, start)
	iv.End = start.Add(3 * time.Second)
	m.AddClosed(iv)

	if m.Current(interval.KindTestRun) != nil {
		t.Fatal("AddClosed left an open slot")
	}
	if got := len(m.Recorded()); got != 1 {
		t.Fatalf("recorded %d intervals, want 1", got)
	}
	if len(l.closed) != 1 || l.reason[0] != interval.ReasonComplete {
		t.Fatalf("close notification = %v reasons = %v", l.closed, l.reason)
	}
}

// Feature: stint, Property 4: CloseAll ends every open interval
func TestCloseAll(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := interval.NewManager(nil)
		start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		kinds := rapid.SliceOfNDistinct(rapid.SampledFrom(singletonKinds), 1, len(singletonKinds),
			rapid.ID[interval.Kind]).Draw(rt, "kinds")
		for _, k := range kinds {
			if err := m.Add(interval.NewInterval(k, start)); err != nil {
				rt.Fatalf("Add(%s): %v", k, err)
			}
		}
		withEditor := rapid.Bool().Draw(rt, "with_editor")
		if withEditor {
			ed := interval.NewInterval(interval.KindReading, start)
			ed.Editor = "editor-a"
			if err := m.Add(ed); err != nil {
				rt.Fatalf("Add editor interval: %v", err)
			}
		}

		end := start.Add(time.Minute)
		m.CloseAll(end, interval.ReasonShutdown)

		want := len(kinds)
		if withEditor {
			want++
		}
		if got := len(m.Recorded()); got != want {
			rt.Fatalf("recorded %d intervals, want %d", got, want)
		}
		for _, k := range kinds {
			if m.Current(k) != nil {
				rt.Fatalf("kind %s still open after CloseAll", k)
			}
		}
		if m.EditorInterval() != nil {
			rt.Fatal("editor slot still open after CloseAll")
		}
	})
}
