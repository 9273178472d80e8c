// Package feed reads tracker events as JSON lines, the form IDE plugins
// emit, and submits them to the dispatcher. The feed also serves as the
// editor resolver: editors are identified by the plugin-assigned id, and
// each focus event may carry the document path the editor shows.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fakeyudi/stint/internal/dispatch"
	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/testrun"
)

// wireEvent is the JSON-line shape of one event.
type wireEvent struct {
	Type        string    `json:"type"`
	At          int64     `json:"at,omitempty"` // epoch millis; 0 means now
	Editor      string    `json:"editor,omitempty"`
	Document    string    `json:"document,omitempty"`
	ModCount    int       `json:"mod_count,omitempty"`
	Perspective string    `json:"perspective,omitempty"`
	Project     string    `json:"project,omitempty"`
	Tree        *wireNode `json:"tree,omitempty"`
}

// wireNode is the JSON shape of one test-result tree node.
type wireNode struct {
	Name       string     `json:"name"`
	Passed     bool       `json:"passed,omitempty"`
	Ignored    bool       `json:"ignored,omitempty"`
	Errored    bool       `json:"errored,omitempty"`
	Failed     bool       `json:"failed,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
	Children   []wireNode `json:"children,omitempty"`
}

func (n wireNode) toNode() testrun.Node {
	out := testrun.Node{
		Name:     n.Name,
		Passed:   n.Passed,
		Ignored:  n.Ignored,
		Errored:  n.Errored,
		Failed:   n.Failed,
		Duration: time.Duration(n.DurationMS) * time.Millisecond,
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, child.toNode())
	}
	return out
}

// Resolver maps plugin-assigned editor ids to stable references and
// remembers the last document path reported for each editor.
type Resolver struct {
	mu   sync.Mutex
	docs map[interval.EditorRef]string
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{docs: make(map[interval.EditorRef]string)}
}

// Resolve implements dispatch.EditorResolver.
func (r *Resolver) Resolve(handle any) (interval.EditorRef, bool) {
	id, ok := handle.(string)
	if !ok || id == "" {
		return "", false
	}
	return interval.EditorRef(id), true
}

// Document implements dispatch.EditorResolver using the last path the feed
// reported for this editor. Handles from the filesystem watcher are file
// paths that never get a document report, so the handle itself is the
// fallback.
func (r *Resolver) Document(handle any) interval.Document {
	id, _ := handle.(string)
	r.mu.Lock()
	path := r.docs[interval.EditorRef(id)]
	r.mu.Unlock()
	if path == "" {
		path = id
	}
	return interval.ClassifyDocument(path)
}

// remember records the document path an editor currently shows.
func (r *Resolver) remember(ref interval.EditorRef, path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	r.docs[ref] = path
	r.mu.Unlock()
}

// Reader decodes a JSON-lines event stream.
type Reader struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewReader creates a Reader resolving editors through resolver.
func NewReader(resolver *Resolver, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{resolver: resolver, logger: logger}
}

// Run reads events from in until EOF or ctx cancellation, submitting each to
// the dispatcher. A malformed line is logged and skipped; a single bad event
// never aborts the stream.
func (f *Reader) Run(ctx context.Context, in io.Reader, d *dispatch.Dispatcher) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal(line, &we); err != nil {
			f.logger.Warn("skipping malformed event line", "err", err)
			continue
		}

		ev, err := f.toEvent(we)
		if err != nil {
			f.logger.Warn("skipping invalid event", "err", err)
			continue
		}
		d.Submit(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}

// toEvent converts a wire event into a dispatcher event, updating the
// resolver's editor-document table on the way.
func (f *Reader) toEvent(we wireEvent) (dispatch.Event, error) {
	ev := dispatch.Event{Type: dispatch.Type(we.Type), ModCount: we.ModCount}
	if we.At != 0 {
		ev.At = time.UnixMilli(we.At)
	}
	if we.Editor != "" {
		ev.Editor = we.Editor
		f.resolver.remember(interval.EditorRef(we.Editor), we.Document)
	}
	if we.Perspective != "" {
		ev.Perspective = interval.Perspective(we.Perspective)
	}
	if we.Type == string(dispatch.TypeTestRun) {
		if we.Tree == nil {
			return ev, fmt.Errorf("test_run event without tree")
		}
		node := we.Tree.toNode()
		ev.TestRun = &node
		ev.Project = we.Project
	}
	return ev, nil
}
