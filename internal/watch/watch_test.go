package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fakeyudi/stint/internal/dispatch"
	"github.com/fakeyudi/stint/internal/interval"
)

func TestIsIgnored(t *testing.T) {
	work := "/proj"
	patterns := []string{"*.log", ".git", "vendor/*", "node_modules"}

	cases := []struct {
		path string
		want bool
	}{
		{"/proj/build.log", true},
		{"/proj/sub/deep.log", true},
		{"/proj/.git", true},
		{"/proj/vendor/dep.go", true},
		{"/proj/node_modules", true},
		{"/proj/main.go", false},
		{"/proj/vendor.go", false},
		{"/proj/logger.go", false},
	}
	for _, tc := range cases {
		if got := isIgnored(tc.path, work, patterns); got != tc.want {
			t.Errorf("isIgnored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIsIgnoredWithoutPatterns(t *testing.T) {
	if isIgnored("/proj/main.go", "/proj", nil) {
		t.Fatal("no patterns must ignore nothing")
	}
}

type passthroughResolver struct{}

func (passthroughResolver) Resolve(handle any) (interval.EditorRef, bool) {
	id, ok := handle.(string)
	return interval.EditorRef(id), ok && id != ""
}

func (passthroughResolver) Document(handle any) interval.Document {
	id, _ := handle.(string)
	return interval.ClassifyDocument(id)
}

// A file write inside the watched tree becomes a typing interval whose
// editor handle is the file path.
func TestWatchSubmitsEditForFileWrite(t *testing.T) {
	dir := t.TempDir()
	d := dispatch.New(interval.NewManager(nil), passthroughResolver{}, dispatch.Config{
		ReadingTimeout: time.Hour,
		TypingTimeout:  time.Hour,
		UserTimeout:    time.Hour,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dir, d, []string{"*.log"}) }()

	// Give the watcher a moment to establish before writing.
	time.Sleep(100 * time.Millisecond)

	ignored := filepath.Join(dir, "noise.log")
	if err := os.WriteFile(ignored, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tracked := filepath.Join(dir, "main.go")
	if err := os.WriteFile(tracked, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var ed *interval.Interval
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ed = d.EditorInterval(); ed != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if ed == nil {
		t.Fatal("no editor interval opened for the file write")
	}
	if ed.Kind != interval.KindTyping || ed.Editor != interval.EditorRef(tracked) {
		t.Fatalf("editor interval = %+v", ed)
	}
	if ed.Document == nil || ed.Document.Title != tracked {
		t.Fatalf("document = %+v", ed.Document)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}
