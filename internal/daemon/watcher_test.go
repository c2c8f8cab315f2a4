package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewFileWatcher verifies that creating a new FileWatcher succeeds.
func TestNewFileWatcher(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if fw.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
}

// TestFileWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestFileWatcher_StartStop(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	if err := fw.Start(t.TempDir()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	if err := fw.Start(t.TempDir()); err == nil {
		t.Error("second Start() succeeded, want error")
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if fw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}

	if _, ok := <-fw.Events(); ok {
		t.Error("Events channel should be closed after Stop()")
	}
}

// TestFileWatcher_Events verifies JSON changes in the root and in sentence
// subdirectories are reported.
func TestFileWatcher_Events(t *testing.T) {
	root := t.TempDir()
	sentences := filepath.Join(root, "sentences")
	if err := os.MkdirAll(sentences, 0755); err != nil {
		t.Fatalf("failed to create sentences dir: %v", err)
	}

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()
	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	versionPath := filepath.Join(root, "version.json")
	sentencePath := filepath.Join(sentences, "a.json")
	for _, p := range []string{filepath.Join(root, "notes.txt"), versionPath, sentencePath} {
		if err := os.WriteFile(p, []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}

	seen := make(map[string]FileEvent)
	timeout := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-fw.Events():
			if filepath.Ext(ev.Path) != ".json" {
				t.Errorf("unexpected event for %s", ev.Path)
			}
			seen[ev.Path] = ev
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	if ev, ok := seen[versionPath]; !ok || !ev.Descriptor {
		t.Errorf("version.json event = %+v, want descriptor event", ev)
	}
	if ev, ok := seen[sentencePath]; !ok || ev.Descriptor {
		t.Errorf("sentence event = %+v, want non-descriptor event", ev)
	}
}

func TestEventOp_String(t *testing.T) {
	tests := map[EventOp]string{
		OpCreate:    "create",
		OpModify:    "modify",
		OpDelete:    "delete",
		EventOp(99): "unknown",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("EventOp(%d).String() = %q, want %q", op, got, want)
		}
	}
}
