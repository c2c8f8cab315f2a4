package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/config"
	"github.com/Yoshino-s/hitokoto-api/internal/corpus"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store/sqlite"
)

func writeBundle(t *testing.T, root string) {
	t.Helper()
	b := bundle.New(root)
	files := map[string]any{
		bundle.VersionFile: bundle.VersionDescriptor{
			ProtocolVersion: "1.0.0",
			BundleVersion:   "1.0.0",
			UpdatedAt:       1,
			Categories:      bundle.CategoriesRef{Path: "./categories.json", Timestamp: 1},
			Sentences:       []bundle.SentenceRef{{Key: "a", Path: "./sentences/a.json", Timestamp: 1}},
		},
		"categories.json": []bundle.Category{{ID: 1, Name: "Anime", Key: "a", Path: "./sentences/a.json"}},
		"sentences/a.json": []bundle.Sentence{
			{ID: 1, UUID: "9818ecda-9cbf-4f2a-9af8-8136ef39cfcd", Hitokoto: "abc", Type: "a", Length: 3},
		},
	}
	for path, v := range files {
		if err := b.WriteFile(path, v); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

func execute(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
}

func TestSyncCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	root := filepath.Join(t.TempDir(), "bundle")
	dbPath := filepath.Join(t.TempDir(), "hitokoto.db")
	writeBundle(t, root)

	common := []string{"--bundle", root, "--store", dbPath, "--log-level", "warn"}
	execute(t, append([]string{"sync"}, common...)...)
	execute(t, append([]string{"status", "--json"}, common...)...)
	execute(t, append([]string{"query", "count", "a"}, common...)...)

	db, err := sqlite.Open(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	r := corpus.NewReader(db, "hitokoto:", nil)
	live, err := r.Live(context.Background())
	if err != nil || live != slot.B {
		t.Fatalf("live = (%s, %v), want b", live, err)
	}
	if total, err := r.Total(context.Background()); err != nil || total != 1 {
		t.Errorf("total = (%d, %v), want 1", total, err)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := openStore(config.StoreConfig{Driver: "redis"}, nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpenStore_BadgerInMemory(t *testing.T) {
	s, err := openStore(config.StoreConfig{Driver: config.DriverBadger}, nil)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	_ = s.Close()
}
