package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
	"github.com/Yoshino-s/hitokoto-api/internal/store/badger"
	"github.com/Yoshino-s/hitokoto-api/internal/sync"
)

const (
	uuid3 = "9818ecda-9cbf-4f2a-9af8-8136ef39cfcd"
	uuid5 = "3b3e7a3e-3a3f-4c7e-8a64-2f0f7e6a1b10"
	uuid7 = "6f1c2a44-8d2e-4c11-9b3a-0a5e1f7d2c33"
)

// setup syncs a bundle with one category "a" holding lengths 3, 5 and 7.
func setup(t *testing.T) (store.Store, *bundle.Bundle, sync.Syncer) {
	t.Helper()

	b := bundle.New(t.TempDir())
	write := func(rel string, v any) {
		if err := b.WriteFile(rel, v); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	write("sentences/a.json", []bundle.Sentence{
		{ID: 1, UUID: uuid7, Hitokoto: "seven!!", Type: "a", Length: 7},
		{ID: 2, UUID: uuid3, Hitokoto: "hi!", Type: "a", Length: 3},
		{ID: 3, UUID: uuid5, Hitokoto: "hello", Type: "a", Length: 5},
	})
	write("categories.json", []bundle.Category{{ID: 1, Name: "Anime", Key: "a", Path: "sentences/a.json"}})
	write(bundle.VersionFile, bundle.VersionDescriptor{
		ProtocolVersion: "1.0.0",
		BundleVersion:   "1.0.0",
		UpdatedAt:       10,
		Categories:      bundle.CategoriesRef{Path: "categories.json", Timestamp: 10},
		Sentences:       []bundle.SentenceRef{{Key: "a", Path: "sentences/a.json", Timestamp: 10}},
	})

	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	syncer := sync.New(b, slot.NewManager(db, "hitokoto:", nil), sync.DefaultConfig())
	if _, err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	return db, b, syncer
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	db, _, _ := setup(t)
	r := NewReader(db, "hitokoto:", nil)

	if live, err := r.Live(ctx); err != nil || live != slot.B {
		t.Errorf("Live() = (%s, %v), want b", live, err)
	}
	if v, err := r.Version(ctx); err != nil || v != "1.0.0" {
		t.Errorf("Version() = (%q, %v), want 1.0.0", v, err)
	}
	if n, err := r.Total(ctx); err != nil || n != 3 {
		t.Errorf("Total() = (%d, %v), want 3", n, err)
	}

	s, err := r.Sentence(ctx, uuid5)
	if err != nil {
		t.Fatalf("Sentence failed: %v", err)
	}
	if s.Hitokoto != "hello" {
		t.Errorf("Sentence().Hitokoto = %q, want hello", s.Hitokoto)
	}
	if _, err := r.Sentence(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Sentence(missing) error = %v, want ErrNotFound", err)
	}

	categories, err := r.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if len(categories) != 1 {
		t.Fatalf("got %d categories, want 1", len(categories))
	}
	if c := categories[0]; c.Key != "a" || c.Count != 3 || c.Min != 3 || c.Max != 7 {
		t.Errorf("category = %+v, want a with 3 sentences in [3, 7]", c)
	}
}

func TestReader_ByLength(t *testing.T) {
	ctx := context.Background()
	db, _, _ := setup(t)
	r := NewReader(db, "hitokoto:", nil)

	n, err := r.CountByLength(ctx, "a", 4, store.ScoreInf)
	if err != nil || n != 2 {
		t.Errorf("CountByLength(4, inf) = (%d, %v), want 2", n, err)
	}

	got, err := r.ByLength(ctx, "a", 0, store.ScoreInf, 0)
	if err != nil {
		t.Fatalf("ByLength failed: %v", err)
	}
	var lengths []int
	for _, s := range got {
		lengths = append(lengths, s.Length)
	}
	if len(lengths) != 3 || lengths[0] != 3 || lengths[1] != 5 || lengths[2] != 7 {
		t.Errorf("lengths = %v, want [3 5 7]", lengths)
	}

	limited, err := r.ByLength(ctx, "a", 0, store.ScoreInf, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("ByLength(limit 2) = (%d items, %v), want 2", len(limited), err)
	}

	if _, err := r.CountByLength(ctx, "zz", 0, store.ScoreInf); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("CountByLength(zz) error = %v, want ErrUnknownCategory", err)
	}
}

func TestReader_FollowsPromotion(t *testing.T) {
	ctx := context.Background()
	db, b, syncer := setup(t)
	r := NewReader(db, "hitokoto:", nil)

	if err := b.WriteFile("sentences/a.json", []bundle.Sentence{
		{ID: 1, UUID: uuid3, Hitokoto: "hi!", Type: "a", Length: 3},
	}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := b.WriteFile(bundle.VersionFile, bundle.VersionDescriptor{
		ProtocolVersion: "1.0.0",
		BundleVersion:   "1.0.1",
		UpdatedAt:       20,
		Categories:      bundle.CategoriesRef{Path: "categories.json", Timestamp: 10},
		Sentences:       []bundle.SentenceRef{{Key: "a", Path: "sentences/a.json", Timestamp: 20}},
	}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := syncer.Run(ctx); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if live, _ := r.Live(ctx); live != slot.A {
		t.Errorf("Live() = %s after promotion, want a", live)
	}
	if n, _ := r.Total(ctx); n != 1 {
		t.Errorf("Total() = %d after promotion, want 1", n)
	}

	st, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Live != slot.A || len(st.Slots) != 2 {
		t.Fatalf("Status = %+v", st)
	}
	if a := st.Slots[0]; !a.Live || a.BundleVersion != "1.0.1" || a.Total != 1 {
		t.Errorf("slot a status = %+v", a)
	}
	if b := st.Slots[1]; b.Live || b.BundleVersion != "1.0.0" || b.Total != 3 || b.Categories != 1 {
		t.Errorf("slot b status = %+v", b)
	}
}
