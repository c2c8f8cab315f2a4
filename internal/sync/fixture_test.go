package sync

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
	"github.com/Yoshino-s/hitokoto-api/internal/store/badger"
	"github.com/Yoshino-s/hitokoto-api/internal/store/sqlite"
)

const testPrefix = "hitokoto:"

// fixture is a bundle on disk that tests mutate between syncs.
type fixture struct {
	t          *testing.T
	bundle     *bundle.Bundle
	protocol   string
	categories []fixtureCategory
}

type fixtureCategory struct {
	key       string
	timestamp int64
	sentences []bundle.Sentence
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, bundle: bundle.New(t.TempDir()), protocol: "1.0.0"}
}

// set adds or replaces a category with sentences of the given lengths and
// returns their uuids.
func (f *fixture) set(key string, timestamp int64, lengths ...int) []string {
	f.t.Helper()
	c := fixtureCategory{key: key, timestamp: timestamp}
	uuids := make([]string, 0, len(lengths))
	for i, l := range lengths {
		id := uuid.NewString()
		uuids = append(uuids, id)
		c.sentences = append(c.sentences, bundle.Sentence{
			ID:       i + 1,
			UUID:     id,
			Hitokoto: key + "-" + id[:8],
			Type:     key,
			From:     "test",
			Length:   l,
		})
	}
	for i := range f.categories {
		if f.categories[i].key == key {
			f.categories[i] = c
			return uuids
		}
	}
	f.categories = append(f.categories, c)
	return uuids
}

func (f *fixture) category(key string) *fixtureCategory {
	f.t.Helper()
	for i := range f.categories {
		if f.categories[i].key == key {
			return &f.categories[i]
		}
	}
	f.t.Fatalf("no category %s in fixture", key)
	return nil
}

// drop removes sentence id from category key and stamps the category.
func (f *fixture) drop(key, id string, timestamp int64) bundle.Sentence {
	f.t.Helper()
	c := f.category(key)
	for i, s := range c.sentences {
		if s.UUID == id {
			c.sentences = append(c.sentences[:i], c.sentences[i+1:]...)
			c.timestamp = timestamp
			return s
		}
	}
	f.t.Fatalf("no sentence %s in category %s", id, key)
	return bundle.Sentence{}
}

// move reassigns sentence id from one category to another, keeping its uuid.
func (f *fixture) move(from, to, id string, timestamp int64) {
	f.t.Helper()
	s := f.drop(from, id, timestamp)
	s.Type = to
	c := f.category(to)
	c.sentences = append(c.sentences, s)
	c.timestamp = timestamp
}

func (f *fixture) remove(key string) {
	for i := range f.categories {
		if f.categories[i].key == key {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return
		}
	}
}

// write materialises the bundle with the given version and timestamp.
func (f *fixture) write(version string, updatedAt int64) {
	f.t.Helper()

	desc := bundle.VersionDescriptor{
		ProtocolVersion: f.protocol,
		BundleVersion:   version,
		UpdatedAt:       updatedAt,
		Categories:      bundle.CategoriesRef{Path: "./categories.json", Timestamp: updatedAt},
	}
	var categories []bundle.Category
	for i, c := range f.categories {
		path := "./sentences/" + c.key + ".json"
		desc.Sentences = append(desc.Sentences, bundle.SentenceRef{
			Name: "category " + c.key, Key: c.key, Path: path, Timestamp: c.timestamp,
		})
		categories = append(categories, bundle.Category{
			ID: i + 1, Name: "category " + c.key, Key: c.key, Path: path,
		})
		sentences := c.sentences
		if sentences == nil {
			sentences = []bundle.Sentence{}
		}
		if err := f.bundle.WriteFile(path, sentences); err != nil {
			f.t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	if err := f.bundle.WriteFile("categories.json", categories); err != nil {
		f.t.Fatalf("failed to write categories: %v", err)
	}
	if err := f.bundle.WriteFile(bundle.VersionFile, desc); err != nil {
		f.t.Fatalf("failed to write version: %v", err)
	}
}

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func openBadger(t *testing.T) store.Store {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// backends lists the stores every end-to-end test can run against.
var backends = map[string]func(t *testing.T) store.Store{
	"sqlite": openSQLite,
	"badger": openBadger,
}

// env wires a fixture, a store and a syncer together.
type env struct {
	*fixture
	store  store.Store
	slots  *slot.Manager
	syncer Syncer
}

func newEnv(t *testing.T, open func(t *testing.T) store.Store, cfg Config) *env {
	t.Helper()
	f := newFixture(t)
	s := open(t)
	slots := slot.NewManager(s, testPrefix, nil)
	return &env{fixture: f, store: s, slots: slots, syncer: New(f.bundle, slots, cfg)}
}

func (e *env) run(t *testing.T) *Result {
	t.Helper()
	res, err := e.syncer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func (e *env) live(t *testing.T) *slot.Handle {
	t.Helper()
	if _, err := e.slots.Load(context.Background()); err != nil {
		t.Fatalf("failed to load pointer: %v", err)
	}
	return e.slots.Live()
}

// members returns the sorted uuids indexed under category key.
func members(t *testing.T, h *slot.Handle, key string) []string {
	t.Helper()
	ms, err := h.CategoryMembers(context.Background(), key, store.ScoreNegInf, store.ScoreInf)
	if err != nil {
		t.Fatalf("failed to list %s: %v", key, err)
	}
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Member)
	}
	sort.Strings(out)
	return out
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// snapshot reads every value a slot exposes, keyed by store key.
func snapshot(t *testing.T, h *slot.Handle) map[string]string {
	t.Helper()
	ctx := context.Background()
	s := h.Store()
	out := make(map[string]string)

	get := func(key string) {
		v, err := s.Get(ctx, key)
		if err == nil {
			out[key] = string(v)
		}
	}
	for _, k := range []string{slot.KeyVersion, slot.KeyUpdatedAt, slot.KeyVersionRecord, slot.KeyCategories, slot.KeySentencesTotal} {
		get(k)
	}

	categories, err := h.Categories(ctx)
	if err != nil {
		t.Fatalf("failed to read categories: %v", err)
	}
	for _, c := range categories {
		get(slot.CategoryMinKey(c.Key))
		get(slot.CategoryMaxKey(c.Key))
		ms, err := h.CategoryMembers(ctx, c.Key, store.ScoreNegInf, store.ScoreInf)
		if err != nil {
			t.Fatalf("failed to list %s: %v", c.Key, err)
		}
		for _, m := range ms {
			out[slot.CategoryKey(c.Key)+"|"+m.Member] = strconv.FormatInt(m.Score, 10)
			get(slot.SentenceKey(m.Member))
		}
	}
	return out
}
