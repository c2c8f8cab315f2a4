package sync_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store/badger"
	"github.com/Yoshino-s/hitokoto-api/internal/sync"
)

// This example syncs a one-category bundle into an in-memory store.
func ExampleNew() {
	root, err := os.MkdirTemp("", "bundle")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(root)

	b := bundle.New(root)
	_ = b.WriteFile("sentences/a.json", []bundle.Sentence{
		{ID: 1, UUID: "9818ecda-9cbf-4f2a-9af8-8136ef39cfcd", Hitokoto: "hello", Type: "a", Length: 5},
	})
	_ = b.WriteFile("categories.json", []bundle.Category{
		{ID: 1, Name: "Anime", Key: "a", Path: "./sentences/a.json"},
	})
	_ = b.WriteFile(bundle.VersionFile, bundle.VersionDescriptor{
		ProtocolVersion: "1.0.0",
		BundleVersion:   "1.0.0",
		UpdatedAt:       1,
		Categories:      bundle.CategoriesRef{Path: "./categories.json", Timestamp: 1},
		Sentences:       []bundle.SentenceRef{{Name: "Anime", Key: "a", Path: "./sentences/a.json", Timestamp: 1}},
	})

	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	slots := slot.NewManager(db, "hitokoto:", nil)
	syncer := sync.New(b, slots, sync.DefaultConfig())

	res, err := syncer.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Decision, res.From, "->", res.To, res.Total)

	res, err = syncer.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Decision)
	// Output:
	// full a -> b 1
	// noop
}
