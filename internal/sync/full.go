package sync

import (
	"context"
	"fmt"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// fullSync loads every category of desc into target and returns the number
// of sentences written.
func (s *syncer) fullSync(ctx context.Context, desc *bundle.VersionDescriptor, target *slot.Handle, res *Result) (int64, error) {
	categories, err := s.bundle.LoadCategories(desc.Categories)
	if err != nil {
		return 0, err
	}
	if err := store.SetJSON(ctx, target.Store(), slot.KeyCategories, categories); err != nil {
		return 0, fmt.Errorf("failed to write category list: %w", err)
	}

	jobs := make([]categoryJob, 0, len(categories))
	for _, c := range categories {
		jobs = append(jobs, categoryJob{key: c.Key, path: c.Path})
	}

	total, err := s.loadCategories(ctx, target, jobs)
	if err != nil {
		return 0, err
	}
	res.CategoriesLoaded += len(jobs)
	return total, nil
}
