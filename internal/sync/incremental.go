package sync

import (
	"context"
	"fmt"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// incrementalSync patches target up to desc and returns the recounted
// sentence total.
//
// The baseline is what target itself recorded at its last sync: its
// category list and version record. Categories new to desc are loaded,
// categories whose sentence timestamp changed are resynced, and categories
// gone from desc are left in place.
func (s *syncer) incrementalSync(ctx context.Context, desc *bundle.VersionDescriptor, target *slot.Handle, res *Result) (int64, error) {
	oldCategories, err := target.Categories(ctx)
	if err != nil {
		return 0, err
	}
	if len(oldCategories) == 0 {
		return 0, errNeedsFullSync
	}
	record, err := target.VersionRecord(ctx)
	if err != nil {
		return 0, err
	}

	categories, err := s.bundle.LoadCategories(desc.Categories)
	if err != nil {
		return 0, err
	}

	// Phase 1: append categories the target has never seen.
	var added []categoryJob
	isNew := make(map[string]bool)
	for _, c := range categories {
		if _, ok := bundle.FindCategory(oldCategories, c.Key); !ok {
			added = append(added, categoryJob{key: c.Key, path: c.Path})
			isNew[c.Key] = true
		}
	}
	if _, err := s.loadCategories(ctx, target, added); err != nil {
		return 0, err
	}
	res.CategoriesLoaded += len(added)
	if err := store.SetJSON(ctx, target.Store(), slot.KeyCategories, categories); err != nil {
		return 0, fmt.Errorf("failed to write category list: %w", err)
	}

	// Phase 2: resync categories whose sentence file changed. A category
	// the target lists but never recorded a timestamp for was appended by an
	// aborted attempt and is always resynced.
	recorded := s.recordedTimestamps(record, target.Slot())
	var changed []categoryJob
	for _, key := range baselineKeys(record, oldCategories) {
		if isNew[key] {
			continue
		}
		ref, ok := desc.SentenceRef(key)
		if !ok {
			s.logger.Info("category missing from bundle, probably removed upstream; keeping it",
				"category", key, "slot", target.Slot())
			res.CategoriesSkipped++
			continue
		}
		if ts, ok := recorded[key]; ok && ts == ref.Timestamp {
			continue
		}
		if _, ok := bundle.FindCategory(categories, key); !ok {
			s.logger.Warn("sentence file has no matching category entry, skipping",
				"category", key, "path", ref.Path)
			res.CategoriesSkipped++
			continue
		}
		changed = append(changed, categoryJob{key: ref.Key, path: ref.Path})
	}
	if _, err := s.loadCategories(ctx, target, changed); err != nil {
		return 0, err
	}
	res.CategoriesLoaded += len(changed)

	// Only touched categories were counted above, so recount everything.
	var total int64
	for _, c := range categories {
		n, err := target.CountCategory(ctx, c.Key, 0, store.ScoreInf)
		if err != nil {
			return 0, fmt.Errorf("failed to count category %s: %w", c.Key, err)
		}
		total += n
	}
	return total, nil
}

// recordedTimestamps returns the per-category sentence timestamps target
// last applied. It is nil when target has no version record, in which case
// every category counts as changed.
func (s *syncer) recordedTimestamps(record *bundle.VersionDescriptor, target slot.Slot) map[string]int64 {
	if record == nil {
		s.logger.Warn("write target has no version record, resyncing every category", "slot", target)
		return nil
	}
	out := make(map[string]int64, len(record.Sentences))
	for _, ref := range record.Sentences {
		out[ref.Key] = ref.Timestamp
	}
	return out
}

// baselineKeys lists every category target knows of: those in its version
// record first, then those only in its category list.
func baselineKeys(record *bundle.VersionDescriptor, categories []bundle.Category) []string {
	seen := make(map[string]bool)
	var keys []string
	if record != nil {
		for _, ref := range record.Sentences {
			if !seen[ref.Key] {
				seen[ref.Key] = true
				keys = append(keys, ref.Key)
			}
		}
	}
	for _, c := range categories {
		if !seen[c.Key] {
			seen[c.Key] = true
			keys = append(keys, c.Key)
		}
	}
	return keys
}
