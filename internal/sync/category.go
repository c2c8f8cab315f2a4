package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// categoryJob names a category and the file its sentences are read from.
type categoryJob struct {
	key  string
	path string
}

// loadCategories runs loadCategory for every job with bounded parallelism
// and returns the number of indexed sentences across them.
func (s *syncer) loadCategories(ctx context.Context, target *slot.Handle, jobs []categoryJob) (int64, error) {
	var total atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			n, err := s.loadCategory(gctx, target, job)
			if err != nil {
				return err
			}
			total.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// loadCategory replaces one category in target with the contents of its
// sentence file.
//
// Everything happens in a single store batch: the old index is read and
// dropped, every sentence and index entry is written, sentences that left
// the category are pruned, and the min/max range is persisted last. The
// batch is committed before loadCategory returns, so a category is never
// finalised ahead of its records.
func (s *syncer) loadCategory(ctx context.Context, target *slot.Handle, job categoryJob) (int64, error) {
	sentences, err := s.bundle.LoadSentences(job.path)
	if err != nil {
		return 0, fmt.Errorf("failed to load category %s: %w", job.key, err)
	}

	var (
		lengths LengthRange
		members = make(map[string]struct{}, len(sentences))
		pruned  int
	)
	indexKey := slot.CategoryKey(job.key)

	err = target.Store().Update(ctx, func(tx store.Tx) error {
		previous, err := tx.ZRangeByScore(ctx, indexKey, store.ScoreNegInf, store.ScoreInf)
		if err != nil {
			return err
		}
		if err := tx.Del(ctx, indexKey); err != nil {
			return err
		}

		for i := range sentences {
			sentence := &sentences[i]
			if err := store.SetJSON(ctx, tx, slot.SentenceKey(sentence.UUID), sentence); err != nil {
				return err
			}
			if err := tx.ZAdd(ctx, indexKey, int64(sentence.Length), sentence.UUID); err != nil {
				return err
			}
			lengths.Observe(sentence.Length)
			members[sentence.UUID] = struct{}{}
		}

		var stale []string
		for _, m := range previous {
			if _, ok := members[m.Member]; ok {
				continue
			}
			owned, err := ownedBy(ctx, tx, m.Member, job.key)
			if err != nil {
				return err
			}
			if owned {
				stale = append(stale, slot.SentenceKey(m.Member))
			}
		}
		if len(stale) > 0 {
			if err := tx.Del(ctx, stale...); err != nil {
				return err
			}
			pruned = len(stale)
		}

		if lengths.Empty() {
			return tx.Del(ctx, slot.CategoryMinKey(job.key), slot.CategoryMaxKey(job.key))
		}
		if err := store.SetJSON(ctx, tx, slot.CategoryMinKey(job.key), lengths.Min); err != nil {
			return err
		}
		return store.SetJSON(ctx, tx, slot.CategoryMaxKey(job.key), lengths.Max)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write category %s: %w", job.key, err)
	}

	s.logger.Debug("category loaded",
		"category", job.key,
		"slot", target.Slot(),
		"sentences", len(members),
		"pruned", pruned,
		"min", lengths.Min,
		"max", lengths.Max)
	return int64(len(members)), nil
}

// ownedBy reports whether the stored sentence uuid still belongs to
// category key. A sentence that moved to another category keeps its record.
func ownedBy(ctx context.Context, r store.Reader, uuid, key string) (bool, error) {
	var rec bundle.Sentence
	err := store.GetJSON(ctx, r, slot.SentenceKey(uuid), &rec)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Type == "" || rec.Type == key, nil
}
