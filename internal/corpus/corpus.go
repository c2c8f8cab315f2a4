// Package corpus reads the sentence corpus from whichever slot is live.
//
// Every call resolves the live-slot pointer first, so a Reader follows
// promotions made by another process (the sync daemon) without restarting.
// A single call reads from one slot only.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// ErrUnknownCategory is returned for a category key the live slot does not
// list.
var ErrUnknownCategory = errors.New("unknown category")

// Category is a category as recorded in the live slot, with its index
// statistics.
type Category struct {
	bundle.Category
	Count int64 `json:"count"`
	Min   int   `json:"min"`
	Max   int   `json:"max"`
}

// SlotStatus describes one slot.
type SlotStatus struct {
	Slot          slot.Slot `json:"slot"`
	Live          bool      `json:"live"`
	BundleVersion string    `json:"bundle_version"`
	UpdatedAt     int64     `json:"updated_at"`
	Total         int64     `json:"total"`
	Categories    int       `json:"categories"`
}

// Status describes both slots.
type Status struct {
	Live  slot.Slot    `json:"live"`
	Slots []SlotStatus `json:"slots"`
}

// Reader is a read-only view of the live slot.
type Reader struct {
	slots *slot.Manager
}

// NewReader creates a Reader over s using the global key prefix.
func NewReader(s store.Store, prefix string, logger *slog.Logger) *Reader {
	return &Reader{slots: slot.NewManager(s, prefix, logger)}
}

func (r *Reader) live(ctx context.Context) (*slot.Handle, error) {
	s, err := r.slots.Load(ctx)
	if err != nil {
		return nil, err
	}
	return r.slots.Handle(s), nil
}

// Live returns the slot currently serving reads.
func (r *Reader) Live(ctx context.Context) (slot.Slot, error) {
	return r.slots.Load(ctx)
}

// Sentence returns a sentence by uuid, or store.ErrNotFound.
func (r *Reader) Sentence(ctx context.Context, uuid string) (*bundle.Sentence, error) {
	h, err := r.live(ctx)
	if err != nil {
		return nil, err
	}
	return h.Sentence(ctx, uuid)
}

// Total returns the sentence total recorded by the live slot.
func (r *Reader) Total(ctx context.Context) (int64, error) {
	h, err := r.live(ctx)
	if err != nil {
		return 0, err
	}
	return h.Total(ctx)
}

// Version returns the bundle version held by the live slot.
func (r *Reader) Version(ctx context.Context) (string, error) {
	h, err := r.live(ctx)
	if err != nil {
		return "", err
	}
	return h.Version(ctx)
}

// Categories lists the live categories with their sentence count and
// length range.
func (r *Reader) Categories(ctx context.Context) ([]Category, error) {
	h, err := r.live(ctx)
	if err != nil {
		return nil, err
	}
	recorded, err := h.Categories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Category, 0, len(recorded))
	for _, c := range recorded {
		count, err := h.CountCategory(ctx, c.Key, 0, store.ScoreInf)
		if err != nil {
			return nil, fmt.Errorf("failed to count category %s: %w", c.Key, err)
		}
		min, max, _, err := h.CategoryRange(ctx, c.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, Category{Category: c, Count: count, Min: min, Max: max})
	}
	return out, nil
}

// CountByLength counts sentences of category key with length in [min, max].
func (r *Reader) CountByLength(ctx context.Context, key string, min, max int64) (int64, error) {
	h, err := r.live(ctx)
	if err != nil {
		return 0, err
	}
	if err := known(ctx, h, key); err != nil {
		return 0, err
	}
	return h.CountCategory(ctx, key, min, max)
}

// ByLength lists sentences of category key with length in [min, max],
// shortest first. limit <= 0 means no limit.
func (r *Reader) ByLength(ctx context.Context, key string, min, max int64, limit int) ([]bundle.Sentence, error) {
	h, err := r.live(ctx)
	if err != nil {
		return nil, err
	}
	if err := known(ctx, h, key); err != nil {
		return nil, err
	}

	members, err := h.CategoryMembers(ctx, key, min, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list category %s: %w", key, err)
	}
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}

	out := make([]bundle.Sentence, 0, len(members))
	for _, m := range members {
		s, err := h.Sentence(ctx, m.Member)
		if err != nil {
			return nil, fmt.Errorf("index of %s references sentence %s: %w", key, m.Member, err)
		}
		out = append(out, *s)
	}
	return out, nil
}

// Status reports the pointer and the metadata of both slots.
func (r *Reader) Status(ctx context.Context) (*Status, error) {
	live, err := r.slots.Load(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Live: live}
	for _, s := range []slot.Slot{slot.A, slot.B} {
		h := r.slots.Handle(s)
		ss := SlotStatus{Slot: s, Live: s == live}
		if ss.BundleVersion, err = h.Version(ctx); err != nil {
			return nil, err
		}
		if ss.UpdatedAt, err = h.UpdatedAt(ctx); err != nil {
			return nil, err
		}
		if ss.Total, err = h.Total(ctx); err != nil {
			return nil, err
		}
		categories, err := h.Categories(ctx)
		if err != nil {
			return nil, err
		}
		ss.Categories = len(categories)
		st.Slots = append(st.Slots, ss)
	}
	return st, nil
}

func known(ctx context.Context, h *slot.Handle, key string) error {
	categories, err := h.Categories(ctx)
	if err != nil {
		return err
	}
	if _, ok := bundle.FindCategory(categories, key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, key)
	}
	return nil
}
