package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// Handle is a view of one slot: a store whose keys are confined to the
// slot's namespace, plus typed accessors for the slot layout.
type Handle struct {
	slot  Slot
	store store.Store
}

// Meta is the version metadata written once a sync has filled a slot.
type Meta struct {
	BundleVersion string
	UpdatedAt     int64
	Record        *bundle.VersionDescriptor
	Total         int64
}

// Slot returns which slot this handle addresses.
func (h *Handle) Slot() Slot {
	return h.slot
}

// Store returns the namespaced store backing the slot.
func (h *Handle) Store() store.Store {
	return h.store
}

// Version returns the recorded bundle version, or SentinelVersion if the
// slot was never written.
func (h *Handle) Version(ctx context.Context) (string, error) {
	var v string
	err := store.GetJSON(ctx, h.store, KeyVersion, &v)
	if errors.Is(err, store.ErrNotFound) || (err == nil && v == "") {
		return SentinelVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s version: %w", h.slot, err)
	}
	return v, nil
}

// UpdatedAt returns the recorded bundle timestamp, or 0.
func (h *Handle) UpdatedAt(ctx context.Context) (int64, error) {
	return h.getInt(ctx, KeyUpdatedAt)
}

// Total returns the recorded sentence total, or 0.
func (h *Handle) Total(ctx context.Context) (int64, error) {
	return h.getInt(ctx, KeySentencesTotal)
}

// VersionRecord returns the last applied descriptor, or nil if none.
func (h *Handle) VersionRecord(ctx context.Context) (*bundle.VersionDescriptor, error) {
	var v bundle.VersionDescriptor
	err := store.GetJSON(ctx, h.store, KeyVersionRecord, &v)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s version record: %w", h.slot, err)
	}
	return &v, nil
}

// Categories returns the recorded category list, empty if none.
func (h *Handle) Categories(ctx context.Context) ([]bundle.Category, error) {
	var categories []bundle.Category
	err := store.GetJSON(ctx, h.store, KeyCategories, &categories)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s categories: %w", h.slot, err)
	}
	return categories, nil
}

// CategoryRange returns the recorded min/max sentence length of a category.
// ok is false if the category has no recorded range.
func (h *Handle) CategoryRange(ctx context.Context, key string) (min, max int, ok bool, err error) {
	errMin := store.GetJSON(ctx, h.store, CategoryMinKey(key), &min)
	errMax := store.GetJSON(ctx, h.store, CategoryMaxKey(key), &max)
	if errors.Is(errMin, store.ErrNotFound) || errors.Is(errMax, store.ErrNotFound) {
		return 0, 0, false, nil
	}
	if err := errors.Join(errMin, errMax); err != nil {
		return 0, 0, false, fmt.Errorf("failed to read range of %s: %w", key, err)
	}
	return min, max, true, nil
}

// Sentence returns one sentence by uuid, or store.ErrNotFound.
func (h *Handle) Sentence(ctx context.Context, uuid string) (*bundle.Sentence, error) {
	var s bundle.Sentence
	if err := store.GetJSON(ctx, h.store, SentenceKey(uuid), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CountCategory counts indexed sentences of a category with length in
// [min, max].
func (h *Handle) CountCategory(ctx context.Context, key string, min, max int64) (int64, error) {
	return h.store.ZCount(ctx, CategoryKey(key), min, max)
}

// CategoryMembers lists indexed sentences of a category with length in
// [min, max], shortest first.
func (h *Handle) CategoryMembers(ctx context.Context, key string, min, max int64) ([]store.Member, error) {
	return h.store.ZRangeByScore(ctx, CategoryKey(key), min, max)
}

// SetMeta writes version, timestamp, descriptor snapshot and total as one
// transaction.
func (h *Handle) SetMeta(ctx context.Context, meta Meta) error {
	err := h.store.Update(ctx, func(tx store.Tx) error {
		if err := store.SetJSON(ctx, tx, KeyVersion, meta.BundleVersion); err != nil {
			return err
		}
		if err := store.SetJSON(ctx, tx, KeyUpdatedAt, meta.UpdatedAt); err != nil {
			return err
		}
		if err := store.SetJSON(ctx, tx, KeyVersionRecord, meta.Record); err != nil {
			return err
		}
		return store.SetJSON(ctx, tx, KeySentencesTotal, meta.Total)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s metadata: %w", h.slot, err)
	}
	return nil
}

// ResetVersion marks the slot as never written so the next sync into it is
// a full one.
func (h *Handle) ResetVersion(ctx context.Context) error {
	if err := store.SetJSON(ctx, h.store, KeyVersion, SentinelVersion); err != nil {
		return fmt.Errorf("failed to reset %s version: %w", h.slot, err)
	}
	return nil
}

func (h *Handle) getInt(ctx context.Context, key string) (int64, error) {
	var n int64
	err := store.GetJSON(ctx, h.store, key, &n)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s %s: %w", h.slot, key, err)
	}
	return n, nil
}
