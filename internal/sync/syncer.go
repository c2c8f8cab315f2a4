package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
)

// syncer implements the Syncer interface.
type syncer struct {
	bundle      *bundle.Bundle
	slots       *slot.Manager
	concurrency int
	notifier    Notifier
	metrics     *Metrics
	logger      *slog.Logger
}

// New creates a Syncer that reads bundle b and writes through slots.
//
// Example:
//
//	db, err := sqlite.Open("data/hitokoto.db", logger)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	slots := slot.NewManager(db, "hitokoto:", logger)
//	syncer := sync.New(bundle.New("sentences"), slots, sync.DefaultConfig())
//	res, err := syncer.Run(ctx)
func New(b *bundle.Bundle, slots *slot.Manager, cfg Config) Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &syncer{
		bundle:      b,
		slots:       slots,
		concurrency: concurrency,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "sync"),
	}
}

// Run implements Syncer.Run.
func (s *syncer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx)
	elapsed := time.Since(start)
	// On failure res is partial and only feeds the metrics.
	s.metrics.observe(res, err, elapsed)
	if err != nil {
		return nil, err
	}
	res.Duration = elapsed
	return res, nil
}

func (s *syncer) run(ctx context.Context) (*Result, error) {
	live, err := s.slots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live slot: %w", err)
	}
	liveHandle := s.slots.Handle(live)

	desc, err := s.bundle.LoadVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle version: %w", err)
	}

	local, err := s.localState(ctx, liveHandle)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("comparing versions",
		"protocol", desc.ProtocolVersion,
		"bundle", desc.BundleVersion,
		"local", local.BundleVersion,
		"live", live)

	decision, err := Compare(desc, local)
	if err != nil {
		return nil, err
	}

	res := &Result{Decision: decision, From: live, To: live, BundleVersion: desc.BundleVersion}
	if decision == DecisionNoop {
		s.logger.Info("bundle unchanged, nothing to sync", "version", desc.BundleVersion, "slot", live)
		return res, nil
	}

	target := s.slots.Handle(live.Other())
	res.To = target.Slot()

	s.logger.Info("sync started",
		"decision", decision,
		"from", local.BundleVersion,
		"to", desc.BundleVersion,
		"target", target.Slot())

	var total int64
	if decision == DecisionFull {
		total, err = s.fullSync(ctx, desc, target, res)
	} else {
		total, err = s.incrementalSync(ctx, desc, target, res)
		if errors.Is(err, errNeedsFullSync) {
			s.logger.Warn("write target has no category list, falling back to full sync", "target", target.Slot())
			if err := target.ResetVersion(ctx); err != nil {
				return res, err
			}
			res.Decision = DecisionFull
			res.CategoriesLoaded, res.CategoriesSkipped = 0, 0
			total, err = s.fullSync(ctx, desc, target, res)
		}
	}
	if err != nil {
		return res, fmt.Errorf("%s sync into slot %s failed: %w", res.Decision, target.Slot(), err)
	}

	meta := slot.Meta{
		BundleVersion: desc.BundleVersion,
		UpdatedAt:     desc.UpdatedAt,
		Record:        desc,
		Total:         total,
	}
	if err := target.SetMeta(ctx, meta); err != nil {
		return res, err
	}
	if err := s.slots.Promote(ctx, target.Slot()); err != nil {
		return res, err
	}
	res.Total = total

	s.logger.Info("sync complete",
		"decision", res.Decision,
		"live", target.Slot(),
		"version", desc.BundleVersion,
		"total", total,
		"loaded", res.CategoriesLoaded,
		"skipped", res.CategoriesSkipped)

	s.notify(ctx, Event{
		Event:         EventSlotSwitched,
		To:            target.Slot(),
		From:          live,
		BundleVersion: desc.BundleVersion,
		Total:         total,
		At:            time.Now().UTC(),
	})
	return res, nil
}

// RunTask implements Syncer.RunTask.
func (s *syncer) RunTask(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync panicked", "panic", r)
		}
	}()

	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("sync failed, live slot left unchanged", "error", err)
	}
}

func (s *syncer) localState(ctx context.Context, h *slot.Handle) (Local, error) {
	version, err := h.Version(ctx)
	if err != nil {
		return Local{}, err
	}
	updatedAt, err := h.UpdatedAt(ctx)
	if err != nil {
		return Local{}, err
	}
	return Local{BundleVersion: version, UpdatedAt: updatedAt}, nil
}

func (s *syncer) notify(ctx context.Context, e Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.logger.Warn("failed to send slot switch notification", "to", e.To, "error", err)
	}
}
