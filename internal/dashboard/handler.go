package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	hsync "github.com/Yoshino-s/hitokoto-api/internal/sync"
)

// SlotSwitchedData describes a promotion
type SlotSwitchedData struct {
	From          slot.Slot `json:"from"`
	To            slot.Slot `json:"to"`
	BundleVersion string    `json:"bundle_version"`
	Total         int64     `json:"total"`
}

// SyncCompleteData describes a finished sync attempt
type SyncCompleteData struct {
	Decision          string        `json:"decision"`
	From              slot.Slot     `json:"from"`
	To                slot.Slot     `json:"to"`
	BundleVersion     string        `json:"bundle_version"`
	Total             int64         `json:"total"`
	CategoriesLoaded  int           `json:"categories_loaded"`
	CategoriesSkipped int           `json:"categories_skipped"`
	Duration          time.Duration `json:"duration"`
}

// SyncFailedData describes an aborted sync attempt
type SyncFailedData struct {
	Error string `json:"error"`
}

// Handler turns sync events into dashboard messages. It is a sync.Notifier
// for promotions and a daemon observer for run outcomes.
type Handler struct {
	server *Server
	logger *slog.Logger

	mu       sync.Mutex
	last     *SyncCompleteData
	failures int
}

var _ hsync.Notifier = (*Handler)(nil)

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		server: server,
		logger: logger.With("component", "dashboard"),
	}
}

// Notify implements sync.Notifier by broadcasting slot_switched.
func (h *Handler) Notify(ctx context.Context, e hsync.Event) error {
	return h.send(MessageTypeSlotSwitched, e.At, SlotSwitchedData{
		From:          e.From,
		To:            e.To,
		BundleVersion: e.BundleVersion,
		Total:         e.Total,
	})
}

// SyncComplete broadcasts sync_complete for a successful attempt.
func (h *Handler) SyncComplete(res *hsync.Result) {
	if res == nil {
		return
	}
	data := SyncCompleteData{
		Decision:          res.Decision.String(),
		From:              res.From,
		To:                res.To,
		BundleVersion:     res.BundleVersion,
		Total:             res.Total,
		CategoriesLoaded:  res.CategoriesLoaded,
		CategoriesSkipped: res.CategoriesSkipped,
		Duration:          res.Duration,
	}

	h.mu.Lock()
	h.last = &data
	h.mu.Unlock()

	if err := h.send(MessageTypeSyncComplete, time.Now(), data); err != nil {
		h.logger.Warn("failed to broadcast sync completion", "error", err)
	}
}

// SyncFailed broadcasts sync_failed.
func (h *Handler) SyncFailed(err error) {
	h.mu.Lock()
	h.failures++
	h.mu.Unlock()

	if berr := h.send(MessageTypeSyncFailed, time.Now(), SyncFailedData{Error: err.Error()}); berr != nil {
		h.logger.Warn("failed to broadcast sync failure", "error", berr)
	}
}

// LastSync returns the last successful sync, if any.
func (h *Handler) LastSync() (SyncCompleteData, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return SyncCompleteData{}, false
	}
	return *h.last, true
}

// Failures returns how many failed syncs were reported.
func (h *Handler) Failures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}

func (h *Handler) send(typ MessageType, at time.Time, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", typ, err)
	}
	return h.server.Broadcast(Message{Type: typ, Timestamp: at, Data: raw})
}
