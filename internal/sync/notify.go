package sync

import (
	"context"
	"errors"
	"time"

	"github.com/Yoshino-s/hitokoto-api/internal/slot"
)

// EventSlotSwitched is the only event a Syncer emits.
const EventSlotSwitched = "slot-switched"

// ErrNotifierFull is returned by ChanNotifier when nobody is draining it.
var ErrNotifierFull = errors.New("notification channel full")

// Event announces that a slot was promoted.
type Event struct {
	Event         string    `json:"event"`
	To            slot.Slot `json:"to"`
	From          slot.Slot `json:"from,omitempty"`
	BundleVersion string    `json:"bundle_version,omitempty"`
	Total         int64     `json:"total"`
	At            time.Time `json:"at"`
}

// Notifier delivers promotion events to whoever supervises the sync. Delivery
// is fire-and-forget: a returned error is logged, never retried.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// ChanNotifier hands events to an in-process supervisor over a buffered
// channel. Sends never block.
type ChanNotifier struct {
	C chan Event
}

// NewChanNotifier creates a ChanNotifier with the given buffer size.
func NewChanNotifier(buffer int) *ChanNotifier {
	return &ChanNotifier{C: make(chan Event, buffer)}
}

// Notify implements Notifier.
func (n *ChanNotifier) Notify(ctx context.Context, e Event) error {
	select {
	case n.C <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrNotifierFull
	}
}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

// Notify implements Notifier. Every notifier is tried; errors are joined.
func (m MultiNotifier) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
