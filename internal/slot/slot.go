// Package slot manages the two interchangeable storage slots (A and B) and
// the pointer recording which one is live.
//
// The live slot is only ever read. A sync writes into the other slot (the
// write target) and finishes with Promote, a single key write of the
// pointer. Readers therefore observe either the old or the new slot, never a
// mix, as long as the store makes a single key write atomically visible.
//
// Lifecycle of the pointer: Load reads it once (defaulting to A), Promote is
// the only mutation, and it is called only after the write target holds a
// complete snapshot.
package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// ErrInvalidSlot is returned for a pointer value that names neither slot.
var ErrInvalidSlot = errors.New("invalid slot")

// Slot names one of the two storage namespaces.
type Slot string

const (
	A Slot = "a"
	B Slot = "b"
)

// Parse converts a pointer value into a Slot.
func Parse(s string) (Slot, error) {
	switch Slot(s) {
	case A, B:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
}

// Other returns the slot that is not s.
func (s Slot) Other() Slot {
	if s == A {
		return B
	}
	return A
}

func (s Slot) String() string {
	return string(s)
}

// Manager tracks the live slot and hands out slot handles.
type Manager struct {
	store  store.Store
	prefix string
	logger *slog.Logger

	mu   sync.RWMutex
	live Slot
}

// NewManager creates a Manager over s. prefix is the global key prefix
// (for example "hitokoto:"); slot namespaces are prefix+"a:" and prefix+"b:"
// and the pointer is prefix+"ab".
//
// The manager starts with A as live until Load is called.
func NewManager(s store.Store, prefix string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  s,
		prefix: prefix,
		logger: logger.With("component", "slot"),
		live:   A,
	}
}

// PointerKey returns the key holding the live-slot pointer.
func (m *Manager) PointerKey() string {
	return m.prefix + PointerSuffix
}

// Load reads the pointer from the store. A missing pointer means A.
func (m *Manager) Load(ctx context.Context) (Slot, error) {
	live := A
	raw, err := m.store.Get(ctx, m.PointerKey())
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("failed to read slot pointer: %w", err)
	default:
		live, err = Parse(string(raw))
		if err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	m.live = live
	m.mu.Unlock()
	return live, nil
}

// Current returns the live slot as last loaded or promoted.
func (m *Manager) Current() Slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live
}

// Handle returns a handle for slot s.
func (m *Manager) Handle(s Slot) *Handle {
	return &Handle{
		slot:  s,
		store: store.Namespace(m.store, m.prefix+string(s)+":"),
	}
}

// Live returns a read handle to the live slot.
func (m *Manager) Live() *Handle {
	return m.Handle(m.Current())
}

// WriteTarget returns a handle to the slot that is not live.
func (m *Manager) WriteTarget() *Handle {
	return m.Handle(m.Current().Other())
}

// Promote makes s the live slot. It must be the last step of a successful
// sync.
func (m *Manager) Promote(ctx context.Context, s Slot) error {
	if _, err := Parse(string(s)); err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.PointerKey(), []byte(s)); err != nil {
		return fmt.Errorf("failed to promote slot %s: %w", s, err)
	}

	m.mu.Lock()
	prev := m.live
	m.live = s
	m.mu.Unlock()

	m.logger.Info("slot promoted", "from", prev, "to", s)
	return nil
}
