// Package privacy redacts monetary values and manages timed reveals.
package privacy

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Rhymond/go-money"
)

// Marker replaces every amount while privacy mode is on.
const Marker = "Rp ••••••"

// PrefKey is the preference holding the privacy flag. It is independent of
// the signed-in account.
const PrefKey = "privacy_mode"

// PrefStore persists client-local preferences.
type PrefStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// rupiah groups thousands with dots and uses no fraction digits.
var rupiah = money.NewFormatter(0, ",", ".", "Rp", "$ 1")

// State is an immutable view of the privacy flag, safe to hand to renderers.
type State struct {
	Enabled bool
}

// Format returns the redaction marker when privacy is on and the amount is
// not force-revealed, otherwise the amount as "Rp 150.000".
func (s State) Format(amount int64, forceReveal bool) string {
	if s.Enabled && !forceReveal {
		return Marker
	}
	return rupiah.Format(amount)
}

// Mask owns the persisted privacy flag.
type Mask struct {
	mu      sync.RWMutex
	enabled bool
	store   PrefStore
}

// NewMask loads the flag from store. A missing preference means off.
func NewMask(ctx context.Context, store PrefStore) (*Mask, error) {
	m := &Mask{store: store}
	if store == nil {
		return m, nil
	}
	v, ok, err := store.Get(ctx, PrefKey)
	if err != nil {
		return nil, fmt.Errorf("load privacy preference: %w", err)
	}
	if ok {
		m.enabled, _ = strconv.ParseBool(v)
	}
	return m, nil
}

func (m *Mask) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Mask) State() State {
	return State{Enabled: m.Enabled()}
}

func (m *Mask) Format(amount int64, forceReveal bool) string {
	return m.State().Format(amount, forceReveal)
}

// Toggle flips and persists the flag and returns the new value. When the
// preference cannot be saved the flag is left unchanged.
func (m *Mask) Toggle(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := !m.enabled
	if m.store != nil {
		if err := m.store.Set(ctx, PrefKey, strconv.FormatBool(next)); err != nil {
			return m.enabled, fmt.Errorf("save privacy preference: %w", err)
		}
	}
	m.enabled = next
	return next, nil
}
