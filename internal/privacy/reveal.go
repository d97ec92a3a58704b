package privacy

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRevealDuration is how long a revealed amount stays visible.
const DefaultRevealDuration = 5 * time.Second

// Timer is the handle of a scheduled expiry.
type Timer interface {
	Stop() bool
}

// Clock schedules reveal expiries.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Reveal is one temporarily unmasked amount.
type Reveal struct {
	ID        string
	Amount    int64
	ExpiresAt time.Time
}

// RevealState is Masked (zero value) or Revealed until ExpiresAt.
type RevealState struct {
	Revealed  bool
	ExpiresAt time.Time
}

type revealEntry struct {
	reveal Reveal
	timer  Timer
}

// Revealer tracks reveal instances. Each instance owns its own timer; a new
// reveal never cancels another.
type Revealer struct {
	mu       sync.Mutex
	clock    Clock
	duration time.Duration
	entries  map[string]*revealEntry
	onExpire func(id string)
}

type RevealerOption func(*Revealer)

func WithClock(c Clock) RevealerOption {
	return func(r *Revealer) { r.clock = c }
}

// OnExpire registers f to run, outside the lock, after a reveal reverts to
// masked because its timer fired.
func OnExpire(f func(id string)) RevealerOption {
	return func(r *Revealer) { r.onExpire = f }
}

func NewRevealer(d time.Duration, opts ...RevealerOption) *Revealer {
	if d <= 0 {
		d = DefaultRevealDuration
	}
	r := &Revealer{
		clock:    realClock{},
		duration: d,
		entries:  map[string]*revealEntry{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reveal unmasks amount until the reveal duration elapses.
func (r *Revealer) Reveal(amount int64) Reveal {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv := Reveal{
		ID:        uuid.NewString(),
		Amount:    amount,
		ExpiresAt: r.clock.Now().Add(r.duration),
	}
	e := &revealEntry{reveal: rv}
	e.timer = r.clock.AfterFunc(r.duration, func() { r.expire(rv.ID, e) })
	r.entries[rv.ID] = e
	return rv
}

// State reports whether id is currently revealed.
func (r *Revealer) State(id string) RevealState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return RevealState{Revealed: true, ExpiresAt: e.reveal.ExpiresAt}
	}
	return RevealState{}
}

// Lookup returns the reveal with the given id while it is active.
func (r *Revealer) Lookup(id string) (Reveal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.reveal, true
	}
	return Reveal{}, false
}

// Cancel masks id again before its timer fires.
func (r *Revealer) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(r.entries, id)
	return true
}

// Reset masks every outstanding reveal and returns how many were active.
func (r *Revealer) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for id, e := range r.entries {
		e.timer.Stop()
		delete(r.entries, id)
	}
	return n
}

// Active returns the number of revealed amounts.
func (r *Revealer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Revealer) expire(id string, e *revealEntry) {
	r.mu.Lock()
	cur, ok := r.entries[id]
	if !ok || cur != e {
		r.mu.Unlock()
		return
	}
	delete(r.entries, id)
	cb := r.onExpire
	r.mu.Unlock()

	if cb != nil {
		cb(id)
	}
}
