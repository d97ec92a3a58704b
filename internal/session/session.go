// Package session holds the explicit client context: the snapshot cache,
// the privacy mask and the reveal timers, plus the last rendered frame.
// Every applied refresh and every privacy toggle re-renders all views and
// returns all reveals to masked.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/privacy"
	"dompet/internal/render"
)

// Frame is one consistent render of every view. It is never modified after
// it is published.
type Frame struct {
	Seq        uint64
	Privacy    bool
	Filter     core.TxFilter
	RenderedAt time.Time
	Views      render.Views
}

// Listener receives every new frame.
type Listener func(Frame)

type Session struct {
	cache    *cache.Snapshot
	mask     *privacy.Mask
	revealer *privacy.Revealer
	memo     *cache.LRUCache[string]
	memos    *cache.Manager
	logger   *log.Logger
	now      func() time.Time

	mu        sync.Mutex
	filter    core.TxFilter
	advisory  render.AdvisoryInput
	frame     Frame
	listeners map[int]Listener
	nextID    int
}

type config struct {
	logger      *log.Logger
	now         func() time.Time
	revealFor   time.Duration
	revealClock privacy.Clock
	memoSize    int
	memoTTL     time.Duration
}

type Option func(*config)

func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock sets the time source for rendering (day of month) and frames.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithReveal sets how long a reveal lasts and, when clock is non-nil, the
// clock driving reveal timers.
func WithReveal(d time.Duration, clock privacy.Clock) Option {
	return func(c *config) {
		c.revealFor = d
		c.revealClock = clock
	}
}

// WithMemo sizes the rendered markdown memo.
func WithMemo(size int, ttl time.Duration) Option {
	return func(c *config) {
		c.memoSize = size
		c.memoTTL = ttl
	}
}

func New(snapshots *cache.Snapshot, mask *privacy.Mask, opts ...Option) *Session {
	cfg := config{
		logger:    log.Nop(),
		now:       time.Now,
		revealFor: privacy.DefaultRevealDuration,
		memoSize:  64,
		memoTTL:   5 * time.Minute,
	}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Session{
		cache:     snapshots,
		mask:      mask,
		memo:      cache.NewLRUCache[string](cfg.memoSize, cfg.memoTTL),
		logger:    cfg.logger.WithComponent(log.ComponentSession),
		now:       cfg.now,
		filter:    core.FilterAll,
		advisory:  render.AdvisoryInput{Phase: core.PhaseIdle},
		listeners: make(map[int]Listener),
	}
	s.memos = cache.NewManager(cfg.logger)
	s.memos.Register(s.memo)

	ropts := []privacy.RevealerOption{privacy.OnExpire(s.revealExpired)}
	if cfg.revealClock != nil {
		ropts = append(ropts, privacy.WithClock(cfg.revealClock))
	}
	s.revealer = privacy.NewRevealer(cfg.revealFor, ropts...)

	s.mu.Lock()
	s.frame = s.renderLocked()
	s.mu.Unlock()
	return s
}

// Start begins periodic memo expiry. Close stops it.
func (s *Session) Start(cleanupInterval time.Duration) {
	s.memos.StartCleanup(cleanupInterval)
}

// Close cancels outstanding reveals and stops background work.
func (s *Session) Close() {
	s.revealer.Reset()
	s.memos.Stop()
}

// State returns the cached data.
func (s *Session) State() cache.State {
	return s.cache.Get()
}

// Frame returns the latest rendered frame.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *Session) Privacy() bool {
	return s.mask.Enabled()
}

// Capabilities returns what the cached tier allows.
func (s *Session) Capabilities() core.Capabilities {
	return core.CapabilitiesFor(s.cache.Get().Snapshot.Tier)
}

// Refresh reloads the snapshot and goals. When the refresh is applied every
// view is re-rendered; a refresh overtaken by a newer one is not an error.
// On failure the cached data and the current frame stay as they are.
func (s *Session) Refresh(ctx context.Context) (Frame, error) {
	_, err := s.cache.Refresh(ctx)
	return s.afterRefresh(ctx, err)
}

// RefreshGoals reloads only the goal list, then re-renders.
func (s *Session) RefreshGoals(ctx context.Context) (Frame, error) {
	_, err := s.cache.RefreshGoals(ctx)
	return s.afterRefresh(ctx, err)
}

func (s *Session) afterRefresh(ctx context.Context, err error) (Frame, error) {
	switch {
	case errors.Is(err, cache.ErrStale):
		return s.Frame(), nil
	case err != nil:
		s.logger.WarnContext(ctx, "refresh failed", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return s.Frame(), err
	}
	s.memos.PurgeAll()
	return s.rerender(true), nil
}

// TogglePrivacy flips and persists the privacy flag and re-renders every
// view. If the flag cannot be persisted nothing changes.
func (s *Session) TogglePrivacy(ctx context.Context) (Frame, error) {
	enabled, err := s.mask.Toggle(ctx)
	if err != nil {
		return s.Frame(), fmt.Errorf("toggle privacy: %w", err)
	}
	s.logger.InfoContext(ctx, "privacy toggled", log.FieldPrivacy, enabled)
	return s.rerender(true), nil
}

// SetFilter changes the history filter.
func (s *Session) SetFilter(f core.TxFilter) Frame {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return s.rerender(false)
}

// SetAdvisory publishes the goal controller's state to the advisory view.
func (s *Session) SetAdvisory(a render.AdvisoryInput) Frame {
	s.mu.Lock()
	s.advisory = a
	s.mu.Unlock()
	return s.rerender(false)
}

// Advisory returns the advisory state last set.
func (s *Session) Advisory() render.AdvisoryInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advisory
}

// Reveal unmasks amount for the reveal duration. Other reveals are not
// affected.
func (s *Session) Reveal(amount int64) privacy.Reveal {
	r := s.revealer.Reveal(amount)
	s.logger.Debug("amount revealed", log.FieldRevealID, r.ID)
	return r
}

// ActiveReveal returns the reveal with the given id while it still shows
// its amount.
func (s *Session) ActiveReveal(id string) (privacy.Reveal, bool) {
	return s.revealer.Lookup(id)
}

// ActiveReveals counts the amounts currently revealed.
func (s *Session) ActiveReveals() int {
	return s.revealer.Active()
}

// RevealState reports whether the reveal id is still showing its amount.
func (s *Session) RevealState(id string) privacy.RevealState {
	return s.revealer.State(id)
}

// Subscribe registers l for every new frame and returns a function that
// removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Markdown returns the markdown of one view from the current frame.
func (s *Session) Markdown(name render.Name) (string, error) {
	return s.FrameMarkdown(s.Frame(), name)
}

// FrameMarkdown returns the markdown of one view of f. Views that depend
// only on the snapshot are memoised per sequence.
func (s *Session) FrameMarkdown(f Frame, name render.Name) (string, error) {
	v, ok := f.Views.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown view %q", name)
	}
	if name == render.Advisory {
		return v.Markdown(), nil
	}
	key := fmt.Sprintf("%s|%d|%t|%s|%s", name, f.Seq, f.Privacy, f.Filter, f.RenderedAt.Format("2006-01-02"))
	if out, ok := s.memo.Get(key); ok {
		return out, nil
	}
	out := v.Markdown()
	s.memo.Set(key, out)
	return out, nil
}

func (s *Session) revealExpired(id string) {
	s.logger.Debug("reveal expired", log.FieldRevealID, id)
	s.rerender(false)
}

// rerender renders every view from the current cache and mask. A full
// re-render also returns every reveal to masked.
func (s *Session) rerender(full bool) Frame {
	if full {
		if n := s.revealer.Reset(); n > 0 {
			s.logger.Debug("reveals reset", log.FieldCount, n)
		}
	}

	s.mu.Lock()
	f := s.renderLocked()
	s.frame = f
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(f)
	}
	return f
}

func (s *Session) renderLocked() Frame {
	st := s.cache.Get()
	pv := s.mask.State()
	adv := s.advisory
	if adv.RevealID != "" {
		adv.Reveal = s.revealer.State(adv.RevealID)
	}
	now := s.now()
	return Frame{
		Seq:        st.Seq,
		Privacy:    pv.Enabled,
		Filter:     s.filter,
		RenderedAt: now,
		Views: render.All(render.Input{
			State:    st,
			Privacy:  pv,
			Now:      now,
			Filter:   s.filter,
			Advisory: adv,
		}),
	}
}
