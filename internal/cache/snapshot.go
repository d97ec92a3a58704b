package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dompet/internal/core"
	"dompet/internal/gateway"
	"dompet/internal/log"
)

// ErrStale is returned when a refresh completed after a newer one had
// already been applied. The cache keeps the newer data.
var ErrStale = errors.New("stale refresh discarded")

// Source is the part of the gateway the cache reads from.
type Source interface {
	gateway.SnapshotReader
	gateway.GoalReader
}

// State is an immutable view of the cache. Seq increases with every applied
// refresh; zero means nothing has been loaded yet.
type State struct {
	Seq       uint64
	Snapshot  core.Snapshot
	Recents   []core.Transaction
	Goals     []core.Goal
	FetchedAt time.Time
}

// Empty reports whether no refresh has succeeded yet.
func (s State) Empty() bool { return s.Seq == 0 }

// Transaction looks up a cached recent transaction by id.
func (s State) Transaction(id int64) (core.Transaction, bool) {
	for _, tx := range s.Recents {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

// Goal looks up a cached goal by id.
func (s State) Goal(id int64) (core.Goal, bool) {
	for _, g := range s.Goals {
		if g.ID == id {
			return g, true
		}
	}
	return core.Goal{}, false
}

// Snapshot caches the last successfully fetched account snapshot, recent
// transactions and goals.
//
// Overlapping refreshes are ordered by the ticket taken when they start:
// a result whose ticket is older than the one already applied for the same
// part is dropped. Snapshot data and goals carry separate tickets so that
// a goals-only refresh never discards a full refresh's snapshot.
type Snapshot struct {
	src    Source
	logger *log.Logger
	now    func() time.Time

	mu           sync.RWMutex
	state        State
	issued       uint64
	snapApplied  uint64
	goalsApplied uint64
}

type Option func(*Snapshot)

func WithLogger(l *log.Logger) Option {
	return func(s *Snapshot) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Snapshot) { s.now = now }
}

func NewSnapshot(src Source, opts ...Option) *Snapshot {
	s := &Snapshot{src: src, logger: log.Nop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentCache)
	return s
}

// Get returns the current state. Slices in the returned value must not be
// modified.
func (s *Snapshot) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Refresh fetches the snapshot and the goal list concurrently. Both
// replace the cached values together; on any failure nothing changes.
func (s *Snapshot) Refresh(ctx context.Context) (State, error) {
	ticket := s.ticket()

	var (
		snap    core.Snapshot
		recents []core.Transaction
		goals   []core.Goal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, recents, err = s.src.FetchSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("fetch snapshot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = s.src.ListGoals(gctx)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "refresh failed, keeping cached state",
			log.FieldTicket, ticket, log.FieldError, err)
		return s.Get(), err
	}

	return s.apply(ctx, ticket, true, func(st *State) {
		st.Snapshot = snap
		st.Recents = recents
		st.Goals = goals
	})
}

// RefreshGoals replaces only the cached goal list.
func (s *Snapshot) RefreshGoals(ctx context.Context) (State, error) {
	ticket := s.ticket()
	goals, err := s.src.ListGoals(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "goal refresh failed, keeping cached goals",
			log.FieldTicket, ticket, log.FieldError, err)
		return s.Get(), fmt.Errorf("list goals: %w", err)
	}
	return s.apply(ctx, ticket, false, func(st *State) { st.Goals = goals })
}

func (s *Snapshot) ticket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

func (s *Snapshot) apply(ctx context.Context, ticket uint64, full bool, set func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	applied := false
	if full && ticket > s.snapApplied {
		prevGoals := next.Goals
		set(&next)
		s.snapApplied = ticket
		if ticket > s.goalsApplied {
			s.goalsApplied = ticket
		} else {
			next.Goals = prevGoals
		}
		applied = true
	}
	if !full && ticket > s.goalsApplied {
		set(&next)
		s.goalsApplied = ticket
		applied = true
	}
	if !applied {
		s.logger.DebugContext(ctx, "discarding stale refresh",
			log.FieldTicket, ticket, log.FieldSeq, s.state.Seq)
		return s.state, ErrStale
	}

	next.Seq = s.state.Seq + 1
	next.FetchedAt = s.now()
	s.state = next
	s.logger.DebugContext(ctx, "snapshot applied",
		log.FieldSeq, next.Seq, log.FieldTicket, ticket, log.FieldGoals, len(next.Goals))
	return next, nil
}
