package backend

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/cache"
	"dompet/internal/gateway"
	"dompet/internal/log"
	"dompet/internal/privacy"
	"dompet/internal/services"
	"dompet/internal/session"
)

// App is the wired client core shared by the web server and the CLI.
type App struct {
	Gateway gateway.Gateway
	Session *session.Session
	Goals   *services.GoalController
	Entries *services.EntryService

	cleanup CleanupFunc
}

// AppOptions tune the session built on top of a backend.
type AppOptions struct {
	RevealDuration time.Duration
	CacheSize      int
	CacheTTL       time.Duration
}

// NewApp wires the snapshot cache, session and services over res and loads
// the privacy preference. It does not fetch data.
func NewApp(ctx context.Context, res *BackendResult, opts AppOptions, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Nop()
	}
	mask, err := privacy.NewMask(ctx, res.Prefs)
	if err != nil {
		return nil, fmt.Errorf("load privacy preference: %w", err)
	}

	snapshots := cache.NewSnapshot(res.Gateway, cache.WithLogger(logger))
	sess := session.New(snapshots, mask,
		session.WithLogger(logger),
		session.WithReveal(opts.RevealDuration, nil),
		session.WithMemo(opts.CacheSize, opts.CacheTTL),
	)

	return &App{
		Gateway: res.Gateway,
		Session: sess,
		Goals:   services.NewGoalController(res.Gateway, sess, logger),
		Entries: services.NewEntryService(res.Gateway, sess, res.Notifier, logger),
		cleanup: res.Cleanup,
	}, nil
}

// Close stops session background work and releases the backend.
func (a *App) Close() error {
	a.Session.Close()
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
