package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/services"
	"dompet/internal/session"
	appweb "dompet/web"
)

// Deps are the client core pieces the server drives.
type Deps struct {
	Session *session.Session
	Goals   *services.GoalController
	Entries *services.EntryService
}

// Options tune the request pipeline. Zero values use the defaults.
type Options struct {
	RateLimit      ratelimit.Config
	Headers        *security.HeadersConfig
	TrustedProxies []string
	Now            func() time.Time
}

type Server struct {
	http.Server

	sess    *session.Session
	goals   *services.GoalController
	entries *services.EntryService

	templates *template.Template
	markdown  goldmark.Markdown
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	access    *log.StructuredLogger
	now       func() time.Time
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. The rate limiter cleanup starts immediately.
func NewServer(addr string, deps Deps, opts Options, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}
	if opts.RateLimit.RequestsPerWindow == 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	t, err := template.New("dompet").Funcs(funcMap).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy: %w", err)
		}
	}

	s := &Server{
		sess:      deps.Session,
		goals:     deps.Goals,
		entries:   deps.Entries,
		templates: t,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		limiter:   ratelimit.NewLimiter(opts.RateLimit).WithClock(opts.Now),
		detector:  detector,
		logger:    logger,
		access:    log.NewStructuredLogger(logger),
		now:       opts.Now,
		started:   opts.Now(),
	}
	s.limiter.Start()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware)
	r.Use(s.accessLog)
	r.Use(detector.Middleware(logger))
	r.Use(security.Headers(headers))
	r.Use(s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/", s.handleIndex)
	r.Get("/views/{name}", s.handleView)
	r.Get("/export", s.handleExport)
	r.Get("/admin/feedback", s.handleAdminFeedback)

	r.Post("/refresh", s.handleRefresh)
	r.Post("/privacy/toggle", s.handleTogglePrivacy)
	r.Post("/history/filter", s.handleHistoryFilter)

	r.Route("/advisor", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Post("/reveal", s.handleReveal)
		r.Post("/execute", s.handleExecute)
		r.Post("/dismiss", s.handleDismiss)
	})
	r.Route("/goals", func(r chi.Router) {
		r.Post("/", s.handleCreateGoal)
		r.Post("/{id}", s.handleEditGoal)
		r.Delete("/{id}", s.handleDeleteGoal)
		r.Post("/{id}/deposit", s.handleDeposit)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", s.handleAddTransaction)
		r.Post("/{id}", s.handleEditTransaction)
		r.Delete("/{id}", s.handleDeleteTransaction)
	})
	r.Post("/transfer", s.handleTransfer)
	r.Post("/budget", s.handleSetBudget)
	r.Post("/reset", s.handleReset)
	r.Post("/feedback", s.handleFeedback)
	r.Post("/upgrade", s.handleUpgrade)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

var funcMap = template.FuncMap{
	"controlHref": controlHref,
}

// controlHref links a dashboard control to its form or download.
func controlHref(name string) string {
	switch name {
	case "Add manually":
		return "#form-manual"
	case "Add from text":
		return "#form-text"
	case "Add by voice":
		return "#form-voice"
	case "Add from receipt":
		return "#form-receipt"
	case "Transfer":
		return "#form-transfer"
	case "Set budget":
		return "#form-budget"
	case "Export ledger":
		return "/export"
	case "Send feedback":
		return "#form-feedback"
	case "Extend subscription":
		return "#form-upgrade"
	case "Admin panel":
		return "/admin/feedback"
	}
	return "#"
}

// accessLog records every request once it completes.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.access.LogHTTPEnd(r.Context(), r, status, s.now().Sub(start).Milliseconds(), s.detector.ExtractClientIP(r))
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a moment.").Write(w)
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
