// Package server is the browser front end: an upload form, a dataset
// overview, the options form and the wizard steps, rendered with
// html/template.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Defaults for Options.
const (
	DefaultMaxUploadBytes = 32 << 20
	DefaultPreviewRows    = 5
	DefaultSessionTTL     = 2 * time.Hour
	DefaultMaxSessions    = 64
)

// Options tune a Server.
type Options struct {
	MaxUploadBytes int64
	TopN           int
	PreviewRows    int
	// SessionTTL drops sessions nobody has touched for that long.
	SessionTTL time.Duration
	// MaxSessions caps the registry; the least recently used session goes
	// first.
	MaxSessions int
	// Logger is shared by the server and its sessions.
	Logger log.Logger
}

// Server serves the wizard UI.
type Server struct {
	backend  experiment.Backend
	store    *artifact.Store
	sessions *Sessions
	opts     Options
	logger   log.Logger
	tmpl     *template.Template
	mux      *http.ServeMux
}

// New returns a server that drives backend and keeps saved models in store.
// store may be nil, in which case artifacts stay in memory.
func New(backend experiment.Backend, store *artifact.Store, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "server: parse templates")
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLoggerWithName("server")
	}
	s := &Server{
		backend:  backend,
		store:    store,
		sessions: NewSessions(opts.SessionTTL, opts.MaxSessions),
		opts:     opts,
		logger:   opts.Logger,
		tmpl:     tmpl,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Sessions returns the session registry.
func (s *Server) Sessions() *Sessions { return s.sessions }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handle(s.healthz))
	s.mux.HandleFunc("GET /{$}", s.handle(s.index))
	s.mux.HandleFunc("POST /sessions", s.handle(s.upload))
	s.mux.HandleFunc("GET /sessions/{id}", s.handle(s.show))
	s.mux.HandleFunc("POST /sessions/{id}/setup", s.handle(s.setup))
	s.mux.HandleFunc("POST /sessions/{id}/compare", s.handle(s.compare))
	s.mux.HandleFunc("POST /sessions/{id}/optimize", s.handle(s.optimize))
	s.mux.HandleFunc("POST /sessions/{id}/save", s.handle(s.save))
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handle(s.reset))
	s.mux.HandleFunc("GET /sessions/{id}/artifact", s.handle(s.download))
	s.mux.HandleFunc("GET /sessions/{id}/charts/leaderboard.png", s.handle(s.leaderboardChart))
	s.mux.HandleFunc("GET /sessions/{id}/charts/column.png", s.handle(s.columnChart))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("request",
		log.MethodKey, r.Method,
		log.PathKey, r.URL.Path,
		log.StatusKey, rec.status,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Idle sessions are swept while it runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	go s.sweepLoop(ctx, s.opts.SessionTTL/4)

	select {
	case err := <-errc:
		return errors.Wrap(err, "server: listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server: shutdown")
		}
		return nil
	}
}

func (s *Server) sweepLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep()
		}
	}
}

// sweep drops idle sessions.
func (s *Server) sweep() {
	for _, id := range s.sessions.Sweep() {
		s.logger.Info("session expired", log.SessionIDKey, id)
	}
}

// handle adapts an error-returning handler. Panics become errors.
func (s *Server) handle(h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := r.Method + " " + r.URL.Path
		if err := errors.SafeExecute(op, func() error { return h(w, r) }); err != nil {
			s.fail(w, r, err)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
