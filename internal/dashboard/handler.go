// Package dashboard serves the local assessment web form and its JSON API.
package dashboard

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/kamilpajak/heartrisk/internal/metrics"
	"github.com/kamilpajak/heartrisk/internal/submission"
)

//go:embed static
var staticFiles embed.FS

// Options configures a Handler.
type Options struct {
	Predictor     submission.Predictor
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer // serves /metrics when set
	RateLimit     float64             // submits per second per session
	RateBurst     int
	SubmitTimeout time.Duration

	MaxSessions int           // open sessions; creation beyond this is refused
	SessionTTL  time.Duration // idle time after which a session is dropped
	OpenRate    float64       // session creations per second, all clients
	OpenBurst   int
}

var errSessionLimit = errors.New("too many open sessions")

// Handler serves the web form and API endpoints.
type Handler struct {
	router chi.Router
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	opens *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *submission.Session
	limiter  *rate.Limiter
	lastSeen time.Time // guarded by Handler.mu
}

// NewHandler creates a new web handler with all routes registered.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 30 * time.Second
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.OpenRate <= 0 {
		opts.OpenRate = 5
	}
	if opts.OpenBurst <= 0 {
		opts.OpenBurst = 20
	}

	h := &Handler{
		router:   chi.NewRouter(),
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		opens:    rate.NewLimiter(rate.Limit(opts.OpenRate), opts.OpenBurst),
		sessions: make(map[string]*entry),
	}

	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.Recoverer)

	staticFS, _ := fs.Sub(staticFiles, "static")
	h.router.Handle("/*", http.FileServer(http.FS(staticFS)))
	h.router.Get("/health", h.handleHealth)
	if opts.Gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/fields", h.handleFields)
		r.Post("/sessions", h.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleCloseSession)
			r.Put("/fields/{field}", h.handleSetField)
			r.Post("/submit", h.handleSubmit)
			r.Post("/reset", h.handleReset)
		})
	})

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Close discards every open session.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, e := range h.sessions {
		e.session.Close()
		delete(h.sessions, id)
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.SessionsActive.Set(0)
	}
}

// newSession drops idle sessions and registers a new one, or returns
// errSessionLimit when MaxSessions are still open.
func (h *Handler) newSession() (*entry, error) {
	h.mu.Lock()
	expired := h.sweepLocked(h.now())
	if len(h.sessions) >= h.opts.MaxSessions {
		n := len(h.sessions)
		h.mu.Unlock()
		h.closeExpired(expired, n)
		return nil, errSessionLimit
	}

	var copts []submission.Option
	copts = append(copts, submission.WithLogger(h.logger))
	if h.opts.Metrics != nil {
		copts = append(copts, submission.WithHooks(h.opts.Metrics.Hooks()))
	}
	s := submission.NewSession(submission.NewController(h.opts.Predictor, copts...))
	e := &entry{
		session:  s,
		limiter:  rate.NewLimiter(rate.Limit(h.opts.RateLimit), h.opts.RateBurst),
		lastSeen: h.now(),
	}
	h.sessions[s.ID] = e
	n := len(h.sessions)
	h.mu.Unlock()

	h.closeExpired(expired, n)
	return e, nil
}

// lookup returns the session and marks it as used. An idle session past its
// TTL is dropped and reported as missing.
func (h *Handler) lookup(id string) (*entry, bool) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	now := h.now()
	if h.idle(e, now) {
		delete(h.sessions, id)
		n := len(h.sessions)
		h.mu.Unlock()
		h.closeExpired([]*entry{e}, n)
		return nil, false
	}
	e.lastSeen = now
	h.mu.Unlock()
	return e, true
}

func (h *Handler) remove(id string) (*entry, bool) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	delete(h.sessions, id)
	n := len(h.sessions)
	h.mu.Unlock()

	if ok && h.opts.Metrics != nil {
		h.opts.Metrics.SessionsActive.Set(float64(n))
	}
	return e, ok
}

// idle reports whether e has outlived the TTL. A session waiting on the
// prediction service is never idle.
func (h *Handler) idle(e *entry, now time.Time) bool {
	if now.Sub(e.lastSeen) < h.opts.SessionTTL {
		return false
	}
	return e.session.State().Status != submission.StatusSubmitting
}

func (h *Handler) sweepLocked(now time.Time) []*entry {
	var expired []*entry
	for id, e := range h.sessions {
		if h.idle(e, now) {
			delete(h.sessions, id)
			expired = append(expired, e)
		}
	}
	return expired
}

// closeExpired detaches swept sessions and publishes the remaining count.
func (h *Handler) closeExpired(expired []*entry, open int) {
	for _, e := range expired {
		e.session.Close()
		h.logger.Debug("session expired", "session_id", e.session.ID)
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.SessionsActive.Set(float64(open))
	}
}
