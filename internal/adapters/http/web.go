package web

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"courseplayer/internal/adapters/http/middleware"
	"courseplayer/internal/adapters/http/perf"
	"courseplayer/internal/adapters/lms"
	accountStore "courseplayer/internal/adapters/storage/account"
	courseStore "courseplayer/internal/adapters/storage/course"
	enrollmentStore "courseplayer/internal/adapters/storage/enrollment"
	progressStore "courseplayer/internal/adapters/storage/progress"
	"courseplayer/internal/application/projections"
	accountDomain "courseplayer/internal/domain/account"
	"courseplayer/internal/domain/route"
)

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Stores holds all storage dependencies.
type Stores struct {
	Accounts    accountStore.Store
	Courses     courseStore.Store
	Enrollments enrollmentStore.Store
	Progress    progressStore.Store
	Host        *lms.Host
	DB          Pinger
}

// Options configure the HTTP surface. Every value is injected by main.
type Options struct {
	StaticDir       string
	TemplatesDir    string
	PlayerTemplate  string // file name inside TemplatesDir
	OverrideEnabled bool
	Debug           bool
	Secure          bool // https-only cookies and CSRF checks
	CSRFKey         []byte
	TrustedOrigins  []string
	RateLimit       int // requests per second per IP
	SlowRequestMs   int
	Version         string
	Player          projections.PlayerOptions
	Now             func() time.Time
}

// Server owns the request handlers and their shared state.
type Server struct {
	opts      Options
	stores    *Stores
	sessions  *middleware.SessionStore
	collector *perf.Collector
	templates route.TemplateSelector
}

// NewServer wires a Server. A nil CSRF key is replaced by a random
// per-process key, so sessions will not survive a restart.
// PRE: s has every store set
func NewServer(opts Options, s *Stores, collector *perf.Collector) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.CSRFKey) == 0 {
		opts.CSRFKey = make([]byte, 32)
		if _, err := rand.Read(opts.CSRFKey); err != nil {
			panic(err)
		}
		slog.Warn("csrf_key_random", "hint", "set COURSEPLAYER_CSRF_KEY so forms survive a restart")
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	return &Server{
		opts:      opts,
		stores:    s,
		sessions:  middleware.NewSessionStore(middleware.DefaultSessionTTL),
		collector: collector,
		templates: route.NewRouter(opts.OverrideEnabled, opts.TemplatesDir, opts.PlayerTemplate),
	}
}

// WithTemplateSelector replaces the template router. Intended for tests.
func (s *Server) WithTemplateSelector(sel route.TemplateSelector) *Server {
	s.templates = sel
	return s
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))
	s.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(s.opts.RateLimit, time.Second)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(s.opts.CSRFKey, s.opts.Secure, s.opts.TrustedOrigins),
		middleware.Auth(s.sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(s.collector, s.opts.SlowRequestMs),
	)
}

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options, s *Stores, collector *perf.Collector) http.Handler {
	return NewServer(opts, s, collector).Handler()
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /courses/{courseID}", s.handleCourse)
	mux.HandleFunc("GET /courses/{courseID}/lessons/{lessonID}", s.handleLesson)
	mux.HandleFunc("POST /courses/{courseID}/enroll", s.handleEnroll)
	mux.HandleFunc("POST /courses/{courseID}/lessons/{lessonID}/complete", s.handleCompleteLesson)

	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /admin/perf", middleware.RequireRole(accountDomain.RoleAdmin)(http.HandlerFunc(s.handlePerf)))
}
