package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"marginalia/app/internal/blog"
	"marginalia/app/internal/session"
	"marginalia/app/internal/user"
)

const sessionCookieName = "marginalia_session"

// Options configures the HTTP server wiring.
type Options struct {
	BlogService blog.Service
	Users       user.Store
	Sessions    session.Store
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	CookieTTL   time.Duration
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	blog        blog.Service
	users       user.Store
	sessions    session.Store
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	cookieTTL   time.Duration
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.BlogService == nil {
		return nil, eris.New("blog service is required")
	}
	if opts.Users == nil {
		return nil, eris.New("user store is required")
	}
	if opts.Sessions == nil {
		return nil, eris.New("session store is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	cookieTTL := opts.CookieTTL
	if cookieTTL <= 0 {
		cookieTTL = 30 * 24 * time.Hour
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Marginalia", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:       api,
		mux:       mux,
		blog:      opts.BlogService,
		users:     opts.Users,
		sessions:  opts.Sessions,
		logger:    opts.Logger,
		sentry:    opts.SentryHub,
		db:        opts.Database,
		cookieTTL: cookieTTL,
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.sessionMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("HEAD /favicon.ico", faviconHandler)

	s.registerHomeRoute()
	s.registerLoginRoutes()
	s.registerLogoutRoute()
	s.registerAddPostRoutes()
	s.registerPostRoutes()
	s.registerArchiveRoutes()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
