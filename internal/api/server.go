// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/earnings-tracker/internal/logging"
	"github.com/earnings-tracker/internal/models"
	"github.com/earnings-tracker/internal/service"
	"github.com/earnings-tracker/internal/shortcut"
	"github.com/gorilla/mux"
)

// Service interfaces for dependency injection and testing

// AuthServiceInterface defines the interface for login and signup
type AuthServiceInterface interface {
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Signup(ctx context.Context, input service.SignupInput) (*service.SignupResult, error)
}

// JobServiceInterface defines the interface for the job selector
type JobServiceInterface interface {
	ListActive(ctx context.Context, userID int64) ([]models.JobSummary, error)
}

// ActivityServiceInterface defines the interface for recent activities
type ActivityServiceInterface interface {
	RecentActivities(ctx context.Context, q service.ShiftQuery) (*models.JobActivities, error)
	RecentActivitiesAllJobs(ctx context.Context, q service.ShiftQuery) (interface{}, error)
}

// PeriodicServiceInterface defines the interface for periodic totals
type PeriodicServiceInterface interface {
	PeriodicTotals(ctx context.Context, q service.ShiftQuery) (*models.JobTotals, error)
	PeriodicTotalsAllJobs(ctx context.Context, q service.ShiftQuery) (interface{}, error)
}

// ShortcutGeneratorInterface defines the interface for shortcut generation and download
type ShortcutGeneratorInterface interface {
	Generate(ctx context.Context, req shortcut.Request) (*shortcut.Result, error)
	Publish(ctx context.Context, res *shortcut.Result) error
	ScheduleRemoval(ctx context.Context, res *shortcut.Result)
	Open(fileName string) (*os.File, os.FileInfo, error)
}

// TokenParser resolves bearer tokens to user ids
type TokenParser interface {
	Parse(token string) (int64, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services groups the dependencies of the server
type Services struct {
	Auth       AuthServiceInterface
	Jobs       JobServiceInterface
	Activities ActivityServiceInterface
	Periodic   PeriodicServiceInterface
	Shortcuts  ShortcutGeneratorInterface
	Tokens     TokenParser
	Database   HealthChecker
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	services   Services
	config     *ServerConfig
	limiter    *RateLimiter
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	PublicBaseURL     string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
	AllowedOrigins    []string
	AllowUserHeader   bool

	// TrustProxy keys clients on X-Forwarded-For instead of the socket address
	TrustProxy           bool
	LimiterIdleTTL       time.Duration
	LimiterSweepInterval time.Duration
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		config:   config,
		logger:   logging.GetGlobalLogger().WithComponent("api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.limiter = NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst, s.config.LimiterIdleTTL)

	s.setupRoutes()

	// The chain wraps the router rather than using router.Use so that
	// preflight and unmatched requests pass through it too. Order matters.
	s.handler = Chain(s.router,
		LoggingMiddleware(s.logger, s.config.TrustProxy),
		RecoveryMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware(s.config.AllowedOrigins),
		RateLimitMiddleware(s.limiter, s.config.TrustProxy),
		CompressionMiddleware,
	)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/test", s.handleTest).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	identity := IdentityMiddleware(s.services.Tokens, s.config.AllowUserHeader)

	// Auth endpoints
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/signup", s.handleSignup).Methods("POST")

	// Job selector, identity optional
	api.Handle("/jobs/list", identity(http.HandlerFunc(s.handleListJobs))).Methods("GET")

	// Shift read endpoints
	protected := api.NewRoute().Subrouter()
	protected.Use(mux.MiddlewareFunc(identity), RequireIdentity)
	protected.HandleFunc("/activities/all", s.handleRecentActivitiesAll).Methods("GET")
	protected.HandleFunc("/activities", s.handleRecentActivities).Methods("GET")
	protected.HandleFunc("/activities/{jobId}", s.handleRecentActivities).Methods("GET")
	protected.HandleFunc("/periodic/all", s.handlePeriodicTotalsAll).Methods("GET")
	protected.HandleFunc("/periodic", s.handlePeriodicTotals).Methods("GET")
	protected.HandleFunc("/periodic/{jobId}", s.handlePeriodicTotals).Methods("GET")

	// Shortcut endpoints
	api.HandleFunc("/shortcuts/generate", s.handleGenerateShortcut).Methods("POST")
	api.HandleFunc("/shortcuts/download/{fileName}", s.handleDownloadShortcut).Methods("GET")
	api.HandleFunc("/shortcuts/temp/{fileName}", s.handleDownloadShortcut).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	interval := s.config.LimiterSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	if err := s.limiter.Start(interval); err != nil {
		return err
	}

	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	if err := s.limiter.Stop(ctx); err != nil {
		s.logger.WithError(err).Debug("Rate limiter sweep was not running")
	}
	return s.httpServer.Shutdown(ctx)
}
