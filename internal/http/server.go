package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"homeledger/internal/auth"
	"homeledger/internal/log"
	"homeledger/internal/middleware/ratelimit"
	"homeledger/internal/middleware/security"
	"homeledger/internal/middleware/trace"
)

// APIPrefix is where the finances API is mounted.
const APIPrefix = "/api/finances"

// Options wires the server to its services.
type Options struct {
	Ledger   LedgerService
	Reports  ReportService
	Verifier *auth.Verifier

	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	Logger             *log.Logger
	AllowedOrigins     []string
	RateLimitPerMinute int
	// ClientIP identifies the caller for rate limiting and logs. Defaults to
	// the trusted-proxy aware extractor.
	ClientIP func(*http.Request) string
}

type Server struct {
	http.Server
	ledger  LedgerService
	reports ReportService
	ready   func(ctx context.Context) error
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	clientIP := opts.ClientIP
	if clientIP == nil {
		extractor, _ := security.NewIPExtractor()
		clientIP = extractor.ClientIP
	}

	limiterCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:  opts.Ledger,
		reports: opts.Reports,
		ready:   opts.Ready,
		logger:  logger,
		limiter: ratelimit.NewLimiter(limiterCfg),
		tracer:  trace.NewMiddleware(logger, clientIP),
	}
	s.Handler = s.routes(opts.Verifier, opts.AllowedOrigins, clientIP)
	return s
}

func (s *Server) routes(verifier *auth.Verifier, origins []string, clientIP func(*http.Request) string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         300,
	}).Handler)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, writeRateLimited))
		r.Use(verifier.Middleware(writeAuthError))

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/categories", s.handleExpenseCategories)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Patch("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/{id}", s.handleGetBudget)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Patch("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly-summary", s.handleMonthlySummary)
			r.Get("/yearly-summary", s.handleYearlySummary)
			r.Get("/property-comparison", s.handlePropertyComparison)
		})
	})

	return r
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

// Metrics returns request counters collected by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
