package http

import (
	"context"
	"net/http"
	"time"

	"eventbudget/internal/log"
	"eventbudget/internal/middleware/ratelimit"
	"eventbudget/internal/middleware/security"
	"eventbudget/internal/middleware/trace"
	"eventbudget/internal/services"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Services groups the application services the API exposes.
type Services struct {
	Events    *services.EventService
	Expenses  *services.ExpenseService
	Templates *services.TemplateService
	Reminders *services.ReminderService
}

// Pinger reports whether a dependency is ready to serve.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the HTTP server settings.
type Config struct {
	Addr               string
	CORSAllowedOrigin  string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		CORSAllowedOrigin:  "http://localhost:4200",
		RateLimitPerMinute: 120,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
	}
}

type Server struct {
	http.Server
	svc      Services
	ready    Pinger
	limiter  *ratelimit.Limiter
	trace    *trace.Middleware
	detector *security.Detector
}

// NewServer wires the routes and the middleware chain. The rate limiter's
// cleanup goroutine runs until Shutdown.
func NewServer(config Config, svc Services, ready Pinger, logger *log.Logger) *Server {
	defaults := DefaultConfig()
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}

	s := &Server{
		svc:      svc,
		ready:    ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: config.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              config.Addr,
		Handler:           s.middleware(mux, config),
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return s
}

// middleware applies, outermost first: trace, security headers, CORS and
// rate limiting.
func (s *Server) middleware(h http.Handler, config Config) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(r *http.Request, clientIP string) {
		log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
			"Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
	})(h)
	h = security.CORS(security.DefaultCORSConfig(config.CORSAllowedOrigin))(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.trace.Middleware(h)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events/filter", s.handleFilterEvents)
	mux.HandleFunc("GET /api/events/templates", s.handleTemplateEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	mux.HandleFunc("GET /api/events/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/events/{id}/cashflow", s.handleCashflow)
	mux.HandleFunc("POST /api/events/{id}/budget/allocate", s.handleAllocate)
	mux.HandleFunc("GET /api/events/{id}/budget", s.handleCategoryBudgets)
	mux.HandleFunc("POST /api/events/{id}/share", s.handleShare)
	mux.HandleFunc("GET /api/events/{id}/export", s.handleExport)

	mux.HandleFunc("GET /api/expenses/event/{eventId}", s.handleExpensesByEvent)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("POST /api/expenses/filter", s.handleFilterExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/event-templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/event-templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /api/event-templates", s.handleCreateTemplate)

	mux.HandleFunc("GET /api/share/{shareToken}", s.handleSharedEvent)
	mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "Storage is not ready.").Write(w, r)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w, r)
}
