// Package http wires the ledger services into the web surface.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/reporting"
)

const dashboardCacheKey = "dashboard"

type Server struct {
	http.Server

	auth    *auth.Service
	ledger  *ledger.Service
	reports *reporting.Service

	limiter     *ratelimit.Limiter
	ipExtractor *security.Extractor

	// Dashboard aggregates are recomputed on every write, so the cache
	// only has to survive bursts of reads between writes.
	dashCache    *cache.LRUCache[core.Dashboard]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Options tunes server behavior beyond the service dependencies.
type Options struct {
	RateLimitPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, ledgerSvc *ledger.Service, reportSvc *reporting.Service, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:    authSvc,
		ledger:  ledgerSvc,
		reports: reportSvc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		ipExtractor:  security.NewExtractor(),
		dashCache:    cache.NewLRUCache[core.Dashboard](1, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /signup", s.handleSignUp)
	mux.HandleFunc("POST /login", s.handleLogIn)
	mux.HandleFunc("GET /logout", s.handleLogOut)

	mux.HandleFunc("GET /{$}", s.requireSession(s.handleDashboard))
	mux.HandleFunc("POST /add", s.requireSession(s.handleAddExpense))
	mux.HandleFunc("POST /edit/{id}", s.requireSession(s.handleEditExpense))
	mux.HandleFunc("POST /delete/{id}", s.requireSession(s.handleDeleteExpense))
	mux.HandleFunc("POST /set_income", s.requireSession(s.handleSetIncome))
	mux.HandleFunc("GET /monthly_expenses", s.requireSession(s.handleMonthlyExpenses))
	mux.HandleFunc("GET /weekly_expenses", s.requireSession(s.handleWeeklyExpenses))
	mux.HandleFunc("GET /analyze", s.requireSession(s.handleAnalyze))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.ipExtractor.ExtractClientIP)
	requestLogger := applog.New(applog.Config{
		Handler:   slog.Default().Handler(),
		Component: applog.ComponentHTTP,
	})

	s.Server.Handler = applog.Middleware(requestLogger)(
		headers.Middleware(tracer.Middleware(s.withRateLimit(mux))))

	return s
}

// withRateLimit limits mutating requests per client IP. Reads stay
// unthrottled.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.ipExtractor.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) invalidateDashboard() {
	s.dashCache.Delete(dashboardCacheKey)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
