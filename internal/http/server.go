package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
	"cardcycle/internal/middleware/ratelimit"
	"cardcycle/internal/middleware/security"
	"cardcycle/internal/middleware/trace"
	"cardcycle/internal/services"
)

// AccountStore is the account side of the store used by the API.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ConfigureStatement(ctx context.Context, id string, statementDate, dueDate *int) (core.Account, error)
	ListTransferTypes(ctx context.Context) ([]core.TransferType, error)
}

// TransactionWriter is implemented by *services.TransactionService.
type TransactionWriter interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
	UpdateIncome(ctx context.Context, in core.Income) (core.Income, error)
	DeleteIncome(ctx context.Context, id string) error
	CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
	UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
	DeleteTransfer(ctx context.Context, id string) error
}

// ActivityReader returns the per-bucket totals of a card's cycle.
type ActivityReader interface {
	Activity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error)
}

// Pinger is checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles what the handlers call into.
type Deps struct {
	Accounts     AccountStore
	Transactions TransactionWriter
	Activity     ActivityReader
	Roller       services.StatementRunner
	Ready        Pinger
}

type Options struct {
	Location           *time.Location
	CronSecret         string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server

	accounts   AccountStore
	tx         TransactionWriter
	activity   ActivityReader
	roller     services.StatementRunner
	ready      Pinger
	loc        *time.Location
	cronSecret string
	now        func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		accounts:   deps.Accounts,
		tx:         deps.Transactions,
		activity:   deps.Activity,
		roller:     deps.Roller,
		ready:      deps.Ready,
		loc:        opts.Location,
		cronSecret: opts.CronSecret,
		now:        time.Now,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: detector,
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("GET /api/accounts/{id}/statement", s.handleGetStatement)
	mux.HandleFunc("PUT /api/accounts/{id}/statement", s.handleConfigureStatement)
	mux.HandleFunc("GET /api/transfer-types", s.handleListTransferTypes)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/incomes", s.handleCreateIncome)
	mux.HandleFunc("PUT /api/incomes/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleDeleteIncome)
	mux.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	mux.HandleFunc("PUT /api/transfers/{id}", s.handleUpdateTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", s.handleDeleteTransfer)

	mux.HandleFunc("POST /api/cron/statements", s.handleRollStatements)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	// Outermost first: trace, security headers, detection, rate limit.
	var handler http.Handler = mux
	handler = limited(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// The cron endpoint runs a full roll-over inside the request.
		WriteTimeout:   6 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		slog.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)

		rl := s.limiter.GetMetrics()
		tm := s.tracer.GetMetrics()
		slog.InfoContext(ctx, "HTTP server stopped",
			"total_requests", tm.TotalRequests,
			"server_errors", tm.ServerErrors,
			"rate_limited", rl.Rejected,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(r, http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
