package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
)

const (
	requestTimeout        = 30 * time.Second
	defaultMaxImportBytes = 5 << 20
)

// ExpenseAPI is the backend behaviour served over HTTP.
// *services.ExpenseService implements it.
type ExpenseAPI interface {
	CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
	UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
	ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error)
	Import(ctx context.Context, records []core.ExpenseRecord) (core.BackendImportResult, error)

	CategorySummary(ctx context.Context, year, month int) (core.CategoryTotals, error)
	YearToDate(ctx context.Context, year int) (core.CategoryTotals, error)
	MonthlyTotal(ctx context.Context, year, month int) (decimal.Decimal, error)
	MonthlyTrend(ctx context.Context, year int) ([12]decimal.Decimal, error)

	ListRecurring(ctx context.Context) ([]core.RecurringTemplate, error)
	CreateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
	UpdateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
	DeleteRecurring(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	AddCategory(ctx context.Context, name string) (core.Category, error)
	AddSubCategory(ctx context.Context, category, sub string) (core.Category, error)
	DeleteCategory(ctx context.Context, name string) error

	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int // 0 disables rate limiting
	MaxImportBytes     int64
	Logger             *log.Logger
}

type Server struct {
	http.Server
	api            ExpenseAPI
	logger         *log.Logger
	rateLimiter    *ratelimit.Limiter
	ipResolver     *security.ClientIPResolver
	maxImportBytes int64
	startedAt      time.Time

	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a ready-to-run server.
func NewServer(api ExpenseAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = defaultMaxImportBytes
	}

	s := &Server{
		api:            api,
		logger:         logger.WithComponent(log.ComponentHTTP),
		ipResolver:     security.NewClientIPResolver(),
		maxImportBytes: opts.MaxImportBytes,
		startedAt:      time.Now(),
	}
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Middleware(s.ipResolver.ExtractClientIP, s.handleRateLimited))
	}
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/expenses", func(r chi.Router) {
		r.Get("/", s.handleListExpenses)
		r.Post("/", s.handleCreateExpense)
		r.Get("/all", s.handleListAllExpenses)
		r.Post("/import", s.handleImport)
		r.Get("/export", s.handleExport)

		r.Get("/category-summary", s.handleCategorySummary)
		r.Get("/year-to-date", s.handleYearToDate)
		r.Get("/monthly-total", s.handleMonthlyTotal)
		r.Get("/monthly-trend", s.handleMonthlyTrend)

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Post("/", s.handleCreateRecurring)
			r.Put("/{id}", s.handleUpdateRecurring)
			r.Delete("/{id}", s.handleDeleteRecurring)
		})

		r.Get("/{id}", s.handleGetExpense)
		r.Put("/{id}", s.handleUpdateExpense)
		r.Delete("/{id}", s.handleDeleteExpense)
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/add-subcategory", s.handleAddSubCategory)
		r.Post("/{name}", s.handleAddCategory)
		r.Delete("/{name}", s.handleDeleteCategory)
	})

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipResolver.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
