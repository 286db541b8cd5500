package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/handler"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger              *logger.Logger
	AllowedOrigins      []string
	RateLimitRPS        float64
	RateLimitBurst      int
	ReportHandler       *handler.ReportHandler
	DistributionHandler *handler.DistributionHandler
	HealthHandler       *handler.HealthHandler
	// Metrics records per-route request metrics; MetricsHandler serves them
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler
	JWTMiddleware  func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTMiddleware != nil {
			r.Use(cfg.JWTMiddleware)
		}

		if h := cfg.ReportHandler; h != nil {
			r.Post("/reports/{kind}", h.ComputeReport)
		}
		if h := cfg.DistributionHandler; h != nil {
			r.Post("/distributions/preview", h.Calculate)
		}

		r.Route("/cases/{caseID}", func(r chi.Router) {
			if h := cfg.ReportHandler; h != nil {
				r.Get("/statement", h.GetCaseReport(casefile.ReportStatement))
				r.Get("/trial-balance", h.GetCaseReport(casefile.ReportTrialBalance))
				r.Get("/vat", h.GetCaseReport(casefile.ReportVAT))
				r.Post("/invalidate", h.InvalidateCase)
			}

			if h := cfg.DistributionHandler; h != nil {
				r.Get("/distributions", h.List)
				r.Post("/distributions", h.Declare)
				r.Post("/distributions/preview", h.PreviewCase)
				r.Get("/distributions/{id}", h.Get)
				r.Delete("/distributions/{id}", h.Delete)
			}
		})
	})

	return r
}
