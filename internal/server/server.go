package server

import (
	"log/slog"
	"net/http"

	"retail-insights/internal/handlers"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, defaults handlers.Defaults, metrics *observability.Metrics,
	logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, defaults, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, defaults, logger),
	}
	s.setupRoutes(templateHandlers, metrics)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, metrics *observability.Metrics) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/data-quality", s.apiHandlers.HandleDataQuality)
	s.mux.HandleFunc("GET /api/promo-summary", s.apiHandlers.HandlePromoSummary)
	s.mux.HandleFunc("GET /api/price-index", s.apiHandlers.HandlePriceIndex)
	s.mux.HandleFunc("GET /api/supplier-comparison", s.apiHandlers.HandleSupplierComparison)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/data-quality", s.sseHandlers.HandleDataQuality)
	s.mux.HandleFunc("GET /sse/promotions", s.sseHandlers.HandlePromotions)
	s.mux.HandleFunc("GET /sse/pricing", s.sseHandlers.HandlePricing)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
