package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"retail-insights/internal/config"
	"retail-insights/internal/handlers"
	"retail-insights/internal/middleware"
	"retail-insights/internal/observability"
	"retail-insights/internal/server"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func dashboardHandler(props templates.DashboardProps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(props).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newAnalytics(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *services.Analytics {
	return services.NewAnalytics(
		services.WithSource(cfg.Data.File, services.LoadOptions{
			Sheet:    cfg.Data.Sheet,
			CacheDir: cfg.Data.CacheDir,
			UseCache: cfg.Data.UseCache,
			Logger:   logger,
		}),
		services.WithPromotionOptions(services.PromotionOptions{
			DiscountThreshold: cfg.Analysis.DiscountThreshold,
			MinDays:           cfg.Analysis.MinPromoDays,
		}),
		services.WithLogger(logger),
		services.WithMetrics(metrics),
	)
}

func newRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.Security, "/health", "/metrics")
}

func newHandler(cfg *config.Config, analytics *services.Analytics, metrics *observability.Metrics,
	rateLimiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	defaults := handlers.Defaults{
		PromoSupplier: cfg.Analysis.PromoSupplier,
		PriceSupplier: cfg.Analysis.PriceSupplier,
	}
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(templates.DashboardProps{
			PromoSupplier: defaults.PromoSupplier,
			PriceSupplier: defaults.PriceSupplier,
		}),
	}

	srv := server.NewServer(analytics, defaults, metrics, logger, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Instrument(logger, metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	metrics := observability.NewMetrics()
	analytics := newAnalytics(cfg, logger, metrics)

	if cfg.Data.EagerLoad {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
		start := time.Now()
		err := analytics.Load(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to load sales data", "file", cfg.Data.File, "error", err)
			os.Exit(1)
		}
		logger.Info("sales data loaded", "records", analytics.RecordCount(), "duration", time.Since(start))
	}

	rateLimiter := newRateLimiter(cfg)
	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, metrics, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.Go(rateLimiter.Run)
	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "records", analytics.RecordCount())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
