package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageCache     = "no-cache"
)

// dashboardPage renders the full page with every filter at its default.
func dashboardPage(dashboard *services.Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		sel, err := dashboard.DefaultSelection(ctx)
		if err != nil {
			errors.WriteError(w, logger, errors.ServiceUnavailableWrap(err, "dataset is not available"),
				observability.GetRequestID(ctx))
			return
		}

		view, err := dashboard.Compute(ctx, sel)
		if err != nil {
			errors.WriteError(w, logger, errors.InternalWrap(err, "failed to compute dashboard"),
				observability.GetRequestID(ctx))
			return
		}

		page := templates.Page{View: view, Figures: charts.Build(view.Aggregations)}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", pageCache)
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			logger.Error("render dashboard page", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// reportTotals logs what the process served before it stops.
func reportTotals(metrics *observability.Metrics, logger *slog.Logger) server.ShutdownHook {
	return func(ctx context.Context) error {
		requests, computes, err := metrics.Totals()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		logger.Info("dashboard service stopping",
			"requests_served", requests,
			"selections_computed", computes,
		)
		return nil
	}
}

func main() {
	_ = godotenv.Load()

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

	loader := services.NewLoader(services.LoaderOptions{
		Sheet:        cfg.Dataset.Sheet,
		CacheDir:     cfg.Dataset.CacheDir,
		CacheEnabled: cfg.Dataset.CacheEnabled,
	}, logger)
	cell := services.NewDatasetCell(func(ctx context.Context) (*services.Dataset, error) {
		return loader.Load(ctx, cfg.Dataset.File)
	})
	dashboard := services.NewDashboard(cell, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	if _, err := dashboard.Dataset(ctx); err != nil {
		logger.Error("failed to load sales data", "file", cfg.Dataset.File, "error", err)
		os.Exit(1)
	}
	duration := time.Since(start)
	logger.Info("sales data loaded successfully", "duration", duration)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(dashboard, logger),
	}

	srv := server.NewServer(dashboard, logger, metrics, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(metrics),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(reportTotals(metrics, logger))

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
