package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/config"
	"qsr-dashboard/internal/handlers"
	"qsr-dashboard/internal/middleware"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/pipeline"
	"qsr-dashboard/internal/server"
	"qsr-dashboard/internal/services"
	"qsr-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	sheetTimeout   = 60 * time.Second
	sweepInterval  = time.Minute
	cacheMaxAge    = "public, max-age=300"
	dashboardTitle = "QSR Sales Dashboard"
)

var rootCmd = &cobra.Command{
	Use:   "qsr-dashboard",
	Short: "Hourly product sales dashboard for a quick service restaurant",
	Long: `qsr-dashboard loads an hourly sales sheet (one column per product) and
serves filterable views of it: products sold per hour, a product's sales
through the day, side by side comparisons and feature correlation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qsr-dashboard %s\n", handlers.Version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the sales sheet and serve the dashboard",
		Long: `Serve reads its configuration from QSR_* environment variables, loads the
sales sheet named by QSR_DATA_FILE and serves the dashboard, the REST API,
the datastar SSE endpoints and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// newAnalytics builds the analytics service the way the data config asks for.
func newAnalytics(cfg config.DataConfig, opts ...services.Option) (*services.Analytics, error) {
	opts = append(opts, services.WithSheet(cfg.Sheet))
	if cfg.CacheEnable {
		opts = append(opts, services.WithCache(cfg.CacheDir))
	}
	if cfg.CatalogFile != "" {
		reg, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, services.WithCatalogs(reg))
	}
	return services.NewAnalytics(opts...), nil
}

func dashboardPage(ctx context.Context, analytics *services.Analytics) templates.Page {
	page := templates.Page{
		Title:   dashboardTitle,
		Version: handlers.Version,
	}
	for _, c := range analytics.Catalogs() {
		page.Groups = append(page.Groups, templates.Option{Value: string(c.ID), Label: c.Label})
	}
	for _, fn := range pipeline.AggFuncs {
		page.AggFuncs = append(page.AggFuncs, string(fn))
	}
	for _, m := range pipeline.Metrics {
		page.Metrics = append(page.Metrics, string(m))
	}
	if bounds, err := analytics.Bounds(ctx, catalog.DefaultGroup); err == nil {
		page.StartDate = bounds.Start.Format(time.DateOnly)
		page.EndDate = bounds.End.Format(time.DateOnly)
	}
	return page
}

func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Cache-Control", cacheMaxAge)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(dashboardPage(ctx, analytics)).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wraps the routes in the request middleware. Metrics sits
// innermost so it sees the route pattern the mux matched.
func newHandler(security config.SecurityConfig, logger *slog.Logger, tracer trace.Tracer, metrics *observability.Metrics, limiter *middleware.RateLimiter) middleware.Middleware {
	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(tracer),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(security),
		middleware.TrustedProxy(security),
		middleware.RateLimit(limiter, logger),
		middleware.Metrics(metrics),
	)
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"config", cfg,
	)

	tracing, err := observability.InitTracing(cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	metrics := observability.NewMetrics()

	analytics, err := newAnalytics(cfg.Data,
		services.WithLogger(logger),
		services.WithTracer(tracing.Tracer),
		services.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, sheetTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromFile(loadCtx, cfg.Data.File); err != nil {
		return fmt.Errorf("failed to load sales sheet: %w", err)
	}
	logger.Info("sales sheet loaded successfully", "duration", time.Since(start))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, metrics, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	handler := newHandler(cfg.Security, logger, tracing.Tracer, metrics, rateLimiter)(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(tracing.Shutdown)
	gracefulServer.Every(sweepInterval, func(ctx context.Context) {
		if n := rateLimiter.Sweep(); n > 0 {
			logger.DebugContext(ctx, "removed idle rate limiters", "count", n)
		}
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("application stopped gracefully")
	return nil
}
