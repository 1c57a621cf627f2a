package server

import (
	"log/slog"
	"net/http"

	"qsr-dashboard/internal/handlers"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	metrics     *observability.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, metrics *observability.Metrics, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		metrics:     metrics,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	if templateHandlers != nil && templateHandlers.Dashboard != nil {
		s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	}
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// REST API endpoints
	s.mux.HandleFunc("GET /api/bounds", s.apiHandlers.HandleBounds)
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("GET /api/hourly", s.apiHandlers.HandleHourly)
	s.mux.HandleFunc("GET /api/product", s.apiHandlers.HandleProduct)
	s.mux.HandleFunc("GET /api/compare", s.apiHandlers.HandleCompare)
	s.mux.HandleFunc("GET /api/correlation", s.apiHandlers.HandleCorrelation)
	s.mux.HandleFunc("GET /api/catalogs", s.apiHandlers.HandleCatalogs)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/options", s.sseHandlers.HandleOptions)
	s.mux.HandleFunc("GET /sse/hourly", s.sseHandlers.HandleHourly)
	s.mux.HandleFunc("GET /sse/product", s.sseHandlers.HandleProduct)
	s.mux.HandleFunc("GET /sse/compare", s.sseHandlers.HandleCompare)
	s.mux.HandleFunc("GET /sse/correlation", s.sseHandlers.HandleCorrelation)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
