package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"qsr-dashboard/internal/errors"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/services"
)

const (
	Version      = "1.0.0"
	cacheControl = "public, max-age=300"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) resolver(r *http.Request) resolver {
	return resolver{ctx: r.Context(), logger: h.logger}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if stderrors.Is(err, services.ErrNotLoaded) {
		err = errors.Wrap(err, errors.CodeServiceUnavail, "Sales data is not loaded")
	}
	errors.WriteErrorContext(r.Context(), w, logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	group := h.resolver(r).group(r.URL.Query().Get("group"))

	bounds, err := h.analytics.Bounds(r.Context(), group)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, bounds, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	q, err := h.resolver(r).query(paramsFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts, err := h.analytics.Options(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, opts, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleHourly(w http.ResponseWriter, r *http.Request) {
	q, err := h.resolver(r).query(paramsFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.analytics.Hourly(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, view, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleProduct(w http.ResponseWriter, r *http.Request) {
	q, err := h.resolver(r).query(paramsFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.analytics.Product(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, view, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	cq, err := h.resolver(r).compare(compareFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.analytics.Compare(r.Context(), cq)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, view, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	p := CorrelationParams{X: r.URL.Query().Get("x"), Y: r.URL.Query().Get("y")}
	if err := check(p); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.analytics.Correlation(r.Context(), p.X, p.Y)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, view, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCatalogs(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Catalogs(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if loaded, _ := h.analytics.Stats()["loaded"].(bool); !loaded {
		status = "loading"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
