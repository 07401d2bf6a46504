package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jeremyjsx/postdesk/internal/analytics"
)

type AnalyticsHandler struct {
	svc     *analytics.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnalyticsHandler bounds each request by timeout, which covers waiting
// for a recompute job on a cache miss.
func NewAnalyticsHandler(svc *analytics.Service, timeout time.Duration, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, timeout: timeout, logger: logger}
}

func (h *AnalyticsHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *AnalyticsHandler) Summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		stats, err := h.svc.GetStatistics(ctx)
		if err != nil {
			writeInternal(w, r, h.logger, "get statistics failed", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (h *AnalyticsHandler) Trends() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		details := map[string]string{}
		page := parsePositive(q, "page", details)
		limit := parsePositive(q, "limit", details)
		if len(details) > 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid query parameters", details)
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()
		trends, err := h.svc.GetTrends(ctx, page, limit)
		if err != nil {
			writeInternal(w, r, h.logger, "get trends failed", err)
			return
		}
		writeJSON(w, http.StatusOK, trends)
	}
}

func (h *AnalyticsHandler) PlatformPerformance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		perf, err := h.svc.GetPlatformPerformance(ctx)
		if err != nil {
			writeInternal(w, r, h.logger, "get platform performance failed", err)
			return
		}
		writeJSON(w, http.StatusOK, perf)
	}
}
