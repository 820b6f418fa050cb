package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
	parser    *selectionParser
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
		parser:    newSelectionParser(),
	}
}

var noStore = map[string]string{
	"Cache-Control": "no-store",
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.dashboard.Options(r.Context())
	if err != nil {
		h.fail(w, r, datasetError(err))
		return
	}

	errors.WriteSuccessWithHeaders(w, opts, map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, view, noStore)
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, view.Aggregations.Summary, noStore)
}

func (h *APIHandlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, view.Aggregations.DailyByProduct, noStore)
}

func (h *APIHandlers) HandleRegionSales(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, view.Aggregations.RegionSales, noStore)
}

func (h *APIHandlers) HandlePivot(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, view.Aggregations.Pivot, noStore)
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	view, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"count":     view.FilteredCount,
		"truncated": view.Truncated,
		"records":   view.Preview,
	}, noStore)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.fail(w, r, datasetError(err))
		return
	}

	errors.WriteSuccess(w, stats)
}

// compute parses the selection from the query string and runs the pipeline.
// On failure it writes the error response and returns false.
func (h *APIHandlers) compute(w http.ResponseWriter, r *http.Request) (*models.DashboardView, bool) {
	in, err := h.parser.fromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	view, err := computeSelection(r.Context(), h.dashboard, in)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return view, true
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func computeSelection(ctx context.Context, dashboard *services.Dashboard, in selectionInput) (*models.DashboardView, error) {
	defaults, err := dashboard.DefaultSelection(ctx)
	if err != nil {
		return nil, datasetError(err)
	}

	sel, err := in.resolve(defaults)
	if err != nil {
		return nil, err
	}

	view, err := dashboard.Compute(ctx, sel)
	if err != nil {
		return nil, datasetError(err)
	}
	return view, nil
}

func datasetError(err error) error {
	if stderrors.Is(err, services.ErrDatasetNotLoaded) {
		return errors.ServiceUnavailableWrap(err, "dataset is not available")
	}
	return errors.InternalWrap(err, "failed to compute dashboard")
}
