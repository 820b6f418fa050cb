package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
	parser    *selectionParser
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
		parser:    newSelectionParser(),
	}
}

// HandleDashboard recomputes every view for the selection carried in the
// request signals and patches the fragments and chart signals in one stream.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	in, err := h.parser.fromSignals(r)
	if err != nil {
		h.patchError(w, r, err)
		return
	}

	view, err := computeSelection(r.Context(), h.dashboard, in)
	if err != nil {
		h.patchError(w, r, err)
		return
	}

	fragments, err := h.renderFragments(r, view)
	if err != nil {
		h.logger.Error("render dashboard fragments", "error", err)
		return
	}

	signals, err := json.Marshal(templates.NewChartSignals(view))
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	for _, html := range fragments {
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err)
			return
		}
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) renderFragments(r *http.Request, view *models.DashboardView) ([]string, error) {
	components := []templ.Component{
		templates.SelectionCaption(view.Selection),
		templates.SummaryCards(view.Aggregations.Summary),
		templates.RecordsTable(view),
		templates.PivotTable(view.Aggregations.Pivot),
		templates.FilterError(""),
	}

	out := make([]string, 0, len(components))
	for _, c := range components {
		html, err := templates.RenderString(r.Context(), c)
		if err != nil {
			return nil, err
		}
		out = append(out, html)
	}
	return out, nil
}

// patchError shows the problem next to the filter controls. The previous
// views stay on screen.
func (h *SSEHandlers) patchError(w http.ResponseWriter, r *http.Request, err error) {
	message := "Could not update the dashboard."
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		for _, field := range slices.Sorted(maps.Keys(appErr.Fields)) {
			message += "; " + field + " " + appErr.Fields[field]
		}
		if appErr.StatusCode >= http.StatusInternalServerError {
			h.logger.Error("dashboard update failed", "error", err)
		} else {
			h.logger.Warn("dashboard update rejected", "error", err)
		}
	} else {
		h.logger.Error("dashboard update failed", "error", err)
	}

	html, renderErr := templates.RenderString(r.Context(), templates.FilterError(message))
	if renderErr != nil {
		h.logger.Error("render filter error", "error", renderErr)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch elements", "error", err)
	}
}
