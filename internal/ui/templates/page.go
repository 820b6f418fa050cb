package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
)

const (
	plotlyScript   = "https://cdn.jsdelivr.net/npm/plotly.js-dist-min@2.35.2/plotly.min.js"
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
	refreshAction  = "@get('/sse/dashboard')"
)

// FilterSignals are the client signals bound to the sidebar controls.
type FilterSignals struct {
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Products  []string `json:"products"`
	Regions   []string `json:"regions"`
}

// ChartSignals carry the figures; the leading underscore keeps them client-side only.
type ChartSignals struct {
	FilteredCount int        `json:"filteredCount"`
	Figures       charts.Set `json:"_figures"`
}

type pageSignals struct {
	FilterSignals
	ChartSignals
}

type Page struct {
	View    *models.DashboardView
	Figures charts.Set
}

func NewChartSignals(view *models.DashboardView) ChartSignals {
	return ChartSignals{
		FilteredCount: view.FilteredCount,
		Figures:       charts.Build(view.Aggregations),
	}
}

type pageData struct {
	Signals     string
	View        *models.DashboardView
	Summary     []summaryCard
	Pivot       pivotView
	ProductRows int
	RegionRows  int
}

const pageTemplate = `
{{define "page" -}}
<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sales Dashboard</title>
<script src="` + plotlyScript + `"></script>
<script type="module" src="` + datastarScript + `"></script>
<style>` + stylesheet + `</style></head>
<body data-signals="{{.Signals}}">
<aside data-on:change="` + refreshAction + `"><h2>Filters</h2>
<label>Start date<input type="date" data-bind:start-date min="{{.View.Options.MinDate}}" max="{{.View.Options.MaxDate}}"></label>
<label>End date<input type="date" data-bind:end-date min="{{.View.Options.MinDate}}" max="{{.View.Options.MaxDate}}"></label>
<label>Products<select multiple size="{{.ProductRows}}" data-bind:products>
{{- range .View.Options.Products}}<option value="{{.}}">{{.}}</option>{{end -}}
</select></label>
<label>Regions<select multiple size="{{.RegionRows}}" data-bind:regions>
{{- range .View.Options.Regions}}<option value="{{.}}">{{.}}</option>{{end -}}
</select></label>
{{template "filter-error" ""}}
</aside>
<main><h1>Sales Dashboard</h1>
<p class="lead">Analyze sales by product and region.</p>
{{template "caption" .View.Selection}}
<details><summary>Show filtered data (<span data-text="$filteredCount"></span> rows)</summary>
{{template "records" .View}}
</details>
<h2>Summary</h2>
{{template "summary" .Summary}}
<div class="row">
<div class="panel"><div id="chart-line" class="chart" data-effect="renderFigure('chart-line', $_figures.line)"></div></div>
<div class="panel"><div id="chart-bar" class="chart" data-effect="renderFigure('chart-bar', $_figures.bar)"></div></div>
</div>
<div class="row">
<div class="panel"><div id="chart-donut" class="chart" data-effect="renderFigure('chart-donut', $_figures.donut)"></div></div>
<div class="panel"><h3>Cross tabulation</h3>{{template "pivot" .Pivot}}</div>
</div>
</main>
<script>` + figureScript + `</script></body></html>
{{- end}}
`

// Dashboard is the full single-page dashboard, rendered with the view's selection.
func Dashboard(p Page) templ.Component {
	view := p.View
	signals := pageSignals{
		FilterSignals: FilterSignals{
			StartDate: view.Selection.StartDate,
			EndDate:   view.Selection.EndDate,
			Products:  view.Selection.Products,
			Regions:   view.Selection.Regions,
		},
		ChartSignals: ChartSignals{
			FilteredCount: view.FilteredCount,
			Figures:       p.Figures,
		},
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		initial, err := json.Marshal(signals)
		if err != nil {
			return fmt.Errorf("marshal signals: %w", err)
		}
		return fragment("page", pageData{
			Signals:     string(initial),
			View:        view,
			Summary:     summaryCards(view.Aggregations.Summary),
			Pivot:       newPivotView(view.Aggregations.Pivot),
			ProductRows: max(len(view.Options.Products), 2),
			RegionRows:  max(len(view.Options.Regions), 2),
		}).Render(ctx, w)
	})
}

const figureScript = `
function renderFigure(id, fig) {
  if (!fig || !window.Plotly) return;
  Plotly.react(id, fig.data, fig.layout, {responsive: true, displaylogo: false});
}`

const stylesheet = `
body{margin:0;display:flex;font-family:system-ui,sans-serif;color:#1f2937;background:#f9fafb}
aside{width:260px;padding:1rem;background:#fff;border-right:1px solid #e5e7eb;min-height:100vh}
aside label{display:block;margin:.75rem 0;font-size:.9rem}
aside input,aside select{display:block;width:100%;margin-top:.25rem}
main{flex:1;padding:1.5rem;min-width:0}
.row{display:flex;gap:1rem;margin-top:1rem}
.panel{flex:1;background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:.75rem;min-width:0}
.chart{height:380px}
.summary-grid{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.metric{background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:1rem}
.metric-label{display:block;font-size:.8rem;color:#6b7280}
.metric-value{display:block;font-size:1.5rem;font-weight:600}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #e5e7eb;text-align:left}
.modern-table td.num{text-align:right}
.highlight{background:#fef08a}
.total-row{font-weight:600}
.error{color:#b91c1c;font-size:.85rem}
.caption p{margin:.2rem 0}
`
