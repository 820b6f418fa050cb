package templates

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

const notAvailable = "n/a"

// Fragments patched by the SSE endpoint. Each root element carries the id
// Datastar morphs by.
const fragmentTemplates = `
{{define "summary" -}}
<section id="summary-content" class="summary-grid">
{{- range . -}}
<div class="metric"><span class="metric-label">{{.Label}}</span><span class="metric-value">{{.Value}}</span></div>
{{- end -}}
</section>
{{- end}}

{{define "caption" -}}
<div id="selection-caption" class="caption">
<p><strong>Period</strong>: {{.StartDate}} to {{.EndDate}}</p>
<p><strong>Products</strong>: {{join .Products ", "}}</p>
<p><strong>Regions</strong>: {{join .Regions ", "}}</p>
</div>
{{- end}}

{{define "records" -}}
<div id="records-content">
{{- if eq .FilteredCount 0 -}}
<p class="empty">No rows match the current filters.</p>
{{- else -}}
<table class="modern-table"><thead><tr><th>Date</th><th>Product</th><th>Region</th><th>Sales</th></tr></thead><tbody>
{{- range .Preview -}}
<tr><td>{{day .Date}}</td><td>{{.Product}}</td><td>{{.Region}}</td><td class="num">{{sales .Sales}}</td></tr>
{{- end -}}
</tbody></table>
{{- if .Truncated}}<p class="note">Showing {{len .Preview}} of {{.FilteredCount}} rows.</p>{{end -}}
{{- end -}}
</div>
{{- end}}

{{define "pivot" -}}
<div id="pivot-content"><table class="modern-table pivot"><thead><tr><th>Product</th>
{{- range .Regions}}<th>{{.}}</th>{{end -}}
<th>{{.Total.Label}}</th></tr></thead><tbody>
{{- range .Rows -}}
<tr><th scope="row">{{.Label}}</th>{{template "pivot-cells" .Cells}}</tr>
{{- end -}}
<tr class="total-row"><th scope="row">{{.Total.Label}}</th>{{template "pivot-cells" .Total.Cells}}</tr></tbody></table></div>
{{- end}}

{{define "pivot-cells"}}{{range .}}<td class="num{{if .Highlight}} highlight{{end}}">{{sales .Value}}</td>{{end}}{{end}}

{{define "filter-error"}}<div id="filter-error" class="error" role="alert">{{.}}</div>{{end}}
`

var views = template.Must(template.New("views").Funcs(template.FuncMap{
	"sales": FormatSales,
	"join":  strings.Join,
	"day":   func(t time.Time) string { return t.Format(models.DayLayout) },
}).Parse(fragmentTemplates + pageTemplate))

type summaryCard struct {
	Label, Value string
}

type pivotCell struct {
	Value     float64
	Highlight bool
}

type pivotRow struct {
	Label string
	Cells []pivotCell
}

type pivotView struct {
	Regions []string
	Rows    []pivotRow
	Total   pivotRow
}

// fragment exposes a named template as a templ component.
func fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := views.ExecuteTemplate(w, name, data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		return nil
	})
}

// FormatSales renders an amount with two decimals; undefined statistics render as n/a.
func FormatSales(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.2f", v)
}

func summaryCards(s models.Summary) []summaryCard {
	return []summaryCard{
		{"Total sales", FormatSales(s.Total)},
		{"Average sales", FormatSales(s.Average)},
		{"Max sales", FormatSales(s.Max)},
		{"Min sales", FormatSales(s.Min)},
	}
}

// SummaryCards shows the four scalar statistics.
func SummaryCards(s models.Summary) templ.Component {
	return fragment("summary", summaryCards(s))
}

// SelectionCaption echoes the active filters.
func SelectionCaption(sel models.SelectionEcho) templ.Component {
	return fragment("caption", sel)
}

// RecordsTable lists the filtered rows shown in the collapsible data panel.
func RecordsTable(view *models.DashboardView) templ.Component {
	return fragment("records", view)
}

// PivotTable renders the product × region cross-tabulation with totals,
// highlighting each column's largest product value.
func PivotTable(p models.PivotTable) templ.Component {
	return fragment("pivot", newPivotView(p))
}

func newPivotView(p models.PivotTable) pivotView {
	out := pivotView{
		Regions: p.Regions,
		Rows:    make([]pivotRow, len(p.Rows)),
		Total:   pivotRow{Label: p.TotalRow.Label, Cells: cellsOf(p.TotalRow, nil)},
	}
	if out.Total.Label == "" {
		out.Total.Label = models.TotalLabel
	}
	for i, row := range p.Rows {
		highlight := func(col int) bool {
			return col < len(p.ColumnMax) && p.ColumnMax[col] == i
		}
		out.Rows[i] = pivotRow{Label: row.Label, Cells: cellsOf(row, highlight)}
	}
	return out
}

// cellsOf lists a row's region cells followed by its total.
func cellsOf(row models.PivotRow, highlight func(col int) bool) []pivotCell {
	values := append(append(make([]float64, 0, len(row.Cells)+1), row.Cells...), row.Total)
	cells := make([]pivotCell, len(values))
	for col, v := range values {
		cells[col] = pivotCell{Value: v, Highlight: highlight != nil && highlight(col)}
	}
	return cells
}

// FilterError shows a validation problem next to the controls; an empty message clears it.
func FilterError(message string) templ.Component {
	return fragment("filter-error", message)
}

// RenderString renders c into a string for SSE patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
