// Package charts builds Plotly figures (data + layout) from dashboard aggregations.
// The browser passes them straight to Plotly.react.
package charts

import (
	"cmp"
	"slices"

	"sales-dashboard/internal/models"
)

const (
	TitleDailyLine   = "Daily sales by product"
	TitleDailyBar    = "Daily sales distribution by product"
	TitleRegionPie   = "Sales share by region"
	EmptyPlaceholder = "No data for the current filters"

	axisDate  = "Date"
	axisSales = "Sales"
	gridColor = "#ebf0f8"
)

var palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type   string    `json:"type"`
	Name   string    `json:"name,omitempty"`
	Mode   string    `json:"mode,omitempty"`
	X      []string  `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Hole   float64   `json:"hole,omitempty"`
	Marker *Marker   `json:"marker,omitempty"`
}

type Marker struct {
	Color  string   `json:"color,omitempty"`
	Colors []string `json:"colors,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Axis struct {
	Title     Text   `json:"title"`
	GridColor string `json:"gridcolor,omitempty"`
	Visible   *bool  `json:"visible,omitempty"`
}

type Legend struct {
	Orientation string  `json:"orientation"`
	YAnchor     string  `json:"yanchor"`
	Y           float64 `json:"y"`
	XAnchor     string  `json:"xanchor"`
	X           float64 `json:"x"`
}

type Annotation struct {
	Text      string  `json:"text"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ShowArrow bool    `json:"showarrow"`
}

type Layout struct {
	Title        Text         `json:"title"`
	XAxis        *Axis        `json:"xaxis,omitempty"`
	YAxis        *Axis        `json:"yaxis,omitempty"`
	BarMode      string       `json:"barmode,omitempty"`
	Legend       *Legend      `json:"legend,omitempty"`
	Annotations  []Annotation `json:"annotations,omitempty"`
	PaperBGColor string       `json:"paper_bgcolor"`
	PlotBGColor  string       `json:"plot_bgcolor"`
}

// Empty reports whether the figure has nothing to draw.
func (f Figure) Empty() bool {
	return len(f.Data) == 0
}

// DailyLine draws one line per product with point markers and the legend laid out above the plot.
func DailyLine(daily []models.DailyProductSales) Figure {
	fig := Figure{Layout: baseLayout(TitleDailyLine)}
	fig.Layout.XAxis = &Axis{Title: Text{axisDate}, GridColor: gridColor}
	fig.Layout.YAxis = &Axis{Title: Text{axisSales}, GridColor: gridColor}
	fig.Layout.Legend = &Legend{Orientation: "h", YAnchor: "bottom", Y: 1.02, XAnchor: "right", X: 1}

	for i, s := range seriesByProduct(daily) {
		fig.Data = append(fig.Data, Trace{
			Type:   "scatter",
			Mode:   "lines+markers",
			Name:   s.product,
			X:      s.dates,
			Y:      s.sales,
			Marker: &Marker{Color: palette[i%len(palette)]},
		})
	}
	return withPlaceholder(fig)
}

// DailyStackedBar draws the same series as DailyLine as stacked bars.
func DailyStackedBar(daily []models.DailyProductSales) Figure {
	fig := Figure{Layout: baseLayout(TitleDailyBar)}
	fig.Layout.XAxis = &Axis{Title: Text{axisDate}, GridColor: gridColor}
	fig.Layout.YAxis = &Axis{Title: Text{axisSales}, GridColor: gridColor}
	fig.Layout.BarMode = "stack"

	for i, s := range seriesByProduct(daily) {
		fig.Data = append(fig.Data, Trace{
			Type:   "bar",
			Name:   s.product,
			X:      s.dates,
			Y:      s.sales,
			Marker: &Marker{Color: palette[i%len(palette)]},
		})
	}
	return withPlaceholder(fig)
}

// RegionDonut draws each region's share of total sales.
func RegionDonut(regions []models.RegionSales) Figure {
	fig := Figure{Layout: baseLayout(TitleRegionPie)}
	if len(regions) == 0 {
		return withPlaceholder(fig)
	}

	trace := Trace{Type: "pie", Hole: 0.4, Marker: &Marker{}}
	for i, r := range regions {
		trace.Labels = append(trace.Labels, r.Region)
		trace.Values = append(trace.Values, r.Sales)
		trace.Marker.Colors = append(trace.Marker.Colors, palette[i%len(palette)])
	}
	fig.Data = []Trace{trace}
	return fig
}

type productSeries struct {
	product string
	dates   []string
	sales   []float64
}

// seriesByProduct splits day-ordered rows into one series per product, in product-name order.
func seriesByProduct(daily []models.DailyProductSales) []productSeries {
	index := make(map[string]int)
	var series []productSeries
	for _, d := range daily {
		i, ok := index[d.Product]
		if !ok {
			i = len(series)
			index[d.Product] = i
			series = append(series, productSeries{product: d.Product})
		}
		series[i].dates = append(series[i].dates, d.Date)
		series[i].sales = append(series[i].sales, d.Sales)
	}
	slices.SortFunc(series, func(a, b productSeries) int {
		return cmp.Compare(a.product, b.product)
	})
	return series
}

func baseLayout(title string) Layout {
	return Layout{
		Title:        Text{title},
		PaperBGColor: "white",
		PlotBGColor:  "white",
	}
}

func withPlaceholder(fig Figure) Figure {
	if !fig.Empty() {
		return fig
	}
	hidden := false
	fig.Data = []Trace{}
	fig.Layout.Legend = nil
	fig.Layout.XAxis = &Axis{Visible: &hidden}
	fig.Layout.YAxis = &Axis{Visible: &hidden}
	fig.Layout.Annotations = []Annotation{{
		Text: EmptyPlaceholder,
		XRef: "paper",
		YRef: "paper",
		X:    0.5,
		Y:    0.5,
	}}
	return fig
}

// Set is the group of figures the dashboard shows together.
type Set struct {
	Line  Figure `json:"line"`
	Bar   Figure `json:"bar"`
	Donut Figure `json:"donut"`
}

func Build(agg models.Aggregations) Set {
	return Set{
		Line:  DailyLine(agg.DailyByProduct),
		Bar:   DailyStackedBar(agg.DailyByProduct),
		Donut: RegionDonut(agg.RegionSales),
	}
}
