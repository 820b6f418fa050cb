package charts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

var daily = []models.DailyProductSales{
	{Date: "2024-01-01", Product: "Widget", Sales: 100},
	{Date: "2024-01-01", Product: "Anvil", Sales: 5},
	{Date: "2024-01-02", Product: "Widget", Sales: 50},
}

func TestDailyLine(t *testing.T) {
	fig := DailyLine(daily)

	require.Len(t, fig.Data, 2)
	assert.Equal(t, "Anvil", fig.Data[0].Name)
	assert.Equal(t, "Widget", fig.Data[1].Name)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, fig.Data[1].X)
	assert.Equal(t, []float64{100, 50}, fig.Data[1].Y)

	for _, tr := range fig.Data {
		assert.Equal(t, "scatter", tr.Type)
		assert.Equal(t, "lines+markers", tr.Mode)
	}
	assert.NotEqual(t, fig.Data[0].Marker.Color, fig.Data[1].Marker.Color)

	assert.Equal(t, TitleDailyLine, fig.Layout.Title.Text)
	require.NotNil(t, fig.Layout.Legend)
	assert.Equal(t, "h", fig.Layout.Legend.Orientation)
	assert.Equal(t, "Date", fig.Layout.XAxis.Title.Text)
	assert.Equal(t, "Sales", fig.Layout.YAxis.Title.Text)
	assert.Empty(t, fig.Layout.Annotations)
}

func TestDailyStackedBar(t *testing.T) {
	fig := DailyStackedBar(daily)

	require.Len(t, fig.Data, 2)
	assert.Equal(t, "stack", fig.Layout.BarMode)
	assert.Equal(t, TitleDailyBar, fig.Layout.Title.Text)
	for _, tr := range fig.Data {
		assert.Equal(t, "bar", tr.Type)
	}
}

func TestRegionDonut(t *testing.T) {
	fig := RegionDonut([]models.RegionSales{
		{Region: "East", Sales: 130},
		{Region: "West", Sales: 50},
	})

	require.Len(t, fig.Data, 1)
	pie := fig.Data[0]
	assert.Equal(t, "pie", pie.Type)
	assert.Equal(t, 0.4, pie.Hole)
	assert.Equal(t, []string{"East", "West"}, pie.Labels)
	assert.Equal(t, []float64{130, 50}, pie.Values)
	assert.Len(t, pie.Marker.Colors, 2)
	assert.Equal(t, TitleRegionPie, fig.Layout.Title.Text)
}

func TestEmptyFiguresShowPlaceholder(t *testing.T) {
	figures := []Figure{
		DailyLine(nil),
		DailyStackedBar(nil),
		RegionDonut(nil),
	}

	for _, fig := range figures {
		t.Run(fig.Layout.Title.Text, func(t *testing.T) {
			assert.True(t, fig.Empty())
			require.Len(t, fig.Layout.Annotations, 1)
			assert.Equal(t, EmptyPlaceholder, fig.Layout.Annotations[0].Text)
			require.NotNil(t, fig.Layout.XAxis.Visible)
			assert.False(t, *fig.Layout.XAxis.Visible)
			assert.Nil(t, fig.Layout.Legend)

			raw, err := json.Marshal(fig)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"data":[]`)
		})
	}
}

func TestBuild(t *testing.T) {
	set := Build(models.Aggregations{
		DailyByProduct: daily,
		RegionSales:    []models.RegionSales{{Region: "East", Sales: 155}},
	})

	assert.Len(t, set.Line.Data, 2)
	assert.Len(t, set.Bar.Data, 2)
	assert.Len(t, set.Donut.Data, 1)

	raw, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "line")
	assert.Contains(t, decoded, "bar")
	assert.Contains(t, decoded, "donut")
	assert.Contains(t, decoded["line"], "layout")
}
