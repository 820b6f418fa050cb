package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

func newTestDashboard(t *testing.T, records []models.SalesRecord) *Dashboard {
	t.Helper()
	ds, err := NewDataset("memory", records)
	require.NoError(t, err)
	return NewDashboard(NewLoadedCell(ds), nil, observability.NewMetrics())
}

func TestDashboard_DefaultSelection(t *testing.T) {
	d := newTestDashboard(t, sampleRecords())

	sel, err := d.DefaultSelection(context.Background())
	require.NoError(t, err)

	assert.Equal(t, day(2024, 3, 1), sel.Start)
	assert.Equal(t, day(2024, 3, 5), sel.End)
	assert.Equal(t, []string{"Widget", "Gadget", "Gizmo"}, sel.Products)
	assert.Equal(t, []string{"North", "South", "East"}, sel.Regions)

	view, err := d.Compute(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, 6, view.FilteredCount)
}

func TestDashboard_Options(t *testing.T) {
	d := newTestDashboard(t, threeRows())

	opts, err := d.Options(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.FilterOptions{
		Products: []string{"A", "B"},
		Regions:  []string{"East", "West"},
		MinDate:  "2024-01-01",
		MaxDate:  "2024-01-02",
	}, opts)
}

func TestDashboard_Compute(t *testing.T) {
	d := newTestDashboard(t, threeRows())

	view, err := d.Compute(context.Background(), models.FilterSelection{
		Start:    day(2024, 1, 1),
		End:      day(2024, 1, 2),
		Products: []string{"A"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, view.FilteredCount)
	assert.Len(t, view.Preview, 2)
	assert.False(t, view.Truncated)
	assert.Equal(t, 150.0, view.Aggregations.Summary.Total)
	assert.Equal(t, models.SelectionEcho{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		Products:  []string{"A"},
		Regions:   []string{},
	}, view.Selection)
	assert.False(t, view.GeneratedAt.IsZero())
}

func TestDashboard_ComputeTruncatesPreview(t *testing.T) {
	records := make([]models.SalesRecord, 0, PreviewLimit+25)
	for i := range PreviewLimit + 25 {
		records = append(records, models.SalesRecord{
			Date:    day(2024, 1, 1+i%20),
			Product: "A",
			Region:  "East",
			Sales:   float64(i),
		})
	}
	d := newTestDashboard(t, records)

	sel, err := d.DefaultSelection(context.Background())
	require.NoError(t, err)
	view, err := d.Compute(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, PreviewLimit+25, view.FilteredCount)
	assert.Len(t, view.Preview, PreviewLimit)
	assert.True(t, view.Truncated)
	assert.Equal(t, view.FilteredCount, view.Aggregations.Summary.Count)
}

func TestDashboard_Stats(t *testing.T) {
	d := newTestDashboard(t, threeRows())

	stats, err := d.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "memory", stats["source"])
	assert.Equal(t, 3, stats["record_count"])
	assert.Equal(t, 2, stats["products"])
	assert.Equal(t, 2, stats["regions"])
	assert.Equal(t, "2024-01-01", stats["min_date"])
	assert.Equal(t, "2024-01-02", stats["max_date"])
}

func TestDashboard_DatasetUnavailable(t *testing.T) {
	d := NewDashboard(NewLoadedCell(nil), nil, nil)

	_, err := d.Options(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = d.DefaultSelection(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = d.Compute(context.Background(), models.FilterSelection{})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = d.Stats(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}
