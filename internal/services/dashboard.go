package services

import (
	"context"
	"log/slog"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// PreviewLimit caps the filtered rows returned for the data panel.
const PreviewLimit = 500

// Dashboard serves filter options and computed views over the memoized dataset.
// It keeps no per-session state.
type Dashboard struct {
	cell    *DatasetCell
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewDashboard(cell *DatasetCell, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		cell:    cell,
		logger:  logger.With("component", "dashboard"),
		metrics: metrics,
	}
}

// Dataset returns the memoized dataset, loading it on first use.
func (d *Dashboard) Dataset(ctx context.Context) (*Dataset, error) {
	ds, err := d.cell.Get(ctx)
	if err != nil {
		return nil, err
	}
	d.metrics.SetDatasetRecords(ds.Len())
	return ds, nil
}

func (d *Dashboard) Options(ctx context.Context) (models.FilterOptions, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return models.FilterOptions{}, err
	}
	return optionsOf(ds), nil
}

// DefaultSelection covers the whole date range with every product and region selected.
func (d *Dashboard) DefaultSelection(ctx context.Context) (models.FilterSelection, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return models.FilterSelection{}, err
	}
	lo, hi := ds.DateBounds()
	return models.FilterSelection{
		Start:    lo,
		End:      hi,
		Products: ds.Products(),
		Regions:  ds.Regions(),
	}, nil
}

// Compute runs the pipeline for one interaction.
func (d *Dashboard) Compute(ctx context.Context, sel models.FilterSelection) (*models.DashboardView, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	_, span := observability.StartSpan(ctx, "dashboard.compute")
	defer span.End(d.logger)

	start := time.Now()
	result := Compute(ds.View(), sel)
	d.metrics.ObserveCompute(time.Since(start))

	preview := result.Filtered
	truncated := len(preview) > PreviewLimit
	if truncated {
		preview = preview[:PreviewLimit]
	}

	d.logger.Debug("selection computed",
		"filtered", len(result.Filtered),
		"products", len(sel.Products),
		"regions", len(sel.Regions),
		"duration", time.Since(start),
	)

	return &models.DashboardView{
		Selection:     echo(sel),
		Options:       optionsOf(ds),
		Aggregations:  result.Aggregations,
		FilteredCount: len(result.Filtered),
		Preview:       preview,
		Truncated:     truncated,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

func (d *Dashboard) Stats(ctx context.Context) (map[string]any, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	lo, hi := ds.DateBounds()
	return map[string]any{
		"source":       ds.Source,
		"record_count": ds.Len(),
		"products":     len(ds.products),
		"regions":      len(ds.regions),
		"min_date":     lo.Format(models.DayLayout),
		"max_date":     hi.Format(models.DayLayout),
		"loaded_at":    ds.LoadedAt,
	}, nil
}

func optionsOf(ds *Dataset) models.FilterOptions {
	lo, hi := ds.DateBounds()
	return models.FilterOptions{
		Products: ds.Products(),
		Regions:  ds.Regions(),
		MinDate:  lo.Format(models.DayLayout),
		MaxDate:  hi.Format(models.DayLayout),
	}
}

func echo(sel models.FilterSelection) models.SelectionEcho {
	e := models.SelectionEcho{
		StartDate: sel.Start.Format(models.DayLayout),
		EndDate:   sel.End.Format(models.DayLayout),
		Products:  sel.Products,
		Regions:   sel.Regions,
	}
	if e.Products == nil {
		e.Products = []string{}
	}
	if e.Regions == nil {
		e.Regions = []string{}
	}
	return e
}
