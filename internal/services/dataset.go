package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"sales-dashboard/internal/models"
)

var (
	ErrNoRecords        = errors.New("no records")
	ErrMissingColumn    = errors.New("missing required column")
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
)

// Dataset is the immutable in-memory sales table.
type Dataset struct {
	records  []models.SalesRecord
	products []string
	regions  []string
	minDate  time.Time
	maxDate  time.Time

	Source   string
	LoadedAt time.Time
}

// NewDataset takes ownership of records; callers must not modify the slice afterwards.
func NewDataset(source string, records []models.SalesRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	ds := &Dataset{
		records:  records,
		Source:   source,
		LoadedAt: time.Now(),
		minDate:  records[0].Day(),
		maxDate:  records[0].Day(),
	}

	seenProducts := make(map[string]bool)
	seenRegions := make(map[string]bool)
	for _, r := range records {
		if !seenProducts[r.Product] {
			seenProducts[r.Product] = true
			ds.products = append(ds.products, r.Product)
		}
		if !seenRegions[r.Region] {
			seenRegions[r.Region] = true
			ds.regions = append(ds.regions, r.Region)
		}
		day := r.Day()
		if day.Before(ds.minDate) {
			ds.minDate = day
		}
		if day.After(ds.maxDate) {
			ds.maxDate = day
		}
	}

	return ds, nil
}

// Records returns a copy of all records.
func (d *Dataset) Records() []models.SalesRecord {
	return slices.Clone(d.records)
}

// View returns the records for read-only use by the pipeline without copying.
func (d *Dataset) View() []models.SalesRecord {
	return d.records[:len(d.records):len(d.records)]
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Products lists distinct products in order of first appearance.
func (d *Dataset) Products() []string {
	return slices.Clone(d.products)
}

// Regions lists distinct regions in order of first appearance.
func (d *Dataset) Regions() []string {
	return slices.Clone(d.regions)
}

// DateBounds returns the first and last calendar day present in the data.
func (d *Dataset) DateBounds() (time.Time, time.Time) {
	return d.minDate, d.maxDate
}

// DatasetCell is a write-once holder for the dataset. The first Get runs the
// loader; every later Get returns the same dataset or the same error.
type DatasetCell struct {
	once sync.Once
	load func(ctx context.Context) (*Dataset, error)
	ds   *Dataset
	err  error
}

func NewDatasetCell(load func(ctx context.Context) (*Dataset, error)) *DatasetCell {
	return &DatasetCell{load: load}
}

// NewLoadedCell wraps an already built dataset.
func NewLoadedCell(ds *Dataset) *DatasetCell {
	c := &DatasetCell{}
	c.once.Do(func() {
		c.ds = ds
		if ds == nil {
			c.err = ErrDatasetNotLoaded
		}
	})
	return c
}

func (c *DatasetCell) Get(ctx context.Context) (*Dataset, error) {
	c.once.Do(func() {
		if c.load == nil {
			c.err = ErrDatasetNotLoaded
			return
		}
		c.ds, c.err = c.load(ctx)
	})
	return c.ds, c.err
}
