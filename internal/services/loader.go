package services

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize     = 1000
	maxWorkers    = 10
	cacheVersion  = "v1"
	utf8BOM       = "\ufeff"
	columnDate    = "date"
	columnProduct = "product"
	columnRegion  = "region"
	columnSales   = "sales"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

type LoaderOptions struct {
	// Sheet selects the worksheet of an .xlsx dataset; empty means the first sheet.
	Sheet        string
	CacheDir     string
	CacheEnabled bool
}

// Loader reads a sales dataset from a CSV or XLSX file.
type Loader struct {
	opts   LoaderOptions
	logger *slog.Logger
}

func NewLoader(opts LoaderOptions, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger.With("component", "loader")}
}

type columnIndex struct {
	date, product, region, sales int
}

// snapshot is the gob-encoded parse result. Sheet records which worksheet
// produced it so a changed DATASET_SHEET never reuses another sheet's rows.
type snapshot struct {
	Sheet   string
	Records []models.SalesRecord
	SavedAt time.Time
}

func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	if l.opts.CacheEnabled {
		if cached, err := l.loadSnapshot(path); err == nil {
			info, statErr := os.Stat(path)
			if statErr == nil && info.ModTime().Before(cached.SavedAt) {
				l.logger.Info("loaded from cache", "records", len(cached.Records))
				return NewDataset(path, cached.Records)
			}
		}
	}

	start := time.Now()
	l.logger.Info("reading dataset", "path", path)

	rows, err := l.readRows(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	records, err := parseRows(ctx, rows, strings.EqualFold(filepath.Ext(path), ".xlsx"))
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	ds, err := NewDataset(path, records)
	if err != nil {
		return nil, err
	}

	if l.opts.CacheEnabled {
		if err := l.saveSnapshot(path, records); err != nil {
			l.logger.Warn("failed to save cache", "error", err)
		}
	}

	duration := time.Since(start)
	l.logger.Info("dataset loaded",
		"records", ds.Len(),
		"products", len(ds.products),
		"regions", len(ds.regions),
		"duration", duration,
	)
	return ds, nil
}

func (l *Loader) readRows(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return l.readWorkbook(path)
	}
	return readCSV(path)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	return rows, nil
}

func (l *Loader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet %q", sheet)
	}
	return rows, nil
}

// parseRows turns a header row plus data rows into records. Batches are parsed
// concurrently; output keeps input order.
func parseRows(ctx context.Context, rows [][]string, serialDates bool) ([]models.SalesRecord, error) {
	cols, err := locateColumns(rows[0])
	if err != nil {
		return nil, err
	}

	data := rows[1:]
	if len(data) == 0 {
		return nil, ErrNoRecords
	}

	records := make([]models.SalesRecord, len(data))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for lo := 0; lo < len(data); lo += batchSize {
		hi := min(lo+batchSize, len(data))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				rec, err := parseRecord(data[i], cols, serialDates)
				if err != nil {
					// +2: one for the header, one for 1-based lines
					return fmt.Errorf("line %d: %w", i+2, err)
				}
				records[i] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func locateColumns(header []string) (columnIndex, error) {
	idx := columnIndex{date: -1, product: -1, region: -1, sales: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))) {
		case columnDate:
			idx.date = i
		case columnProduct:
			idx.product = i
		case columnRegion:
			idx.region = i
		case columnSales:
			idx.sales = i
		}
	}

	var missing []string
	for _, c := range []struct {
		name string
		pos  int
	}{
		{"Date", idx.date},
		{"Product", idx.product},
		{"Region", idx.region},
		{"Sales", idx.sales},
	} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRecord(row []string, cols columnIndex, serialDates bool) (models.SalesRecord, error) {
	field := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := parseDate(field(cols.date), serialDates)
	if err != nil {
		return models.SalesRecord{}, err
	}

	raw := field(cols.sales)
	sales, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.SalesRecord{}, fmt.Errorf("invalid sales value %q", raw)
	}

	return models.SalesRecord{
		Date:    date,
		Product: field(cols.product),
		Region:  field(cols.region),
		Sales:   sales,
	}, nil
}

func parseDate(value string, serialDates bool) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return wallClock(t), nil
		}
	}

	if serialDates {
		if serial, err := strconv.ParseFloat(value, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.UTC(), nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// wallClock keeps the date and time as written and drops any UTC offset, so
// a record is filtered and grouped under the calendar day in the file.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Snapshot cache

func (l *Loader) snapshotPath(path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	if l.opts.Sheet != "" {
		name += "_" + url.PathEscape(l.opts.Sheet)
	}
	return filepath.Join(l.opts.CacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (l *Loader) saveSnapshot(path string, records []models.SalesRecord) error {
	if err := os.MkdirAll(l.opts.CacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(l.snapshotPath(path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{Sheet: l.opts.Sheet, Records: records, SavedAt: time.Now()})
}

func (l *Loader) loadSnapshot(path string) (*snapshot, error) {
	file, err := os.Open(l.snapshotPath(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if len(snap.Records) == 0 {
		return nil, errors.New("empty snapshot")
	}
	if snap.Sheet != l.opts.Sheet {
		return nil, fmt.Errorf("snapshot is for sheet %q, want %q", snap.Sheet, l.opts.Sheet)
	}
	return &snap, nil
}
