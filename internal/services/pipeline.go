package services

import (
	"cmp"
	"math"
	"slices"
	"time"

	"sales-dashboard/internal/models"
)

// Result is the output of one pass of the filter and aggregate pipeline.
type Result struct {
	Filtered     []models.SalesRecord
	Aggregations models.Aggregations
}

// Compute filters records by sel and aggregates the filtered view.
// It holds no state and never modifies records.
func Compute(records []models.SalesRecord, sel models.FilterSelection) Result {
	filtered := ApplyFilters(records, sel)
	return Result{
		Filtered: filtered,
		Aggregations: models.Aggregations{
			Summary:        Summarize(filtered),
			DailyByProduct: DailyByProduct(filtered),
			RegionSales:    SalesByRegion(filtered),
			Pivot:          CrossTab(filtered),
		},
	}
}

// ApplyFilters runs the date, product and region filters in that order.
func ApplyFilters(records []models.SalesRecord, sel models.FilterSelection) []models.SalesRecord {
	view := FilterByDate(records, sel.Start, sel.End)
	view = FilterByProducts(view, sel.Products)
	return FilterByRegions(view, sel.Regions)
}

// StartOfDay returns midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999999 of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999000, t.Location())
}

// FilterByDate keeps records dated within [start, end], both ends inclusive.
// The end bound covers the whole end day.
func FilterByDate(records []models.SalesRecord, start, end time.Time) []models.SalesRecord {
	lo, hi := StartOfDay(start), EndOfDay(end)
	return filter(records, func(r models.SalesRecord) bool {
		return !r.Date.Before(lo) && !r.Date.After(hi)
	})
}

// FilterByProducts keeps records whose product is selected. No products selects nothing.
func FilterByProducts(records []models.SalesRecord, products []string) []models.SalesRecord {
	set := toSet(products)
	return filter(records, func(r models.SalesRecord) bool {
		return set[r.Product]
	})
}

// FilterByRegions keeps records whose region is selected. No regions means no region filter.
func FilterByRegions(records []models.SalesRecord, regions []string) []models.SalesRecord {
	if len(regions) == 0 {
		return slices.Clone(records)
	}
	set := toSet(regions)
	return filter(records, func(r models.SalesRecord) bool {
		return set[r.Region]
	})
}

func filter(records []models.SalesRecord, keep func(models.SalesRecord) bool) []models.SalesRecord {
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// Summarize computes sum, mean, max and min of Sales.
// For an empty view the sum is zero and the rest are NaN.
func Summarize(records []models.SalesRecord) models.Summary {
	if len(records) == 0 {
		nan := math.NaN()
		return models.Summary{Average: nan, Max: nan, Min: nan, Empty: true}
	}

	s := models.Summary{
		Count: len(records),
		Max:   math.Inf(-1),
		Min:   math.Inf(1),
	}
	for _, r := range records {
		s.Total += r.Sales
		s.Max = max(s.Max, r.Sales)
		s.Min = min(s.Min, r.Sales)
	}
	s.Average = s.Total / float64(len(records))
	return s
}

// DailyByProduct sums sales per calendar day and product, ordered by day then product.
func DailyByProduct(records []models.SalesRecord) []models.DailyProductSales {
	type key struct {
		day     time.Time
		product string
	}
	sums := make(map[key]float64)
	for _, r := range records {
		sums[key{r.Day(), r.Product}] += r.Sales
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := a.day.Compare(b.day); c != 0 {
			return c
		}
		return cmp.Compare(a.product, b.product)
	})

	out := make([]models.DailyProductSales, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.DailyProductSales{
			Date:    k.day.Format(models.DayLayout),
			Product: k.product,
			Sales:   sums[k],
		})
	}
	return out
}

// SalesByRegion sums sales per region, ordered by region name.
func SalesByRegion(records []models.SalesRecord) []models.RegionSales {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[r.Region] += r.Sales
	}

	out := make([]models.RegionSales, 0, len(sums))
	for _, region := range sortedKeys(sums) {
		out = append(out, models.RegionSales{Region: region, Sales: sums[region]})
	}
	return out
}

// CrossTab builds the product × region table of summed sales. Missing combinations are zero.
// The Total row holds column sums and the Total column holds row sums, so the
// bottom-right cell is the grand total.
func CrossTab(records []models.SalesRecord) models.PivotTable {
	products := make(map[string]bool)
	regions := make(map[string]bool)
	cells := make(map[[2]string]float64)
	for _, r := range records {
		products[r.Product] = true
		regions[r.Region] = true
		cells[[2]string{r.Product, r.Region}] += r.Sales
	}

	pivot := models.PivotTable{
		Regions: sortedKeys(regions),
		Rows:    make([]models.PivotRow, 0, len(products)),
	}

	for _, product := range sortedKeys(products) {
		row := models.PivotRow{Label: product, Cells: make([]float64, len(pivot.Regions))}
		for i, region := range pivot.Regions {
			row.Cells[i] = cells[[2]string{product, region}]
		}
		pivot.Rows = append(pivot.Rows, row)
	}

	total := models.PivotRow{Label: models.TotalLabel, Cells: make([]float64, len(pivot.Regions))}
	for _, row := range pivot.Rows {
		for i, v := range row.Cells {
			total.Cells[i] += v
		}
	}

	for i := range pivot.Rows {
		pivot.Rows[i].Total = sum(pivot.Rows[i].Cells)
	}
	total.Total = sum(total.Cells)
	pivot.TotalRow = total

	pivot.ColumnMax = columnMax(pivot)
	return pivot
}

func columnMax(p models.PivotTable) []int {
	out := make([]int, len(p.Regions)+1)
	for col := range out {
		out[col] = -1
		best := math.Inf(-1)
		for i, row := range p.Rows {
			v := row.Total
			if col < len(p.Regions) {
				v = row.Cells[col]
			}
			if v > best {
				best, out[col] = v, i
			}
		}
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
