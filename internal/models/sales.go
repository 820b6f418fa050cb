package models

import (
	"encoding/json"
	"math"
	"time"
)

const DayLayout = "2006-01-02"

// SalesRecord is one row of the loaded dataset. Records are never modified after load.
type SalesRecord struct {
	Date    time.Time `json:"date"`
	Product string    `json:"product"`
	Region  string    `json:"region"`
	Sales   float64   `json:"sales"`
}

// Day returns the calendar day of the record at midnight, in the record's location.
func (r SalesRecord) Day() time.Time {
	y, m, d := r.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.Date.Location())
}

// FilterSelection is the user's choice for one interaction.
// An empty Products set selects nothing; an empty Regions set selects every region.
type FilterSelection struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Products []string  `json:"products"`
	Regions  []string  `json:"regions"`
}

// Summary holds the scalar statistics of a filtered view.
// Average, Max and Min are NaN when the view is empty.
type Summary struct {
	Count   int     `json:"count"`
	Total   float64 `json:"total_sales"`
	Average float64 `json:"average_sales"`
	Max     float64 `json:"max_sales"`
	Min     float64 `json:"min_sales"`
	Empty   bool    `json:"empty"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count   int      `json:"count"`
		Total   float64  `json:"total_sales"`
		Average *float64 `json:"average_sales"`
		Max     *float64 `json:"max_sales"`
		Min     *float64 `json:"min_sales"`
		Empty   bool     `json:"empty"`
	}{
		Count:   s.Count,
		Total:   s.Total,
		Average: finiteOrNil(s.Average),
		Max:     finiteOrNil(s.Max),
		Min:     finiteOrNil(s.Min),
		Empty:   s.Empty,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type DailyProductSales struct {
	Date    string  `json:"date"`
	Product string  `json:"product"`
	Sales   float64 `json:"sales"`
}

type RegionSales struct {
	Region string  `json:"region"`
	Sales  float64 `json:"sales"`
}

const TotalLabel = "Total"

// PivotRow is one product row of the cross-tabulation. Cells align with PivotTable.Regions.
type PivotRow struct {
	Label string    `json:"label"`
	Cells []float64 `json:"cells"`
	Total float64   `json:"total"`
}

// PivotTable is the product × region cross-tabulation with an appended Total row and column.
type PivotTable struct {
	Regions  []string   `json:"regions"`
	Rows     []PivotRow `json:"rows"`
	TotalRow PivotRow   `json:"total_row"`

	// ColumnMax[i] is the index into Rows of the largest value in column i;
	// the last entry covers the Total column. -1 when there are no rows.
	ColumnMax []int `json:"column_max"`
}

// Cell returns the value for product and region, including the Total row and column.
func (p PivotTable) Cell(product, region string) (float64, bool) {
	row, ok := p.row(product)
	if !ok {
		return 0, false
	}
	if region == TotalLabel {
		return row.Total, true
	}
	for i, r := range p.Regions {
		if r == region {
			return row.Cells[i], true
		}
	}
	return 0, false
}

func (p PivotTable) row(label string) (PivotRow, bool) {
	if label == TotalLabel {
		return p.TotalRow, true
	}
	for _, r := range p.Rows {
		if r.Label == label {
			return r, true
		}
	}
	return PivotRow{}, false
}

// GrandTotal is the bottom-right cell.
func (p PivotTable) GrandTotal() float64 {
	return p.TotalRow.Total
}

type Aggregations struct {
	Summary        Summary             `json:"summary"`
	DailyByProduct []DailyProductSales `json:"daily_by_product"`
	RegionSales    []RegionSales       `json:"region_sales"`
	Pivot          PivotTable          `json:"pivot"`
}

// FilterOptions describes the values the sidebar controls can offer.
type FilterOptions struct {
	Products []string `json:"products"`
	Regions  []string `json:"regions"`
	MinDate  string   `json:"min_date"`
	MaxDate  string   `json:"max_date"`
}

// SelectionEcho is the selection as shown back to the user.
type SelectionEcho struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Products  []string `json:"products"`
	Regions   []string `json:"regions"`
}

// DashboardView is everything one interaction renders.
type DashboardView struct {
	Selection     SelectionEcho `json:"selection"`
	Options       FilterOptions `json:"options"`
	Aggregations  Aggregations  `json:"aggregations"`
	FilteredCount int           `json:"filtered_count"`
	Preview       []SalesRecord `json:"preview"`
	Truncated     bool          `json:"truncated"`
	GeneratedAt   time.Time     `json:"generated_at"`
}
