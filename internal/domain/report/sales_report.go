package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnitEconomicsRow aggregates one SKU over the period
type UnitEconomicsRow struct {
	SKU           string          `json:"sku"`
	Units         decimal.Decimal `json:"units"`
	Revenue       decimal.Decimal `json:"revenue"`
	COGS          decimal.Decimal `json:"cogs"`
	Fees          decimal.Decimal `json:"fees"`
	Margin        decimal.Decimal `json:"margin"`
	AvgUnitPrice  decimal.Decimal `json:"avg_unit_price"`
	AvgUnitCost   decimal.Decimal `json:"avg_unit_cost"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

func newUnitEconomicsRow(sku string) *UnitEconomicsRow {
	return &UnitEconomicsRow{
		SKU:     sku,
		Units:   decimal.Zero,
		Revenue: decimal.Zero,
		COGS:    decimal.Zero,
		Fees:    decimal.Zero,
		Margin:  decimal.Zero,
	}
}

func (r *UnitEconomicsRow) add(l SaleLine) {
	r.Units = r.Units.Add(l.Quantity)
	r.Revenue = r.Revenue.Add(l.Revenue)
	r.COGS = r.COGS.Add(l.Cost)
	r.Fees = r.Fees.Add(l.Fee)
	r.Margin = r.Margin.Add(l.Margin())
}

func (r *UnitEconomicsRow) finish() {
	r.AvgUnitPrice = decimal.Zero
	r.AvgUnitCost = decimal.Zero
	if r.Units.IsPositive() {
		r.AvgUnitPrice = r.Revenue.DivRound(r.Units, 4)
		r.AvgUnitCost = r.COGS.DivRound(r.Units, 4)
	}
	r.MarginPercent = percent(r.Margin, r.Revenue)
}

// UnitEconomicsReport is the per-SKU view
type UnitEconomicsReport struct {
	Period Period             `json:"-"`
	Rows   []UnitEconomicsRow `json:"rows"`
	Total  UnitEconomicsRow   `json:"total"`
}

// BuildUnitEconomics aggregates revenue, allocated cost and fees per SKU.
// lines must already be restricted to one tenant.
func BuildUnitEconomics(period Period, lines []SaleLine) *UnitEconomicsReport {
	bySKU := make(map[string]*UnitEconomicsRow)
	total := newUnitEconomicsRow("Total")
	for _, l := range lines {
		if !period.Contains(l.Date) {
			continue
		}
		row, ok := bySKU[l.SKU]
		if !ok {
			row = newUnitEconomicsRow(l.SKU)
			bySKU[l.SKU] = row
		}
		row.add(l)
		total.add(l)
	}

	report := &UnitEconomicsReport{Period: period, Rows: make([]UnitEconomicsRow, 0, len(bySKU))}
	for _, row := range bySKU {
		row.finish()
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].SKU < report.Rows[j].SKU })
	total.finish()
	report.Total = *total
	return report
}

// Table renders the report for exports
func (r *UnitEconomicsReport) Table() Table {
	cells := func(row UnitEconomicsRow) []string {
		return []string{
			row.SKU, row.Units.String(), money(row.Revenue), money(row.COGS), money(row.Fees),
			money(row.Margin), money(row.AvgUnitPrice), money(row.AvgUnitCost), row.MarginPercent.StringFixed(2),
		}
	}
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, cells(row))
	}
	return Table{
		Title:  "Unit economics",
		Header: []string{"SKU", "Units", "Revenue", "COGS", "Fees", "Margin", "Avg price", "Avg cost", "Margin %"},
		Rows:   rows,
		Totals: cells(r.Total),
	}
}
