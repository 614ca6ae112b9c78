package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashFlowCategory classifies a cash movement
type CashFlowCategory string

const (
	CategorySupplierPurchase CashFlowCategory = "supplier_purchase"
	// CategorySalesProceeds is sale revenue net of marketplace fees
	CategorySalesProceeds    CashFlowCategory = "sales_proceeds"
)

// Direction tells whether money came in or went out
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

var categoryOrder = map[CashFlowCategory]int{
	CategorySupplierPurchase: 0,
	CategorySalesProceeds:    1,
}

// DirectionOf returns the direction of a category
func (c CashFlowCategory) DirectionOf() Direction {
	if c == CategorySalesProceeds {
		return DirectionInflow
	}
	return DirectionOutflow
}

// CashFlowRow is the movement of one category on one day
type CashFlowRow struct {
	Date      string           `json:"date"`
	Category  CashFlowCategory `json:"category"`
	Direction Direction        `json:"direction"`
	Amount    decimal.Decimal  `json:"amount"`
	Count     int              `json:"count"`
}

// CashFlowCategoryTotal sums one category over the period
type CashFlowCategoryTotal struct {
	Category  CashFlowCategory `json:"category"`
	Direction Direction        `json:"direction"`
	Amount    decimal.Decimal  `json:"amount"`
	Count     int              `json:"count"`
}

// CashFlowReport is the cash-flow view
type CashFlowReport struct {
	Period     Period                  `json:"-"`
	Rows       []CashFlowRow           `json:"rows"`
	Categories []CashFlowCategoryTotal `json:"categories"`
	Inflow     decimal.Decimal         `json:"inflow"`
	Outflow    decimal.Decimal         `json:"outflow"`
	Net        decimal.Decimal         `json:"net"`
	// Fees already deducted from the inflow
	Fees       decimal.Decimal         `json:"fees"`
}

type cashKey struct {
	date     string
	category CashFlowCategory
}

// BuildCashFlow buckets purchases as outflow and sale revenue minus fees as inflow
// by operation date. Records outside the period are ignored.
func BuildCashFlow(period Period, purchases []PurchaseRecord, lines []SaleLine) *CashFlowReport {
	rows := make(map[cashKey]*CashFlowRow)
	add := func(date string, cat CashFlowCategory, amount decimal.Decimal) {
		k := cashKey{date: date, category: cat}
		row, ok := rows[k]
		if !ok {
			row = &CashFlowRow{Date: date, Category: cat, Direction: cat.DirectionOf(), Amount: decimal.Zero}
			rows[k] = row
		}
		row.Amount = row.Amount.Add(amount)
		row.Count++
	}

	fees := decimal.Zero
	for _, p := range purchases {
		if !period.Contains(p.Date) {
			continue
		}
		add(p.Date.UTC().Format(DateLayout), CategorySupplierPurchase, p.Amount)
	}
	for _, l := range lines {
		if !period.Contains(l.Date) {
			continue
		}
		add(l.Date.UTC().Format(DateLayout), CategorySalesProceeds, l.Revenue.Sub(l.Fee))
		fees = fees.Add(l.Fee)
	}

	report := &CashFlowReport{
		Period:     period,
		Rows:       make([]CashFlowRow, 0, len(rows)),
		Categories: make([]CashFlowCategoryTotal, 0, len(categoryOrder)),
		Inflow:     decimal.Zero,
		Outflow:    decimal.Zero,
		Fees:       fees,
	}
	totals := make(map[CashFlowCategory]*CashFlowCategoryTotal)
	for _, row := range rows {
		report.Rows = append(report.Rows, *row)
		t, ok := totals[row.Category]
		if !ok {
			t = &CashFlowCategoryTotal{Category: row.Category, Direction: row.Direction, Amount: decimal.Zero}
			totals[row.Category] = t
		}
		t.Amount = t.Amount.Add(row.Amount)
		t.Count += row.Count
		if row.Direction == DirectionInflow {
			report.Inflow = report.Inflow.Add(row.Amount)
		} else {
			report.Outflow = report.Outflow.Add(row.Amount)
		}
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Date != report.Rows[j].Date {
			return report.Rows[i].Date < report.Rows[j].Date
		}
		return categoryOrder[report.Rows[i].Category] < categoryOrder[report.Rows[j].Category]
	})
	for _, t := range totals {
		report.Categories = append(report.Categories, *t)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return categoryOrder[report.Categories[i].Category] < categoryOrder[report.Categories[j].Category]
	})
	report.Net = report.Inflow.Sub(report.Outflow)
	return report
}

// Table renders the report for exports
func (r *CashFlowReport) Table() Table {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, []string{row.Date, string(row.Category), string(row.Direction), money(row.Amount), itoa(row.Count)})
	}
	return Table{
		Title:  "Cash flow",
		Header: []string{"Date", "Category", "Direction", "Amount", "Count"},
		Rows:   rows,
		Totals: []string{"Total", "", "net", money(r.Net), ""},
	}
}

// PnLRow is the profit and loss of one bucket
type PnLRow struct {
	Bucket     string          `json:"bucket"`
	SalesCount int             `json:"sales_count"`
	Units      decimal.Decimal `json:"units"`
	Revenue    decimal.Decimal `json:"revenue"`
	Fees       decimal.Decimal `json:"fees"`
	COGS       decimal.Decimal `json:"cogs"`
	Margin     decimal.Decimal `json:"margin"`
}

func (r *PnLRow) add(l SaleLine) {
	r.Units = r.Units.Add(l.Quantity)
	r.Revenue = r.Revenue.Add(l.Revenue)
	r.Fees = r.Fees.Add(l.Fee)
	r.COGS = r.COGS.Add(l.Cost)
	r.Margin = r.Margin.Add(l.Margin())
}

func newPnLRow(bucket string) *PnLRow {
	return &PnLRow{Bucket: bucket, Units: decimal.Zero, Revenue: decimal.Zero, Fees: decimal.Zero, COGS: decimal.Zero, Margin: decimal.Zero}
}

// PnLReport is the profit-and-loss view
type PnLReport struct {
	Period  Period   `json:"-"`
	GroupBy GroupBy  `json:"group_by"`
	Rows    []PnLRow `json:"rows"`
	Total   PnLRow   `json:"total"`
}

// BuildPnL groups sale margin by the sale date truncated to groupBy
func BuildPnL(period Period, groupBy GroupBy, lines []SaleLine) *PnLReport {
	if !groupBy.IsValid() {
		groupBy = GroupByDay
	}
	buckets := make(map[string]*PnLRow)
	salesPerBucket := make(map[string]map[string]struct{})
	allSales := make(map[string]struct{})
	total := newPnLRow("Total")

	for _, l := range lines {
		if !period.Contains(l.Date) {
			continue
		}
		key := groupBy.BucketKey(l.Date)
		row, ok := buckets[key]
		if !ok {
			row = newPnLRow(key)
			buckets[key] = row
			salesPerBucket[key] = make(map[string]struct{})
		}
		row.add(l)
		total.add(l)
		salesPerBucket[key][l.SaleID.String()] = struct{}{}
		allSales[l.SaleID.String()] = struct{}{}
	}

	report := &PnLReport{Period: period, GroupBy: groupBy, Rows: make([]PnLRow, 0, len(buckets))}
	for key, row := range buckets {
		row.SalesCount = len(salesPerBucket[key])
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Bucket < report.Rows[j].Bucket })
	total.SalesCount = len(allSales)
	report.Total = *total
	return report
}

// Table renders the report for exports
func (r *PnLReport) Table() Table {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, pnlCells(row))
	}
	return Table{
		Title:  "Profit and loss",
		Header: []string{"Period", "Sales", "Units", "Revenue", "Fees", "COGS", "Margin"},
		Rows:   rows,
		Totals: pnlCells(r.Total),
	}
}

func pnlCells(row PnLRow) []string {
	return []string{row.Bucket, itoa(row.SalesCount), row.Units.String(), money(row.Revenue), money(row.Fees), money(row.COGS), money(row.Margin)}
}
