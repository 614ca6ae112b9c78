package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar day format used in report rows
const DateLayout = "2006-01-02"

// Kind selects a report view
type Kind string

const (
	KindCashFlow      Kind = "cash_flow"
	KindPnL           Kind = "pnl"
	KindUnitEconomics Kind = "unit_economics"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindCashFlow, KindPnL, KindUnitEconomics:
		return true
	}
	return false
}

// GroupBy selects the P&L bucket granularity
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByMonth GroupBy = "month"
)

// IsValid checks if the granularity is known
func (g GroupBy) IsValid() bool {
	return g == GroupByDay || g == GroupByMonth
}

// BucketKey truncates t (in UTC) to the granularity
func (g GroupBy) BucketKey(t time.Time) string {
	t = t.UTC()
	if g == GroupByMonth {
		return t.Format("2006-01")
	}
	return t.Format(DateLayout)
}

// Period is an inclusive range of calendar days in UTC
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod truncates both ends to whole days and checks their order
func NewPeriod(from, to time.Time) (Period, error) {
	if from.IsZero() || to.IsZero() {
		return Period{}, shared.NewDomainError(shared.CodeInvalidInput, "date_from and date_to are required")
	}
	p := Period{From: truncateDay(from), To: truncateDay(to)}
	if p.To.Before(p.From) {
		return Period{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("date_from %s is after date_to %s", p.From.Format(DateLayout), p.To.Format(DateLayout)))
	}
	return p, nil
}

// ParsePeriod parses two YYYY-MM-DD dates
func ParsePeriod(from, to string) (Period, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return Period{}, shared.NewDomainError(shared.CodeInvalidInput, "date_from must be YYYY-MM-DD")
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return Period{}, shared.NewDomainError(shared.CodeInvalidInput, "date_to must be YYYY-MM-DD")
	}
	return NewPeriod(f, t)
}

// Bounds returns the half-open [start, end) instants covering the period
func (p Period) Bounds() (time.Time, time.Time) {
	return p.From, p.To.AddDate(0, 0, 1)
}

// Days returns the number of calendar days in the period
func (p Period) Days() int {
	return int(p.To.Sub(p.From).Hours()/24) + 1
}

// Contains reports whether t falls on one of the period's days
func (p Period) Contains(t time.Time) bool {
	start, end := p.Bounds()
	t = t.UTC()
	return !t.Before(start) && t.Before(end)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PurchaseRecord is one received supplier order as the reports see it
type PurchaseRecord struct {
	OrderID      uuid.UUID
	SupplierName string
	Currency     string
	Date         time.Time
	Amount       decimal.Decimal
}

// SaleLine is one sale item with its FIFO cost
type SaleLine struct {
	SaleID      uuid.UUID
	Marketplace string
	Date        time.Time
	SKU         string
	Quantity    decimal.Decimal
	Revenue     decimal.Decimal
	Fee         decimal.Decimal
	Cost        decimal.Decimal
}

// Margin returns revenue - fee - cost
func (l SaleLine) Margin() decimal.Decimal {
	return l.Revenue.Sub(l.Fee).Sub(l.Cost)
}

// ReadRepository supplies the records reports replay.
// Both methods return only rows of tenantID dated within [from, to).
type ReadRepository interface {
	PurchasesBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]PurchaseRecord, error)
	SaleLinesBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]SaleLine, error)
}

// Table is a report rendered as strings, used by exports and the CLI
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
	Totals []string
}

// Tabular is implemented by every report view
type Tabular interface {
	Table() Table
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
