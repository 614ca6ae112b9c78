// Package export renders report tables into spreadsheet documents.
package export

import (
	"fmt"
	"strconv"
	"strings"

	reportapp "github.com/erp/lotledger/internal/application/report"
	"github.com/erp/lotledger/internal/domain/report"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheet    = "Sheet1"
	maxSheetName    = 31
	// built-in "#,##0.00"
	numFmtAmount = 4
)

var _ reportapp.Renderer = (*XLSXRenderer)(nil)

// XLSXRenderer writes one worksheet per table: header, rows, then the totals line
type XLSXRenderer struct{}

// NewXLSXRenderer creates a new XLSXRenderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// ContentType implements reportapp.Renderer
func (r *XLSXRenderer) ContentType() string {
	return xlsxContentType
}

// Extension implements reportapp.Renderer
func (r *XLSXRenderer) Extension() string {
	return ".xlsx"
}

// Render implements reportapp.Renderer
func (r *XLSXRenderer) Render(tables ...report.Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool)
	for i, table := range tables {
		name := uniqueSheetName(table.Title, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeTable(f, name, table, styles); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header      int
	amount      int
	total       int
	totalAmount int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error
	bold := &excelize.Font{Bold: true}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: bold,
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	}); err != nil {
		return s, err
	}
	if s.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{Font: bold}); err != nil {
		return s, err
	}
	s.totalAmount, err = f.NewStyle(&excelize.Style{Font: bold, NumFmt: numFmtAmount})
	return s, err
}

func writeTable(f *excelize.File, sheet string, t report.Table, styles sheetStyles) error {
	numeric := numericColumns(t)

	row := 1
	if err := writeRow(f, sheet, row, t.Header, nil, styles.header, styles.header); err != nil {
		return err
	}
	for _, cells := range t.Rows {
		row++
		if err := writeRow(f, sheet, row, cells, numeric, 0, styles.amount); err != nil {
			return err
		}
	}
	if len(t.Totals) > 0 {
		row++
		if err := writeRow(f, sheet, row, t.Totals, numeric, styles.total, styles.totalAmount); err != nil {
			return err
		}
	}

	if len(t.Header) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
			return err
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeRow stores cells of numeric columns as numbers so spreadsheets can sum them.
// A style of 0 leaves the default.
func writeRow(f *excelize.File, sheet string, row int, cells []string, numeric map[int]bool, textStyle, numberStyle int) error {
	for i, value := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		style := textStyle
		if n, ok := parseNumber(value); ok && numeric[i] {
			if err := f.SetCellFloat(sheet, cell, n, -1, 64); err != nil {
				return err
			}
			style = numberStyle
		} else if err := f.SetCellStr(sheet, cell, value); err != nil {
			return err
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// numericColumns marks columns whose non-empty body cells all parse as numbers
func numericColumns(t report.Table) map[int]bool {
	numeric := make(map[int]bool, len(t.Header))
	seen := make(map[int]bool, len(t.Header))
	for i := range t.Header {
		numeric[i] = true
	}
	for _, cells := range t.Rows {
		for i, v := range cells {
			if v == "" {
				continue
			}
			seen[i] = true
			if _, ok := parseNumber(v); !ok {
				numeric[i] = false
			}
		}
	}
	for i := range numeric {
		if !seen[i] {
			numeric[i] = false
		}
	}
	return numeric
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	return n, err == nil
}

func uniqueSheetName(title string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Report"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		cut := min(len(base), maxSheetName-len(suffix))
		name = base[:cut] + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
