package export

import (
	"bytes"
	"testing"

	"github.com/erp/lotledger/internal/domain/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func pnlTable() report.Table {
	return report.Table{
		Title:  "Profit and loss",
		Header: []string{"Period", "Sales", "Units", "Revenue", "Fees", "COGS", "Margin"},
		Rows: [][]string{
			{"2024-03-01", "1", "50", "6025.00", "150.00", "4027.50", "1847.50"},
		},
		Totals: []string{"Total", "1", "50", "6025.00", "150.00", "4027.50", "1847.50"},
	}
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestXLSXRenderer_Render(t *testing.T) {
	r := NewXLSXRenderer()
	assert.Equal(t, ".xlsx", r.Extension())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", r.ContentType())

	data, err := r.Render(pnlTable())
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"Profit and loss"}, f.GetSheetList())

	sheet := "Profit and loss"
	assert.Equal(t, "Period", raw(t, f, sheet, "A1"))
	assert.Equal(t, "Margin", raw(t, f, sheet, "G1"))
	assert.Equal(t, "2024-03-01", raw(t, f, sheet, "A2"))
	assert.Equal(t, "1847.5", raw(t, f, sheet, "G2"))
	assert.Equal(t, "Total", raw(t, f, sheet, "A3"))
	assert.Equal(t, "6025", raw(t, f, sheet, "D3"))

	cellType, err := f.GetCellType(sheet, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestXLSXRenderer_TextColumnsStayText(t *testing.T) {
	table := report.Table{
		Title:  "Unit economics",
		Header: []string{"SKU", "Units"},
		Rows:   [][]string{{"1001", "3"}, {"SKU-B", "2"}},
	}

	data, err := NewXLSXRenderer().Render(table)
	require.NoError(t, err)

	f := open(t, data)
	cellType, err := f.GetCellType("Unit economics", "A2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, cellType)
	assert.Equal(t, "1001", raw(t, f, "Unit economics", "A2"))
}

func TestXLSXRenderer_OneSheetPerTable(t *testing.T) {
	a := pnlTable()
	b := pnlTable()
	c := report.Table{Title: "Cash: flow/2024", Header: []string{"Date"}}

	data, err := NewXLSXRenderer().Render(a, b, c)
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"Profit and loss", "Profit and loss (2)", "Cash- flow-2024"}, f.GetSheetList())
}

func TestXLSXRenderer_NothingToRender(t *testing.T) {
	_, err := NewXLSXRenderer().Render()
	assert.Error(t, err)
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{}
	long := "A very long report title that exceeds the limit"

	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)

	assert.Len(t, first, maxSheetName)
	assert.Len(t, second, maxSheetName)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "Report", uniqueSheetName("  ", used))
}
