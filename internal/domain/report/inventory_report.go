package report

import (
	"sort"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// InventorySummaryRow is the stock position of one SKU
type InventorySummaryRow struct {
	SKU             string          `json:"sku"`
	QuantityOnHand  decimal.Decimal `json:"quantity_on_hand"`
	LotCount        int             `json:"lot_count"`
	OpenLotCount    int             `json:"open_lot_count"`
	StockValue      decimal.Decimal `json:"stock_value"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
}

// SummarizeLots groups lots per SKU. The returned total equals ledger.TotalValue(lots).
func SummarizeLots(lots []ledger.InventoryLot) ([]InventorySummaryRow, decimal.Decimal) {
	bySKU := make(map[string]*InventorySummaryRow)
	total := decimal.Zero
	for i := range lots {
		lot := &lots[i]
		row, ok := bySKU[lot.SKU]
		if !ok {
			row = &InventorySummaryRow{SKU: lot.SKU, QuantityOnHand: decimal.Zero, StockValue: decimal.Zero}
			bySKU[lot.SKU] = row
		}
		value := lot.RemainingValue()
		row.LotCount++
		if !lot.IsExhausted() {
			row.OpenLotCount++
		}
		row.QuantityOnHand = row.QuantityOnHand.Add(lot.QuantityRemaining)
		row.StockValue = row.StockValue.Add(value)
		total = total.Add(value)
	}

	rows := make([]InventorySummaryRow, 0, len(bySKU))
	for _, row := range bySKU {
		row.AverageUnitCost = decimal.Zero
		if row.QuantityOnHand.IsPositive() {
			row.AverageUnitCost = row.StockValue.DivRound(row.QuantityOnHand, 4)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SKU < rows[j].SKU })
	return rows, total
}
