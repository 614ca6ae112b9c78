package report

import (
	"github.com/erp/lotledger/internal/domain/report"
)

// ReportRequest selects a report view over an inclusive range of days
type ReportRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=cash_flow pnl unit_economics"`
	DateFrom string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `json:"date_to" validate:"required,datetime=2006-01-02"`
	GroupBy  string `json:"group_by,omitempty" validate:"omitempty,oneof=day month"`
}

// ReportResponse carries exactly one of the report views
type ReportResponse struct {
	Kind          report.Kind                 `json:"kind"`
	DateFrom      string                      `json:"date_from"`
	DateTo        string                      `json:"date_to"`
	CashFlow      *report.CashFlowReport      `json:"cash_flow,omitempty"`
	PnL           *report.PnLReport           `json:"pnl,omitempty"`
	UnitEconomics *report.UnitEconomicsReport `json:"unit_economics,omitempty"`
}

// View returns the populated report
func (r *ReportResponse) View() report.Tabular {
	switch {
	case r.CashFlow != nil:
		return r.CashFlow
	case r.PnL != nil:
		return r.PnL
	case r.UnitEconomics != nil:
		return r.UnitEconomics
	}
	return nil
}

// ExportResponse is a rendered report, optionally stored
type ExportResponse struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	ObjectKey   string `json:"object_key,omitempty"`
	Data        []byte `json:"-"`
}
