package report

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/erp/lotledger/internal/application/validation"
	"github.com/erp/lotledger/internal/domain/report"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Renderer turns report tables into a downloadable document
type Renderer interface {
	Render(tables ...report.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ObjectStorage stores exported documents
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// Options tunes report requests
type Options struct {
	// DefaultGroupBy applies to pnl requests without group_by
	DefaultGroupBy report.GroupBy
	// MaxRangeDays rejects longer periods; 0 disables the limit
	MaxRangeDays int
	// ExportPrefix is prepended to uploaded object keys
	ExportPrefix string
}

// Service computes reports by replaying purchases and sale lines.
// It never writes to the ledger.
type Service struct {
	repo     report.ReadRepository
	opts     Options
	clock    shared.Clock
	logger   *zap.Logger
	renderer Renderer
	storage  ObjectStorage
}

// NewService creates a new report Service
func NewService(repo report.ReadRepository, opts Options, clock shared.Clock, log *zap.Logger) *Service {
	if !opts.DefaultGroupBy.IsValid() {
		opts.DefaultGroupBy = report.GroupByDay
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, opts: opts, clock: clock, logger: log}
}

// SetRenderer sets the document renderer used by Export
func (s *Service) SetRenderer(r Renderer) {
	s.renderer = r
}

// SetObjectStorage enables uploading exports
func (s *Service) SetObjectStorage(storage ObjectStorage) {
	s.storage = storage
}

// GetReport computes the requested view for one tenant
func (s *Service) GetReport(ctx context.Context, tenantID uuid.UUID, req ReportRequest) (*ReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "get")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrReportKind, req.Kind,
	)

	if err := validation.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	period, err := report.ParsePeriod(req.DateFrom, req.DateTo)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.opts.MaxRangeDays > 0 && period.Days() > s.opts.MaxRangeDays {
		err := shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("report range of %d days exceeds the limit of %d", period.Days(), s.opts.MaxRangeDays))
		telemetry.RecordError(span, err)
		return nil, err
	}

	from, to := period.Bounds()
	resp := &ReportResponse{
		Kind:     report.Kind(req.Kind),
		DateFrom: period.From.Format(report.DateLayout),
		DateTo:   period.To.Format(report.DateLayout),
	}

	switch resp.Kind {
	case report.KindCashFlow:
		purchases, err := s.repo.PurchasesBetween(ctx, tenantID, from, to)
		if err != nil {
			return nil, s.readFailed(ctx, span, tenantID, err)
		}
		lines, err := s.repo.SaleLinesBetween(ctx, tenantID, from, to)
		if err != nil {
			return nil, s.readFailed(ctx, span, tenantID, err)
		}
		resp.CashFlow = report.BuildCashFlow(period, purchases, lines)
	case report.KindPnL:
		lines, err := s.repo.SaleLinesBetween(ctx, tenantID, from, to)
		if err != nil {
			return nil, s.readFailed(ctx, span, tenantID, err)
		}
		groupBy := report.GroupBy(req.GroupBy)
		if !groupBy.IsValid() {
			groupBy = s.opts.DefaultGroupBy
		}
		resp.PnL = report.BuildPnL(period, groupBy, lines)
	case report.KindUnitEconomics:
		lines, err := s.repo.SaleLinesBetween(ctx, tenantID, from, to)
		if err != nil {
			return nil, s.readFailed(ctx, span, tenantID, err)
		}
		resp.UnitEconomics = report.BuildUnitEconomics(period, lines)
	}

	s.logger.Debug("Report computed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", req.Kind),
		zap.String("date_from", resp.DateFrom),
		zap.String("date_to", resp.DateTo))
	return resp, nil
}

// Export renders the requested report and uploads it when storage is configured
func (s *Service) Export(ctx context.Context, tenantID uuid.UUID, req ReportRequest) (*ExportResponse, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "no report renderer configured")
	}
	resp, err := s.GetReport(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "report", "export")
	defer span.End()

	data, err := s.renderer.Render(resp.View().Table())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("render %s report: %w", req.Kind, err)
	}

	out := &ExportResponse{
		FileName:    fmt.Sprintf("%s_%s_%s%s", resp.Kind, resp.DateFrom, resp.DateTo, s.renderer.Extension()),
		ContentType: s.renderer.ContentType(),
		Size:        len(data),
		Data:        data,
	}
	if s.storage == nil {
		return out, nil
	}

	key := path.Join(strings.Trim(s.opts.ExportPrefix, "/"), tenantID.String(),
		s.clock.Now().UTC().Format("20060102T150405Z")+"_"+out.FileName)
	if err := s.storage.Upload(ctx, key, data, out.ContentType); err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Report upload failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}
	out.ObjectKey = key

	s.logger.Info("Report exported",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", req.Kind),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return out, nil
}

func (s *Service) readFailed(ctx context.Context, span trace.Span, tenantID uuid.UUID, err error) error {
	telemetry.RecordError(span, err)
	logger.L(ctx).Warn("Report read failed",
		zap.String("tenant_id", tenantID.String()),
		zap.Error(err))
	return err
}
