package trade

import (
	"context"

	appinv "github.com/erp/lotledger/internal/application/inventory"
	"github.com/erp/lotledger/internal/application/validation"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Order transitions for metrics labeling
const (
	transitionReceive   = "receive"
	transitionUnreceive = "unreceive"
	transitionDelete    = "delete"
)

// SupplierOrderService handles supplier order operations.
// Receive and Unreceive are the only paths that create or release order lots.
type SupplierOrderService struct {
	txScope        appinv.TransactionScope
	orderRepo      trade.SupplierOrderRepository
	clock          shared.Clock
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	ledgerMetrics  *telemetry.LedgerMetrics
}

// NewSupplierOrderService creates a new SupplierOrderService
func NewSupplierOrderService(txScope appinv.TransactionScope, orderRepo trade.SupplierOrderRepository, clock shared.Clock, log *zap.Logger) *SupplierOrderService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SupplierOrderService{
		txScope:   txScope,
		orderRepo: orderRepo,
		clock:     clock,
		logger:    log,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SupplierOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLedgerMetrics sets the ledger metrics collector
func (s *SupplierOrderService) SetLedgerMetrics(lm *telemetry.LedgerMetrics) {
	s.ledgerMetrics = lm
}

// Create creates a draft order. Every SKU must exist in the catalog.
func (s *SupplierOrderService) Create(ctx context.Context, tenantID uuid.UUID, req CreateSupplierOrderRequest) (*SupplierOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var order *trade.SupplierOrder
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if err := resolveItemSKUs(ctx, repos.Catalog(), tenantID, req.Items); err != nil {
			return err
		}

		now := s.clock.Now()
		orderDate := now
		if req.OrderDate != nil {
			orderDate = req.OrderDate.UTC()
		}
		o, err := trade.NewSupplierOrder(tenantID, req.SupplierName, req.Currency, orderDate, toItemInputs(req.Items), now)
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Create(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, order)
	s.logger.Info("Supplier order created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int("items", order.ItemCount()))

	response := ToSupplierOrderResponse(order)
	return &response, nil
}

// Update replaces the contents of a draft order
func (s *SupplierOrderService) Update(ctx context.Context, tenantID, orderID uuid.UUID, req UpdateSupplierOrderRequest) (*SupplierOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var order *trade.SupplierOrder
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByIDForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := o.Update(req.SupplierName, toItemInputs(req.Items), s.clock.Now()); err != nil {
			return err
		}
		if err := resolveItemSKUs(ctx, repos.Catalog(), tenantID, req.Items); err != nil {
			return err
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, order)
	response := ToSupplierOrderResponse(order)
	return &response, nil
}

// Delete removes a draft order. Received orders must be unreceived first.
func (s *SupplierOrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID) error {
	var order *trade.SupplierOrder
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByIDForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := o.Delete(s.clock.Now()); err != nil {
			return err
		}
		if err := repos.OrderRepo().Delete(ctx, tenantID, o.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return err
	}

	s.publishDomainEvents(ctx, order)
	if s.ledgerMetrics != nil {
		s.ledgerMetrics.RecordOrderTransition(ctx, tenantID, transitionDelete)
	}
	s.logger.Info("Supplier order deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()))
	return nil
}

// GetByID retrieves an order
func (s *SupplierOrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*SupplierOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToSupplierOrderResponse(order)
	return &response, nil
}

// List returns one page of orders, newest first
func (s *SupplierOrderService) List(ctx context.Context, tenantID uuid.UUID, filter SupplierOrderListFilter) (*SupplierOrderListResponse, error) {
	if err := validation.Struct(filter); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	orders, total, err := s.orderRepo.ListForTenant(ctx, tenantID, trade.OrderFilter{
		Status:   trade.SupplierOrderStatus(filter.Status),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SupplierOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToSupplierOrderResponse(&orders[i])
	}
	return &SupplierOrderListResponse{Orders: out, Total: total, Page: filter.Page}, nil
}

// Receive transitions a draft order to received and creates one lot per item,
// all in one transaction. Receiving a received order fails with INVALID_ORDER_STATE.
func (s *SupplierOrderService) Receive(ctx context.Context, tenantID, orderID uuid.UUID) (*ReceiveResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier_order", "receive")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrOrderID, orderID.String(),
	)

	var (
		order *trade.SupplierOrder
		lots  []ledger.InventoryLot
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByIDForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := o.Receive(s.clock.Now()); err != nil {
			return err
		}

		lotLedger := ledger.NewLotLedger(repos.LotRepo(), s.clock)
		created := make([]ledger.InventoryLot, 0, len(o.Items))
		lotIDs := make([]uuid.UUID, 0, len(o.Items))
		for _, item := range o.Items {
			lot, err := lotLedger.CreateLot(ctx, tenantID, item.SKU, item.Quantity, item.UnitCost,
				ledger.SupplierOrderItemSource(o.ID, item.ID))
			if err != nil {
				return err
			}
			created = append(created, *lot)
			lotIDs = append(lotIDs, lot.ID)
		}

		if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
			return err
		}
		o.RecordReceipt(lotIDs)
		order, lots = o, created
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Supplier order receipt rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	lotIDs := make([]uuid.UUID, len(lots))
	for i := range lots {
		lotIDs[i] = lots[i].ID
		s.publishDomainEvents(ctx, &lots[i])
	}
	s.publishDomainEvents(ctx, order)
	if s.ledgerMetrics != nil {
		s.ledgerMetrics.RecordLotsCreated(ctx, tenantID, ledger.LotSourceSupplierOrderItem.String(), len(lots))
		s.ledgerMetrics.RecordOrderTransition(ctx, tenantID, transitionReceive)
	}

	amount := order.PurchaseAmount()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLotCount, len(lots),
		telemetry.SpanAttrAmount, amount.String(),
	)
	s.logger.Info("Supplier order received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int("lots_created", len(lots)),
		zap.String("purchase_amount", amount.String()))

	return &ReceiveResultResponse{
		Order:          ToSupplierOrderResponse(order),
		LotsCreated:    len(lots),
		LotIDs:         lotIDs,
		PurchaseAmount: amount,
	}, nil
}

// Unreceive reverses a receipt: every lot from the order is deleted and the order returns to draft.
// If any lot was consumed by a sale the call fails with ORDER_LOTS_CONSUMED and nothing changes.
func (s *SupplierOrderService) Unreceive(ctx context.Context, tenantID, orderID uuid.UUID) (*UnreceiveResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier_order", "unreceive")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrOrderID, orderID.String(),
	)

	var (
		order    *trade.SupplierOrder
		released []ledger.InventoryLot
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByIDForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !o.IsReceived() {
			return o.Unreceive(now, nil)
		}

		lots, err := ledger.NewLotLedger(repos.LotRepo(), s.clock).ReleaseOrderLots(ctx, tenantID, o.ID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(lots))
		for i := range lots {
			ids[i] = lots[i].ID
		}

		if err := o.Unreceive(now, ids); err != nil {
			return err
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
			return err
		}
		order, released = o, lots
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Supplier order unreceive rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	ids := make([]uuid.UUID, len(released))
	for i := range released {
		ids[i] = released[i].ID
		s.publishDomainEvents(ctx, &released[i])
	}
	s.publishDomainEvents(ctx, order)
	if s.ledgerMetrics != nil {
		s.ledgerMetrics.RecordLotsReleased(ctx, tenantID, len(released))
		s.ledgerMetrics.RecordOrderTransition(ctx, tenantID, transitionUnreceive)
	}
	s.logger.Info("Supplier order unreceived",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int("lots_released", len(released)))

	return &UnreceiveResultResponse{
		Order:          ToSupplierOrderResponse(order),
		Unreceived:     true,
		ReleasedLotIDs: ids,
	}, nil
}

func resolveItemSKUs(ctx context.Context, lookup catalog.Lookup, tenantID uuid.UUID, items []SupplierOrderItemInput) error {
	if len(items) == 0 {
		return nil
	}
	codes := make([]string, len(items))
	for i, item := range items {
		codes[i] = item.SKU
	}
	_, err := lookup.ResolveMany(ctx, tenantID, catalog.UniqueCodes(codes))
	return err
}

// aggregate is anything that buffers domain events
type aggregate interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publishDomainEvents publishes and clears the aggregate's events
func (s *SupplierOrderService) publishDomainEvents(ctx context.Context, agg aggregate) {
	publishDomainEvents(ctx, s.eventPublisher, agg)
}

func publishDomainEvents(ctx context.Context, publisher shared.EventPublisher, agg aggregate) {
	if publisher == nil || agg == nil {
		return
	}
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = publisher.Publish(ctx, events...)
	agg.ClearDomainEvents()
}
