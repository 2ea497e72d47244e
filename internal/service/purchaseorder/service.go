package purchaseorder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/cache"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/fulfillment"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	repo "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/suratjalan/service/purchaseorder")

// Input carries the user supplied fields of a new purchase order.
type Input struct {
	Number       string
	Date         time.Time
	ProductType  entity.ProductType
	TotalTonnage decimal.Decimal
	PricePerTon  decimal.Decimal
}

// Patch carries the fields to change on an existing purchase order. Nil fields are kept.
type Patch struct {
	Number       *string
	Date         *time.Time
	ProductType  *entity.ProductType
	TotalTonnage *decimal.Decimal
	PricePerTon  *decimal.Decimal
}

// Service encapsulates business logic around purchase orders.
type Service struct {
	repo       repo.Store
	reconciler *reconcile.Orchestrator
	cache      cache.Store
	cacheTTL   time.Duration
	events     *messaging.Events
	logger     *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repo.Store
	Reconciler *reconcile.Orchestrator
	Cache      cache.Store
	Events     *messaging.Events `optional:"true"`
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:       p.Repository,
		reconciler: p.Reconciler,
		cache:      p.Cache,
		cacheTTL:   p.Config.Cache.DefaultTTL,
		events:     p.Events,
		logger:     p.Logger,
	}
}

// Create validates in, stores a fresh purchase order and reconciles it against
// any delivery notes already carrying its number.
func (s *Service) Create(ctx context.Context, in Input) (*entity.PurchaseOrder, error) {
	in.Number = strings.TrimSpace(in.Number)
	if err := validate(in); err != nil {
		return nil, err
	}

	ctx, span := serviceTracer.Start(ctx, "PurchaseOrderService.Create", trace.WithAttributes(attribute.String("po.number", in.Number)))
	defer span.End()

	po := &entity.PurchaseOrder{
		Number:           in.Number,
		Date:             fulfillment.Day(in.Date),
		ProductType:      in.ProductType,
		TotalTonnage:     in.TotalTonnage,
		PricePerTon:      in.PricePerTon,
		TotalValue:       in.TotalTonnage.Mul(in.PricePerTon),
		ShippedTonnage:   decimal.Zero,
		RemainingTonnage: in.TotalTonnage,
		Status:           entity.POStatusActive,
	}

	if err := s.repo.Create(ctx, po); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create purchase order", errorbank.WithCause(err))
	}
	s.invalidate(ctx)
	s.events.Publish(ctx, messaging.EventPurchaseOrderCreated, po.ID, po.Number)

	return s.resync(ctx, po, po.Number)
}

// Get retrieves a purchase order by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "PurchaseOrderService.Get", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "failed to load purchase order")
	}
	return po, nil
}

// List returns purchase orders matching filter. The unfiltered list is cached
// until the next mutation.
func (s *Service) List(ctx context.Context, filter repo.Filter) ([]entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "PurchaseOrderService.List")
	defer span.End()

	cacheable := filter.IsZero()
	if cacheable {
		if pos, err := s.listFromCache(ctx); err == nil {
			return pos, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("purchase order cache read failed", zap.Error(err))
		}
	}

	pos, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list purchase orders", errorbank.WithCause(err))
	}

	if cacheable {
		if err := s.storeList(ctx, pos); err != nil {
			s.logger.Warn("purchase order cache write failed", zap.Error(err))
		}
	}
	return pos, nil
}

// Update applies patch to the purchase order. A changed number or total
// tonnage re-derives the fulfillment figures of every affected number.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "PurchaseOrderService.Update", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()
	// the cached list must never keep an optimistic view, even on failure
	defer s.invalidate(ctx)

	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load purchase order")
	}

	oldNumber := po.Number
	oldTotal := po.TotalTonnage

	in := Input{
		Number:       po.Number,
		Date:         po.Date,
		ProductType:  po.ProductType,
		TotalTonnage: po.TotalTonnage,
		PricePerTon:  po.PricePerTon,
	}
	if patch.Number != nil {
		in.Number = strings.TrimSpace(*patch.Number)
	}
	if patch.Date != nil {
		in.Date = *patch.Date
	}
	if patch.ProductType != nil {
		in.ProductType = *patch.ProductType
	}
	if patch.TotalTonnage != nil {
		in.TotalTonnage = *patch.TotalTonnage
	}
	if patch.PricePerTon != nil {
		in.PricePerTon = *patch.PricePerTon
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	po.Number = in.Number
	po.Date = fulfillment.Day(in.Date)
	po.ProductType = in.ProductType
	po.TotalTonnage = in.TotalTonnage
	po.PricePerTon = in.PricePerTon

	if err := s.repo.Update(ctx, po); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, translate(err, "failed to update purchase order")
	}
	s.events.Publish(ctx, messaging.EventPurchaseOrderUpdated, po.ID, oldNumber, po.Number)

	if po.Number == oldNumber && po.TotalTonnage.Equal(oldTotal) {
		return po, nil
	}
	if po.Number != oldNumber {
		if _, err := s.reconciler.Reconcile(ctx, oldNumber); err != nil {
			return po, reconcileFailed(po, err)
		}
	}
	return s.resync(ctx, po, po.Number)
}

// Delete removes a purchase order. Delivery notes keep their po number.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "PurchaseOrderService.Delete", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()
	defer s.invalidate(ctx)

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return translate(err, "failed to delete purchase order")
	}
	s.events.Publish(ctx, messaging.EventPurchaseOrderDeleted, id)
	return nil
}

// Reconcile re-derives one purchase order from its delivery notes on demand.
func (s *Service) Reconcile(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resync(ctx, po, po.Number)
}

// resync reconciles number and returns the fresh state of po.
func (s *Service) resync(ctx context.Context, po *entity.PurchaseOrder, number string) (*entity.PurchaseOrder, error) {
	pos, err := s.reconciler.Reconcile(ctx, number)
	if err != nil {
		return po, reconcileFailed(po, err)
	}
	for i := range pos {
		if pos[i].ID == po.ID {
			return &pos[i], nil
		}
	}
	return po, nil
}

func (s *Service) listFromCache(ctx context.Context) ([]entity.PurchaseOrder, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, cache.KeyPurchaseOrders)
	if err != nil {
		return nil, err
	}
	var pos []entity.PurchaseOrder
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil, err
	}
	return pos, nil
}

func (s *Service) storeList(ctx context.Context, pos []entity.PurchaseOrder) error {
	if s.cache == nil {
		return nil
	}
	raw, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cache.KeyPurchaseOrders, raw, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.KeyPurchaseOrders); err != nil {
		s.logger.Warn("purchase order cache invalidation failed", zap.Error(err))
	}
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return errorbank.NotFound("purchase order not found")
	case errors.Is(err, repo.ErrVersionConflict):
		return errorbank.Conflict("purchase order was modified concurrently; reload and retry", errorbank.WithCause(err))
	default:
		return errorbank.Internal(message, errorbank.WithCause(err))
	}
}

func reconcileFailed(po *entity.PurchaseOrder, err error) error {
	if errors.Is(err, repo.ErrVersionConflict) {
		return errorbank.Conflict("purchase order fulfillment could not be refreshed",
			errorbank.WithCause(err), errorbank.WithDetail("purchase_order_id", po.ID))
	}
	return errorbank.Internal("purchase order saved but fulfillment could not be refreshed",
		errorbank.WithCause(err), errorbank.WithDetail("purchase_order_id", po.ID))
}
