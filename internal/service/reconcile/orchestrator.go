// Package reconcile keeps purchase order fulfillment aggregates in step with
// their delivery notes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/suratjalan/internal/cache"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/fulfillment"
	"github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	"github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/suratjalan/service/reconcile")
	serviceMeter  = otel.Meter("github.com/Additional-Code/suratjalan/service/reconcile")
)

const bulkConcurrency = 4

// Module provides the Orchestrator to Fx.
var Module = fx.Provide(NewOrchestrator)

// Params defines dependencies for constructing Orchestrator.
type Params struct {
	fx.In

	PurchaseOrders purchaseorder.Store
	DeliveryNotes  deliverynote.Store
	Locker         cache.Locker
	Cache          cache.Store
	Config         config.Config
	Logger         *zap.Logger
}

// Orchestrator recomputes and persists the shipped/remaining/status triple of
// purchase orders. Work on one po number is serialized through the Locker and
// every write is version checked, so concurrent triggers converge.
type Orchestrator struct {
	pos         purchaseorder.Store
	notes       deliverynote.Store
	locker      cache.Locker
	cache       cache.Store
	logger      *zap.Logger
	lockTTL     time.Duration
	maxAttempts int
	runs        metric.Int64Counter
}

// NewOrchestrator wires a new Orchestrator instance.
func NewOrchestrator(p Params) *Orchestrator {
	runs, err := serviceMeter.Int64Counter("suratjalan.reconcile.runs",
		metric.WithDescription("Purchase order reconciliations by outcome"))
	if err != nil && p.Logger != nil {
		p.Logger.Warn("reconcile counter unavailable", zap.Error(err))
	}

	attempts := p.Config.Reconcile.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	ttl := p.Config.Reconcile.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locker := p.Locker
	if locker == nil {
		locker = cache.NewLocalLocker()
	}

	return &Orchestrator{
		pos:         p.PurchaseOrders,
		notes:       p.DeliveryNotes,
		locker:      locker,
		cache:       p.Cache,
		logger:      logger,
		lockTTL:     ttl,
		maxAttempts: attempts,
		runs:        runs,
	}
}

// Reconcile re-derives every purchase order carrying poNumber from the current
// delivery notes and returns them as persisted. An empty number or one that
// matches no purchase order is a silent no-op.
func (o *Orchestrator) Reconcile(ctx context.Context, poNumber string) ([]entity.PurchaseOrder, error) {
	number := fulfillment.NormalizePONumber(poNumber)
	if number == fulfillment.NoPO {
		return nil, nil
	}

	ctx, span := serviceTracer.Start(ctx, "Orchestrator.Reconcile", trace.WithAttributes(attribute.String("po.number", number)))
	defer span.End()

	unlock, err := o.locker.Lock(ctx, "reconcile:"+number, o.lockTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock failed")
		return nil, fmt.Errorf("lock po %s: %w", number, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		pos, outcome, err := o.reconcileOnce(ctx, number)
		if errors.Is(err, purchaseorder.ErrVersionConflict) && attempt < o.maxAttempts {
			o.logger.Debug("purchase order changed during reconcile; retrying",
				zap.String("po_number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			o.count(ctx, "error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "reconcile failed")
			return nil, err
		}
		o.count(ctx, outcome)
		span.SetAttributes(attribute.String("reconcile.outcome", outcome), attribute.Int("reconcile.attempts", attempt))
		return pos, nil
	}
}

func (o *Orchestrator) reconcileOnce(ctx context.Context, number string) ([]entity.PurchaseOrder, string, error) {
	pos, err := o.pos.ListByNumber(ctx, number)
	if err != nil {
		return nil, "", fmt.Errorf("load po %s: %w", number, err)
	}
	if len(pos) == 0 {
		o.logger.Debug("no purchase order for delivery notes; skipping", zap.String("po_number", number))
		return nil, "missing", nil
	}

	notes, err := o.notes.List(ctx, deliverynote.ForPO(number))
	if err != nil {
		return nil, "", fmt.Errorf("load delivery notes of po %s: %w", number, err)
	}

	outcome := "unchanged"
	out := make([]entity.PurchaseOrder, 0, len(pos))
	for i := range pos {
		po := pos[i]
		totals := fulfillment.Reconcile(number, po.TotalTonnage, notes)
		if !totals.Differs(&po) {
			out = append(out, po)
			continue
		}

		totals.ApplyTo(&po)
		err := o.pos.UpdateTotals(ctx, &po)
		if errors.Is(err, purchaseorder.ErrNotFound) {
			// deleted since it was listed
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("write totals of po %s: %w", number, err)
		}
		outcome = "updated"
		o.logger.Info("purchase order reconciled",
			zap.String("po_id", po.ID),
			zap.String("po_number", number),
			zap.String("shipped", po.ShippedTonnage.String()),
			zap.String("remaining", po.RemainingTonnage.String()),
			zap.String("status", string(po.Status)),
		)
		out = append(out, po)
	}

	if outcome == "updated" {
		o.invalidate(ctx)
	}
	return out, outcome, nil
}

// ReconcileMany reconciles each distinct number concurrently and returns the
// resulting purchase orders.
func (o *Orchestrator) ReconcileMany(ctx context.Context, numbers []string) ([]entity.PurchaseOrder, error) {
	seen := make(map[string]struct{}, len(numbers))
	unique := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = fulfillment.NormalizePONumber(n)
		if n == fulfillment.NoPO {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	sort.Strings(unique)

	results := make([][]entity.PurchaseOrder, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, n := range unique {
		i, n := i, n
		g.Go(func() error {
			pos, err := o.Reconcile(gctx, n)
			results[i] = pos
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []entity.PurchaseOrder
	for _, pos := range results {
		out = append(out, pos...)
	}
	return out, nil
}

// ReconcileAll re-derives every stored purchase order.
func (o *Orchestrator) ReconcileAll(ctx context.Context) ([]entity.PurchaseOrder, error) {
	pos, err := o.pos.List(ctx, purchaseorder.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	numbers := make([]string, 0, len(pos))
	for _, po := range pos {
		numbers = append(numbers, po.Number)
	}
	return o.ReconcileMany(ctx, numbers)
}

func (o *Orchestrator) invalidate(ctx context.Context) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, cache.KeyPurchaseOrders); err != nil {
		o.logger.Warn("purchase order cache invalidation failed", zap.Error(err))
	}
}

func (o *Orchestrator) count(ctx context.Context, outcome string) {
	if o.runs == nil {
		return
	}
	o.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
