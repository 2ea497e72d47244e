// Package dashboard aggregates purchase orders and shipments into an overview.
package dashboard

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	"github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	notesvc "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	posvc "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/suratjalan/service/dashboard")

const recentLimit = 5

// PurchaseOrderLister lists purchase orders.
type PurchaseOrderLister interface {
	List(ctx context.Context, filter purchaseorder.Filter) ([]entity.PurchaseOrder, error)
}

// DeliveryNoteLister lists delivery notes.
type DeliveryNoteLister interface {
	List(ctx context.Context, filter deliverynote.Filter) ([]entity.DeliveryNote, error)
}

// Summary is the dashboard overview.
type Summary struct {
	TotalPurchaseOrders     int
	ActivePurchaseOrders    int
	PartialPurchaseOrders   int
	CompletedPurchaseOrders int
	TotalShipments          int
	TotalRemainingTonnage   decimal.Decimal
	TotalValue              decimal.Decimal
	// OpenPurchaseOrders holds the newest purchase orders that are not completed.
	OpenPurchaseOrders []entity.PurchaseOrder
	RecentShipments    []entity.DeliveryNote
}

// Service builds dashboard summaries.
type Service struct {
	pos   PurchaseOrderLister
	notes DeliveryNoteLister
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	PurchaseOrders *posvc.Service
	DeliveryNotes  *notesvc.Service
}

// Module provides the dashboard service to Fx.
var Module = fx.Provide(NewService)

// NewService wires the dashboard over the purchase order and delivery note services.
func NewService(p Params) *Service {
	return New(p.PurchaseOrders, p.DeliveryNotes)
}

// New builds a Service over arbitrary listers.
func New(pos PurchaseOrderLister, notes DeliveryNoteLister) *Service {
	return &Service{pos: pos, notes: notes}
}

// Summary loads both lists concurrently and aggregates them.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	var (
		pos   []entity.PurchaseOrder
		notes []entity.DeliveryNote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pos, err = s.pos.List(gctx, purchaseorder.Filter{})
		return err
	})
	g.Go(func() (err error) {
		notes, err = s.notes.List(gctx, deliverynote.Filter{})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Summary{}, err
	}

	return Summarize(pos, notes), nil
}

// Summarize aggregates purchase orders (newest first) and notes (most recent first).
func Summarize(pos []entity.PurchaseOrder, notes []entity.DeliveryNote) Summary {
	sum := Summary{
		TotalPurchaseOrders:   len(pos),
		TotalShipments:        len(notes),
		TotalRemainingTonnage: decimal.Zero,
		TotalValue:            decimal.Zero,
		OpenPurchaseOrders:    []entity.PurchaseOrder{},
		RecentShipments:       []entity.DeliveryNote{},
	}
	for _, po := range pos {
		switch po.Status {
		case entity.POStatusActive:
			sum.ActivePurchaseOrders++
		case entity.POStatusPartial:
			sum.PartialPurchaseOrders++
		case entity.POStatusCompleted:
			sum.CompletedPurchaseOrders++
		}
		sum.TotalRemainingTonnage = sum.TotalRemainingTonnage.Add(po.RemainingTonnage)
		sum.TotalValue = sum.TotalValue.Add(po.TotalValue)

		if po.Status != entity.POStatusCompleted && len(sum.OpenPurchaseOrders) < recentLimit {
			sum.OpenPurchaseOrders = append(sum.OpenPurchaseOrders, po)
		}
	}
	if len(notes) > recentLimit {
		notes = notes[:recentLimit]
	}
	sum.RecentShipments = append(sum.RecentShipments, notes...)
	return sum
}
