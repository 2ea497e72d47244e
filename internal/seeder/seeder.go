package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/entity"
	noterepo "github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	porepo "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	notesvc "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	posvc "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Params defines dependencies for constructing Seeder.
type Params struct {
	fx.In

	PurchaseOrderStore porepo.Store
	DeliveryNoteStore  noterepo.Store
	PurchaseOrders     *posvc.Service
	DeliveryNotes      *notesvc.Service
	Reconciler         *reconcile.Orchestrator
	Logger             *zap.Logger
}

// Seeder loads sample purchase orders and delivery notes for local/dev setups.
// Records go through the services so they are validated and reconciled.
type Seeder struct {
	poStore   porepo.Store
	noteStore noterepo.Store
	pos       *posvc.Service
	notes     *notesvc.Service
	reconcile *reconcile.Orchestrator
	logger    *zap.Logger
}

// New constructs a Seeder.
func New(p Params) *Seeder {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		poStore:   p.PurchaseOrderStore,
		noteStore: p.DeliveryNoteStore,
		pos:       p.PurchaseOrders,
		notes:     p.DeliveryNotes,
		reconcile: p.Reconciler,
		logger:    logger,
	}
}

// Run seeds everything relative to today and re-derives every purchase order.
func (s *Seeder) Run(ctx context.Context, today time.Time) error {
	if err := s.PurchaseOrders(ctx, today); err != nil {
		return err
	}
	if err := s.DeliveryNotes(ctx, today); err != nil {
		return err
	}
	if _, err := s.reconcile.ReconcileAll(ctx); err != nil {
		return fmt.Errorf("reconcile seeded purchase orders: %w", err)
	}
	return nil
}

// PurchaseOrders seeds example purchase orders whose numbers are missing.
func (s *Seeder) PurchaseOrders(ctx context.Context, today time.Time) error {
	samples := []posvc.Input{
		{Number: "PO-2024-001", Date: today.AddDate(0, 0, -14), ProductType: entity.ProductCPO, TotalTonnage: decimal.NewFromInt(1000), PricePerTon: decimal.NewFromInt(12500000)},
		{Number: "PO-2024-002", Date: today.AddDate(0, 0, -7), ProductType: entity.ProductUCO, TotalTonnage: decimal.NewFromInt(500), PricePerTon: decimal.NewFromInt(9800000)},
		{Number: "PO-2024-003", Date: today.AddDate(0, 0, -3), ProductType: entity.ProductFishOil, TotalTonnage: decimal.NewFromInt(250), PricePerTon: decimal.NewFromInt(15000000)},
	}

	created := 0
	for _, in := range samples {
		existing, err := s.poStore.ListByNumber(ctx, in.Number)
		if err != nil {
			return fmt.Errorf("look up %s: %w", in.Number, err)
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := s.pos.Create(ctx, in); err != nil {
			return fmt.Errorf("seed %s: %w", in.Number, err)
		}
		created++
	}

	s.logger.Info("seeded purchase orders", zap.Int("count", created))
	return nil
}

// DeliveryNotes seeds example delivery notes whose numbers are missing.
func (s *Seeder) DeliveryNotes(ctx context.Context, today time.Time) error {
	weight := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	samples := []notesvc.Input{
		{Number: "SJ-0001", Date: today.AddDate(0, 0, -10), VehiclePlate: "BM 1234 AB", DriverName: "Budi Santoso", Destination: "Dumai", PONumber: "PO-2024-001", Status: entity.NoteCompleted, NetWeight: weight("300.5")},
		{Number: "SJ-0002", Date: today.AddDate(0, 0, -1), VehiclePlate: "B 9087 KLM", DriverName: "Andi Wijaya", Destination: "Pekanbaru", PONumber: "PO-2024-001", Status: entity.NoteInTransit},
		{Number: "SJ-0003", Date: today.AddDate(0, 0, -2), VehiclePlate: "BK 77 Z", DriverName: "Rahmat Hidayat", Destination: "Belawan", PONumber: "PO-2024-003", Status: entity.NoteCompleted, NetWeight: weight("250")},
		{Number: "SJ-0004", Date: today.AddDate(0, 0, 2), VehiclePlate: "BA 4321 C", DriverName: "Yusuf", Destination: "Padang", Status: entity.NoteWaiting, Notes: "tanpa PO"},
	}

	created := 0
	for _, in := range samples {
		exists, err := s.noteExists(ctx, in.Number)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.notes.Create(ctx, in); err != nil {
			return fmt.Errorf("seed %s: %w", in.Number, err)
		}
		created++
	}

	s.logger.Info("seeded delivery notes", zap.Int("count", created))
	return nil
}

func (s *Seeder) noteExists(ctx context.Context, number string) (bool, error) {
	notes, err := s.noteStore.List(ctx, noterepo.Filter{Search: number})
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", number, err)
	}
	for _, n := range notes {
		if n.Number == number {
			return true, nil
		}
	}
	return false, nil
}
