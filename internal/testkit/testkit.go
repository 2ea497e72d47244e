// Package testkit assembles the services over in-memory stores for tests of
// the outer layers.
package testkit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/cache"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	"github.com/Additional-Code/suratjalan/internal/repository/memory"
	"github.com/Additional-Code/suratjalan/internal/service/dashboard"
	notesvc "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	posvc "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
)

// WIB is the business time zone used by the fixtures.
var WIB = time.FixedZone("WIB", 7*60*60)

// Stack is a fully wired service graph.
type Stack struct {
	Config         config.Config
	PurchaseOrders *memory.PurchaseOrders
	DeliveryNotes  *memory.DeliveryNotes
	Cache          *cache.MemoryStore
	Events         *messaging.Recorder
	Reconciler     *reconcile.Orchestrator
	POService      *posvc.Service
	NoteService    *notesvc.Service
	Dashboard      *dashboard.Service
}

// New wires a Stack whose clock reads now.
func New(now time.Time) *Stack {
	cfg := config.Config{
		Cache:     config.Cache{DefaultTTL: time.Minute},
		Messaging: config.Messaging{Kafka: config.Kafka{Topic: "suratjalan.events"}},
		Business: config.Business{
			TimeZone:     "Asia/Jakarta",
			Location:     WIB,
			MaxNetWeight: decimal.NewFromInt(50000),
		},
		Reconcile: config.Reconcile{LockTTL: time.Second, MaxAttempts: 3},
	}
	logger := zap.NewNop()

	s := &Stack{
		Config:         cfg,
		PurchaseOrders: memory.NewPurchaseOrders(),
		DeliveryNotes:  memory.NewDeliveryNotes(),
		Cache:          cache.NewMemoryStore(time.Minute),
		Events:         messaging.NewRecorder(cfg.Messaging.Kafka.Topic),
	}
	events := messaging.NewEventsFor(s.Events, logger)

	s.Reconciler = reconcile.NewOrchestrator(reconcile.Params{
		PurchaseOrders: s.PurchaseOrders,
		DeliveryNotes:  s.DeliveryNotes,
		Locker:         cache.NewLocalLocker(),
		Cache:          s.Cache,
		Config:         cfg,
		Logger:         logger,
	})
	s.POService = posvc.NewService(posvc.Params{
		Repository: s.PurchaseOrders,
		Reconciler: s.Reconciler,
		Cache:      s.Cache,
		Events:     events,
		Config:     cfg,
		Logger:     logger,
	})
	s.NoteService = notesvc.NewService(notesvc.Params{
		Repository: s.DeliveryNotes,
		Reconciler: s.Reconciler,
		Events:     events,
		Clock:      func() time.Time { return now },
		Config:     cfg,
		Logger:     logger,
	})
	s.Dashboard = dashboard.New(s.POService, s.NoteService)
	return s
}
