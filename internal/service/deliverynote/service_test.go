package deliverynote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/cache"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	"github.com/Additional-Code/suratjalan/internal/repository/memory"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var (
	wib   = time.FixedZone("WIB", 7*60*60)
	today = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
)

type harness struct {
	pos    *memory.PurchaseOrders
	notes  *memory.DeliveryNotes
	events *messaging.Recorder
	svc    *Service
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		pos:    memory.NewPurchaseOrders(),
		notes:  memory.NewDeliveryNotes(),
		events: messaging.NewRecorder("suratjalan.events"),
		now:    time.Date(2025, 3, 10, 9, 0, 0, 0, wib),
	}
	cfg := config.Config{
		Business:  config.Business{Location: wib, MaxNetWeight: decimal.NewFromInt(50000)},
		Reconcile: config.Reconcile{LockTTL: time.Second, MaxAttempts: 3},
	}
	orch := reconcile.NewOrchestrator(reconcile.Params{
		PurchaseOrders: h.pos,
		DeliveryNotes:  h.notes,
		Locker:         cache.NewLocalLocker(),
		Cache:          cache.NewMemoryStore(time.Minute),
		Config:         cfg,
		Logger:         zap.NewNop(),
	})
	h.svc = NewService(Params{
		Repository: h.notes,
		Reconciler: orch,
		Events:     messaging.NewEventsFor(h.events, zap.NewNop()),
		Clock:      func() time.Time { return h.now },
		Config:     cfg,
		Logger:     zap.NewNop(),
	})
	return h
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func (h *harness) po(number, total string) entity.PurchaseOrder {
	return h.pos.Put(entity.PurchaseOrder{
		Number:           number,
		ProductType:      entity.ProductCPO,
		TotalTonnage:     dec(total),
		PricePerTon:      dec("1000"),
		TotalValue:       dec(total).Mul(dec("1000")),
		ShippedTonnage:   decimal.Zero,
		RemainingTonnage: dec(total),
		Status:           entity.POStatusActive,
	})
}

func (h *harness) stored(t *testing.T, id string) entity.PurchaseOrder {
	t.Helper()
	po, ok := h.pos.Snapshot(id)
	require.True(t, ok)
	return po
}

func input(po string) Input {
	return Input{
		Date:         today.AddDate(0, 0, 1),
		VehiclePlate: "B 1234 XYZ",
		DriverName:   "Budi",
		Number:       "SJ-001",
		Destination:  "Dumai",
		PONumber:     po,
	}
}

func completedInput(po, weight string) Input {
	in := input(po)
	in.Status = entity.NoteCompleted
	w := dec(weight)
	in.NetWeight = &w
	return in
}

func assertPO(t *testing.T, po entity.PurchaseOrder, shipped, remaining string, status entity.POStatus) {
	t.Helper()
	assert.True(t, po.ShippedTonnage.Equal(dec(shipped)), "shipped %s, want %s", po.ShippedTonnage, shipped)
	assert.True(t, po.RemainingTonnage.Equal(dec(remaining)), "remaining %s, want %s", po.RemainingTonnage, remaining)
	assert.Equal(t, status, po.Status)
}

func TestFulfillmentLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	po := h.po("PO-1", "100")

	_, err := h.svc.Create(ctx, completedInput("PO-1", "40"))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, completedInput("PO-1", "30"))
	require.NoError(t, err)
	assertPO(t, h.stored(t, po.ID), "70", "30", entity.POStatusPartial)

	third, err := h.svc.Create(ctx, completedInput("PO-1", "40"))
	require.NoError(t, err)
	assertPO(t, h.stored(t, po.ID), "110", "0", entity.POStatusCompleted)

	require.NoError(t, h.svc.Remove(ctx, third.ID))
	assertPO(t, h.stored(t, po.ID), "70", "30", entity.POStatusPartial)
}

func TestCreateDefaultsAndAdvances(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	future, err := h.svc.Create(ctx, input(""))
	require.NoError(t, err)
	assert.Equal(t, entity.NoteWaiting, future.Status)
	assert.Equal(t, "", future.PONumber)

	in := input("-")
	in.Date = today.AddDate(0, 0, -1)
	past, err := h.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, entity.NoteInTransit, past.Status)
	assert.Equal(t, "", past.PONumber, "dash means no purchase order")
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Create(ctx, Input{VehiclePlate: "12345", Status: "lost"})
	require.Error(t, err)
	fields := errorbank.From(err).Fields()
	for _, f := range []string{"date", "vehicle_plate", "driver_name", "delivery_note_number", "destination", "status"} {
		assert.Contains(t, fields, f)
	}
	assert.Zero(t, h.notes.Calls("Create"))

	in := input("PO-1")
	w := dec("10")
	in.NetWeight = &w
	_, err = h.svc.Create(ctx, in)
	assert.Equal(t, "net weight can only be set on completed deliveries", errorbank.From(err).Fields()["net_weight"])

	for _, bad := range []string{"0", "-1", "50000.001"} {
		_, err = h.svc.Create(ctx, completedInput("PO-1", bad))
		assert.True(t, errorbank.IsKind(err, errorbank.KindValidation), bad)
	}

	_, err = h.svc.Create(ctx, completedInput("PO-1", "50000"))
	assert.NoError(t, err)
}

func TestValidPlate(t *testing.T) {
	for _, ok := range []string{"B 1234 XYZ", "BK1234AB", "d 1 a", "AB 12 C"} {
		assert.True(t, ValidPlate(ok), ok)
	}
	for _, bad := range []string{"", "1234", "ABC 123 D", "B 12345 X", "B 1234 WXYZ"} {
		assert.False(t, ValidPlate(bad), bad)
	}
}

func TestUpdateStatusAndWeightReconciles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	po := h.po("PO-1", "100")

	note, err := h.svc.Create(ctx, input("PO-1"))
	require.NoError(t, err)
	assertPO(t, h.stored(t, po.ID), "0", "100", entity.POStatusActive)

	_, err = h.svc.Update(ctx, note.ID, Patch{Status: ptr(entity.NoteCompleted), NetWeight: ptr(dec("55"))})
	require.NoError(t, err)
	assertPO(t, h.stored(t, po.ID), "55", "45", entity.POStatusPartial)

	// leaving completed stops counting the weight
	_, err = h.svc.Update(ctx, note.ID, Patch{Status: ptr(entity.NoteInTransit)})
	require.NoError(t, err)
	assertPO(t, h.stored(t, po.ID), "0", "100", entity.POStatusActive)
}

func TestUpdateMovingPOReconcilesBoth(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := h.po("PO-1", "100")
	second := h.po("PO-2", "100")

	note, err := h.svc.Create(ctx, completedInput("PO-1", "60"))
	require.NoError(t, err)
	assertPO(t, h.stored(t, first.ID), "60", "40", entity.POStatusPartial)

	_, err = h.svc.Update(ctx, note.ID, Patch{PONumber: ptr(" PO-2 ")})
	require.NoError(t, err)
	assertPO(t, h.stored(t, first.ID), "0", "100", entity.POStatusActive)
	assertPO(t, h.stored(t, second.ID), "60", "40", entity.POStatusPartial)
}

func TestUpdateIrrelevantFieldSkipsReconcile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.po("PO-1", "100")
	note, err := h.svc.Create(ctx, completedInput("PO-1", "10"))
	require.NoError(t, err)
	calls := h.pos.Calls("ListByNumber")

	updated, err := h.svc.Update(ctx, note.ID, Patch{DriverName: ptr("Slamet")})
	require.NoError(t, err)
	assert.Equal(t, "Slamet", updated.DriverName)
	assert.Equal(t, calls, h.pos.Calls("ListByNumber"))
}

func TestUpdateNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Update(context.Background(), "missing", Patch{})
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestSetWeight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	po := h.po("PO-1", "100")

	waiting, err := h.svc.Create(ctx, input("PO-1"))
	require.NoError(t, err)
	_, err = h.svc.SetWeight(ctx, waiting.ID, dec("10"))
	assert.True(t, errorbank.IsKind(err, errorbank.KindValidation))

	done := completedInput("PO-1", "10")
	note, err := h.svc.Create(ctx, done)
	require.NoError(t, err)

	updated, err := h.svc.SetWeight(ctx, note.ID, dec("12.5"))
	require.NoError(t, err)
	assert.True(t, updated.Weight().Equal(dec("12.5")))
	assertPO(t, h.stored(t, po.ID), "12.5", "87.5", entity.POStatusPartial)
}

func TestReconcileFailureKeepsNoteMutation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.po("PO-1", "100")
	h.pos.Fail("UpdateTotals", errors.New("write refused"))

	note, err := h.svc.Create(ctx, completedInput("PO-1", "40"))
	require.Error(t, err)
	require.NotNil(t, note)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindInternal, appErr.Kind())
	assert.Equal(t, note.ID, appErr.Details()["delivery_note_id"])

	_, ok := h.notes.Snapshot(note.ID)
	assert.True(t, ok, "note stays committed")
}

func TestRemoveNotFound(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Remove(context.Background(), "missing")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Create(ctx, input(""))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, completedInput("", "20"))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, completedInput("", "5.5"))
	require.NoError(t, err)
	h.notes.Put(entity.DeliveryNote{Status: entity.NoteInTransit})

	stats, err := h.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 1, stats.InTransit)
	assert.Equal(t, 2, stats.Completed)
	assert.True(t, stats.TotalNetWeight.Equal(dec("25.5")))
}

func TestAdvanceStatuses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	yesterday := h.notes.Put(entity.DeliveryNote{Date: today.AddDate(0, 0, -1), Status: entity.NoteWaiting})
	sameDay := h.notes.Put(entity.DeliveryNote{Date: today, Status: entity.NoteWaiting})
	tomorrow := h.notes.Put(entity.DeliveryNote{Date: today.AddDate(0, 0, 1), Status: entity.NoteWaiting})
	done := h.notes.Put(entity.DeliveryNote{Date: today.AddDate(0, 0, -5), Status: entity.NoteCompleted})

	moved, err := h.svc.AdvanceStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	status := func(id string) entity.NoteStatus {
		n, ok := h.notes.Snapshot(id)
		require.True(t, ok)
		return n.Status
	}
	assert.Equal(t, entity.NoteInTransit, status(yesterday.ID))
	assert.Equal(t, entity.NoteInTransit, status(sameDay.ID))
	assert.Equal(t, entity.NoteWaiting, status(tomorrow.ID))
	assert.Equal(t, entity.NoteCompleted, status(done.ID))

	moved, err = h.svc.AdvanceStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved, "second sweep is a no-op")
}

func TestAdvanceStatusesUsesBusinessCalendar(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	// 2025-03-09 18:00 UTC is already the 10th in Jakarta
	h.now = time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	note := h.notes.Put(entity.DeliveryNote{Date: today, Status: entity.NoteWaiting})

	moved, err := h.svc.AdvanceStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	got, _ := h.notes.Snapshot(note.ID)
	assert.Equal(t, entity.NoteInTransit, got.Status)
}

func TestAdvanceStatusesJoinsFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.notes.Put(entity.DeliveryNote{Date: today, Status: entity.NoteWaiting})
	h.notes.Fail("UpdateStatusIf", errors.New("write refused"))

	moved, err := h.svc.AdvanceStatuses(ctx)
	assert.Zero(t, moved)
	assert.True(t, errorbank.IsKind(err, errorbank.KindInternal))
}
