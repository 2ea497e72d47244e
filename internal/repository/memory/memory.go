// Package memory provides in-process implementations of the repository stores.
// They back service tests and mirror the SQL repositories' sentinel errors and
// ordering, including optimistic versioning of purchase orders.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	"github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
)

// Failures lets tests inject errors per operation name (e.g. "UpdateTotals").
type Failures struct {
	mu   sync.Mutex
	errs map[string]error
}

// Fail makes every subsequent call to op return err until cleared with a nil err.
func (f *Failures) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *Failures) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// PurchaseOrders is an in-memory purchaseorder.Store.
type PurchaseOrders struct {
	Failures

	mu    sync.Mutex
	rows  map[string]entity.PurchaseOrder
	seq   int
	calls map[string]int

	// BeforeUpdateTotals runs before a totals write is applied, outside the lock.
	BeforeUpdateTotals func(po *entity.PurchaseOrder)
}

var _ purchaseorder.Store = (*PurchaseOrders)(nil)

// NewPurchaseOrders builds an empty store.
func NewPurchaseOrders() *PurchaseOrders {
	return &PurchaseOrders{rows: make(map[string]entity.PurchaseOrder), calls: make(map[string]int)}
}

// Calls reports how often op was invoked.
func (s *PurchaseOrders) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *PurchaseOrders) track(op string) error {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
	return s.check(op)
}

// Put stores po as is, bypassing versioning. Used to seed fixtures.
func (s *PurchaseOrders) Put(po entity.PurchaseOrder) entity.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	if po.Version == 0 {
		po.Version = 1
	}
	s.seq++
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Unix(int64(s.seq), 0).UTC()
	}
	s.rows[po.ID] = po
	return po
}

// Snapshot returns the stored copy of id.
func (s *PurchaseOrders) Snapshot(id string) (entity.PurchaseOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.rows[id]
	return po, ok
}

func (s *PurchaseOrders) Create(_ context.Context, po *entity.PurchaseOrder) error {
	if err := s.track("Create"); err != nil {
		return err
	}
	po.Version = 0
	stored := s.Put(*po)
	*po = stored
	return nil
}

func (s *PurchaseOrders) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	if err := s.track("GetByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.rows[id]
	if !ok {
		return nil, purchaseorder.ErrNotFound
	}
	return &po, nil
}

func (s *PurchaseOrders) List(_ context.Context, filter purchaseorder.Filter) ([]entity.PurchaseOrder, error) {
	if err := s.track("List"); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.Lock()
	var out []entity.PurchaseOrder
	for _, po := range s.rows {
		if search != "" &&
			!strings.Contains(strings.ToLower(po.Number), search) &&
			!strings.Contains(strings.ToLower(string(po.ProductType)), search) {
			continue
		}
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		if filter.ProductType != "" && po.ProductType != filter.ProductType {
			continue
		}
		out = append(out, po)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *PurchaseOrders) ListByNumber(_ context.Context, number string) ([]entity.PurchaseOrder, error) {
	if err := s.track("ListByNumber"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.PurchaseOrder
	for _, po := range s.rows {
		if po.Number == number {
			out = append(out, po)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *PurchaseOrders) Update(_ context.Context, po *entity.PurchaseOrder) error {
	if err := s.track("Update"); err != nil {
		return err
	}
	return s.write(po, func(stored *entity.PurchaseOrder) {
		stored.Number = po.Number
		stored.Date = po.Date
		stored.ProductType = po.ProductType
		stored.TotalTonnage = po.TotalTonnage
		stored.PricePerTon = po.PricePerTon
		stored.TotalValue = po.TotalValue
	})
}

func (s *PurchaseOrders) UpdateTotals(_ context.Context, po *entity.PurchaseOrder) error {
	if err := s.track("UpdateTotals"); err != nil {
		return err
	}
	if hook := s.BeforeUpdateTotals; hook != nil {
		hook(po)
	}
	return s.write(po, func(stored *entity.PurchaseOrder) {
		stored.ShippedTonnage = po.ShippedTonnage
		stored.RemainingTonnage = po.RemainingTonnage
		stored.Status = po.Status
	})
}

func (s *PurchaseOrders) write(po *entity.PurchaseOrder, apply func(stored *entity.PurchaseOrder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rows[po.ID]
	if !ok {
		return purchaseorder.ErrNotFound
	}
	if stored.Version != po.Version {
		return purchaseorder.ErrVersionConflict
	}
	apply(&stored)
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.rows[po.ID] = stored
	po.Version = stored.Version
	po.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *PurchaseOrders) Delete(_ context.Context, id string) error {
	if err := s.track("Delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return purchaseorder.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// DeliveryNotes is an in-memory deliverynote.Store.
type DeliveryNotes struct {
	Failures

	mu    sync.Mutex
	rows  map[string]entity.DeliveryNote
	seq   int
	calls map[string]int
}

var _ deliverynote.Store = (*DeliveryNotes)(nil)

// NewDeliveryNotes builds an empty store.
func NewDeliveryNotes() *DeliveryNotes {
	return &DeliveryNotes{rows: make(map[string]entity.DeliveryNote), calls: make(map[string]int)}
}

// Calls reports how often op was invoked.
func (s *DeliveryNotes) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *DeliveryNotes) track(op string) error {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
	return s.check(op)
}

// Put stores note as is. Used to seed fixtures.
func (s *DeliveryNotes) Put(note entity.DeliveryNote) entity.DeliveryNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	s.seq++
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Unix(int64(s.seq), 0).UTC()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = note.UpdatedAt
	}
	s.rows[note.ID] = note
	return note
}

// Snapshot returns the stored copy of id.
func (s *DeliveryNotes) Snapshot(id string) (entity.DeliveryNote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.rows[id]
	return note, ok
}

func (s *DeliveryNotes) Create(_ context.Context, note *entity.DeliveryNote) error {
	if err := s.track("Create"); err != nil {
		return err
	}
	*note = s.Put(*note)
	return nil
}

func (s *DeliveryNotes) GetByID(_ context.Context, id string) (*entity.DeliveryNote, error) {
	if err := s.track("GetByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.rows[id]
	if !ok {
		return nil, deliverynote.ErrNotFound
	}
	return &note, nil
}

func (s *DeliveryNotes) List(_ context.Context, filter deliverynote.Filter) ([]entity.DeliveryNote, error) {
	if err := s.track("List"); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.Lock()
	var out []entity.DeliveryNote
	for _, note := range s.rows {
		if search != "" && !matchesNote(note, search) {
			continue
		}
		if filter.Status != "" && note.Status != filter.Status {
			continue
		}
		if filter.PONumber != nil && note.PONumber != *filter.PONumber {
			continue
		}
		out = append(out, note)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func matchesNote(note entity.DeliveryNote, search string) bool {
	for _, field := range []string{note.Number, note.DriverName, note.Destination, note.PONumber, note.VehiclePlate} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (s *DeliveryNotes) Update(_ context.Context, note *entity.DeliveryNote) error {
	if err := s.track("Update"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rows[note.ID]
	if !ok {
		return deliverynote.ErrNotFound
	}
	s.seq++
	note.CreatedAt = stored.CreatedAt
	note.UpdatedAt = time.Unix(int64(s.seq), 0).UTC()
	s.rows[note.ID] = *note
	return nil
}

func (s *DeliveryNotes) UpdateStatusIf(_ context.Context, id string, from, to entity.NoteStatus) (bool, error) {
	if err := s.track("UpdateStatusIf"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rows[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	s.seq++
	stored.Status = to
	stored.UpdatedAt = time.Unix(int64(s.seq), 0).UTC()
	s.rows[id] = stored
	return true, nil
}

func (s *DeliveryNotes) Delete(_ context.Context, id string) error {
	if err := s.track("Delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return deliverynote.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}
