package deliverynote

import (
	"context"
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

	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/fulfillment"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	repo "github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	porepo "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/suratjalan/service/deliverynote")

// Clock returns the current instant.
type Clock func() time.Time

// Input carries the fields of a new delivery note.
type Input struct {
	Date         time.Time
	VehiclePlate string
	DriverName   string
	Number       string
	Destination  string
	PONumber     string
	NetWeight    *decimal.Decimal
	Status       entity.NoteStatus
	Notes        string
}

// Patch carries the fields to change on a delivery note. Nil fields are kept.
type Patch struct {
	Date           *time.Time
	VehiclePlate   *string
	DriverName     *string
	Number         *string
	Destination    *string
	PONumber       *string
	NetWeight      *decimal.Decimal
	ClearNetWeight bool
	Status         *entity.NoteStatus
	Notes          *string
}

// Stats summarises delivery notes by status.
type Stats struct {
	Total          int             `json:"total"`
	Waiting        int             `json:"waiting"`
	InTransit      int             `json:"in_transit"`
	Completed      int             `json:"completed"`
	TotalNetWeight decimal.Decimal `json:"total_net_weight"`
}

// Service encapsulates business logic around delivery notes.
type Service struct {
	repo       repo.Store
	reconciler *reconcile.Orchestrator
	events     *messaging.Events
	logger     *zap.Logger
	location   *time.Location
	maxWeight  decimal.Decimal
	clock      Clock
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repo.Store
	Reconciler *reconcile.Orchestrator
	Events     *messaging.Events `optional:"true"`
	Clock      Clock             `optional:"true"`
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := p.Config.Business.Location
	if loc == nil {
		loc = time.UTC
	}
	maxWeight := p.Config.Business.MaxNetWeight
	if !maxWeight.IsPositive() {
		maxWeight = decimal.NewFromInt(50000)
	}
	return &Service{
		repo:       p.Repository,
		reconciler: p.Reconciler,
		events:     p.Events,
		logger:     p.Logger,
		location:   loc,
		maxWeight:  maxWeight,
		clock:      clock,
	}
}

func (s *Service) now() time.Time {
	return s.clock().In(s.location)
}

// Create validates in, advances its status when its date has arrived, stores
// it and refreshes the linked purchase order.
func (s *Service) Create(ctx context.Context, in Input) (*entity.DeliveryNote, error) {
	note := &entity.DeliveryNote{
		Date:         in.Date,
		VehiclePlate: strings.TrimSpace(in.VehiclePlate),
		DriverName:   strings.TrimSpace(in.DriverName),
		Number:       strings.TrimSpace(in.Number),
		Destination:  strings.TrimSpace(in.Destination),
		PONumber:     fulfillment.NormalizePONumber(in.PONumber),
		Status:       in.Status,
		Notes:        strings.TrimSpace(in.Notes),
	}
	if note.Status == "" {
		note.Status = entity.NoteWaiting
	}

	fields := s.validateNote(note)
	if in.NetWeight != nil {
		s.validateWeight(fields, *in.NetWeight, note.Status)
		note.NetWeight = decimal.NewNullDecimal(*in.NetWeight)
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	note.Date = fulfillment.Day(note.Date)
	note.Status = fulfillment.Advance(note.Date, note.Status, s.now())

	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.Create", trace.WithAttributes(
		attribute.String("note.number", note.Number),
		attribute.String("po.number", note.PONumber),
	))
	defer span.End()

	if err := s.repo.Create(ctx, note); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create delivery note", errorbank.WithCause(err))
	}
	s.events.Publish(ctx, messaging.EventDeliveryNoteCreated, note.ID, note.PONumber)

	return note, s.reconcile(ctx, note, note.PONumber)
}

// Get retrieves a delivery note by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.DeliveryNote, error) {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.Get", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "failed to load delivery note")
	}
	return note, nil
}

// List returns delivery notes matching filter, most recently updated first.
func (s *Service) List(ctx context.Context, filter repo.Filter) ([]entity.DeliveryNote, error) {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.List")
	defer span.End()

	notes, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list delivery notes", errorbank.WithCause(err))
	}
	return notes, nil
}

// Update applies patch. Changes to weight, status or po number refresh both the
// previous and the new purchase order.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*entity.DeliveryNote, error) {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.Update", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load delivery note")
	}
	before := *current
	note := current

	if patch.Date != nil {
		note.Date = *patch.Date
	}
	if patch.VehiclePlate != nil {
		note.VehiclePlate = strings.TrimSpace(*patch.VehiclePlate)
	}
	if patch.DriverName != nil {
		note.DriverName = strings.TrimSpace(*patch.DriverName)
	}
	if patch.Number != nil {
		note.Number = strings.TrimSpace(*patch.Number)
	}
	if patch.Destination != nil {
		note.Destination = strings.TrimSpace(*patch.Destination)
	}
	if patch.PONumber != nil {
		note.PONumber = fulfillment.NormalizePONumber(*patch.PONumber)
	}
	if patch.Status != nil {
		note.Status = *patch.Status
	}
	if patch.Notes != nil {
		note.Notes = strings.TrimSpace(*patch.Notes)
	}

	fields := s.validateNote(note)
	switch {
	case patch.NetWeight != nil:
		s.validateWeight(fields, *patch.NetWeight, note.Status)
		note.NetWeight = decimal.NewNullDecimal(*patch.NetWeight)
	case patch.ClearNetWeight:
		note.NetWeight = decimal.NullDecimal{}
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	note.Date = fulfillment.Day(note.Date)
	note.Status = fulfillment.Advance(note.Date, note.Status, s.now())

	return s.save(ctx, &before, note)
}

// SetWeight records the weighed net weight of a completed delivery.
func (s *Service) SetWeight(ctx context.Context, id string, weight decimal.Decimal) (*entity.DeliveryNote, error) {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.SetWeight", trace.WithAttributes(
		attribute.String("note.id", id),
		attribute.String("note.net_weight", weight.String()),
	))
	defer span.End()

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load delivery note")
	}
	before := *note

	fields := fieldErrors{}
	s.validateWeight(fields, weight, note.Status)
	if err := fields.err(); err != nil {
		return nil, err
	}
	note.NetWeight = decimal.NewNullDecimal(weight)

	return s.save(ctx, &before, note)
}

func (s *Service) save(ctx context.Context, before, note *entity.DeliveryNote) (*entity.DeliveryNote, error) {
	if err := s.repo.Update(ctx, note); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, translate(err, "failed to update delivery note")
	}
	s.events.Publish(ctx, messaging.EventDeliveryNoteUpdated, note.ID, before.PONumber, note.PONumber)

	if !affectsFulfillment(before, note) {
		return note, nil
	}
	if before.PONumber != note.PONumber {
		if err := s.reconcile(ctx, note, before.PONumber); err != nil {
			return note, err
		}
	}
	return note, s.reconcile(ctx, note, note.PONumber)
}

func affectsFulfillment(before, after *entity.DeliveryNote) bool {
	return before.PONumber != after.PONumber ||
		before.Status != after.Status ||
		before.NetWeight.Valid != after.NetWeight.Valid ||
		!before.Weight().Equal(after.Weight())
}

// Remove hard-deletes a delivery note and refreshes the purchase order it counted towards.
func (s *Service) Remove(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.Remove", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translate(err, "failed to load delivery note")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return translate(err, "failed to delete delivery note")
	}
	s.events.Publish(ctx, messaging.EventDeliveryNoteDeleted, note.ID, note.PONumber)

	return s.reconcile(ctx, note, note.PONumber)
}

// Stats counts every delivery note per status and sums their net weight.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	notes, err := s.List(ctx, repo.Filter{})
	if err != nil {
		return Stats{}, err
	}
	return Summarize(notes), nil
}

// Summarize computes Stats over notes.
func Summarize(notes []entity.DeliveryNote) Stats {
	stats := Stats{Total: len(notes), TotalNetWeight: decimal.Zero}
	for _, note := range notes {
		switch note.Status {
		case entity.NoteWaiting:
			stats.Waiting++
		case entity.NoteInTransit:
			stats.InTransit++
		case entity.NoteCompleted:
			stats.Completed++
		}
		stats.TotalNetWeight = stats.TotalNetWeight.Add(note.Weight())
	}
	return stats
}

// AdvanceStatuses moves every waiting note whose date has arrived to in transit.
// Writes are compare-and-set, so a note edited meanwhile is left alone. It
// returns how many notes moved; per-note failures are joined.
func (s *Service) AdvanceStatuses(ctx context.Context) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "DeliveryNoteService.AdvanceStatuses")
	defer span.End()

	waiting, err := s.repo.List(ctx, repo.Filter{Status: entity.NoteWaiting})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to list waiting delivery notes", errorbank.WithCause(err))
	}

	now := s.now()
	moved := 0
	var errs []error
	for _, note := range waiting {
		next := fulfillment.Advance(note.Date, note.Status, now)
		if next == note.Status {
			continue
		}
		changed, err := s.repo.UpdateStatusIf(ctx, note.ID, note.Status, next)
		if err != nil {
			s.logger.Warn("advance delivery status failed", zap.String("note_id", note.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}
		moved++
		s.events.Publish(ctx, messaging.EventDeliveryNoteUpdated, note.ID, note.PONumber)
	}

	span.SetAttributes(attribute.Int("notes.advanced", moved))
	if len(errs) > 0 {
		return moved, errorbank.Internal("some delivery statuses could not be advanced", errorbank.WithCause(errors.Join(errs...)))
	}
	return moved, nil
}

// reconcile refreshes the purchase order carrying number after note changed.
// The note change itself stays committed when this fails.
func (s *Service) reconcile(ctx context.Context, note *entity.DeliveryNote, number string) error {
	if _, err := s.reconciler.Reconcile(ctx, number); err != nil {
		s.logger.Error("purchase order reconcile failed",
			zap.String("note_id", note.ID),
			zap.String("po_number", number),
			zap.Error(err),
		)
		opts := []errorbank.Option{
			errorbank.WithCause(err),
			errorbank.WithDetail("delivery_note_id", note.ID),
			errorbank.WithDetail("po_number", number),
		}
		if errors.Is(err, porepo.ErrVersionConflict) {
			return errorbank.Conflict("delivery note saved but purchase order could not be refreshed", opts...)
		}
		return errorbank.Internal("delivery note saved but purchase order could not be refreshed", opts...)
	}
	return nil
}

func translate(err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("delivery note not found")
	}
	return errorbank.Internal(message, errorbank.WithCause(err))
}
