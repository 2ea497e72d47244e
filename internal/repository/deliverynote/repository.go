package deliverynote

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/suratjalan/internal/database"
	"github.com/Additional-Code/suratjalan/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/suratjalan/repository/deliverynote")

// ErrNotFound is returned when a delivery note is missing.
var ErrNotFound = errors.New("delivery note not found")

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Search matches note number, driver, destination, po number or plate.
	Search string
	Status entity.NoteStatus
	// PONumber, when set, restricts to notes carrying exactly that number.
	PONumber *string
}

// ForPO returns a filter selecting the notes of one purchase order number.
func ForPO(number string) Filter {
	return Filter{PONumber: &number}
}

// Store is the delivery note persistence contract used by services.
type Store interface {
	Create(ctx context.Context, note *entity.DeliveryNote) error
	GetByID(ctx context.Context, id string) (*entity.DeliveryNote, error)
	List(ctx context.Context, filter Filter) ([]entity.DeliveryNote, error)
	Update(ctx context.Context, note *entity.DeliveryNote) error
	UpdateStatusIf(ctx context.Context, id string, from, to entity.NoteStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Repository encapsulates read/write access for delivery notes.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new delivery note and assigns its id.
func (r *Repository) Create(ctx context.Context, note *entity.DeliveryNote) error {
	if note == nil {
		return errors.New("nil delivery note")
	}
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.Create", trace.WithAttributes(
		attribute.String("note.number", note.Number),
		attribute.String("po.number", note.PONumber),
	))
	defer span.End()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := r.writer.NewInsert().Model(note).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a delivery note by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.DeliveryNote, error) {
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.GetByID", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note := new(entity.DeliveryNote)
	err := r.reader.NewSelect().Model(note).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return note, nil
}

// List returns notes matching filter, most recently updated first. Filters on
// PONumber read from the writer since reconciliation sums their weights.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entity.DeliveryNote, error) {
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.List")
	defer span.End()

	db := r.reader
	if filter.PONumber != nil {
		db = r.writer
		span.SetAttributes(attribute.String("po.number", *filter.PONumber))
	}

	var notes []entity.DeliveryNote
	q := db.NewSelect().Model(&notes).OrderExpr("updated_at DESC")

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(delivery_note_number) LIKE ?", pattern).
				WhereOr("LOWER(driver_name) LIKE ?", pattern).
				WhereOr("LOWER(destination) LIKE ?", pattern).
				WhereOr("LOWER(po_number) LIKE ?", pattern).
				WhereOr("LOWER(vehicle_plate) LIKE ?", pattern)
		})
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PONumber != nil {
		q = q.Where("po_number = ?", *filter.PONumber)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return notes, nil
}

// Update overwrites every mutable column of note.
func (r *Repository) Update(ctx context.Context, note *entity.DeliveryNote) error {
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.Update", trace.WithAttributes(attribute.String("note.id", note.ID)))
	defer span.End()

	note.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().
		Model(note).
		Column("date", "vehicle_plate", "driver_name", "delivery_note_number", "destination",
			"po_number", "net_weight", "status", "notes", "updated_at").
		Where("id = ?", note.ID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// mysql reports changed rows, not matched ones
		exists, err := r.writer.NewSelect().Model((*entity.DeliveryNote)(nil)).Where("id = ?", note.ID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return ErrNotFound
		}
	}
	return nil
}

// UpdateStatusIf moves the note to status to only while it still has status from.
// It reports whether the row was changed.
func (r *Repository) UpdateStatusIf(ctx context.Context, id string, from, to entity.NoteStatus) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.UpdateStatusIf", trace.WithAttributes(
		attribute.String("note.id", id),
		attribute.String("note.status.from", string(from)),
		attribute.String("note.status.to", string(to)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.DeliveryNote)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete hard-deletes a delivery note by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "DeliveryNoteRepository.Delete", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.DeliveryNote)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}
