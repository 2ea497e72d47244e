package purchaseorder

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

var repoTracer = otel.Tracer("github.com/Additional-Code/suratjalan/repository/purchaseorder")

var (
	// ErrNotFound is returned when a purchase order is missing.
	ErrNotFound = errors.New("purchase order not found")
	// ErrVersionConflict is returned when the row changed since it was read.
	ErrVersionConflict = errors.New("purchase order version conflict")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Search matches po number or product type, case-insensitively.
	Search      string
	Status      entity.POStatus
	ProductType entity.ProductType
}

// IsZero reports whether f matches every purchase order.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.Status == "" && f.ProductType == ""
}

// Store is the purchase order persistence contract used by services.
type Store interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	List(ctx context.Context, filter Filter) ([]entity.PurchaseOrder, error)
	ListByNumber(ctx context.Context, number string) ([]entity.PurchaseOrder, error)
	Update(ctx context.Context, po *entity.PurchaseOrder) error
	UpdateTotals(ctx context.Context, po *entity.PurchaseOrder) error
	Delete(ctx context.Context, id string) error
}

// Repository encapsulates read/write access for purchase orders.
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

// Create persists a new purchase order, assigning its id and initial version.
func (r *Repository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if po == nil {
		return errors.New("nil purchase order")
	}
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.Create", trace.WithAttributes(attribute.String("po.number", po.Number)))
	defer span.End()

	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	po.Version = 1
	now := time.Now().UTC()
	if po.CreatedAt.IsZero() {
		po.CreatedAt = now
	}
	po.UpdatedAt = now

	_, err := r.writer.NewInsert().Model(po).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a purchase order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.GetByID", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	po := new(entity.PurchaseOrder)
	err := r.reader.NewSelect().Model(po).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return po, nil
}

// List returns purchase orders matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.List")
	defer span.End()

	var pos []entity.PurchaseOrder
	q := r.reader.NewSelect().Model(&pos).OrderExpr("created_at DESC")

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(po_number) LIKE ?", pattern).
				WhereOr("LOWER(product_type) LIKE ?", pattern)
		})
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ProductType != "" {
		q = q.Where("product_type = ?", filter.ProductType)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return pos, nil
}

// ListByNumber returns every purchase order carrying number. Reads go to the
// writer so reconciliation never works from a lagging replica.
func (r *Repository) ListByNumber(ctx context.Context, number string) ([]entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.ListByNumber", trace.WithAttributes(attribute.String("po.number", number)))
	defer span.End()

	var pos []entity.PurchaseOrder
	err := r.writer.NewSelect().Model(&pos).Where("po_number = ?", number).OrderExpr("created_at ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return pos, nil
}

// Update writes the user editable columns of po guarded by its version.
// On success po.Version holds the new version.
func (r *Repository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.Update", trace.WithAttributes(attribute.String("po.id", po.ID)))
	defer span.End()

	err := r.updateColumns(ctx, po,
		"po_number", "po_date", "product_type", "total_tonnage", "price_per_ton", "total_value",
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// UpdateTotals writes the derived shipped/remaining/status triple guarded by version.
func (r *Repository) UpdateTotals(ctx context.Context, po *entity.PurchaseOrder) error {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.UpdateTotals", trace.WithAttributes(
		attribute.String("po.id", po.ID),
		attribute.String("po.status", string(po.Status)),
	))
	defer span.End()

	err := r.updateColumns(ctx, po, "shipped_tonnage", "remaining_tonnage", "status")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

func (r *Repository) updateColumns(ctx context.Context, po *entity.PurchaseOrder, columns ...string) error {
	expected := po.Version
	previousUpdate := po.UpdatedAt
	po.Version = expected + 1
	po.UpdatedAt = time.Now().UTC()

	res, err := r.writer.NewUpdate().
		Model(po).
		Column(append(columns, "version", "updated_at")...).
		Where("id = ?", po.ID).
		Where("version = ?", expected).
		Exec(ctx)
	if err == nil {
		err = r.checkAffected(ctx, res, po.ID)
	}
	if err != nil {
		po.Version = expected
		po.UpdatedAt = previousUpdate
	}
	return err
}

// Delete removes a purchase order by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "PurchaseOrderRepository.Delete", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.PurchaseOrder)(nil)).Where("id = ?", id).Exec(ctx)
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

// checkAffected tells a stale version apart from a missing row.
func (r *Repository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	exists, err := r.writer.NewSelect().Model((*entity.PurchaseOrder)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
