package purchaseorder

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/suratjalan/internal/dto"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/export"
	"github.com/Additional-Code/suratjalan/internal/presentation/http/response"
	repo "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	service "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/suratjalan/transport/http/purchaseorder")

// Handler exposes purchase order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a purchase order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/purchase-orders")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/export", h.export)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/reconcile", h.reconcile)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter, err := filterFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.list")
	defer span.End()

	pos, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromPurchaseOrders(pos)).WithMeta("count", len(pos)).Build()
}

func (h *Handler) export(c echo.Context) error {
	b := response.New(c)

	filter, err := filterFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.export")
	defer span.End()

	pos, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	var buf bytes.Buffer
	if err := export.PurchaseOrders(&buf, pos); err != nil {
		return b.WithError(errorbank.Internal("failed to render export", errorbank.WithCause(err))).Build()
	}
	return b.Attachment(export.ContentType, "purchase-orders.xlsx", buf.Bytes())
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.getByID", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	po, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromPurchaseOrder(po)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.PurchaseOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	in := service.Input{}
	if payload.PONumber != nil {
		in.Number = *payload.PONumber
	}
	if payload.PODate != nil {
		in.Date = payload.PODate.Time
	}
	if payload.ProductType != nil {
		in.ProductType = entity.ProductType(*payload.ProductType)
	}
	if payload.TotalTonnage != nil {
		in.TotalTonnage = *payload.TotalTonnage
	}
	if payload.PricePerTon != nil {
		in.PricePerTon = *payload.PricePerTon
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.create", trace.WithAttributes(attribute.String("po.number", in.Number)))
	defer span.End()

	po, err := h.svc.Create(ctx, in)
	return respond(b.WithStatus(http.StatusCreated), po, err)
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.PurchaseOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	patch := service.Patch{
		Number:       payload.PONumber,
		TotalTonnage: payload.TotalTonnage,
		PricePerTon:  payload.PricePerTon,
	}
	if payload.PODate != nil {
		date := payload.PODate.Time
		patch.Date = &date
	}
	if payload.ProductType != nil {
		product := entity.ProductType(*payload.ProductType)
		patch.ProductType = &product
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.update", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	po, err := h.svc.Update(ctx, id, patch)
	return respond(b, po, err)
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.delete", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) reconcile(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "purchase_orders.reconcile", trace.WithAttributes(attribute.String("po.id", id)))
	defer span.End()

	po, err := h.svc.Reconcile(ctx, id)
	return respond(b, po, err)
}

// respond renders po, or the error when the write did not fully succeed.
func respond(b *response.Builder, po *entity.PurchaseOrder, err error) error {
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromPurchaseOrder(po)).Build()
}

func filterFrom(c echo.Context) (repo.Filter, error) {
	filter := repo.Filter{
		Search:      strings.TrimSpace(c.QueryParam("q")),
		Status:      entity.POStatus(c.QueryParam("status")),
		ProductType: entity.ProductType(c.QueryParam("product_type")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return repo.Filter{}, errorbank.BadRequest("unknown status filter", errorbank.WithDetail("status", filter.Status))
	}
	if filter.ProductType != "" && !filter.ProductType.Valid() {
		return repo.Filter{}, errorbank.BadRequest("unknown product type filter", errorbank.WithDetail("product_type", filter.ProductType))
	}
	return filter, nil
}
