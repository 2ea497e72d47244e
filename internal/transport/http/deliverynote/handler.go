package deliverynote

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
	repo "github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	service "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/suratjalan/transport/http/deliverynote")

// Handler exposes delivery note endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a delivery note Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/delivery-notes")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/stats", h.stats)
	g.GET("/export", h.export)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.PUT("/:id/weight", h.setWeight)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter, err := filterFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.list")
	defer span.End()

	notes, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromDeliveryNotes(notes)).WithMeta("count", len(notes)).Build()
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.stats")
	defer span.End()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(stats).Build()
}

func (h *Handler) export(c echo.Context) error {
	b := response.New(c)

	filter, err := filterFrom(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.export")
	defer span.End()

	notes, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	var buf bytes.Buffer
	if err := export.DeliveryNotes(&buf, notes); err != nil {
		return b.WithError(errorbank.Internal("failed to render export", errorbank.WithCause(err))).Build()
	}
	return b.Attachment(export.ContentType, "delivery-notes.xlsx", buf.Bytes())
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.getByID", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note, err := h.svc.Get(ctx, id)
	return respond(b, note, err)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.DeliveryNoteRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	in := service.Input{
		VehiclePlate: deref(payload.VehiclePlate),
		DriverName:   deref(payload.DriverName),
		Number:       deref(payload.DeliveryNoteNumber),
		Destination:  deref(payload.Destination),
		PONumber:     deref(payload.PONumber),
		Status:       entity.NoteStatus(deref(payload.Status)),
		Notes:        deref(payload.Notes),
	}
	if payload.Date != nil {
		in.Date = payload.Date.Time
	}
	if payload.NetWeight.Value.Valid {
		weight := payload.NetWeight.Value.Decimal
		in.NetWeight = &weight
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.create", trace.WithAttributes(
		attribute.String("note.number", in.Number),
		attribute.String("po.number", in.PONumber),
	))
	defer span.End()

	note, err := h.svc.Create(ctx, in)
	return respond(b.WithStatus(http.StatusCreated), note, err)
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.DeliveryNoteRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	patch := service.Patch{
		VehiclePlate: payload.VehiclePlate,
		DriverName:   payload.DriverName,
		Number:       payload.DeliveryNoteNumber,
		Destination:  payload.Destination,
		PONumber:     payload.PONumber,
		Notes:        payload.Notes,
	}
	if payload.Date != nil {
		date := payload.Date.Time
		patch.Date = &date
	}
	if payload.Status != nil {
		status := entity.NoteStatus(*payload.Status)
		patch.Status = &status
	}
	if payload.NetWeight.Set {
		if payload.NetWeight.Value.Valid {
			weight := payload.NetWeight.Value.Decimal
			patch.NetWeight = &weight
		} else {
			patch.ClearNetWeight = true
		}
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.update", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note, err := h.svc.Update(ctx, id, patch)
	return respond(b, note, err)
}

func (h *Handler) setWeight(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.WeightRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.NetWeight == nil {
		return b.WithError(errorbank.Invalid("validation failed", map[string]string{
			"net_weight": "net weight is required",
		})).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.setWeight", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	note, err := h.svc.SetWeight(ctx, id, *payload.NetWeight)
	return respond(b, note, err)
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "delivery_notes.remove", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	if err := h.svc.Remove(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

func respond(b *response.Builder, note *entity.DeliveryNote, err error) error {
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromDeliveryNote(note)).Build()
}

func filterFrom(c echo.Context) (repo.Filter, error) {
	filter := repo.Filter{
		Search: strings.TrimSpace(c.QueryParam("q")),
		Status: entity.NoteStatus(c.QueryParam("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return repo.Filter{}, errorbank.BadRequest("unknown status filter", errorbank.WithDetail("status", filter.Status))
	}
	return filter, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
