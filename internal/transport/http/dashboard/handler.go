package dashboard

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Additional-Code/suratjalan/internal/dto"
	"github.com/Additional-Code/suratjalan/internal/presentation/http/response"
	service "github.com/Additional-Code/suratjalan/internal/service/dashboard"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/suratjalan/transport/http/dashboard")

// Handler serves the dashboard overview.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Module wires the dashboard route.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/dashboard", h.summary)
}

func (h *Handler) summary(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "dashboard.summary")
	defer span.End()

	sum, err := h.svc.Summary(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromSummary(sum)).Build()
}
