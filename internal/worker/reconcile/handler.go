// Package reconcile re-derives purchase orders from change events so that
// fulfillment totals converge even when a synchronous reconcile failed.
package reconcile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	reconcilesvc "github.com/Additional-Code/suratjalan/internal/service/reconcile"
	"github.com/Additional-Code/suratjalan/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/suratjalan/worker/reconcile")

// Reconciler re-derives the purchase orders carrying the given numbers.
type Reconciler interface {
	ReconcileMany(ctx context.Context, numbers []string) ([]entity.PurchaseOrder, error)
}

// Params defines dependencies for the reconcile handler.
type Params struct {
	fx.In

	Reconciler *reconcilesvc.Orchestrator
	Config     config.Config
	Logger     *zap.Logger
}

// Module registers the reconcile handler on the events topic.
var Module = fx.Module("worker_reconcile",
	fx.Provide(
		fx.Annotate(
			NewHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewHandler reconciles the po numbers named by every domain event on the
// configured topic.
func NewHandler(p Params) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   p.Config.Messaging.Kafka.Topic,
		Handler: Handle(p.Reconciler, p.Logger),
	}
}

// Handle builds the message handler.
func Handle(reconciler Reconciler, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.reconcile.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("event.type", string(msg.EventType())),
		))
		defer span.End()

		event, err := messaging.DecodeEvent(msg)
		if err != nil {
			logger.Error("failed to decode change event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		if len(event.PONumbers) == 0 {
			return nil
		}

		pos, err := reconciler.ReconcileMany(ctx, event.PONumbers)
		if err != nil {
			logger.Error("event reconcile failed",
				zap.String("event_type", string(event.Type)),
				zap.String("id", event.ID),
				zap.Strings("po_numbers", event.PONumbers),
				zap.Error(err),
			)

			span.RecordError(err)
			span.SetStatus(codes.Error, "reconcile error")
			return err
		}

		logger.Debug("event reconciled",
			zap.String("event_type", string(event.Type)),
			zap.String("id", event.ID),
			zap.Int("purchase_orders", len(pos)),
		)
		return nil
	}
}
