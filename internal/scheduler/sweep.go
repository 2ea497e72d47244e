package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/config"
	notesvc "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
)

// SweepJobName names the delivery status auto-advance job.
const SweepJobName = "delivery-status-sweep"

const defaultSweepSchedule = "@every 1m"

var schedulerMeter = otel.Meter("github.com/Additional-Code/suratjalan/scheduler")

// Advancer moves due delivery notes forward.
type Advancer interface {
	AdvanceStatuses(ctx context.Context) (int, error)
}

// NewSweepJob registers the auto-advance sweep over the delivery note service.
func NewSweepJob(notes *notesvc.Service, cfg config.Config, logger *zap.Logger) Job {
	return SweepJob(notes, cfg, logger)
}

// SweepJob builds the sweep job over any Advancer.
func SweepJob(advancer Advancer, cfg config.Config, logger *zap.Logger) Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule := cfg.Sweep.Schedule
	if schedule == "" {
		schedule = defaultSweepSchedule
	}

	advanced, err := schedulerMeter.Int64Counter("suratjalan.sweep.advanced",
		metric.WithDescription("Delivery notes moved to in transit by the sweep"))
	if err != nil {
		logger.Warn("sweep counter unavailable", zap.Error(err))
	}

	return Job{
		Name:     SweepJobName,
		Schedule: schedule,
		Disabled: !cfg.Sweep.Enabled,
		Timeout:  30 * time.Second,
		Run: func(ctx context.Context) error {
			moved, err := advancer.AdvanceStatuses(ctx)
			if moved > 0 {
				if advanced != nil {
					advanced.Add(ctx, int64(moved))
				}
				logger.Info("delivery statuses advanced", zap.Int("notes", moved))
			}
			return err
		},
	}
}
