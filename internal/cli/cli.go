package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/suratjalan/internal/app"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/export"
	"github.com/Additional-Code/suratjalan/internal/migration"
	noterepo "github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	porepo "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/scheduler"
	"github.com/Additional-Code/suratjalan/internal/seeder"
	notesvc "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	posvc "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/service/reconcile"
)

// NewRootCommand builds the root suratjalan CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "suratjalan",
		Short: "Purchase order and delivery note tracking",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newExportCmd())

	return root
}

// Execute runs the suratjalan CLI.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP and gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Module))
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample purchase orders and delivery notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				seed *seeder.Seeder
				cfg  config.Config
			)
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed, &cfg))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.Run(ctx, today(cfg)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seed data applied")
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the event worker and the status sweep scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Worker))
		},
	})
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [po-number...]",
		Short: "Re-derive shipped/remaining/status of purchase orders (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var orch *reconcile.Orchestrator
			opts := fx.Options(app.Core, fx.Populate(&orch))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				var (
					pos []entity.PurchaseOrder
					err error
				)
				if len(args) == 0 {
					pos, err = orch.ReconcileAll(ctx)
				} else {
					pos, err = orch.ReconcileMany(ctx, args)
				}
				if err != nil {
					return err
				}
				printPurchaseOrders(cmd.OutOrStdout(), pos)
				return nil
			})
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one delivery status auto-advance pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			opts := fx.Options(app.Core, scheduler.Providers, fx.Populate(&sched))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := sched.Run(ctx, scheduler.SweepJobName); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sweep finished")
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as an xlsx workbook",
	}

	poCmd := &cobra.Command{
		Use:   "purchase-orders",
		Short: "Export purchase orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			var svc *posvc.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				pos, err := svc.List(ctx, porepo.Filter{})
				if err != nil {
					return err
				}
				return writeFile(out, func(w io.Writer) error { return export.PurchaseOrders(w, pos) })
			})
		},
	}
	poCmd.Flags().String("out", "purchase-orders.xlsx", "Destination file")

	noteCmd := &cobra.Command{
		Use:   "delivery-notes",
		Short: "Export delivery notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			var svc *notesvc.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				notes, err := svc.List(ctx, noterepo.Filter{})
				if err != nil {
					return err
				}
				return writeFile(out, func(w io.Writer) error { return export.DeliveryNotes(w, notes) })
			})
		},
	}
	noteCmd.Flags().String("out", "delivery-notes.xlsx", "Destination file")

	cmd.AddCommand(poCmd, noteCmd)
	return cmd
}

func printPurchaseOrders(w io.Writer, pos []entity.PurchaseOrder) {
	if len(pos) == 0 {
		fmt.Fprintln(w, "no purchase orders reconciled")
		return
	}
	for _, po := range pos {
		fmt.Fprintf(w, "%s\tshipped=%s\tremaining=%s\tstatus=%s\n",
			po.Number, po.ShippedTonnage, po.RemainingTonnage, po.Status)
	}
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return render(f)
}

func today(cfg config.Config) time.Time {
	loc := cfg.Business.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

func runUntilDone(ctx context.Context, application *fx.App) error {
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
