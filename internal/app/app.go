package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/suratjalan/internal/cache"
	"github.com/Additional-Code/suratjalan/internal/config"
	"github.com/Additional-Code/suratjalan/internal/database"
	"github.com/Additional-Code/suratjalan/internal/logger"
	"github.com/Additional-Code/suratjalan/internal/messaging"
	"github.com/Additional-Code/suratjalan/internal/observability"
	repositorydeliverynote "github.com/Additional-Code/suratjalan/internal/repository/deliverynote"
	repositorypurchaseorder "github.com/Additional-Code/suratjalan/internal/repository/purchaseorder"
	"github.com/Additional-Code/suratjalan/internal/scheduler"
	grpcserver "github.com/Additional-Code/suratjalan/internal/server/grpc"
	httpserver "github.com/Additional-Code/suratjalan/internal/server/http"
	servicedashboard "github.com/Additional-Code/suratjalan/internal/service/dashboard"
	servicedeliverynote "github.com/Additional-Code/suratjalan/internal/service/deliverynote"
	servicepurchaseorder "github.com/Additional-Code/suratjalan/internal/service/purchaseorder"
	servicereconcile "github.com/Additional-Code/suratjalan/internal/service/reconcile"
	transporthttp "github.com/Additional-Code/suratjalan/internal/transport/http"
	"github.com/Additional-Code/suratjalan/internal/worker"
	workerreconcile "github.com/Additional-Code/suratjalan/internal/worker/reconcile"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositorypurchaseorder.Module,
	repositorydeliverynote.Module,
	servicereconcile.Module,
	servicepurchaseorder.Module,
	servicedeliverynote.Module,
	servicedashboard.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes event consumption and the scheduled status sweep.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerreconcile.Module,
	scheduler.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
