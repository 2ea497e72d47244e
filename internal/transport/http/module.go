package http

import (
	"go.uber.org/fx"

	dashboardtransport "github.com/Additional-Code/suratjalan/internal/transport/http/dashboard"
	deliverynotetransport "github.com/Additional-Code/suratjalan/internal/transport/http/deliverynote"
	purchaseordertransport "github.com/Additional-Code/suratjalan/internal/transport/http/purchaseorder"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	purchaseordertransport.Module,
	deliverynotetransport.Module,
	dashboardtransport.Module,
)
