package dto

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/service/dashboard"
)

// DashboardResponse is the overview shown on the landing page.
type DashboardResponse struct {
	TotalPOs              int                     `json:"total_pos"`
	ActivePOs             int                     `json:"active_pos"`
	PartialPOs            int                     `json:"partial_pos"`
	CompletedPOs          int                     `json:"completed_pos"`
	TotalShipments        int                     `json:"total_shipments"`
	TotalRemainingTonnage decimal.Decimal         `json:"total_remaining_tonnage"`
	TotalValue            decimal.Decimal         `json:"total_value"`
	OpenPurchaseOrders    []PurchaseOrderResponse `json:"open_purchase_orders"`
	RecentShipments       []DeliveryNoteResponse  `json:"recent_shipments"`
}

// FromSummary maps a dashboard summary onto its response.
func FromSummary(s dashboard.Summary) DashboardResponse {
	return DashboardResponse{
		TotalPOs:              s.TotalPurchaseOrders,
		ActivePOs:             s.ActivePurchaseOrders,
		PartialPOs:            s.PartialPurchaseOrders,
		CompletedPOs:          s.CompletedPurchaseOrders,
		TotalShipments:        s.TotalShipments,
		TotalRemainingTonnage: s.TotalRemainingTonnage,
		TotalValue:            s.TotalValue,
		OpenPurchaseOrders:    FromPurchaseOrders(s.OpenPurchaseOrders),
		RecentShipments:       FromDeliveryNotes(s.RecentShipments),
	}
}
