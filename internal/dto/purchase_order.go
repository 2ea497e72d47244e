package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

// PurchaseOrderResponse represents a purchase order as exposed via transport layers.
// Decimal amounts are encoded as strings.
type PurchaseOrderResponse struct {
	ID               string          `json:"id"`
	PONumber         string          `json:"po_number"`
	PODate           Date            `json:"po_date"`
	ProductType      string          `json:"product_type"`
	TotalTonnage     decimal.Decimal `json:"total_tonnage"`
	PricePerTon      decimal.Decimal `json:"price_per_ton"`
	TotalValue       decimal.Decimal `json:"total_value"`
	ShippedTonnage   decimal.Decimal `json:"shipped_tonnage"`
	RemainingTonnage decimal.Decimal `json:"remaining_tonnage"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PurchaseOrderRequest is the create and update payload. Absent fields are nil.
type PurchaseOrderRequest struct {
	PONumber     *string          `json:"po_number"`
	PODate       *Date            `json:"po_date"`
	ProductType  *string          `json:"product_type"`
	TotalTonnage *decimal.Decimal `json:"total_tonnage"`
	PricePerTon  *decimal.Decimal `json:"price_per_ton"`
}

// FromPurchaseOrder maps an entity onto its response.
func FromPurchaseOrder(po *entity.PurchaseOrder) PurchaseOrderResponse {
	return PurchaseOrderResponse{
		ID:               po.ID,
		PONumber:         po.Number,
		PODate:           NewDate(po.Date),
		ProductType:      string(po.ProductType),
		TotalTonnage:     po.TotalTonnage,
		PricePerTon:      po.PricePerTon,
		TotalValue:       po.TotalValue,
		ShippedTonnage:   po.ShippedTonnage,
		RemainingTonnage: po.RemainingTonnage,
		Status:           string(po.Status),
		CreatedAt:        po.CreatedAt,
		UpdatedAt:        po.UpdatedAt,
	}
}

// FromPurchaseOrders maps a list, never returning nil.
func FromPurchaseOrders(pos []entity.PurchaseOrder) []PurchaseOrderResponse {
	out := make([]PurchaseOrderResponse, 0, len(pos))
	for i := range pos {
		out = append(out, FromPurchaseOrder(&pos[i]))
	}
	return out
}
