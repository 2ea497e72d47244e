package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ProductType is the commodity a purchase order contracts for.
type ProductType string

const (
	ProductCPO     ProductType = "CPO"
	ProductUCO     ProductType = "UCO"
	ProductFishOil ProductType = "FishOil"
)

// Valid reports whether p is a known product type.
func (p ProductType) Valid() bool {
	switch p {
	case ProductCPO, ProductUCO, ProductFishOil:
		return true
	}
	return false
}

// POStatus is the fulfillment state derived from shipped vs contracted tonnage.
type POStatus string

const (
	POStatusActive    POStatus = "active"
	POStatusPartial   POStatus = "partial"
	POStatusCompleted POStatus = "completed"
)

// Valid reports whether s is a known purchase order status.
func (s POStatus) Valid() bool {
	switch s {
	case POStatusActive, POStatusPartial, POStatusCompleted:
		return true
	}
	return false
}

// PurchaseOrder is a contracted commodity purchase with fixed tonnage and price.
// ShippedTonnage, RemainingTonnage and Status are derived from delivery notes and
// are only written by reconciliation.
type PurchaseOrder struct {
	bun.BaseModel `bun:"table:purchase_orders,alias:po"`

	ID               string          `bun:"id,pk"`
	Number           string          `bun:"po_number,notnull"`
	Date             time.Time       `bun:"po_date,notnull,type:date"`
	ProductType      ProductType     `bun:"product_type,notnull"`
	TotalTonnage     decimal.Decimal `bun:"total_tonnage,notnull,type:decimal(14,3)"`
	PricePerTon      decimal.Decimal `bun:"price_per_ton,notnull,type:decimal(18,2)"`
	TotalValue       decimal.Decimal `bun:"total_value,notnull,type:decimal(22,2)"`
	ShippedTonnage   decimal.Decimal `bun:"shipped_tonnage,notnull,type:decimal(14,3)"`
	RemainingTonnage decimal.Decimal `bun:"remaining_tonnage,notnull,type:decimal(14,3)"`
	Status           POStatus        `bun:"status,notnull"`
	Version          int64           `bun:"version,notnull"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
