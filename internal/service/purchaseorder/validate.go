package purchaseorder

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/fulfillment"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

var (
	minTotalTonnage = decimal.RequireFromString("0.01")
	minPricePerTon  = decimal.NewFromInt(1)
)

func validate(in Input) error {
	fields := make(map[string]string)
	if fulfillment.NormalizePONumber(in.Number) == fulfillment.NoPO {
		fields["po_number"] = "PO number is required"
	}
	if in.Date.IsZero() {
		fields["po_date"] = "PO date is required"
	}
	if !in.ProductType.Valid() {
		fields["product_type"] = "product type must be one of CPO, UCO, FishOil"
	}
	if in.TotalTonnage.LessThan(minTotalTonnage) {
		fields["total_tonnage"] = "total tonnage must be at least 0.01"
	}
	if in.PricePerTon.LessThan(minPricePerTon) {
		fields["price_per_ton"] = "price per ton must be at least 1"
	}
	if len(fields) > 0 {
		return errorbank.Invalid("invalid purchase order", fields)
	}
	return nil
}
