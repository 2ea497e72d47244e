// Package fulfillment holds the pure rules that derive purchase order fulfillment
// state from delivery notes and advance delivery note lifecycles over time.
package fulfillment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

// NoPO is the canonical purchase order number of a delivery note that is not
// linked to any purchase order.
const NoPO = ""

// NormalizePONumber maps every spelling of "no PO" (blank, whitespace, "-") onto NoPO
// and trims surrounding whitespace from real numbers.
func NormalizePONumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "-" {
		return NoPO
	}
	return number
}

// Classify derives the purchase order status from shipped and total tonnage.
// Shipping exactly the contracted tonnage counts as completed.
func Classify(shipped, total decimal.Decimal) entity.POStatus {
	switch {
	case shipped.GreaterThanOrEqual(total):
		return entity.POStatusCompleted
	case shipped.IsPositive():
		return entity.POStatusPartial
	default:
		return entity.POStatusActive
	}
}

// Totals is the derived fulfillment triple of a purchase order.
type Totals struct {
	Shipped   decimal.Decimal
	Remaining decimal.Decimal
	Status    entity.POStatus
}

// Reconcile sums the net weight of completed notes carrying poNumber and derives
// the remaining tonnage (clamped at zero) and status against total.
func Reconcile(poNumber string, total decimal.Decimal, notes []entity.DeliveryNote) Totals {
	poNumber = NormalizePONumber(poNumber)

	shipped := decimal.Zero
	if poNumber != NoPO {
		for _, note := range notes {
			if NormalizePONumber(note.PONumber) != poNumber || note.Status != entity.NoteCompleted {
				continue
			}
			shipped = shipped.Add(note.Weight())
		}
	}

	remaining := total.Sub(shipped)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Totals{
		Shipped:   shipped,
		Remaining: remaining,
		Status:    Classify(shipped, total),
	}
}

// Differs reports whether po's stored aggregates disagree with t.
func (t Totals) Differs(po *entity.PurchaseOrder) bool {
	return !po.ShippedTonnage.Equal(t.Shipped) ||
		!po.RemainingTonnage.Equal(t.Remaining) ||
		po.Status != t.Status
}

// ApplyTo copies t onto po's derived fields.
func (t Totals) ApplyTo(po *entity.PurchaseOrder) {
	po.ShippedTonnage = t.Shipped
	po.RemainingTonnage = t.Remaining
	po.Status = t.Status
}
