package fulfillment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func completed(po, weight string) entity.DeliveryNote {
	n := entity.DeliveryNote{PONumber: po, Status: entity.NoteCompleted}
	if weight != "" {
		n.NetWeight = decimal.NewNullDecimal(dec(weight))
	}
	return n
}

func TestNormalizePONumber(t *testing.T) {
	assert.Equal(t, NoPO, NormalizePONumber(""))
	assert.Equal(t, NoPO, NormalizePONumber("   "))
	assert.Equal(t, NoPO, NormalizePONumber(" - "))
	assert.Equal(t, "PO-2024-001", NormalizePONumber(" PO-2024-001 "))
	assert.Equal(t, "PO-1-", NormalizePONumber("PO-1-"))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		shipped, total string
		want           entity.POStatus
	}{
		{"0", "100", entity.POStatusActive},
		{"0.001", "100", entity.POStatusPartial},
		{"99.999", "100", entity.POStatusPartial},
		{"100", "100", entity.POStatusCompleted},
		{"100.000", "100", entity.POStatusCompleted},
		{"250", "100", entity.POStatusCompleted},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(dec(tc.shipped), dec(tc.total)), "%s/%s", tc.shipped, tc.total)
	}
}

func TestClassifyProperty(t *testing.T) {
	total := dec("37.5")
	for i := 0; i <= 100; i++ {
		shipped := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(2))
		got := Classify(shipped, total)
		switch {
		case shipped.GreaterThanOrEqual(total):
			assert.Equal(t, entity.POStatusCompleted, got, shipped.String())
		case shipped.IsZero():
			assert.Equal(t, entity.POStatusActive, got, shipped.String())
		default:
			assert.Equal(t, entity.POStatusPartial, got, shipped.String())
		}
	}
}

func TestReconcileSumsOnlyCompletedNotesOfThePO(t *testing.T) {
	notes := []entity.DeliveryNote{
		completed("PO-1", "40"),
		completed("PO-1", "30"),
		completed("PO-1", ""),
		completed("PO-2", "500"),
		completed("", "12"),
		{PONumber: "PO-1", Status: entity.NoteInTransit, NetWeight: decimal.NewNullDecimal(dec("5"))},
		{PONumber: "PO-1", Status: entity.NoteWaiting},
	}

	got := Reconcile("PO-1", dec("100"), notes)

	assert.True(t, got.Shipped.Equal(dec("70")), got.Shipped.String())
	assert.True(t, got.Remaining.Equal(dec("30")), got.Remaining.String())
	assert.Equal(t, entity.POStatusPartial, got.Status)
}

func TestReconcileClampsRemainingOnOverShipment(t *testing.T) {
	notes := []entity.DeliveryNote{
		completed("PO-1", "40"),
		completed("PO-1", "30"),
		completed("PO-1", "40"),
	}

	got := Reconcile("PO-1", dec("100"), notes)

	assert.True(t, got.Shipped.Equal(dec("110")))
	assert.True(t, got.Remaining.IsZero())
	assert.Equal(t, entity.POStatusCompleted, got.Status)
}

func TestReconcileWithoutNotes(t *testing.T) {
	got := Reconcile("PO-1", dec("100"), nil)

	assert.True(t, got.Shipped.IsZero())
	assert.True(t, got.Remaining.Equal(dec("100")))
	assert.Equal(t, entity.POStatusActive, got.Status)
}

func TestReconcileMatchesNormalisedNumbers(t *testing.T) {
	notes := []entity.DeliveryNote{completed(" PO-1 ", "10"), completed("-", "99")}

	assert.True(t, Reconcile("PO-1", dec("20"), notes).Shipped.Equal(dec("10")))
	assert.True(t, Reconcile("-", dec("20"), notes).Shipped.IsZero())
}

func TestReconcileIsDeterministic(t *testing.T) {
	notes := []entity.DeliveryNote{completed("PO-1", "1.25"), completed("PO-1", "2.5")}

	first := Reconcile("PO-1", dec("10"), notes)
	second := Reconcile("PO-1", dec("10"), []entity.DeliveryNote{notes[1], notes[0]})

	assert.True(t, first.Shipped.Equal(second.Shipped))
	assert.True(t, first.Remaining.Equal(second.Remaining))
	assert.Equal(t, first.Status, second.Status)
}

func TestTotalsDiffersAndApply(t *testing.T) {
	po := &entity.PurchaseOrder{
		TotalTonnage:     dec("100"),
		ShippedTonnage:   dec("0"),
		RemainingTonnage: dec("100"),
		Status:           entity.POStatusActive,
	}
	totals := Reconcile("PO-1", po.TotalTonnage, []entity.DeliveryNote{completed("PO-1", "70")})

	assert.True(t, totals.Differs(po))
	totals.ApplyTo(po)
	assert.False(t, totals.Differs(po))
	assert.True(t, po.ShippedTonnage.Add(po.RemainingTonnage).Equal(po.TotalTonnage))

	// 100 and 100.000 are the same quantity
	po.RemainingTonnage = dec("30.000")
	assert.False(t, totals.Differs(po))
}
