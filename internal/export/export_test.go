package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestPurchaseOrders(t *testing.T) {
	pos := []entity.PurchaseOrder{{
		Number:           "PO-001",
		Date:             time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ProductType:      entity.ProductCPO,
		TotalTonnage:     decimal.NewFromInt(100),
		ShippedTonnage:   decimal.RequireFromString("12.5"),
		RemainingTonnage: decimal.RequireFromString("87.5"),
		PricePerTon:      decimal.NewFromInt(15000),
		TotalValue:       decimal.NewFromInt(1500000),
		Status:           entity.POStatusPartial,
	}}

	var buf bytes.Buffer
	require.NoError(t, PurchaseOrders(&buf, pos))

	rows := readRows(t, &buf, PurchaseOrderSheet)
	require.Len(t, rows, 2)
	assert.Equal(t, "No PO", rows[0][0])
	assert.Len(t, rows[0], len(purchaseOrderHeader))
	assert.Equal(t, []string{"PO-001", "2025-03-01", "CPO", "100", "12.5", "87.5", "15000", "1500000", "partial"}, rows[1])
}

func TestDeliveryNotes(t *testing.T) {
	notes := []entity.DeliveryNote{
		{
			Number:       "SJ-1",
			Date:         time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
			VehiclePlate: "B 1234 CD",
			DriverName:   "Budi",
			Destination:  "Dumai",
			PONumber:     "PO-001",
			NetWeight:    decimal.NewNullDecimal(decimal.NewFromInt(30)),
			Status:       entity.NoteCompleted,
		},
		{
			Number:       "SJ-2",
			Date:         time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			VehiclePlate: "BM 99 X",
			DriverName:   "Andi",
			Destination:  "Pekanbaru",
			Status:       entity.NoteWaiting,
			Notes:        "pagi",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, DeliveryNotes(&buf, notes))

	rows := readRows(t, &buf, DeliveryNoteSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "No Surat Jalan", rows[0][0])
	require.GreaterOrEqual(t, len(rows[1]), 8)
	assert.Equal(t, []string{"SJ-1", "2025-03-02", "B 1234 CD", "Budi", "Dumai", "PO-001", "30", "completed"}, rows[1][:8])
	require.Len(t, rows[2], 9)
	assert.Empty(t, rows[2][5])
	assert.Empty(t, rows[2][6])
	assert.Equal(t, "pagi", rows[2][8])
}

func TestEmptyExportKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PurchaseOrders(&buf, nil))

	rows := readRows(t, &buf, PurchaseOrderSheet)
	require.Len(t, rows, 1)
	assert.Equal(t, "Status", rows[0][len(rows[0])-1])
}
