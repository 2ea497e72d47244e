// Package export renders purchase orders and delivery notes as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

const (
	// ContentType is the MIME type of the produced workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	PurchaseOrderSheet = "Purchase Orders"
	DeliveryNoteSheet  = "Delivery Notes"

	dateLayout = "2006-01-02"
)

var (
	purchaseOrderHeader = []any{"No PO", "Date", "Product", "Total (ton)", "Shipped (ton)", "Remaining (ton)", "Price/ton", "Total value", "Status"}
	deliveryNoteHeader  = []any{"No Surat Jalan", "Date", "Vehicle plate", "Driver", "Destination", "No PO", "Net weight (ton)", "Status", "Notes"}
)

// PurchaseOrders writes pos to w as a single-sheet workbook.
func PurchaseOrders(w io.Writer, pos []entity.PurchaseOrder) error {
	rows := make([][]any, 0, len(pos))
	for _, po := range pos {
		rows = append(rows, []any{
			po.Number,
			po.Date.Format(dateLayout),
			string(po.ProductType),
			po.TotalTonnage.InexactFloat64(),
			po.ShippedTonnage.InexactFloat64(),
			po.RemainingTonnage.InexactFloat64(),
			po.PricePerTon.InexactFloat64(),
			po.TotalValue.InexactFloat64(),
			string(po.Status),
		})
	}
	return write(w, PurchaseOrderSheet, purchaseOrderHeader, rows)
}

// DeliveryNotes writes notes to w as a single-sheet workbook. Missing weights
// and notes without a purchase order leave their cells empty.
func DeliveryNotes(w io.Writer, notes []entity.DeliveryNote) error {
	rows := make([][]any, 0, len(notes))
	for _, note := range notes {
		var weight any
		if note.NetWeight.Valid {
			weight = note.NetWeight.Decimal.InexactFloat64()
		}
		rows = append(rows, []any{
			note.Number,
			note.Date.Format(dateLayout),
			note.VehiclePlate,
			note.DriverName,
			note.Destination,
			note.PONumber,
			weight,
			string(note.Status),
			note.Notes,
		})
	}
	return write(w, DeliveryNoteSheet, deliveryNoteHeader, rows)
}

func write(w io.Writer, sheet string, header []any, rows [][]any) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err = f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err = f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err = f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err = f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err = f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
