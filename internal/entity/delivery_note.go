package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// NoteStatus is the lifecycle state of a delivery note.
type NoteStatus string

const (
	NoteWaiting   NoteStatus = "waiting"
	NoteInTransit NoteStatus = "in_transit"
	NoteCompleted NoteStatus = "completed"
)

// Valid reports whether s is a known delivery note status.
func (s NoteStatus) Valid() bool {
	switch s {
	case NoteWaiting, NoteInTransit, NoteCompleted:
		return true
	}
	return false
}

// DeliveryNote ("surat jalan") records one shipment, optionally against a purchase order.
// PONumber links by business key; the empty string means the note has no PO.
type DeliveryNote struct {
	bun.BaseModel `bun:"table:delivery_notes,alias:dn"`

	ID           string              `bun:"id,pk"`
	Date         time.Time           `bun:"date,notnull,type:date"`
	VehiclePlate string              `bun:"vehicle_plate,notnull"`
	DriverName   string              `bun:"driver_name,notnull"`
	Number       string              `bun:"delivery_note_number,notnull"`
	Destination  string              `bun:"destination,notnull"`
	PONumber     string              `bun:"po_number,notnull"`
	NetWeight    decimal.NullDecimal `bun:"net_weight,type:decimal(14,3)"`
	Status       NoteStatus          `bun:"status,notnull"`
	Notes        string              `bun:"notes,notnull"`
	CreatedAt    time.Time           `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time           `bun:"updated_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// Weight returns the net weight, treating a missing weight as zero.
func (n DeliveryNote) Weight() decimal.Decimal {
	if !n.NetWeight.Valid {
		return decimal.Zero
	}
	return n.NetWeight.Decimal
}
