package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

// DeliveryNoteResponse represents a delivery note as exposed via transport layers.
// A note without a purchase order carries an empty po_number; a note not yet
// weighed carries a null net_weight.
type DeliveryNoteResponse struct {
	ID                 string              `json:"id"`
	Date               Date                `json:"date"`
	VehiclePlate       string              `json:"vehicle_plate"`
	DriverName         string              `json:"driver_name"`
	DeliveryNoteNumber string              `json:"delivery_note_number"`
	Destination        string              `json:"destination"`
	PONumber           string              `json:"po_number"`
	NetWeight          decimal.NullDecimal `json:"net_weight"`
	Status             string              `json:"status"`
	Notes              string              `json:"notes"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// DeliveryNoteRequest is the create and update payload. Absent fields are nil;
// an explicit null net_weight on update clears the weight.
type DeliveryNoteRequest struct {
	Date               *Date       `json:"date"`
	VehiclePlate       *string     `json:"vehicle_plate"`
	DriverName         *string     `json:"driver_name"`
	DeliveryNoteNumber *string     `json:"delivery_note_number"`
	Destination        *string     `json:"destination"`
	PONumber           *string     `json:"po_number"`
	NetWeight          NullableNum `json:"net_weight"`
	Status             *string     `json:"status"`
	Notes              *string     `json:"notes"`
}

// WeightRequest is the payload of the set-weight endpoint.
type WeightRequest struct {
	NetWeight *decimal.Decimal `json:"net_weight"`
}

// NullableNum distinguishes an absent decimal from an explicit null.
type NullableNum struct {
	Set   bool
	Value decimal.NullDecimal
}

func (n *NullableNum) UnmarshalJSON(data []byte) error {
	n.Set = true
	return n.Value.UnmarshalJSON(data)
}

// FromDeliveryNote maps an entity onto its response.
func FromDeliveryNote(note *entity.DeliveryNote) DeliveryNoteResponse {
	return DeliveryNoteResponse{
		ID:                 note.ID,
		Date:               NewDate(note.Date),
		VehiclePlate:       note.VehiclePlate,
		DriverName:         note.DriverName,
		DeliveryNoteNumber: note.Number,
		Destination:        note.Destination,
		PONumber:           note.PONumber,
		NetWeight:          note.NetWeight,
		Status:             string(note.Status),
		Notes:              note.Notes,
		CreatedAt:          note.CreatedAt,
		UpdatedAt:          note.UpdatedAt,
	}
}

// FromDeliveryNotes maps a list, never returning nil.
func FromDeliveryNotes(notes []entity.DeliveryNote) []DeliveryNoteResponse {
	out := make([]DeliveryNoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, FromDeliveryNote(&notes[i]))
	}
	return out
}
