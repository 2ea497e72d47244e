package deliverynote

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

// platePattern accepts Indonesian registration plates such as "B 1234 XYZ" or "BK1234AB".
var platePattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}\s?\d{1,4}\s?[A-Z]{1,3}$`)

// ValidPlate reports whether plate looks like an Indonesian vehicle plate.
func ValidPlate(plate string) bool {
	return platePattern.MatchString(strings.TrimSpace(plate))
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return errorbank.Invalid("invalid delivery note", f)
}

func (s *Service) validateNote(note *entity.DeliveryNote) fieldErrors {
	fields := fieldErrors{}
	if note.Date.IsZero() {
		fields["date"] = "date is required"
	}
	switch {
	case note.VehiclePlate == "":
		fields["vehicle_plate"] = "vehicle plate is required"
	case !ValidPlate(note.VehiclePlate):
		fields["vehicle_plate"] = "vehicle plate format is invalid (e.g. B 1234 XYZ)"
	}
	if note.DriverName == "" {
		fields["driver_name"] = "driver name is required"
	}
	if note.Number == "" {
		fields["delivery_note_number"] = "delivery note number is required"
	}
	if note.Destination == "" {
		fields["destination"] = "destination is required"
	}
	if !note.Status.Valid() {
		fields["status"] = "status must be one of waiting, in_transit, completed"
	}
	return fields
}

// validateWeight checks a net weight being set on a note that will have status.
func (s *Service) validateWeight(fields fieldErrors, weight decimal.Decimal, status entity.NoteStatus) {
	switch {
	case status != entity.NoteCompleted:
		fields["net_weight"] = "net weight can only be set on completed deliveries"
	case !weight.IsPositive():
		fields["net_weight"] = "net weight must be greater than 0"
	case weight.GreaterThan(s.maxWeight):
		fields["net_weight"] = "net weight must not exceed " + s.maxWeight.String()
	}
}
