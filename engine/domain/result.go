package domain

import "encoding/json"

// Status is the terminal outcome of validating one fitment. WARNING and
// ERROR are normal business outcomes, not Go errors.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ValidationResult is the validator's verdict on one expanded fitment.
type ValidationResult struct {
	Fitment  PartFitment
	Status   Status
	Messages []string
}

// resultWire is the serialized form consumed by the import/API layer.
type resultWire struct {
	Status   Status        `json:"status"`
	Vehicle  wireVehicle   `json:"vehicle"`
	Position PositionGroup `json:"position"`
	Messages []string      `json:"messages"`
}

type wireVehicle struct {
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
}

// MarshalJSON renders the result in the wire shape
// {status, vehicle:{year,make,model}, position:[...], messages:[...]}.
func (r ValidationResult) MarshalJSON() ([]byte, error) {
	msgs := r.Messages
	if msgs == nil {
		msgs = []string{}
	}
	pos := r.Fitment.Positions
	if pos == nil {
		pos = PositionGroup{}
	}
	return json.Marshal(resultWire{
		Status: r.Status,
		Vehicle: wireVehicle{
			Year:  r.Fitment.Year,
			Make:  r.Fitment.Make,
			Model: r.Fitment.Model,
		},
		Position: pos,
		Messages: msgs,
	})
}

// UnmarshalJSON accepts the wire shape back into a ValidationResult. Only
// the fields present on the wire survive a round trip.
func (r *ValidationResult) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Status = w.Status
	r.Messages = w.Messages
	r.Fitment = PartFitment{
		Year:      w.Vehicle.Year,
		Make:      w.Vehicle.Make,
		Model:     w.Vehicle.Model,
		Positions: w.Position,
	}
	return nil
}
