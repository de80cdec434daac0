// Package domain defines the core fitment data model, the position
// enumeration, and the error taxonomy shared by the parsing and validation
// pipeline. Everything here is a plain value type; nothing does I/O.
package domain

// VehicleRef is one normalized (make, code, model) triple produced by
// resolving informal vehicle text against the mapping table.
type VehicleRef struct {
	Make  string `json:"make"`
	Code  string `json:"code"`
	Model string `json:"model"`
}

// ModelMapping is a business-maintained rule translating informal or legacy
// vehicle text into a VehicleRef. Mappings are loaded as a whole table and
// replaced wholesale on refresh, never mutated in place.
type ModelMapping struct {
	Pattern  string `json:"pattern"`
	Make     string `json:"make"`
	Code     string `json:"code"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
	Active   bool   `json:"active"`
}

// Ref returns the mapping's target triple.
func (m ModelMapping) Ref() VehicleRef {
	return VehicleRef{Make: m.Make, Code: m.Code, Model: m.Model}
}

// PartApplication is the structured form of one raw application string.
// Produced once by the parser, immutable, consumed immediately by expansion.
type PartApplication struct {
	RawText      string          `json:"raw_text"`
	YearStart    int             `json:"year_start"`
	YearEnd      int             `json:"year_end"`
	Vehicles     []VehicleRef    `json:"vehicles"`
	PositionText string          `json:"position_text"`
	Positions    []PositionGroup `json:"positions"`
}

// PartFitment is one fully expanded fitment claim: a specific year, vehicle,
// and position combination. Ephemeral: created during expansion, consumed by
// the validator, never persisted by this engine.
type PartFitment struct {
	Year      int           `json:"year"`
	Make      string        `json:"make"`
	Code      string        `json:"code,omitempty"`
	Model     string        `json:"model"`
	Positions PositionGroup `json:"positions"`
	RawText   string        `json:"raw_text"`
}

// VCDBVehicle is a read-only vehicle configuration record supplied by the
// reference-data provider.
type VCDBVehicle struct {
	Year     int    `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Submodel string `json:"submodel,omitempty"`
}

// PCDBPosition is a read-only part position record supplied by the
// reference-data provider.
type PCDBPosition struct {
	ID          int64  `json:"position_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PartTerminology is a standardized part-type identifier.
type PartTerminology struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// VehicleFilter narrows a VCDB vehicle query. Zero fields match everything.
type VehicleFilter struct {
	Year  int
	Make  string
	Model string
}
