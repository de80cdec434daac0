// Package validate checks expanded fitments against VCDB vehicle records and
// PCDB allowed positions. Validation is a pure function: no I/O, no shared
// state, no retries, and the inputs are never mutated.
package validate

import (
	"fmt"
	"strings"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// AllowedPositions builds the case-normalized position set a part type
// accepts from its PCDB records. Names that are not part of the closed
// position vocabulary are ignored.
func AllowedPositions(positions []domain.PCDBPosition) map[domain.Position]bool {
	allowed := make(map[domain.Position]bool, len(positions))
	for _, p := range positions {
		if pos, ok := domain.ParsePosition(p.Name); ok {
			allowed[pos] = true
		}
	}
	return allowed
}

// Fitment runs the validation state machine for one fitment:
//
//  1. (year, make, model) missing from vehicles → error, terminal.
//  2. position group not fully specific (n/a or varies) → warning, terminal.
//  3. every position token allowed for the part type → valid, terminal.
//  4. otherwise → error, one message per disallowed token, terminal.
func Fitment(f domain.PartFitment, vehicles []domain.VCDBVehicle, allowed map[domain.Position]bool) domain.ValidationResult {
	if !vehicleKnown(f, vehicles) {
		return domain.ValidationResult{
			Fitment: f,
			Status:  domain.StatusError,
			Messages: []string{
				fmt.Sprintf("vehicle not found: %d %s %s", f.Year, f.Make, f.Model),
			},
		}
	}

	if !f.Positions.Specific() {
		return domain.ValidationResult{
			Fitment: f,
			Status:  domain.StatusWarning,
			Messages: []string{
				fmt.Sprintf("position not specific: %s", f.Positions),
			},
		}
	}

	var disallowed []string
	for _, p := range f.Positions {
		if !allowed[p] {
			disallowed = append(disallowed, fmt.Sprintf("position not valid for part type: %s", p))
		}
	}
	if len(disallowed) > 0 {
		return domain.ValidationResult{
			Fitment:  f,
			Status:   domain.StatusError,
			Messages: disallowed,
		}
	}

	return domain.ValidationResult{
		Fitment: f,
		Status:  domain.StatusValid,
		Messages: []string{
			fmt.Sprintf("validated against %d %s %s", f.Year, f.Make, f.Model),
		},
	}
}

// vehicleKnown reports whether the fitment's (year, make, model) appears in
// the supplied vehicle list. Comparison is case-insensitive.
func vehicleKnown(f domain.PartFitment, vehicles []domain.VCDBVehicle) bool {
	for _, v := range vehicles {
		if v.Year == f.Year &&
			strings.EqualFold(v.Make, f.Make) &&
			strings.EqualFold(v.Model, f.Model) {
			return true
		}
	}
	return false
}
