package fitment

import (
	"context"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// Provider supplies the reference data the engine consumes and accepts the
// results it produces. The engine never owns this data's lifecycle; it only
// reads snapshots and hands results back. Implementations live in
// pkg/refdata; resilience (retry, breaking, rate limiting) around a remote
// provider is the caller's concern, composed at the wiring layer.
type Provider interface {
	// ModelMappings returns the current mapping rule set.
	ModelMappings(ctx context.Context) ([]domain.ModelMapping, error)

	// PartTerminology looks up a part-type record. A missing id is reported
	// by an error wrapping domain.ErrNotFound.
	PartTerminology(ctx context.Context, terminologyID int64) (domain.PartTerminology, error)

	// PCDBPositions returns the positions valid for a part type.
	PCDBPositions(ctx context.Context, terminologyID int64) ([]domain.PCDBPosition, error)

	// VCDBVehicles returns vehicle configuration rows matching the filter.
	VCDBVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.VCDBVehicle, error)

	// SaveMappingResults persists validation results for a product. The
	// engine's responsibility ends at producing the results.
	SaveMappingResults(ctx context.Context, productID string, results []domain.ValidationResult) error
}
