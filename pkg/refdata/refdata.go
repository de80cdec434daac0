// Package refdata implements the engine's reference-data provider over two
// sources: a Neo4j reference graph and an in-memory static snapshot loadable
// from a YAML file. Both serve VCDB vehicles, PCDB positions, part
// terminology, and the model mapping table.
package refdata

import (
	"context"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// MappingStore is the administrative CRUD surface over the mapping rule set,
// used by the API layer. Changes take effect on the next engine refresh.
type MappingStore interface {
	ListMappings(ctx context.Context) ([]domain.ModelMapping, error)
	UpsertMapping(ctx context.Context, m domain.ModelMapping) error
	DeleteMapping(ctx context.Context, pattern string) error
}
