package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Neo4jProvider serves reference data from a Neo4j graph:
// (:ModelMapping), (:PartTerminology)-[:HAS_POSITION]->(:Position), and
// (:Vehicle) nodes, plus (:Product)-[:HAS_FITMENT]->(:FitmentResult) for
// persisted results.
type Neo4jProvider struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// NewNeo4jProvider creates a provider over an established driver.
func NewNeo4jProvider(driver neo4j.DriverWithContext) *Neo4jProvider {
	return &Neo4jProvider{driver: driver}
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (p *Neo4jProvider) session(ctx context.Context) runner {
	if p.newSession != nil {
		return p.newSession(ctx)
	}
	return &sessionAdapter{sess: p.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// ModelMappings returns the mapping rules in their stored sequence order.
func (p *Neo4jProvider) ModelMappings(ctx context.Context) ([]domain.ModelMapping, error) {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (m:ModelMapping) RETURN m ORDER BY m.seq`
	res, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}

	var mappings []domain.ModelMapping
	for res.Next(ctx) {
		props, err := nodeProps(res.Record(), "m")
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, domain.ModelMapping{
			Pattern:  strProp(props, "pattern"),
			Make:     strProp(props, "make"),
			Code:     strProp(props, "code"),
			Model:    strProp(props, "model"),
			Priority: intProp(props, "priority"),
			Active:   boolProp(props, "active"),
		})
	}
	return mappings, nil
}

// PartTerminology looks up one part-type record.
func (p *Neo4jProvider) PartTerminology(ctx context.Context, terminologyID int64) (domain.PartTerminology, error) {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (t:PartTerminology {id: $id}) RETURN t`
	res, err := sess.Run(ctx, cypher, map[string]any{"id": terminologyID})
	if err != nil {
		return domain.PartTerminology{}, err
	}
	if !res.Next(ctx) {
		return domain.PartTerminology{}, fmt.Errorf("part terminology %d: %w", terminologyID, domain.ErrNotFound)
	}
	props, err := nodeProps(res.Record(), "t")
	if err != nil {
		return domain.PartTerminology{}, err
	}
	return domain.PartTerminology{
		ID:   int64(intProp(props, "id")),
		Name: strProp(props, "name"),
	}, nil
}

// PCDBPositions returns the positions valid for a part type.
func (p *Neo4jProvider) PCDBPositions(ctx context.Context, terminologyID int64) ([]domain.PCDBPosition, error) {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:PartTerminology {id: $id})-[:HAS_POSITION]->(pos:Position)
	           RETURN pos ORDER BY pos.position_id`
	res, err := sess.Run(ctx, cypher, map[string]any{"id": terminologyID})
	if err != nil {
		return nil, err
	}

	var positions []domain.PCDBPosition
	for res.Next(ctx) {
		props, err := nodeProps(res.Record(), "pos")
		if err != nil {
			return nil, err
		}
		positions = append(positions, domain.PCDBPosition{
			ID:          int64(intProp(props, "position_id")),
			Name:        strProp(props, "name"),
			Description: strProp(props, "description"),
		})
	}
	return positions, nil
}

// VCDBVehicles returns vehicle rows matching the filter. Make and model
// comparisons are case-insensitive.
func (p *Neo4jProvider) VCDBVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.VCDBVehicle, error) {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	var where []string
	params := map[string]any{}
	if filter.Year != 0 {
		where = append(where, "v.year = $year")
		params["year"] = filter.Year
	}
	if filter.Make != "" {
		where = append(where, "toLower(v.make) = toLower($make)")
		params["make"] = filter.Make
	}
	if filter.Model != "" {
		where = append(where, "toLower(v.model) = toLower($model)")
		params["model"] = filter.Model
	}
	cypher := `MATCH (v:Vehicle)`
	if len(where) > 0 {
		cypher += " WHERE " + strings.Join(where, " AND ")
	}
	cypher += " RETURN v ORDER BY v.year, v.make, v.model"

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var vehicles []domain.VCDBVehicle
	for res.Next(ctx) {
		props, err := nodeProps(res.Record(), "v")
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, domain.VCDBVehicle{
			Year:     intProp(props, "year"),
			Make:     strProp(props, "make"),
			Model:    strProp(props, "model"),
			Submodel: strProp(props, "submodel"),
		})
	}
	return vehicles, nil
}

// SaveMappingResults persists validation results under a product node.
func (p *Neo4jProvider) SaveMappingResults(ctx context.Context, productID string, results []domain.ValidationResult) error {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (pr:Product {id: $id})`
	if _, err := sess.Run(ctx, cypher, map[string]any{"id": productID}); err != nil {
		return err
	}
	for i, r := range results {
		cypher := `MATCH (pr:Product {id: $productID})
		           MERGE (f:FitmentResult {id: $id})
		           SET f.status = $status, f.year = $year, f.make = $make,
		               f.model = $model, f.position = $position, f.messages = $messages
		           MERGE (pr)-[:HAS_FITMENT]->(f)`
		params := map[string]any{
			"productID": productID,
			"id":        fmt.Sprintf("%s-%d", productID, i),
			"status":    string(r.Status),
			"year":      r.Fitment.Year,
			"make":      r.Fitment.Make,
			"model":     r.Fitment.Model,
			"position":  r.Fitment.Positions.String(),
			"messages":  r.Messages,
		}
		if _, err := sess.Run(ctx, cypher, params); err != nil {
			return err
		}
	}
	return nil
}

// ListMappings implements MappingStore.
func (p *Neo4jProvider) ListMappings(ctx context.Context) ([]domain.ModelMapping, error) {
	return p.ModelMappings(ctx)
}

// UpsertMapping implements MappingStore, keyed by pattern.
func (p *Neo4jProvider) UpsertMapping(ctx context.Context, m domain.ModelMapping) error {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (mm:ModelMapping {pattern: $pattern})
	           ON CREATE SET mm.seq = timestamp()
	           SET mm.make = $make, mm.code = $code, mm.model = $model,
	               mm.priority = $priority, mm.active = $active`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"pattern":  m.Pattern,
		"make":     m.Make,
		"code":     m.Code,
		"model":    m.Model,
		"priority": m.Priority,
		"active":   m.Active,
	})
	return err
}

// DeleteMapping implements MappingStore.
func (p *Neo4jProvider) DeleteMapping(ctx context.Context, pattern string) error {
	sess := p.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (mm:ModelMapping {pattern: $pattern}) DETACH DELETE mm`
	_, err := sess.Run(ctx, cypher, map[string]any{"pattern": pattern})
	return err
}

// nodeProps extracts the property map of the named node from a record.
func nodeProps(rec *neo4j.Record, key string) (map[string]any, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, key)
	if err != nil {
		return nil, err
	}
	return node.Props, nil
}

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolProp(props map[string]any, key string) bool {
	if b, ok := props[key].(bool); ok {
		return b
	}
	return false
}
