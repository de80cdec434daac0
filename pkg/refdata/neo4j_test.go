package refdata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// fakeResult replays canned records.
type fakeResult struct {
	records []*neo4j.Record
	idx     int
}

func (f *fakeResult) Next(context.Context) bool {
	if f.idx >= len(f.records) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeResult) Record() *neo4j.Record {
	return f.records[f.idx-1]
}

// fakeRunner captures queries and serves canned results in call order.
type fakeRunner struct {
	queries []string
	params  []map[string]any
	results []result
	err     error
	closed  bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	f.queries = append(f.queries, cypher)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &fakeResult{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func nodeRecord(key string, props map[string]any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{key},
		Values: []any{dbtype.Node{Props: props}},
	}
}

func fakeProvider(r *fakeRunner) *Neo4jProvider {
	return &Neo4jProvider{newSession: func(context.Context) runner { return r }}
}

func TestNeo4jModelMappings(t *testing.T) {
	r := &fakeRunner{results: []result{&fakeResult{records: []*neo4j.Record{
		nodeRecord("m", map[string]any{
			"pattern": "F-150", "make": "Ford", "code": "F150", "model": "F-150",
			"priority": int64(2), "active": true,
		}),
		nodeRecord("m", map[string]any{
			"pattern": "Civic", "make": "Honda", "code": "CIVIC", "model": "Civic",
			"active": false,
		}),
	}}}}
	p := fakeProvider(r)

	mappings, err := p.ModelMappings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(mappings))
	}
	want := domain.ModelMapping{Pattern: "F-150", Make: "Ford", Code: "F150", Model: "F-150", Priority: 2, Active: true}
	if mappings[0] != want {
		t.Errorf("mappings[0] = %+v, want %+v", mappings[0], want)
	}
	if mappings[1].Active {
		t.Error("active: false must survive")
	}
	if !strings.Contains(r.queries[0], "ORDER BY m.seq") {
		t.Errorf("mappings query must be ordered by seq: %s", r.queries[0])
	}
	if !r.closed {
		t.Error("session must be closed")
	}
}

func TestNeo4jPartTerminology(t *testing.T) {
	r := &fakeRunner{results: []result{&fakeResult{records: []*neo4j.Record{
		nodeRecord("t", map[string]any{"id": int64(100), "name": "Control Arm"}),
	}}}}
	p := fakeProvider(r)

	term, err := p.PartTerminology(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if term.ID != 100 || term.Name != "Control Arm" {
		t.Errorf("terminology = %+v", term)
	}
	if r.params[0]["id"] != int64(100) {
		t.Errorf("params = %v", r.params[0])
	}
}

func TestNeo4jPartTerminologyNotFound(t *testing.T) {
	p := fakeProvider(&fakeRunner{})
	_, err := p.PartTerminology(context.Background(), 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNeo4jPCDBPositions(t *testing.T) {
	r := &fakeRunner{results: []result{&fakeResult{records: []*neo4j.Record{
		nodeRecord("pos", map[string]any{"position_id": int64(1), "name": "Front"}),
		nodeRecord("pos", map[string]any{"position_id": int64(2), "name": "Left", "description": "Driver side"}),
	}}}}
	p := fakeProvider(r)

	positions, err := p.PCDBPositions(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}
	if positions[1].ID != 2 || positions[1].Name != "Left" || positions[1].Description != "Driver side" {
		t.Errorf("positions[1] = %+v", positions[1])
	}
}

func TestNeo4jVCDBVehiclesFilter(t *testing.T) {
	r := &fakeRunner{results: []result{&fakeResult{records: []*neo4j.Record{
		nodeRecord("v", map[string]any{"year": int64(2005), "make": "Ford", "model": "F-150"}),
	}}}}
	p := fakeProvider(r)

	vehicles, err := p.VCDBVehicles(context.Background(), domain.VehicleFilter{Year: 2005, Make: "Ford", Model: "F-150"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vehicles) != 1 || vehicles[0].Year != 2005 {
		t.Errorf("vehicles = %+v", vehicles)
	}

	q := r.queries[0]
	for _, clause := range []string{"v.year = $year", "toLower(v.make) = toLower($make)", "toLower(v.model) = toLower($model)"} {
		if !strings.Contains(q, clause) {
			t.Errorf("query missing %q: %s", clause, q)
		}
	}
}

func TestNeo4jVCDBVehiclesEmptyFilter(t *testing.T) {
	r := &fakeRunner{}
	p := fakeProvider(r)

	if _, err := p.VCDBVehicles(context.Background(), domain.VehicleFilter{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.queries[0], "WHERE") {
		t.Errorf("empty filter must not emit a WHERE clause: %s", r.queries[0])
	}
}

func TestNeo4jSaveMappingResults(t *testing.T) {
	r := &fakeRunner{}
	p := fakeProvider(r)

	results := []domain.ValidationResult{
		{
			Fitment: domain.PartFitment{
				Year: 2005, Make: "Ford", Model: "F-150",
				Positions: domain.PositionGroup{domain.PositionFront},
			},
			Status:   domain.StatusValid,
			Messages: []string{"validated against 2005 Ford F-150"},
		},
	}
	if err := p.SaveMappingResults(context.Background(), "SKU-1", results); err != nil {
		t.Fatal(err)
	}
	// One MERGE for the product, one per result.
	if len(r.queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(r.queries))
	}
	if r.params[1]["id"] != "SKU-1-0" {
		t.Errorf("result id = %v", r.params[1]["id"])
	}
	if r.params[1]["position"] != "front" {
		t.Errorf("position = %v", r.params[1]["position"])
	}
}

func TestNeo4jUpsertMapping(t *testing.T) {
	r := &fakeRunner{}
	p := fakeProvider(r)

	m := domain.ModelMapping{Pattern: "F-150", Make: "Ford", Code: "F150", Model: "F-150", Priority: 1, Active: true}
	if err := p.UpsertMapping(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.queries[0], "MERGE (mm:ModelMapping {pattern: $pattern})") {
		t.Errorf("query = %s", r.queries[0])
	}
	if r.params[0]["priority"] != 1 || r.params[0]["active"] != true {
		t.Errorf("params = %v", r.params[0])
	}
}

func TestNeo4jRunError(t *testing.T) {
	boom := errors.New("connection refused")
	p := fakeProvider(&fakeRunner{err: boom})

	if _, err := p.ModelMappings(context.Background()); !errors.Is(err, boom) {
		t.Errorf("ModelMappings err = %v", err)
	}
	if err := p.DeleteMapping(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("DeleteMapping err = %v", err)
	}
}
