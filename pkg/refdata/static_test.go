package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

const snapshotYAML = `
mappings:
  - pattern: "F-150"
    target: "Ford|F150|F-150"
    priority: 1
  - pattern: "Civic"
    target: "Honda|CIVIC|Civic"
    active: false
terminologies:
  - id: 100
    name: "Control Arm"
    positions: ["Front", "Left", "Right", "Upper"]
vehicles:
  - year: 2005
    make: "Ford"
    model: "F-150"
  - year: 2006
    make: "Ford"
    model: "F-150"
    submodel: "XLT"
`

func TestLoadYAML(t *testing.T) {
	s, err := LoadYAML([]byte(snapshotYAML))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mappings, err := s.ModelMappings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(mappings))
	}
	if m := mappings[0]; m.Pattern != "F-150" || m.Make != "Ford" || m.Code != "F150" || m.Model != "F-150" || m.Priority != 1 || !m.Active {
		t.Errorf("mappings[0] = %+v", m)
	}
	if mappings[1].Active {
		t.Error("explicit active: false must stick")
	}

	term, err := s.PartTerminology(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if term.Name != "Control Arm" {
		t.Errorf("terminology = %+v", term)
	}

	positions, err := s.PCDBPositions(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 4 || positions[0].Name != "Front" || positions[0].ID != 1 {
		t.Errorf("positions = %+v", positions)
	}
}

func TestLoadYAMLMalformedTarget(t *testing.T) {
	cases := []string{
		"mappings:\n  - pattern: x\n    target: \"Ford|F150\"\n",
		"mappings:\n  - pattern: x\n    target: \"Ford||F-150\"\n",
		"mappings:\n  - pattern: x\n    target: \"\"\n",
	}
	for _, src := range cases {
		_, err := LoadYAML([]byte(src))
		if !errors.Is(err, domain.ErrMalformedMapping) {
			t.Errorf("LoadYAML(%q) err = %v, want ErrMalformedMapping", src, err)
		}
	}
}

func TestLoadYAMLTrimsTargetComponents(t *testing.T) {
	src := "mappings:\n  - pattern: \"F-150\"\n    target: \" Ford | F150 | F-150 \"\n"
	s, err := LoadYAML([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	mappings, err := s.ModelMappings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m := mappings[0]
	if m.Make != "Ford" || m.Code != "F150" || m.Model != "F-150" {
		t.Errorf("target components not trimmed: %+v", m)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	if _, err := LoadYAML([]byte("mappings: {broken")); err == nil {
		t.Fatal("unparseable YAML should fail")
	}
}

func TestVCDBVehicleFilter(t *testing.T) {
	s, err := LoadYAML([]byte(snapshotYAML))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, err := s.VCDBVehicles(ctx, domain.VehicleFilter{Year: 2005, Make: "ford", Model: "f-150"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Year != 2005 {
		t.Errorf("filtered = %+v", got)
	}

	all, err := s.VCDBVehicles(ctx, domain.VehicleFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("empty filter should return everything, got %d", len(all))
	}

	none, err := s.VCDBVehicles(ctx, domain.VehicleFilter{Year: 1990})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("no-match filter should return nothing, got %+v", none)
	}
}

func TestPartTerminologyNotFound(t *testing.T) {
	s := NewStatic()
	_, err := s.PartTerminology(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveMappingResults(t *testing.T) {
	s := NewStatic()
	results := []domain.ValidationResult{{Status: domain.StatusValid}}
	if err := s.SaveMappingResults(context.Background(), "SKU-1", results); err != nil {
		t.Fatal(err)
	}
	got := s.SavedResults("SKU-1")
	if len(got) != 1 || got[0].Status != domain.StatusValid {
		t.Errorf("SavedResults = %+v", got)
	}
}

func TestMappingStore(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()

	m := domain.ModelMapping{Pattern: "F-150", Make: "Ford", Code: "F150", Model: "F-150", Active: true}
	if err := s.UpsertMapping(ctx, m); err != nil {
		t.Fatal(err)
	}

	m.Priority = 7
	if err := s.UpsertMapping(ctx, m); err != nil {
		t.Fatal(err)
	}
	mappings, err := s.ListMappings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mappings) != 1 || mappings[0].Priority != 7 {
		t.Errorf("upsert should replace by pattern, got %+v", mappings)
	}

	if err := s.DeleteMapping(ctx, "f-150"); err != nil {
		t.Fatalf("delete is case-insensitive on pattern: %v", err)
	}
	if err := s.DeleteMapping(ctx, "F-150"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}
