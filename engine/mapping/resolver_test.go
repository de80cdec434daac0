package mapping

import (
	"errors"
	"strings"
	"testing"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

func testMappings() []domain.ModelMapping {
	return []domain.ModelMapping{
		{Pattern: "F-150", Make: "Ford", Code: "F150", Model: "F-150", Priority: 0, Active: true},
		{Pattern: "F150", Make: "Ford", Code: "F150", Model: "F-150", Priority: 0, Active: true},
		{Pattern: "Civic", Make: "Honda", Code: "CIVIC", Model: "Civic", Priority: 0, Active: true},
		{Pattern: "Silverado 1500", Make: "Chevrolet", Code: "SILV15", Model: "Silverado 1500", Priority: 0, Active: true},
	}
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		target string
		want   domain.VehicleRef
		ok     bool
	}{
		{"Ford|F150|F-150", domain.VehicleRef{Make: "Ford", Code: "F150", Model: "F-150"}, true},
		{" Ford | F150 | F-150 ", domain.VehicleRef{Make: "Ford", Code: "F150", Model: "F-150"}, true},
		{"Ford|F150", domain.VehicleRef{}, false},
		{"Ford|F150|F-150|extra", domain.VehicleRef{}, false},
		{"Ford||F-150", domain.VehicleRef{}, false},
		{"", domain.VehicleRef{}, false},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.target)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseTarget(%q): %v", tc.target, err)
				continue
			}
			if got != tc.want {
				t.Errorf("ParseTarget(%q) = %+v, want %+v", tc.target, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, domain.ErrMalformedMapping) {
			t.Errorf("ParseTarget(%q) err = %v, want ErrMalformedMapping", tc.target, err)
		}
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	bad := append(testMappings(), domain.ModelMapping{Pattern: "Tacoma", Make: "Toyota", Active: true})
	err := r.Load(bad)
	if !errors.Is(err, domain.ErrMalformedMapping) {
		t.Fatalf("err = %v, want ErrMalformedMapping", err)
	}

	// A failed load leaves the previous table intact.
	if got := r.Len(); got != 4 {
		t.Errorf("Len() = %d after failed load, want 4", got)
	}
	if _, err := r.Resolve("Ford F-150"); err != nil {
		t.Errorf("previous table should still resolve: %v", err)
	}
}

func TestLoadRejectsEmptyPattern(t *testing.T) {
	r := NewResolver()
	err := r.Load([]domain.ModelMapping{{Make: "Ford", Code: "F150", Model: "F-150", Active: true}})
	if !errors.Is(err, domain.ErrMalformedMapping) {
		t.Fatalf("err = %v, want ErrMalformedMapping", err)
	}
	if r.Loaded() {
		t.Error("failed first load must leave the resolver unloaded")
	}
}

func TestResolveUnloaded(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve("Ford F-150")
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	var me *domain.MappingError
	if !errors.As(err, &me) {
		t.Error("unloaded resolve should be a MappingError, not a ParseError")
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"2005 FORD F-150", "2005 ford f-150", "2005 Ford F-150"} {
		refs, err := r.Resolve(text)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", text, err)
		}
		if refs[0].Code != "F150" {
			t.Errorf("Resolve(%q)[0].Code = %q, want F150", text, refs[0].Code)
		}
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatal(err)
	}
	_, err := r.Resolve("2005 Plymouth Barracuda")
	if !errors.Is(err, domain.ErrNoVehicleMatch) {
		t.Fatalf("err = %v, want ErrNoVehicleMatch", err)
	}
	if !domain.IsParseError(err) {
		t.Error("no-match should be a ParseError so batch processing can skip it")
	}
}

func TestResolveRanking(t *testing.T) {
	mappings := []domain.ModelMapping{
		{Pattern: "Silverado", Make: "Chevrolet", Code: "SILV", Model: "Silverado", Priority: 0, Active: true},
		{Pattern: "Silverado 1500", Make: "Chevrolet", Code: "SILV15", Model: "Silverado 1500", Priority: 0, Active: true},
		{Pattern: "1500", Make: "Ram", Code: "RAM15", Model: "1500", Priority: 5, Active: true},
	}
	r := NewResolver()
	if err := r.Load(mappings); err != nil {
		t.Fatal(err)
	}

	refs, err := r.Resolve("2007 Silverado 1500")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}
	// Priority 5 outranks both priority-0 matches; among those, the longer
	// pattern wins.
	if refs[0].Code != "RAM15" {
		t.Errorf("refs[0].Code = %q, want RAM15", refs[0].Code)
	}
	if refs[1].Code != "SILV15" {
		t.Errorf("refs[1].Code = %q, want SILV15", refs[1].Code)
	}
	if refs[2].Code != "SILV" {
		t.Errorf("refs[2].Code = %q, want SILV", refs[2].Code)
	}
}

func TestResolveInsertionOrderTieBreak(t *testing.T) {
	mappings := []domain.ModelMapping{
		{Pattern: "civic", Make: "Honda", Code: "CIVIC_A", Model: "Civic", Active: true},
		{Pattern: "CIVIC", Make: "Honda", Code: "CIVIC_B", Model: "Civic", Active: true},
	}
	r := NewResolver()
	if err := r.Load(mappings); err != nil {
		t.Fatal(err)
	}
	refs, err := r.Resolve("2010 Honda Civic")
	if err != nil {
		t.Fatal(err)
	}
	if refs[0].Code != "CIVIC_A" || refs[1].Code != "CIVIC_B" {
		t.Errorf("tie break should preserve insertion order, got %+v", refs)
	}
}

func TestResolveSkipsInactive(t *testing.T) {
	mappings := []domain.ModelMapping{
		{Pattern: "Civic", Make: "Honda", Code: "CIVIC", Model: "Civic", Active: false},
	}
	r := NewResolver()
	if err := r.Load(mappings); err != nil {
		t.Fatal(err)
	}
	_, err := r.Resolve("2010 Honda Civic")
	if !errors.Is(err, domain.ErrNoVehicleMatch) {
		t.Fatalf("inactive mapping must not match, err = %v", err)
	}
}

func TestMatchOffset(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatal(err)
	}

	text := "2005-2010 Ford F-150 Left Front"
	end := r.Match(text)
	if end != len("2005-2010 Ford F-150") {
		t.Errorf("Match = %d, want %d", end, len("2005-2010 Ford F-150"))
	}
	if got := r.Match("no vehicle here"); got != -1 {
		t.Errorf("Match on no match = %d, want -1", got)
	}
}

func TestMatchOffsetMultiByteRunes(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatal(err)
	}

	// Runes whose Unicode lowercase form has a different byte length must
	// not shift the reported offset (U+023A lowers to the wider U+2C65,
	// U+0130 lowers to a narrower two-rune sequence).
	cases := []string{
		"2005 ȺȺȺȺȺȺȺȺ F-150 Front",
		"2005 İİİİİİİİ F-150 Front",
		"2005 ȺȺȺȺȺȺȺȺ f-150",
	}
	for _, text := range cases {
		want := strings.Index(text, "-150") + len("-150")
		if got := r.Match(text); got != want {
			t.Errorf("Match(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestMappingsCopy(t *testing.T) {
	r := NewResolver()
	if err := r.Load(testMappings()); err != nil {
		t.Fatal(err)
	}
	got := r.Mappings()
	got[0].Pattern = "mutated"
	if r.Mappings()[0].Pattern == "mutated" {
		t.Error("Mappings must return a copy")
	}
}
