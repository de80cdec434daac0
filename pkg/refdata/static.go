package refdata

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fitmentiq/fitment-engine/engine/domain"
	"github.com/fitmentiq/fitment-engine/engine/mapping"
)

// Static is an in-memory reference-data provider. It backs tests and
// air-gapped deployments that ship a reference snapshot as a YAML file
// instead of running a reference graph.
type Static struct {
	mu            sync.RWMutex
	mappings      []domain.ModelMapping
	terminologies map[int64]domain.PartTerminology
	positions     map[int64][]domain.PCDBPosition
	vehicles      []domain.VCDBVehicle
	saved         map[string][]domain.ValidationResult
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{
		terminologies: make(map[int64]domain.PartTerminology),
		positions:     make(map[int64][]domain.PCDBPosition),
		saved:         make(map[string][]domain.ValidationResult),
	}
}

// snapshotFile is the YAML layout of a reference snapshot.
type snapshotFile struct {
	Mappings []struct {
		Pattern  string `yaml:"pattern"`
		Target   string `yaml:"target"` // "Make|Code|Model"
		Priority int    `yaml:"priority"`
		Active   *bool  `yaml:"active"` // default true
	} `yaml:"mappings"`
	Terminologies []struct {
		ID        int64    `yaml:"id"`
		Name      string   `yaml:"name"`
		Positions []string `yaml:"positions"`
	} `yaml:"terminologies"`
	Vehicles []struct {
		Year     int    `yaml:"year"`
		Make     string `yaml:"make"`
		Model    string `yaml:"model"`
		Submodel string `yaml:"submodel"`
	} `yaml:"vehicles"`
}

// LoadFile populates the provider from a YAML snapshot. A mapping target
// that does not decompose into make|code|model fails the load.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return LoadYAML(data)
}

// LoadYAML populates a static provider from YAML bytes.
func LoadYAML(data []byte) (*Static, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	s := NewStatic()
	for _, m := range file.Mappings {
		ref, err := mapping.ParseTarget(m.Target)
		if err != nil {
			return nil, err
		}
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		s.mappings = append(s.mappings, domain.ModelMapping{
			Pattern:  m.Pattern,
			Make:     ref.Make,
			Code:     ref.Code,
			Model:    ref.Model,
			Priority: m.Priority,
			Active:   active,
		})
	}
	for _, t := range file.Terminologies {
		s.terminologies[t.ID] = domain.PartTerminology{ID: t.ID, Name: t.Name}
		for i, name := range t.Positions {
			s.positions[t.ID] = append(s.positions[t.ID], domain.PCDBPosition{
				ID:   int64(i + 1),
				Name: name,
			})
		}
	}
	for _, v := range file.Vehicles {
		s.vehicles = append(s.vehicles, domain.VCDBVehicle{
			Year:     v.Year,
			Make:     v.Make,
			Model:    v.Model,
			Submodel: v.Submodel,
		})
	}
	return s, nil
}

// SetTerminology registers a part type with its allowed positions.
func (s *Static) SetTerminology(t domain.PartTerminology, positions []domain.PCDBPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminologies[t.ID] = t
	s.positions[t.ID] = positions
}

// AddVehicles appends VCDB rows.
func (s *Static) AddVehicles(vehicles ...domain.VCDBVehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = append(s.vehicles, vehicles...)
}

// SetMappings replaces the mapping rule set.
func (s *Static) SetMappings(mappings []domain.ModelMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append([]domain.ModelMapping(nil), mappings...)
}

// ModelMappings implements fitment.Provider.
func (s *Static) ModelMappings(_ context.Context) ([]domain.ModelMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ModelMapping(nil), s.mappings...), nil
}

// PartTerminology implements fitment.Provider.
func (s *Static) PartTerminology(_ context.Context, terminologyID int64) (domain.PartTerminology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.terminologies[terminologyID]
	if !ok {
		return domain.PartTerminology{}, fmt.Errorf("part terminology %d: %w", terminologyID, domain.ErrNotFound)
	}
	return t, nil
}

// PCDBPositions implements fitment.Provider.
func (s *Static) PCDBPositions(_ context.Context, terminologyID int64) ([]domain.PCDBPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PCDBPosition(nil), s.positions[terminologyID]...), nil
}

// VCDBVehicles implements fitment.Provider.
func (s *Static) VCDBVehicles(_ context.Context, filter domain.VehicleFilter) ([]domain.VCDBVehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.VCDBVehicle
	for _, v := range s.vehicles {
		if filter.Year != 0 && v.Year != filter.Year {
			continue
		}
		if filter.Make != "" && !strings.EqualFold(v.Make, filter.Make) {
			continue
		}
		if filter.Model != "" && !strings.EqualFold(v.Model, filter.Model) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveMappingResults implements fitment.Provider by keeping results in
// memory, keyed by product.
func (s *Static) SaveMappingResults(_ context.Context, productID string, results []domain.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[productID] = append([]domain.ValidationResult(nil), results...)
	return nil
}

// SavedResults returns the results recorded for a product.
func (s *Static) SavedResults(productID string) []domain.ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ValidationResult(nil), s.saved[productID]...)
}

// ListMappings implements MappingStore.
func (s *Static) ListMappings(ctx context.Context) ([]domain.ModelMapping, error) {
	return s.ModelMappings(ctx)
}

// UpsertMapping implements MappingStore, keyed by pattern.
func (s *Static) UpsertMapping(_ context.Context, m domain.ModelMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.mappings {
		if strings.EqualFold(existing.Pattern, m.Pattern) {
			s.mappings[i] = m
			return nil
		}
	}
	s.mappings = append(s.mappings, m)
	return nil
}

// DeleteMapping implements MappingStore.
func (s *Static) DeleteMapping(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.mappings {
		if strings.EqualFold(existing.Pattern, pattern) {
			s.mappings = append(s.mappings[:i], s.mappings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mapping %q: %w", pattern, domain.ErrNotFound)
}
