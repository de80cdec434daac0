// Package mapping holds the hot-reloadable model mapping table and resolves
// informal vehicle text into normalized (make, code, model) candidates.
package mapping

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fitmentiq/fitment-engine/engine/domain"
)

// tableEntry is one loaded mapping with its lowered pattern and original
// insertion index precomputed for resolution.
type tableEntry struct {
	mapping domain.ModelMapping
	lowered string
	index   int
}

// table is an immutable snapshot of the mapping table. Refresh builds a new
// table and swaps the pointer; readers never see a partial load.
type table struct {
	entries []tableEntry
}

// Resolver matches vehicle text against the active mapping table.
// The zero value is unloaded; Resolve fails until Load succeeds once.
type Resolver struct {
	current atomic.Pointer[table]
}

// NewResolver returns an empty, unloaded resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ParseTarget splits a "Make|Code|Model" target string. It fails unless the
// string decomposes into exactly three non-empty components.
func ParseTarget(target string) (domain.VehicleRef, error) {
	parts := strings.Split(target, "|")
	if len(parts) != 3 {
		return domain.VehicleRef{}, domain.NewConfigError(target, domain.ErrMalformedMapping)
	}
	ref := domain.VehicleRef{
		Make:  strings.TrimSpace(parts[0]),
		Code:  strings.TrimSpace(parts[1]),
		Model: strings.TrimSpace(parts[2]),
	}
	if ref.Make == "" || ref.Code == "" || ref.Model == "" {
		return domain.VehicleRef{}, domain.NewConfigError(target, domain.ErrMalformedMapping)
	}
	return ref, nil
}

// Load validates mappings and atomically replaces the active table. A single
// malformed mapping fails the whole load and leaves the previous table in
// place.
func (r *Resolver) Load(mappings []domain.ModelMapping) error {
	entries := make([]tableEntry, 0, len(mappings))
	for i, m := range mappings {
		if m.Make == "" || m.Code == "" || m.Model == "" {
			target := m.Make + "|" + m.Code + "|" + m.Model
			return domain.NewConfigError(target, domain.ErrMalformedMapping)
		}
		if m.Pattern == "" {
			return domain.NewConfigError(m.Pattern, domain.ErrMalformedMapping)
		}
		entries = append(entries, tableEntry{
			mapping: m,
			lowered: lowerASCII(m.Pattern),
			index:   i,
		})
	}
	r.current.Store(&table{entries: entries})
	return nil
}

// Loaded reports whether a table has been loaded.
func (r *Resolver) Loaded() bool {
	return r.current.Load() != nil
}

// Len returns the number of mappings in the active table.
func (r *Resolver) Len() int {
	t := r.current.Load()
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Mappings returns a copy of the active table's mappings in insertion order.
func (r *Resolver) Mappings() []domain.ModelMapping {
	t := r.current.Load()
	if t == nil {
		return nil
	}
	out := make([]domain.ModelMapping, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.mapping
	}
	return out
}

// Resolve returns the targets of every active mapping whose pattern occurs
// case-insensitively in vehicleText (ASCII case folding; patterns are plain
// catalog identifiers). Multiple matches are a legitimate business outcome
// (shared nameplates); they are ranked by priority descending, then pattern
// length descending, then insertion order, so the result is deterministic.
// An empty result is a ParseError.
func (r *Resolver) Resolve(vehicleText string) ([]domain.VehicleRef, error) {
	t := r.current.Load()
	if t == nil {
		return nil, domain.NewMappingError("resolve", domain.ErrNotConfigured)
	}

	lowered := lowerASCII(vehicleText)
	var matched []tableEntry
	for _, e := range t.entries {
		if !e.mapping.Active {
			continue
		}
		if strings.Contains(lowered, e.lowered) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil, domain.NewParseError(vehicleText, domain.ErrNoVehicleMatch)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.mapping.Priority != b.mapping.Priority {
			return a.mapping.Priority > b.mapping.Priority
		}
		if len(a.lowered) != len(b.lowered) {
			return len(a.lowered) > len(b.lowered)
		}
		return a.index < b.index
	})

	refs := make([]domain.VehicleRef, len(matched))
	for i, e := range matched {
		refs[i] = e.mapping.Ref()
	}
	return refs, nil
}

// Match reports pattern occurrences for the parser: the byte end offset of
// the rightmost matched pattern, so position text can be carved off after
// the vehicle phrase. Folding is ASCII-only, so the offset is valid in
// vehicleText itself. Returns -1 when nothing matches.
func (r *Resolver) Match(vehicleText string) int {
	t := r.current.Load()
	if t == nil {
		return -1
	}
	lowered := lowerASCII(vehicleText)
	end := -1
	for _, e := range t.entries {
		if !e.mapping.Active {
			continue
		}
		if idx := strings.Index(lowered, e.lowered); idx >= 0 {
			if stop := idx + len(e.lowered); stop > end {
				end = stop
			}
		}
	}
	return end
}

// lowerASCII folds ASCII letters only. Unicode-aware lowering can change a
// rune's encoded length, which would break the byte offsets Match hands to
// the parser.
func lowerASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
