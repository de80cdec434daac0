package domain

import "strings"

// Position is one installation position token. The set is closed: free text
// that does not map to a known token becomes PositionVaries rather than an
// error, so position parsing is total.
type Position string

const (
	PositionFront  Position = "front"
	PositionRear   Position = "rear"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionUpper  Position = "upper"
	PositionLower  Position = "lower"
	PositionInner  Position = "inner"
	PositionOuter  Position = "outer"
	PositionCenter Position = "center"
	PositionNA     Position = "n/a"
	PositionVaries Position = "varies"
)

// positionAliases maps lowercase tokens to canonical positions. Mirrors the
// vocabulary PCDB uses plus the shorthand that shows up in catalog feeds.
var positionAliases = map[string]Position{
	"front":          PositionFront,
	"fr":             PositionFront,
	"forward":        PositionFront,
	"rear":           PositionRear,
	"back":           PositionRear,
	"rr":             PositionRear,
	"left":           PositionLeft,
	"lh":             PositionLeft,
	"driver":         PositionLeft,
	"right":          PositionRight,
	"rh":             PositionRight,
	"passenger":      PositionRight,
	"upper":          PositionUpper,
	"top":            PositionUpper,
	"lower":          PositionLower,
	"bottom":         PositionLower,
	"inner":          PositionInner,
	"inside":         PositionInner,
	"outer":          PositionOuter,
	"outside":        PositionOuter,
	"center":         PositionCenter,
	"centre":         PositionCenter,
	"middle":         PositionCenter,
	"na":             PositionNA,
	"n/a":            PositionNA,
	"not applicable": PositionNA,
	"varies":         PositionVaries,
}

// ParsePosition maps a single token to its canonical Position. The boolean
// reports whether the token was recognised; callers that need totality map
// unrecognised tokens to PositionVaries.
func ParsePosition(token string) (Position, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(token), ".,;:()"))
	p, ok := positionAliases[cleaned]
	return p, ok
}

// Specific reports whether p pins down an actual installation position.
// PositionNA and PositionVaries are placeholders, not positions.
func (p Position) Specific() bool {
	return p != PositionNA && p != PositionVaries
}

// PositionGroup is one fully disambiguated combination of position tokens,
// e.g. [left front upper]. Order is the order tokens appeared in the source
// text.
type PositionGroup []Position

// String renders the group as a space-joined phrase.
func (g PositionGroup) String() string {
	parts := make([]string, len(g))
	for i, p := range g {
		parts[i] = string(p)
	}
	return strings.Join(parts, " ")
}

// Specific reports whether every token in the group is a concrete position.
func (g PositionGroup) Specific() bool {
	for _, p := range g {
		if !p.Specific() {
			return false
		}
	}
	return len(g) > 0
}
