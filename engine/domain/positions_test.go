package domain

import "testing"

func TestParsePosition(t *testing.T) {
	cases := []struct {
		token string
		want  Position
		ok    bool
	}{
		{"Front", PositionFront, true},
		{"REAR", PositionRear, true},
		{"back", PositionRear, true},
		{"LH", PositionLeft, true},
		{"driver", PositionLeft, true},
		{"RH", PositionRight, true},
		{"passenger", PositionRight, true},
		{"Upper", PositionUpper, true},
		{"lower", PositionLower, true},
		{"inner", PositionInner, true},
		{"outer", PositionOuter, true},
		{"centre", PositionCenter, true},
		{"N/A", PositionNA, true},
		{"na", PositionNA, true},
		{"front,", PositionFront, true}, // trailing punctuation stripped
		{"  left  ", PositionLeft, true},
		{"bracket", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePosition(tc.token)
		if ok != tc.ok {
			t.Errorf("ParsePosition(%q) ok = %v, want %v", tc.token, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParsePosition(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestPositionSpecific(t *testing.T) {
	if PositionNA.Specific() {
		t.Error("n/a should not be specific")
	}
	if PositionVaries.Specific() {
		t.Error("varies should not be specific")
	}
	if !PositionFront.Specific() {
		t.Error("front should be specific")
	}
}

func TestPositionGroupSpecific(t *testing.T) {
	cases := []struct {
		group PositionGroup
		want  bool
	}{
		{PositionGroup{PositionLeft, PositionFront, PositionUpper}, true},
		{PositionGroup{PositionLeft, PositionVaries}, false},
		{PositionGroup{PositionNA}, false},
		{PositionGroup{}, false},
	}
	for _, tc := range cases {
		if got := tc.group.Specific(); got != tc.want {
			t.Errorf("%v.Specific() = %v, want %v", tc.group, got, tc.want)
		}
	}
}

func TestPositionGroupString(t *testing.T) {
	g := PositionGroup{PositionLeft, PositionFront, PositionUpper}
	if got := g.String(); got != "left front upper" {
		t.Errorf("String() = %q, want %q", got, "left front upper")
	}
}
