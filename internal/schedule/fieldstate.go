package schedule

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FieldKind is the mode an editor has selected for one field.
type FieldKind int

const (
	KindEvery FieldKind = iota
	KindSpecific
	KindRange
	KindStep
)

var kindNames = map[FieldKind]string{
	KindEvery:    "every",
	KindSpecific: "specific",
	KindRange:    "range",
	KindStep:     "step",
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseFieldKind resolves "every", "specific", "range" or "step".
func ParseFieldKind(name string) (FieldKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

func (k FieldKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *FieldKind) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EditableFieldState is an editor's view of one field. Every member stays
// populated whatever Kind is selected, so switching kinds back and forth
// keeps what was entered.
type EditableFieldState struct {
	Kind       FieldKind `json:"kind"`
	Specific   []int     `json:"specific"`
	RangeStart int       `json:"range_start"`
	RangeEnd   int       `json:"range_end"`
	Step       int       `json:"step"`
}

// NewFieldState returns the default state for a field over d: every value,
// the full domain as range and a step of 1.
func NewFieldState(d Domain) EditableFieldState {
	return EditableFieldState{
		Kind:       KindEvery,
		Specific:   []int{},
		RangeStart: d.Min,
		RangeEnd:   d.Max,
		Step:       1,
	}
}

// Spec returns the FieldSpec the state currently selects.
func (s EditableFieldState) Spec() FieldSpec {
	switch s.Kind {
	case KindSpecific:
		vals := sortedUnique(s.Specific)
		if len(vals) == 0 {
			return Every{}
		}
		return List{Values: vals}
	case KindRange:
		return Range{Start: s.RangeStart, End: s.RangeEnd}
	case KindStep:
		if s.Step <= 1 {
			return Every{}
		}
		return Step{Base: Every{}, Interval: s.Step}
	default:
		return Every{}
	}
}

// FieldToString renders the state as field text for Parse.
func FieldToString(s EditableFieldState) string { return s.Spec().String() }

// ParseFieldState reads field text back into an editor state over d.
// "*" becomes Every, "*/N" Step, "A-B" Range and a value or comma list
// Specific. Anything else an editor cannot show directly ("5-20/5") becomes
// Specific with the values it expands to within d.
func ParseFieldState(spec string, d Domain) EditableFieldState {
	state := NewFieldState(d)
	spec = strings.TrimSpace(spec)

	if !strings.Contains(spec, ",") {
		if parsed, ok := parseTerm(spec); ok {
			switch p := parsed.(type) {
			case Every:
				return state
			case Step:
				if _, wild := p.Base.(Every); wild && p.Interval >= 1 {
					state.Kind = KindStep
					state.Step = p.Interval
					return state
				}
			case Range:
				if p.Start <= p.End {
					state.Kind = KindRange
					state.RangeStart = p.Start
					state.RangeEnd = p.End
					return state
				}
			}
		}
	}

	state.Kind = KindSpecific
	if vals, ok := intList(spec); ok {
		// kept as written, so a value outside d survives the round trip and
		// ParseStrict can report it instead of the field widening to "*"
		state.Specific = sortedUnique(vals)
		return state
	}
	state.Specific = Expand(spec, d).Values()
	return state
}

// intList reads "5" or "30,0,15". Any other term shape fails.
func intList(spec string) ([]int, bool) {
	terms := strings.Split(spec, ",")
	out := make([]int, 0, len(terms))
	for _, term := range terms {
		v, err := strconv.Atoi(strings.TrimSpace(term))
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func sortedUnique(vals []int) []int {
	out := slices.Clone(vals)
	slices.Sort(out)
	return slices.Compact(out)
}

// String renders the state as JSON, mostly for debugging output.
func (s EditableFieldState) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return FieldToString(s)
	}
	return string(b)
}
