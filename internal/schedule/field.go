package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldSpec is the structured form of one cron field. The concrete types are
// Every, List, Range and Step; a single value is a one-element List.
type FieldSpec interface {
	// String renders the spec in the textual form Parse accepts.
	String() string
	// Expand returns the values the spec matches within d.
	Expand(d Domain) Set

	isFieldSpec()
}

// Every matches the whole domain ("*").
type Every struct{}

// List matches an explicit set of values ("5" or "1,15,30").
type List struct {
	Values []int
}

// Range matches Start through End inclusive ("9-17").
type Range struct {
	Start int
	End   int
}

// Step matches every Interval-th value of Base. Base is Every ("*/15"),
// a one-element List ("5/15", runs to the domain maximum) or a Range
// ("0-30/10").
type Step struct {
	Base     FieldSpec
	Interval int
}

func (Every) isFieldSpec() {}
func (List) isFieldSpec()  {}
func (Range) isFieldSpec() {}
func (Step) isFieldSpec()  {}

func (Every) String() string { return "*" }

func (l List) String() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (r Range) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

func (s Step) String() string {
	base := "*"
	if s.Base != nil {
		base = s.Base.String()
	}
	return base + "/" + strconv.Itoa(s.Interval)
}

func (Every) Expand(d Domain) Set { return full(d) }

func (l List) Expand(d Domain) Set {
	var s Set
	for _, v := range l.Values {
		if d.Contains(v) {
			s = s.add(v)
		}
	}
	return s
}

func (r Range) Expand(d Domain) Set { return stepped(r.Start, r.End, 1, d) }

func (s Step) Expand(d Domain) Set {
	if s.Interval < 1 {
		return 0
	}
	start, end := s.bounds(d)
	return stepped(start, end, s.Interval, d)
}

func (s Step) bounds(d Domain) (int, int) {
	switch base := s.Base.(type) {
	case Range:
		return base.Start, base.End
	case List:
		if len(base.Values) > 0 {
			return base.Values[0], d.Max
		}
	}
	return d.Min, d.Max
}

// stepped walks start..end by step and keeps the values inside d. The walk
// is clamped to d first, so huge bounds or steps cost nothing and never
// overflow.
func stepped(start, end, step int, d Domain) Set {
	var s Set
	if step < 1 || start > end || end < d.Min || start > d.Max {
		return s
	}
	if start < d.Min {
		// first value on the step grid at or above d.Min; exact in uint64
		gap, n := uint64(d.Min)-uint64(start), uint64(step)
		k := gap / n
		if gap%n != 0 {
			k++
		}
		off := k*n - gap
		if off > uint64(d.Max-d.Min) {
			return s
		}
		start = d.Min + int(off)
	}
	end = min(end, d.Max)
	for v := start; v <= end; v += step {
		s = s.add(v)
		if v > end-step {
			break
		}
	}
	return s
}

// ViolationKind classifies a DomainViolation.
type ViolationKind int

const (
	// OutOfRange means a value lies outside the field's domain; it was dropped.
	OutOfRange ViolationKind = iota
	// Malformed means a term could not be read as a number, range or step.
	Malformed
	// InvertedRange means a range whose start is greater than its end.
	InvertedRange
	// InvalidStep means a step interval below 1.
	InvalidStep
	// EmptyField means the field as a whole matches no value.
	EmptyField
)

func (k ViolationKind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case Malformed:
		return "malformed"
	case InvertedRange:
		return "inverted range"
	case InvalidStep:
		return "invalid step"
	case EmptyField:
		return "matches nothing"
	default:
		return "unknown"
	}
}

// DomainViolation reports a field term that was dropped or narrowed during
// expansion. Parse keeps going and records these as warnings.
type DomainViolation struct {
	Field  Field         `json:"field"`
	Term   string        `json:"term"`
	Kind   ViolationKind `json:"kind"`
	Value  int           `json:"value,omitempty"`
	Domain Domain        `json:"domain"`
}

func (v DomainViolation) Error() string {
	switch v.Kind {
	case OutOfRange:
		return fmt.Sprintf("%s: value %d in %q outside [%d-%d]", v.Field, v.Value, v.Term, v.Domain.Min, v.Domain.Max)
	case EmptyField:
		return fmt.Sprintf("%s: %q matches no value in [%d-%d]", v.Field, v.Term, v.Domain.Min, v.Domain.Max)
	default:
		return fmt.Sprintf("%s: %s term %q", v.Field, v.Kind, v.Term)
	}
}

// Expand returns the set of values spec matches within d. Terms that are
// malformed or fall outside d are dropped rather than reported; use Parse to
// see what was dropped.
func Expand(spec string, d Domain) Set {
	s, _ := expand(spec, d)
	return s
}

func expand(spec string, d Domain) (Set, []DomainViolation) {
	var (
		result     Set
		violations []DomainViolation
	)
	for _, term := range strings.Split(spec, ",") {
		s, vs := expandTerm(strings.TrimSpace(term), d)
		result |= s
		violations = append(violations, vs...)
	}
	return result, violations
}

// expandTerm handles one comma-free term: *, N, A-B, */S, N/S, A-B/S.
func expandTerm(term string, d Domain) (Set, []DomainViolation) {
	malformed := func() (Set, []DomainViolation) {
		return 0, []DomainViolation{{Term: term, Kind: Malformed, Domain: d}}
	}

	spec, ok := parseTerm(term)
	if !ok {
		return malformed()
	}

	var violations []DomainViolation
	outside := func(v int) {
		if !d.Contains(v) {
			violations = append(violations, DomainViolation{Term: term, Kind: OutOfRange, Value: v, Domain: d})
		}
	}

	switch s := spec.(type) {
	case List:
		outside(s.Values[0])
	case Range:
		if s.Start > s.End {
			return 0, []DomainViolation{{Term: term, Kind: InvertedRange, Domain: d}}
		}
		outside(s.Start)
		outside(s.End)
	case Step:
		if s.Interval < 1 {
			return 0, []DomainViolation{{Term: term, Kind: InvalidStep, Value: s.Interval, Domain: d}}
		}
		switch base := s.Base.(type) {
		case Range:
			if base.Start > base.End {
				return 0, []DomainViolation{{Term: term, Kind: InvertedRange, Domain: d}}
			}
			outside(base.Start)
			outside(base.End)
		case List:
			outside(base.Values[0])
		}
	}

	return spec.Expand(d), violations
}

// parseTerm reads a single comma-free term into its structured form.
func parseTerm(term string) (FieldSpec, bool) {
	if term == "" {
		return nil, false
	}
	if term == "*" {
		return Every{}, true
	}

	if base, interval, found := strings.Cut(term, "/"); found {
		n, err := strconv.Atoi(interval)
		if err != nil {
			return nil, false
		}
		if base == "*" {
			return Step{Base: Every{}, Interval: n}, true
		}
		b, ok := parseTerm(base)
		if !ok {
			return nil, false
		}
		switch b.(type) {
		case List, Range:
			return Step{Base: b, Interval: n}, true
		default:
			return nil, false
		}
	}

	if lo, hi, found := strings.Cut(term, "-"); found {
		start, errA := strconv.Atoi(lo)
		end, errB := strconv.Atoi(hi)
		if errA != nil || errB != nil {
			return nil, false
		}
		return Range{Start: start, End: end}, true
	}

	v, err := strconv.Atoi(term)
	if err != nil {
		return nil, false
	}
	return List{Values: []int{v}}, true
}

// classify derives the FieldSpec for a whole textual field. A clean single
// term keeps its shape; anything with a list or a violation collapses to a
// List of the values it actually matched.
func classify(raw string, values Set, clean bool) FieldSpec {
	if clean && !strings.Contains(raw, ",") {
		if spec, ok := parseTerm(raw); ok {
			return spec
		}
	}
	return List{Values: values.Values()}
}
