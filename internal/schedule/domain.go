package schedule

import (
	"math/bits"
	"strconv"
	"strings"
)

// Domain is the inclusive range of values a cron field may take.
type Domain struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (d Domain) Contains(v int) bool { return v >= d.Min && v <= d.Max }

// Field identifies one position in a cron expression.
type Field int

const (
	Second Field = iota
	Minute
	Hour
	DayOfMonth
	Month
	DayOfWeek
)

const fieldCount = 6

var domains = [fieldCount]Domain{
	Second:     {Min: 0, Max: 59},
	Minute:     {Min: 0, Max: 59},
	Hour:       {Min: 0, Max: 23},
	DayOfMonth: {Min: 1, Max: 31},
	Month:      {Min: 1, Max: 12},
	DayOfWeek:  {Min: 0, Max: 6},
}

var fieldNames = [fieldCount]string{
	Second:     "second",
	Minute:     "minute",
	Hour:       "hour",
	DayOfMonth: "day-of-month",
	Month:      "month",
	DayOfWeek:  "day-of-week",
}

// Domain returns the valid value range for the field.
func (f Field) Domain() Domain {
	if f < Second || f > DayOfWeek {
		return Domain{}
	}
	return domains[f]
}

func (f Field) String() string {
	if f < Second || f > DayOfWeek {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// FieldByName resolves "minute", "hour", "day-of-month", ... to a Field.
// "dom", "dow" and "day" spellings are accepted as shorthands.
func FieldByName(name string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "second", "seconds":
		return Second, true
	case "minute", "minutes":
		return Minute, true
	case "hour", "hours":
		return Hour, true
	case "day-of-month", "dom", "day":
		return DayOfMonth, true
	case "month", "months":
		return Month, true
	case "day-of-week", "dow", "weekday":
		return DayOfWeek, true
	default:
		return 0, false
	}
}

// Set is a compact set of field values. Every cron domain fits in 0-63.
type Set uint64

// SetOf builds a set from the given values; values outside 0-63 are ignored.
func SetOf(values ...int) Set {
	var s Set
	for _, v := range values {
		s = s.add(v)
	}
	return s
}

func (s Set) Has(v int) bool {
	if v < 0 || v > 63 {
		return false
	}
	return s&(1<<uint(v)) != 0
}

func (s Set) add(v int) Set {
	if v < 0 || v > 63 {
		return s
	}
	return s | 1<<uint(v)
}

func (s Set) Len() int { return bits.OnesCount64(uint64(s)) }

func (s Set) Empty() bool { return s == 0 }

// Min returns the smallest member, or -1 for the empty set.
func (s Set) Min() int {
	if s == 0 {
		return -1
	}
	return bits.TrailingZeros64(uint64(s))
}

// Values returns the members in ascending order.
func (s Set) Values() []int {
	out := make([]int, 0, s.Len())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		out = append(out, bits.TrailingZeros64(rest))
	}
	return out
}

// full returns the set holding every value of d.
func full(d Domain) Set {
	var s Set
	for v := d.Min; v <= d.Max; v++ {
		s = s.add(v)
	}
	return s
}

func (s Set) String() string {
	vals := s.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
