package schedule

import (
	"iter"
	"time"
)

// MaxIterations bounds the forward search: no candidate more than this many
// minutes after the starting point is examined. 525960 minutes is 365.25 days.
const MaxIterations = 525960

// Occurrences yields, in chronological order, every minute strictly after
// from that matches the expression, stopping once the search window of
// MaxIterations minutes is exhausted. Times are in from's location.
//
// When the expression has a seconds field, each yielded time carries the
// lowest second of that field; otherwise seconds are zero.
//
// The sequence is computed as it is consumed and holds no state between
// calls; ranging over it again starts the search over.
func (e Expression) Occurrences(from time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		second := 0
		if e.hasSeconds {
			if s := e.fields[Second].Values; !s.Empty() {
				second = s.Min()
			}
		}

		loc := from.Location()
		start := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), from.Minute(), 0, 0, loc).Add(time.Minute)
		limit := start.Add(MaxIterations * time.Minute)

		t := start
		for steps := 0; steps < MaxIterations && t.Before(limit); steps++ {
			next, ok := e.advance(t)
			if ok {
				if !yield(next.Add(time.Duration(second) * time.Second)) {
					return
				}
				next = t.Add(time.Minute)
			}
			// time.Date may normalize an ambiguous wall clock backwards
			// around DST transitions; never revisit a candidate.
			if !next.After(t) {
				next = t.Add(time.Minute)
			}
			t = next
		}
	}
}

// advance checks candidate t. If t matches it is returned with ok set.
// Otherwise the earliest later candidate worth checking is returned: the
// first minute of the next month, day or hour when that whole unit is ruled
// out, or simply the next minute.
func (e Expression) advance(t time.Time) (time.Time, bool) {
	loc := t.Location()
	switch {
	case !e.fields[Month].Values.Has(int(t.Month())):
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc), false
	case !e.fields[DayOfMonth].Values.Has(t.Day()) || !e.fields[DayOfWeek].Values.Has(int(t.Weekday())):
		return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc), false
	case !e.fields[Hour].Values.Has(t.Hour()):
		return t.Add(time.Duration(60-t.Minute()) * time.Minute), false
	case !e.fields[Minute].Values.Has(t.Minute()):
		return t.Add(time.Minute), false
	}
	return t, true
}

// Next returns up to count occurrences strictly after from.
func (e Expression) Next(from time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, 0, min(count, 64))
	for t := range e.Occurrences(from) {
		out = append(out, t)
		if len(out) == count {
			break
		}
	}
	return out
}

// NextOccurrences parses expression and returns up to count occurrences
// strictly after from. A malformed expression, or one with no occurrence
// inside the search window, yields an empty result.
func NextOccurrences(expression string, count int, from time.Time) []time.Time {
	e, err := Parse(expression)
	if err != nil {
		return nil
	}
	return e.Next(from, count)
}
