package schedule

import (
	"strconv"
	"strings"
	"time"
)

// InvalidDescription is what Describe returns for an expression Parse rejects.
const InvalidDescription = "Invalid cron expression"

var (
	weekdays = SetOf(1, 2, 3, 4, 5)
	weekends = SetOf(0, 6)
)

// Describe renders expression as an English sentence, for example
// "At minute 0, at 9AM, on weekdays". It never fails: an expression with
// the wrong number of fields describes as InvalidDescription.
func Describe(expression string) string {
	e, err := Parse(expression)
	if err != nil {
		return InvalidDescription
	}
	return e.Describe()
}

// Describe renders the expression as an English sentence.
func (e Expression) Describe() string {
	var clauses []string

	if e.hasSeconds {
		if sec := e.fields[Second]; sec.Raw != "*" && sec.Raw != "0" {
			clauses = append(clauses, "At second "+sec.Raw)
		}
	}

	clauses = append(clauses, minuteClause(e.fields[Minute]))

	if c := hourClause(e.fields[Hour]); c != "" {
		clauses = append(clauses, c)
	}

	if dom := e.fields[DayOfMonth]; !dom.Wildcard() {
		noun := "days"
		if l, ok := dom.Spec.(List); ok && len(l.Values) == 1 {
			noun = "day"
		}
		clauses = append(clauses, "on "+noun+" "+fieldText(dom)+" of the month")
	}

	if month := e.fields[Month]; month.Values.Empty() {
		clauses = append(clauses, "in "+month.Raw)
	} else if !month.Wildcard() {
		clauses = append(clauses, "in "+joinNames(month.Values, func(v int) string {
			return time.Month(v).String()
		}))
	}

	if dow := e.fields[DayOfWeek]; dow.Values.Empty() {
		clauses = append(clauses, "on "+dow.Raw)
	} else if !dow.Wildcard() {
		switch dow.Values {
		case weekdays:
			clauses = append(clauses, "on weekdays")
		case weekends:
			clauses = append(clauses, "on weekends")
		default:
			clauses = append(clauses, "on "+joinNames(dow.Values, func(v int) string {
				return time.Weekday(v).String()
			}))
		}
	}

	return strings.Join(clauses, ", ")
}

func minuteClause(f ParsedField) string {
	if everyValue(f.Spec) {
		return "Every minute"
	}
	switch spec := f.Spec.(type) {
	case Step:
		if spec.Interval == 1 {
			return "Minutes " + spec.Base.String()
		}
		return "Every " + strconv.Itoa(spec.Interval) + " minutes"
	case Range:
		return "Minutes " + f.Raw
	case List:
		if len(spec.Values) == 1 {
			return "At minute " + strconv.Itoa(spec.Values[0])
		}
	}
	return "At minutes " + fieldText(f)
}

// hourClause is empty for "*", which the minute clause already implies.
func hourClause(f ParsedField) string {
	if everyValue(f.Spec) {
		return ""
	}
	switch spec := f.Spec.(type) {
	case Step:
		if spec.Interval == 1 {
			return "hours " + spec.Base.String()
		}
		return "every " + strconv.Itoa(spec.Interval) + " hours"
	case Range:
		return "hours " + f.Raw
	case List:
		if len(spec.Values) == 1 {
			return "at " + clockHour(spec.Values[0])
		}
	}
	return "at hours " + fieldText(f)
}

// fieldText is the field as written, unless parsing dropped values from it;
// then it lists what the field actually matches, with runs as ranges.
func fieldText(f ParsedField) string {
	if len(f.Violations) == 0 || f.Values.Empty() {
		return f.Raw
	}

	var parts []string
	vals := f.Values.Values()
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1] == vals[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, strconv.Itoa(vals[i])+"-"+strconv.Itoa(vals[j]))
		} else {
			parts = append(parts, strconv.Itoa(vals[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// everyValue reports whether spec is "*" or the equivalent "*/1".
func everyValue(spec FieldSpec) bool {
	switch s := spec.(type) {
	case Every:
		return true
	case Step:
		_, wild := s.Base.(Every)
		return wild && s.Interval == 1
	}
	return false
}

// clockHour formats a 0-23 hour on the 12-hour clock: 0 -> 12AM, 13 -> 1PM.
func clockHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return strconv.Itoa(h) + suffix
}

func joinNames(s Set, name func(int) string) string {
	vals := s.Values()
	names := make([]string, len(vals))
	for i, v := range vals {
		names[i] = name(v)
	}
	return strings.Join(names, ", ")
}
