package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidExpression matches every error Parse and ParseStrict return.
var ErrInvalidExpression = errors.New("invalid cron expression")

// SyntaxError is returned by Parse when the expression does not split into
// five or six whitespace-separated fields.
type SyntaxError struct {
	Expression string
	Fields     int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cron: expected 5 or 6 fields, got %d", e.Fields)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrInvalidExpression }

// ParsedField is one field of an Expression: the text as written, its
// structured form and the values it expands to.
type ParsedField struct {
	Raw        string
	Spec       FieldSpec
	Values     Set
	Violations []DomainViolation
}

// Wildcard reports whether the field was written as "*".
func (f ParsedField) Wildcard() bool {
	_, ok := f.Spec.(Every)
	return ok
}

// Expression is a parsed cron expression. The zero value is not useful; use
// Parse. An Expression is never mutated after Parse returns it.
type Expression struct {
	source     string
	hasSeconds bool
	fields     [fieldCount]ParsedField
}

// Parse splits expression into 5 fields (minute hour day-of-month month
// day-of-week) or 6 fields (with a leading second) and expands each against
// its domain.
//
// Only a wrong field count is an error. Terms that are malformed or out of
// range are dropped from the field's set and reported through Warnings.
func Parse(expression string) (Expression, error) {
	tokens := strings.Fields(expression)

	var positions []Field
	switch len(tokens) {
	case 5:
		positions = []Field{Minute, Hour, DayOfMonth, Month, DayOfWeek}
	case 6:
		positions = []Field{Second, Minute, Hour, DayOfMonth, Month, DayOfWeek}
	default:
		return Expression{}, &SyntaxError{Expression: expression, Fields: len(tokens)}
	}

	e := Expression{
		source:     strings.Join(tokens, " "),
		hasSeconds: len(tokens) == 6,
	}
	for i, f := range positions {
		e.fields[f] = parseField(f, tokens[i])
	}
	return e, nil
}

// ParseStrict is Parse with every DomainViolation, and every field that
// matches no value at all, promoted to an error.
func ParseStrict(expression string) (Expression, error) {
	e, err := Parse(expression)
	if err != nil {
		return Expression{}, err
	}

	var errs []error
	for f := Second; f <= DayOfWeek; f++ {
		if f == Second && !e.hasSeconds {
			continue
		}
		pf := e.fields[f]
		for _, v := range pf.Violations {
			errs = append(errs, v)
		}
		if pf.Values.Empty() && len(pf.Violations) == 0 {
			errs = append(errs, DomainViolation{Field: f, Term: pf.Raw, Kind: EmptyField, Domain: f.Domain()})
		}
	}
	if len(errs) > 0 {
		return Expression{}, fmt.Errorf("%w: %w", ErrInvalidExpression, errors.Join(errs...))
	}
	return e, nil
}

func parseField(f Field, raw string) ParsedField {
	d := f.Domain()
	values, violations := expand(raw, d)
	for i := range violations {
		violations[i].Field = f
	}
	return ParsedField{
		Raw:        raw,
		Spec:       classify(raw, values, len(violations) == 0),
		Values:     values,
		Violations: violations,
	}
}

// Field returns the parsed field f. For a 5-field expression the Second
// field is empty.
func (e Expression) Field(f Field) ParsedField {
	if f < Second || f > DayOfWeek {
		return ParsedField{}
	}
	return e.fields[f]
}

// HasSeconds reports whether the expression was written in 6-field form.
func (e Expression) HasSeconds() bool { return e.hasSeconds }

// Warnings returns every term that was dropped or narrowed during parsing.
func (e Expression) Warnings() []DomainViolation {
	var out []DomainViolation
	for _, pf := range e.fields {
		out = append(out, pf.Violations...)
	}
	return out
}

// Matches reports whether t's minute satisfies the expression. Day-of-month
// and day-of-week are both required to hold. The seconds field is not
// consulted.
func (e Expression) Matches(t time.Time) bool {
	return e.fields[Month].Values.Has(int(t.Month())) &&
		e.fields[DayOfMonth].Values.Has(t.Day()) &&
		e.fields[DayOfWeek].Values.Has(int(t.Weekday())) &&
		e.fields[Hour].Values.Has(t.Hour()) &&
		e.fields[Minute].Values.Has(t.Minute())
}

// String returns the expression with its whitespace normalized.
func (e Expression) String() string { return e.source }
