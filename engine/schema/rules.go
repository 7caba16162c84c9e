package schema

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/normalize"
)

// Predicate checks one loose value. It returns nil when the value passes and a
// *core.InvalidInputError otherwise.
type Predicate func(value any) error

// Rule binds a predicate to an object field.
type Rule struct {
	Field    string
	Check    Predicate
	Optional bool
}

// Rules is an ordered object schema. The first failing rule rejects the input.
type Rules []Rule

// Validate checks input, which must be an object, against every rule in order.
func (r Rules) Validate(input any) error {
	if !core.IsObject(input) {
		return core.Invalid("", core.ReasonWrongType, "expected an object")
	}
	for _, rule := range r {
		value, ok := core.Lookup(input, rule.Field)
		if !ok || value == nil {
			if rule.Optional {
				continue
			}
			return core.Invalid(rule.Field, core.ReasonMissing, "")
		}
		if rule.Check == nil {
			continue
		}
		if err := rule.Check(value); err != nil {
			return core.InField(rule.Field, err)
		}
	}
	return nil
}

// Filter splits items into the indices accepted by r and the rejection of
// every other item, both in input order. Rejections are scoped to "[i]".
func (r Rules) Filter(items []any) (accepted []int, rejected []error) {
	for i, item := range items {
		if err := r.Validate(item); err != nil {
			rejected = append(rejected, core.InField(fmt.Sprintf("[%d]", i), err))
			continue
		}
		accepted = append(accepted, i)
	}
	return accepted, rejected
}

// Check runs preds against value and returns the first failure.
func Check(value any, preds ...Predicate) error {
	for _, p := range preds {
		if err := p(value); err != nil {
			return err
		}
	}
	return nil
}

// All combines preds into a single predicate.
func All(preds ...Predicate) Predicate {
	return func(value any) error {
		return Check(value, preds...)
	}
}

// Nested validates an object-valued field against its own rules.
func Nested(rules Rules) Predicate {
	return rules.Validate
}

func String(value any) error {
	if _, ok := core.String(value); !ok {
		return core.Invalid("", core.ReasonWrongType, "expected a string")
	}
	return nil
}

// NonEmptyString accepts strings with at least one non-space character.
func NonEmptyString(value any) error {
	s, ok := core.String(value)
	if !ok {
		return core.Invalid("", core.ReasonWrongType, "expected a string")
	}
	if strings.TrimSpace(s) == "" {
		return core.Invalid("", core.ReasonEmpty, "")
	}
	return nil
}

// Number accepts finite numbers.
func Number(value any) error {
	f, ok := core.Number(value)
	if !ok {
		return core.Invalid("", core.ReasonWrongType, "expected a number")
	}
	if !core.Finite(f) {
		return core.Invalid("", core.ReasonOutOfRange, "number is not finite")
	}
	return nil
}

// PositiveNumber accepts finite numbers strictly greater than zero.
func PositiveNumber(value any) error {
	return Between(Range{Min: 0, MinExclusive: true, Max: posInf, MaxExclusive: true})(value)
}

var posInf = math.Inf(1)

// Range bounds a number. Bounds are inclusive unless marked exclusive.
type Range struct {
	Min, Max                   float64
	MinExclusive, MaxExclusive bool
}

func (r Range) Contains(f float64) bool {
	if f < r.Min || (r.MinExclusive && f == r.Min) {
		return false
	}
	if f > r.Max || (r.MaxExclusive && f == r.Max) {
		return false
	}
	return true
}

func (r Range) String() string {
	lo, hi := "[", "]"
	if r.MinExclusive {
		lo = "("
	}
	if r.MaxExclusive {
		hi = ")"
	}
	return fmt.Sprintf("%s%g, %g%s", lo, r.Min, r.Max, hi)
}

// Between accepts finite numbers inside r.
func Between(r Range) Predicate {
	return func(value any) error {
		if err := Number(value); err != nil {
			return err
		}
		f, _ := core.Number(value)
		if !r.Contains(f) {
			return core.Invalid("", core.ReasonOutOfRange, fmt.Sprintf("%g not in %s", f, r))
		}
		return nil
	}
}

// NonEmptyObject accepts objects with at least one field.
func NonEmptyObject(value any) error {
	fields, ok := core.Fields(value)
	if !ok {
		return core.Invalid("", core.ReasonWrongType, "expected an object")
	}
	if len(fields) == 0 {
		return core.Invalid("", core.ReasonEmpty, "")
	}
	return nil
}

// NonEmptyList accepts lists with at least one element.
func NonEmptyList(value any) error {
	items, ok := core.List(value)
	if !ok {
		return core.Invalid("", core.ReasonWrongType, "expected a list")
	}
	if len(items) == 0 {
		return core.Invalid("", core.ReasonEmpty, "")
	}
	return nil
}

// OneOf accepts strings from values. With fold set, comparison uses
// normalize.Key on both sides.
func OneOf(fold bool, values ...string) Predicate {
	allowed := make([]string, len(values))
	for i, v := range values {
		if fold {
			v = normalize.Key(v)
		}
		allowed[i] = v
	}
	return func(value any) error {
		s, ok := core.String(value)
		if !ok {
			return core.Invalid("", core.ReasonWrongType, "expected a string")
		}
		if fold {
			s = normalize.Key(s)
		}
		if !slices.Contains(allowed, s) {
			return core.Invalid("", core.ReasonUnknownValue, fmt.Sprintf("%q", s))
		}
		return nil
	}
}

// EachValue applies p to every field value of an object.
func EachValue(p Predicate) Predicate {
	return func(value any) error {
		fields, ok := core.Fields(value)
		if !ok {
			return core.Invalid("", core.ReasonWrongType, "expected an object")
		}
		for _, f := range fields {
			if err := p(f.Value); err != nil {
				return core.InField(f.Key, err)
			}
		}
		return nil
	}
}
