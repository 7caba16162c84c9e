package schema

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/compozy/tally/engine/core"
	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Validator interface
// -----------------------------------------------------------------------------

type Validator interface {
	Validate(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// CompositeValidator
// -----------------------------------------------------------------------------

// CompositeValidator allows combining multiple validators
type CompositeValidator struct {
	validators []Validator
}

func NewCompositeValidator(validators ...Validator) *CompositeValidator {
	return &CompositeValidator{
		validators: validators,
	}
}

func (v *CompositeValidator) AddValidator(validator Validator) {
	v.validators = append(v.validators, validator)
}

func (v *CompositeValidator) Validate(ctx context.Context) error {
	for _, validator := range v.validators {
		if validator == nil {
			continue
		}
		if err := validator.Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// PredicateValidator
// -----------------------------------------------------------------------------

// PredicateValidator binds a loose value to a predicate.
type PredicateValidator struct {
	value any
	check Predicate
}

func NewPredicateValidator(value any, check Predicate) *PredicateValidator {
	return &PredicateValidator{value: value, check: check}
}

func (v *PredicateValidator) Validate(_ context.Context) error {
	if v.check == nil {
		return nil
	}
	return v.check(v.value)
}

// -----------------------------------------------------------------------------
// StructValidator
// -----------------------------------------------------------------------------

var (
	structValidateOnce sync.Once
	structValidate     *validator.Validate
)

func sharedValidate() *validator.Validate {
	structValidateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		if err := RegisterCustomValidators(v); err != nil {
			panic(err)
		}
		structValidate = v
	})
	return structValidate
}

// RegisterCustomValidators installs the `finite` and `notblank` tags.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("finite", validateFinite); err != nil {
		return err
	}
	return v.RegisterValidation("notblank", validateNotBlank)
}

func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		return core.Finite(fl.Field().Float())
	default:
		return true
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

type StructValidator struct {
	validate *validator.Validate
	value    any
}

func NewStructValidator(value any) *StructValidator {
	return &StructValidator{
		validate: sharedValidate(),
		value:    value,
	}
}

// Validate checks struct tags and reports the first failing field as an
// input rejection.
func (v *StructValidator) Validate(_ context.Context) error {
	err := v.validate.Struct(v.value)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	return core.Invalid(first.Field(), reasonForTag(first.Tag()), first.Tag())
}

func reasonForTag(tag string) core.Reason {
	switch tag {
	case "required":
		return core.ReasonMissing
	case "notblank":
		return core.ReasonEmpty
	case "oneof":
		return core.ReasonUnknownValue
	case "gt", "gte", "lt", "lte", "min", "max", "finite":
		return core.ReasonOutOfRange
	default:
		return core.ReasonWrongType
	}
}
