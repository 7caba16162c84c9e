package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// lowerTokenPattern matches lower-case words such as minor words and tax
// categories: letters and digits, optionally joined by single hyphens or
// underscores.
var lowerTokenPattern = regexp.MustCompile(`^[\p{Ll}\p{Lo}0-9]+([_-][\p{Ll}\p{Lo}0-9]+)*$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("lower_token", validateLowerToken); err != nil {
		return err
	}
	return v.RegisterValidation("notblank", validators.NotBlank)
}

func validateLowerToken(fl validator.FieldLevel) bool {
	return lowerTokenPattern.MatchString(fl.Field().String())
}
