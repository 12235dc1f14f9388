// Package validation checks plugin manifests and host settings against the
// `validate` struct tags declared on them.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/devkit/domain/entities"
)

var pluginNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validator wraps a configured go-playground validator. Building one is
// expensive, so callers should reuse it.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the devkit-specific tags registered:
// "pluginname" (lowercase key usable in the lock file) and "platform".
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("pluginname", func(fl validator.FieldLevel) bool {
		return pluginNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		_, err := entities.ParsePlatform(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Validate checks s and reports every failing field.
func (v *Validator) Validate(s any) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}

	err := v.validate.Struct(s)
	if err == nil {
		return result, nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil, fmt.Errorf("cannot validate %T: %w", s, err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	result.Valid = false
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fe.Namespace(),
			Message: describe(fe),
		})
	}
	return result, nil
}

// ValidateManifest validates a plugin manifest.
func (v *Validator) ValidateManifest(m *entities.PluginManifest) error {
	res, err := v.Validate(m)
	if err != nil {
		return err
	}
	return res.Err()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "pluginname":
		return fmt.Sprintf("%q must be lowercase letters, digits, '-' or '_'", fe.Value())
	case "platform":
		return fmt.Sprintf("%q must be web or desktop", fe.Value())
	case "endswith":
		return fmt.Sprintf("must end with %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
