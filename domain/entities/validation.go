package entities

import (
	"fmt"
	"strings"
)

// ValidationResult represents the outcome of validating a manifest or the
// host settings.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Err returns nil for a valid result, or an error listing every failure.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "\n- %s: %s", e.Field, e.Message)
	}
	return fmt.Errorf("%s", sb.String())
}
