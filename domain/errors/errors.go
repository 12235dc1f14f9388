// Package errors provides the error kinds of the plugin host.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// Plugin-level kinds (ConfigurationError, RegistrationError, HookError) are
// isolated and logged by the registry. TransportError and PersistenceError
// propagate to the caller.
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/reglet-dev/devkit/domain/entities"
)

// DetailedError is implemented by error kinds that can describe themselves
// as a structured ErrorDetail for the wire.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// ConfigurationError means apply_config rejected its input. The plugin is
// skipped for the rest of the session.
type ConfigurationError struct {
	Err    error
	Plugin string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("plugin %s rejected configuration: %v", e.Plugin, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigurationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: "apply_config"}
}

// RegistrationError means register failed. The plugin stays unregistered
// and is retried next session.
type RegistrationError struct {
	Err    error
	Plugin string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("plugin %s failed to register: %v", e.Plugin, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RegistrationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "registration", Code: "register"}
}

// HookError is a failure of any other lifecycle hook.
type HookError struct {
	Err    error
	Plugin string
	Hook   entities.Hook
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s hook %s failed: %v", e.Plugin, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *HookError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "hook", Code: string(e.Hook)}
}

// TransportError is a failure to move a value across the plugin boundary.
// It is fatal to the call that attempted the transfer.
type TransportError struct {
	Err       error
	Operation string // "encode" or "decode"
	Type      string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TransportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transport", Code: e.Operation}
}

// PersistenceError is a lock file read or write failure.
type PersistenceError struct {
	Err       error
	Path      string
	Operation string // "read", "parse" or "write"
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("lock file %s %s failed: %v", e.Path, e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *PersistenceError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "persistence", Code: e.Operation}
}

// TimeoutError is a boundary call that did not return within the hook
// timeout.
type TimeoutError struct {
	Operation string
	Target    string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s timeout after %v (plugin: %s)", e.Operation, e.Duration, e.Target)
	}
	return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.Operation, IsTimeout: true}
}

// IsPluginFailure reports whether err is one of the plugin-isolated kinds.
func IsPluginFailure(err error) bool {
	var ce *ConfigurationError
	var re *RegistrationError
	var he *HookError
	return stdErrors.As(err, &ce) || stdErrors.As(err, &re) || stdErrors.As(err, &he)
}
