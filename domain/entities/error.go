package entities

import "fmt"

// ErrorDetail is the structured description of a failure. Plugins report
// failures in this shape and the host logs errors with it.
//
// Types used by the host: "config", "registration", "hook", "transport",
// "timeout", "persistence", "panic", "validation", "internal".
type ErrorDetail struct {
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code"`

	// IsTimeout marks a boundary call cut off by the hook timeout.
	IsTimeout bool `json:"is_timeout,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}
