package hostfuncs

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/devkit/wireformat"
)

// Codes set on host-side ErrorResponses.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
	CodeTransport  = "TRANSPORT_ERROR"
	CodeHandle     = "INVALID_HANDLE"
)

// ErrorResponse is what a host function answers when it cannot serve the
// request at all. Its lone "error" member has the same name as the Error
// field of every wire response, so the guest decodes it as a failed
// response of whatever type it expected.
type ErrorResponse struct {
	Err *wireformat.ErrorDetail `json:"error"`
}

func (e ErrorResponse) Error() string {
	return e.Err.Error()
}

// ToJSON encodes e. ErrorDetail holds only strings, so encoding cannot fail.
func (e ErrorResponse) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

func errorResponse(typ, code, message string) ErrorResponse {
	return ErrorResponse{Err: &wireformat.ErrorDetail{Type: typ, Code: code, Message: message}}
}

// NewValidationError reports a request the host could not decode or accept.
func NewValidationError(message string) ErrorResponse {
	return errorResponse("validation", CodeValidation, message)
}

// NewNotFoundError reports a call to an import the registry does not have.
func NewNotFoundError(name string) ErrorResponse {
	return errorResponse("validation", CodeNotFound, "unknown host function: "+name)
}

// NewInternalError reports a host-side fault unrelated to the request.
func NewInternalError(message string) ErrorResponse {
	return errorResponse("internal", CodeInternal, message)
}

// NewPanicError reports a handler that panicked with v.
func NewPanicError(v any) ErrorResponse {
	return errorResponse("panic", CodeInternal, fmt.Sprintf("panic: %v", v))
}

func errorDetail(typ, code string, err error) *wireformat.ErrorDetail {
	return &wireformat.ErrorDetail{Type: typ, Code: code, Message: err.Error()}
}
