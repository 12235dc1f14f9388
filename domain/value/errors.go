package value

import "errors"

// Sentinel errors returned by validation, conversion and handle access.
var (
	ErrMalformed     = errors.New("malformed value")
	ErrDuplicateKey  = errors.New("duplicate table key")
	ErrOverflow      = errors.New("integer overflow")
	ErrDateTime      = errors.New("unrepresentable datetime")
	ErrUnsupported   = errors.New("unsupported native type")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrNotComposite  = errors.New("value is not an array or table")
)
