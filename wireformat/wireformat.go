// Package wireformat defines the JSON wire format structures for communication
// between the WASM host and guest (plugins). These types must remain stable
// and backward compatible as they define the ABI contract.
package wireformat

import (
	"fmt"
)

// HandleWire names a handle in the host arena. Zero means no handle.
type HandleWire struct {
	Handle uint32 `json:"handle"`
}

// HandleValueWire carries a value to store behind a handle (toml_set) or a
// value read from one (toml_get).
type HandleValueWire struct {
	Error  *ErrorDetail `json:"error,omitempty"`
	Value  *ValueWire   `json:"value,omitempty"`
	Handle uint32       `json:"handle"`
}

// HandleChildWire selects a child of a composite handle, by key for tables
// or by index for arrays.
type HandleChildWire struct {
	Index  *int   `json:"index,omitempty"`
	Key    string `json:"key,omitempty"`
	Handle uint32 `json:"handle"`
}

// HandleResponseWire is returned by host functions that issue a handle.
type HandleResponseWire struct {
	Error  *ErrorDetail `json:"error,omitempty"`
	Handle uint32       `json:"handle"`
}

// ResultWire is the success|failure shape shared by fallible hooks and
// host functions. Failure is an expected, checkable outcome.
type ResultWire struct {
	Error *ErrorDetail `json:"error,omitempty"`
	OK    bool         `json:"ok"`
}

// PathWire carries a single path (watch_path, remove_path).
type PathWire struct {
	Path string `json:"path"`
}

// PathsWire carries the complete watched-path set.
type PathsWire struct {
	Paths []string `json:"paths"`
}

// PlatformWire is the response of get_platform.
type PlatformWire struct {
	Platform string `json:"platform"`
}

// OutputDirectoryWire is the response of output_directory.
type OutputDirectoryWire struct {
	Path string `json:"path"`
}

// AssetRefreshWire is the request of refresh_asset.
type AssetRefreshWire struct {
	OldURL string `json:"old_url"`
	NewURL string `json:"new_url"`
}

// LogWire is a diagnostic line forwarded by a plugin.
type LogWire struct {
	Level   string        `json:"level,omitempty"`
	Message string        `json:"message"`
	Attrs   []LogAttrWire `json:"attrs,omitempty"`
}

// LogAttrWire is one flattened log attribute. Group members carry dotted
// keys; Type is the slog kind the value was rendered from.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StateKeyWire names an entry of the plugin's opaque state.
type StateKeyWire struct {
	Key string `json:"key"`
}

// StateEntryWire carries one opaque state entry. Value is base64 on the wire.
type StateEntryWire struct {
	Value []byte `json:"value,omitempty"`
	Key   string `json:"key"`
	Found bool   `json:"found,omitempty"`
}

// MetadataWire is the response of the optional describe export.
type MetadataWire struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrorDetail provides structured error information, consistent across host and SDK.
// Error Types: "config", "registration", "hook", "transport", "timeout", "panic", "validation", "internal"
type ErrorDetail struct {
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code"`
}

// Error implements the error interface for ErrorDetail.
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
