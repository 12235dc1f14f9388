package pluginsdk

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reglet-dev/devkit/wireformat"
)

// ErrNoHost is returned by host calls made outside a wasip1 guest.
var ErrNoHost = errors.New("pluginsdk: not running inside a devkit host")

// transport moves encoded requests to devkit_host functions. call is used
// for functions with a response, notify for void functions.
type transport interface {
	call(name string, req []byte) ([]byte, error)
	notify(name string, req []byte) error
}

// host is replaced by tests.
var host transport = defaultTransport()

func encodeRequest(name string, req any) ([]byte, error) {
	if req == nil {
		return nil, nil
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pluginsdk: encode %s request: %w", name, err)
	}
	return data, nil
}

func invoke[Resp any](name string, req any) (Resp, error) {
	var resp Resp
	payload, err := encodeRequest(name, req)
	if err != nil {
		return resp, err
	}
	raw, err := host.call(name, payload)
	if err != nil {
		return resp, err
	}
	if len(raw) == 0 {
		return resp, fmt.Errorf("pluginsdk: %s returned no response", name)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("pluginsdk: decode %s response: %w", name, err)
	}
	return resp, nil
}

func notify(name string, req any) error {
	payload, err := encodeRequest(name, req)
	if err != nil {
		return err
	}
	return host.notify(name, payload)
}

// resultErr turns a failed ResultWire into an error the caller can
// inspect with errors.As(*wireformat.ErrorDetail).
func resultErr(name string, r wireformat.ResultWire) error {
	if r.OK {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return fmt.Errorf("pluginsdk: %s failed", name)
}
