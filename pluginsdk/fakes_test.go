package pluginsdk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type hostCall struct {
	name string
	req  []byte
	void bool
}

// fakeHost answers host calls from canned responses keyed by function name.
type fakeHost struct {
	responses map[string]any
	err       error
	calls     []hostCall
}

func useHost(t *testing.T, responses map[string]any) *fakeHost {
	t.Helper()
	f := &fakeHost{responses: responses}
	prev := host
	host = f
	t.Cleanup(func() { host = prev })
	return f
}

func (f *fakeHost) call(name string, req []byte) ([]byte, error) {
	f.calls = append(f.calls, hostCall{name: name, req: req})
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[name]
	if !ok {
		return nil, nil
	}
	return json.Marshal(resp)
}

func (f *fakeHost) notify(name string, req []byte) error {
	f.calls = append(f.calls, hostCall{name: name, req: req, void: true})
	return f.err
}

// request decodes the payload of the i-th call into v.
func (f *fakeHost) request(t *testing.T, i int, v any) {
	t.Helper()
	require.Greater(t, len(f.calls), i)
	require.NoError(t, json.Unmarshal(f.calls[i].req, v))
}

func useRegistered(t *testing.T, p Plugin) {
	t.Helper()
	prev := registered
	Register(p)
	t.Cleanup(func() { registered = prev })
}
