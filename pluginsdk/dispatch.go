package pluginsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/wireformat"
)

var errNotRegistered = errors.New("no plugin registered; call pluginsdk.Register from init")

// guard runs one hook with panic recovery. A panic is reported as an error
// detail of type "panic"; the stack goes to the host log.
func guard(hook entities.Hook, fn func(Plugin) error) (detail *wireformat.ErrorDetail) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("plugin panic recovered", "hook", string(hook), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			detail = &wireformat.ErrorDetail{
				Message: fmt.Sprintf("plugin panic: %v", r),
				Type:    "panic",
				Code:    string(hook),
			}
		}
	}()
	if registered == nil {
		return &wireformat.ErrorDetail{Message: errNotRegistered.Error(), Type: "registration", Code: string(hook)}
	}
	if err := fn(registered); err != nil {
		return errorDetail(hook, err)
	}
	return nil
}

func errorDetail(hook entities.Hook, err error) *wireformat.ErrorDetail {
	var detail *wireformat.ErrorDetail
	if errors.As(err, &detail) {
		return detail
	}
	return &wireformat.ErrorDetail{Message: err.Error(), Type: "hook", Code: string(hook)}
}

func runResult(hook entities.Hook, fn func(Plugin) error) wireformat.ResultWire {
	if detail := guard(hook, fn); detail != nil {
		return wireformat.ResultWire{Error: detail}
	}
	return wireformat.ResultWire{OK: true}
}

func runDefaultConfig() wireformat.HandleValueWire {
	var out wireformat.HandleValueWire
	detail := guard(entities.HookGetDefaultConfig, func(p Plugin) error {
		v, err := p.DefaultConfig()
		if err != nil {
			return err
		}
		w, err := wireformat.EncodeValue(v)
		if err != nil {
			return err
		}
		out.Value = &w
		return nil
	})
	if detail != nil {
		return wireformat.HandleValueWire{Error: detail}
	}
	return out
}

func runApplyConfig(input []byte) wireformat.ResultWire {
	return runResult(entities.HookApplyConfig, func(p Plugin) error {
		var req wireformat.HandleWire
		if err := json.Unmarshal(input, &req); err != nil {
			return &wireformat.ErrorDetail{Message: err.Error(), Type: "transport", Code: "decode"}
		}
		return p.ApplyConfig(Handle{id: req.Handle})
	})
}

// runNotification runs a hook without a result. Failures are logged only.
func runNotification(hook entities.Hook, fn func(Plugin)) {
	if detail := guard(hook, func(p Plugin) error { fn(p); return nil }); detail != nil {
		slog.Error("plugin hook failed", "hook", string(hook), "error", detail.Error())
	}
}

func runWatchedPathsChange(input []byte) {
	runNotification(entities.HookOnWatchedPathsChange, func(p Plugin) {
		var req wireformat.PathsWire
		if err := json.Unmarshal(input, &req); err != nil {
			panic(fmt.Sprintf("decode watched paths: %v", err))
		}
		p.OnWatchedPathsChange(req.Paths)
	})
}

func runDescribe() wireformat.MetadataWire {
	var out wireformat.MetadataWire
	if detail := guard("describe", func(p Plugin) error {
		out = wireformat.MetadataWire(p.Describe())
		return nil
	}); detail != nil {
		slog.Error("plugin describe failed", "error", detail.Error())
	}
	return out
}
