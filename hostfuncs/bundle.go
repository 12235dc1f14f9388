package hostfuncs

// Bundle is a named group of host functions that belong together, such as
// the handle arena operations or the capability surface.
type Bundle map[string]HostFunction

// WithBundle registers every function of the given bundles. A name that
// appears in two bundles is a construction error.
func WithBundle(bundles ...Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for _, bundle := range bundles {
			for name, fn := range bundle {
				b.add(name, fn)
			}
		}
	}
}

// WithHandler registers a typed host function. Requests and responses are
// JSON encoded by NewJSONHandler.
//
//	WithHandler("get_platform", func(ctx context.Context, _ struct{}) wireformat.PlatformWire {
//	    return wireformat.PlatformWire{Platform: "web"}
//	})
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, jsonFunc(fn))
	}
}

// WithVoidHandler registers a typed host function that answers nothing.
func WithVoidHandler[Req any](name string, fn VoidFunc[Req]) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, voidFunc(fn))
	}
}

func jsonFunc[Req any, Resp any](fn HostFunc[Req, Resp]) HostFunction {
	return HostFunction{Handler: NewJSONHandler(fn)}
}

func voidFunc[Req any](fn VoidFunc[Req]) HostFunction {
	return HostFunction{Handler: NewVoidHandler(fn), Void: true}
}
