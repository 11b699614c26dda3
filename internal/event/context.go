package event

import "context"

type registryKey struct{}

// NewContext returns a copy of ctx that carries r.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext returns the registry that dispatched the current handler,
// or nil when ctx did not come from Emit.
func FromContext(ctx context.Context) *Registry {
	r, _ := ctx.Value(registryKey{}).(*Registry)
	return r
}
