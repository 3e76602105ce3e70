package engine

import (
	"context"
	"fmt"

	"github.com/vk/taskloom/internal/nodectx"
	"github.com/zclconf/go-cty/cty"
)

// Handler is the business logic of one node. It receives the node's resolved
// inputs as a single object keyed by target name, plus the node's context
// for row-mask access and direct output writes. A non-nil returned value is
// published to the node's output namespace (objects decompose into keys,
// anything else becomes the sole unnamed output); handlers that write
// outputs through nc directly return cty.NilVal.
type Handler func(ctx context.Context, nc *nodectx.Context, inputs cty.Value) (cty.Value, error)

// Registry maps handler names from pipeline definitions to their
// implementations.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a named handler, overwriting any previous registration.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Lookup returns the named handler.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("handler %q not registered", name)
	}
	return h, nil
}
