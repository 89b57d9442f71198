package mode

import (
	"fmt"

	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// Factory starts a session for m.
type Factory func(ctx *service.Context, m Mode) (workflow.Instance, error)

// Registry maps each kind onto the factory that starts its workflow.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// Register adds f for kind. Inspect cannot be registered and each kind may
// be registered once.
func (r *Registry) Register(kind Kind, f Factory) error {
	if kind == Inspect {
		return fmt.Errorf("register %s: the idle mode has no workflow", kind)
	}
	if f == nil {
		return fmt.Errorf("register %s: nil factory", kind)
	}
	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("register %s: already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind Kind) (Factory, bool) {
	f, ok := r.factories[kind]
	return f, ok
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if _, ok := r.factories[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
