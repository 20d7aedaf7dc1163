package ir

import (
	"errors"
	"fmt"

	"github.com/mark3labs/swagger2client/internal/naming"
)

// ErrFrozen is returned when a frozen registry is modified.
var ErrFrozen = errors.New("model registry is frozen")

// Registry owns the model definitions of a run, keyed by canonical name.
// It is written during parsing and frozen before emission.
type Registry struct {
	models map[string]ModelIR
	frozen bool
}

// NewRegistry returns an empty, writable registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]ModelIR)}
}

// Put stores or replaces a model.
func (r *Registry) Put(m ModelIR) error {
	if r.frozen {
		return fmt.Errorf("put %s: %w", m.Name, ErrFrozen)
	}
	r.models[m.Name] = m
	return nil
}

// Get returns the model with the given canonical name.
func (r *Registry) Get(name string) (ModelIR, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Has reports whether name is defined.
func (r *Registry) Has(name string) bool {
	_, ok := r.models[name]
	return ok
}

// Len returns the number of models.
func (r *Registry) Len() int { return len(r.models) }

// Names returns all model names, sorted.
func (r *Registry) Names() []string {
	set := make(ModelSet, len(r.models))
	for name := range r.models {
		set.Add(name)
	}
	return set.Sorted()
}

// Freeze switches the registry to its read-only emit phase.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool { return r.frozen }

// Validate checks that every model name is an identifier and that every
// reference points at a defined model or a builtin.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		m := r.models[name]
		if !naming.IsIdentifier(m.Name) {
			return fmt.Errorf("%w: model name %q is not an identifier", naming.ErrCollision, m.Name)
		}
		for _, ref := range m.ReferencedModels {
			if !r.Has(ref) && !IsBuiltin(ref) {
				return fmt.Errorf("model %s references undefined %s", name, ref)
			}
		}
	}
	return nil
}
