// Package slicer computes the closed model slice of an endpoint: every model
// it reaches through referenced_models, minus a skip list of framework noise.
package slicer

import (
	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/naming"
)

// DefaultSkip lists the schema names dropped from every slice.
var DefaultSkip = []string{"HTTPValidationError", "ValidationError"}

// Slicer closes endpoint model sets over a frozen registry.
type Slicer struct {
	models *ir.Registry
	skip   map[string]struct{}
}

// New returns a slicer. Skip entries match canonical names by their snake
// form, so HTTPValidationError also drops HttpValidationError.
func New(models *ir.Registry, skip []string) *Slicer {
	s := &Slicer{models: models, skip: make(map[string]struct{}, len(skip))}
	for _, name := range skip {
		if key := naming.SnakeCase(name); key != "" {
			s.skip[key] = struct{}{}
		}
	}
	return s
}

// Skipped reports whether name is on the skip list.
func (s *Slicer) Skipped(name string) bool {
	_, ok := s.skip[naming.SnakeCase(name)]
	return ok
}

// Close returns the transitive closure of roots in sorted order. Skipped
// models are neither included nor traversed; names without a registry entry
// are ignored.
func (s *Slicer) Close(roots []string) []string {
	set := ir.ModelSet{}
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if set.Has(name) || s.Skipped(name) {
			continue
		}
		m, ok := s.models.Get(name)
		if !ok {
			continue
		}
		set.Add(name)
		queue = append(queue, m.ReferencedModels...)
	}
	return set.Sorted()
}

// Endpoint returns the closed slice of ep.
func (s *Slicer) Endpoint(ep ir.EndpointIR) []string {
	return s.Close(append(append([]string(nil), ep.Models...), ep.TypeNames()...))
}
