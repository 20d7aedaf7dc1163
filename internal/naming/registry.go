package naming

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrCollision marks a broken canonical-name invariant. The registry suffixes
// candidates until they are unique, so seeing it means a bug upstream.
var ErrCollision = errors.New("naming collision")

var reservedClassNames = map[string]struct{}{"None": {}, "True": {}, "False": {}}

// Registry assigns canonical PascalCase names for one generator run.
// Entries are never removed.
type Registry struct {
	byRaw    map[string]string
	byInline map[string]string
	used     map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byRaw:    make(map[string]string),
		byInline: make(map[string]string),
		used:     make(map[string]struct{}),
	}
}

// Canonical returns the canonical name for a raw schema name, registering it
// on first use.
func (r *Registry) Canonical(raw string) string {
	if name, ok := r.byRaw[raw]; ok {
		return name
	}
	name := r.reserve(raw)
	r.byRaw[raw] = name
	return name
}

// Lookup returns the canonical name of an already registered raw name.
func (r *Registry) Lookup(raw string) (string, bool) {
	name, ok := r.byRaw[raw]
	return name, ok
}

// Inline names a materialised inline schema. key identifies the schema node
// (its JSON pointer) so repeated visits get the same name; hint seeds the
// candidate.
func (r *Registry) Inline(key, hint string) string {
	if name, ok := r.byInline[key]; ok {
		return name
	}
	name := r.reserve(hint)
	r.byInline[key] = name
	return name
}

// Has reports whether canonical is in use.
func (r *Registry) Has(canonical string) bool {
	_, ok := r.used[canonical]
	return ok
}

// Len returns the number of canonical names in use.
func (r *Registry) Len() int { return len(r.used) }

// Names returns all canonical names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.used))
	for name := range r.used {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Check verifies that raw and inline entries map to distinct canonical names.
func (r *Registry) Check() error {
	owners := make(map[string]string, len(r.used))
	claim := func(owner, name string) error {
		if prev, ok := owners[name]; ok {
			return fmt.Errorf("%w: %q claimed by %q and %q", ErrCollision, name, prev, owner)
		}
		owners[name] = owner
		return nil
	}
	for raw, name := range r.byRaw {
		if err := claim("schema "+raw, name); err != nil {
			return err
		}
	}
	for key, name := range r.byInline {
		if err := claim("inline "+key, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) reserve(raw string) string {
	candidate := PascalCase(raw)
	if candidate == "" {
		candidate = "Model" + strconv.Itoa(len(r.used))
	}
	if startsWithDigit(candidate) {
		candidate = "Model" + candidate
	}
	if _, reserved := reservedClassNames[candidate]; reserved {
		candidate += "Model"
	}
	name := candidate
	for i := 2; r.Has(name); i++ {
		name = candidate + strconv.Itoa(i)
	}
	r.used[name] = struct{}{}
	return name
}
