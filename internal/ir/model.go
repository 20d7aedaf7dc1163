// Package ir holds the language-neutral intermediate representation shared by
// the schema parser, the endpoint extractor and the emitters.
package ir

// ModelKind classifies a ModelIR entry.
type ModelKind string

const (
	KindObject     ModelKind = "object"
	KindEnumString ModelKind = "enum_string"
	KindEnumInt    ModelKind = "enum_int"
	KindAlias      ModelKind = "alias"
)

// Constraint keys recognised on fields.
const (
	ConstraintMinLength = "minLength"
	ConstraintMaxLength = "maxLength"
	ConstraintMinimum   = "minimum"
	ConstraintMaximum   = "maximum"
	ConstraintPattern   = "pattern"
)

// ConstraintOrder is the fixed rendering order of constraint keys.
var ConstraintOrder = []string{
	ConstraintMinLength,
	ConstraintMaxLength,
	ConstraintMinimum,
	ConstraintMaximum,
	ConstraintPattern,
}

// NullLiteral is the default of optional fields that declare none.
const NullLiteral = "None"

// ModelIR describes one named model.
type ModelIR struct {
	Name        string
	Kind        ModelKind
	Description string

	Fields     []ModelField
	EnumValues []string
	AliasType  string

	// ReferencedModels holds canonical names of models used by this one,
	// sorted and without duplicates.
	ReferencedModels []string
	// ExternalImports holds symbolic import tokens such as "List" or "UUID",
	// sorted and without duplicates.
	ExternalImports []string
	Warnings        []string
}

// References reports whether m refers to name.
func (m ModelIR) References(name string) bool {
	for _, ref := range m.ReferencedModels {
		if ref == name {
			return true
		}
	}
	return false
}

// ModelField is one property of an object model.
type ModelField struct {
	// Name is the emitted attribute name.
	Name string
	// Alias is the wire name when it differs from Name.
	Alias       string
	Type        string
	Required    bool
	Default     *string
	Description string
	Constraints map[string]string
}

// HasDefault reports whether a default literal is set.
func (f ModelField) HasDefault() bool { return f.Default != nil }

// ModelSet is a set of canonical model names.
type ModelSet map[string]struct{}

// Add inserts names into the set.
func (s ModelSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports membership.
func (s ModelSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in sorted order.
func (s ModelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sortStrings(out)
	return out
}
