// Package schema turns OpenAPI schema nodes into Model IR: type strings for
// individual nodes and the registry of named models they refer to.
package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// ResolutionError reports a $ref whose target does not exist. It is recovered
// by typing the node as Any.
type ResolutionError struct {
	Ref string
}

func (e *ResolutionError) Error() string { return "unresolved reference " + e.Ref }

// Site locates a schema node. Key memoises inline model names; Pointer is
// the JSON pointer of the declaration, used for key order lookups.
type Site struct {
	Key     string
	Pointer string
}

// At returns a site whose key and pointer are both ptr.
func At(ptr string) Site { return Site{Key: ptr, Pointer: ptr} }

// Child descends into raw pointer segments.
func (s Site) Child(parts ...string) Site {
	suffix := spec.Pointer(parts...)
	return Site{Key: s.Key + suffix, Pointer: s.Pointer + suffix}
}

// Result is the outcome of resolving one schema node.
type Result struct {
	Type     string
	Imports  []string
	Models   []string
	Warnings []string
}

// scope accumulates imports, model references and warnings for one owner
// (a model or an endpoint).
type scope struct {
	owner    string
	models   ir.ModelSet
	imports  ir.ModelSet
	warnings []string
}

func newScope(owner string) *scope {
	return &scope{owner: owner, models: ir.ModelSet{}, imports: ir.ModelSet{}}
}

func (s *scope) record(t string) {
	s.models.Add(ir.ModelNames(t)...)
	s.imports.Add(ir.Imports(t)...)
}

func (s *scope) warn(msg string) {
	for _, w := range s.warnings {
		if w == msg {
			return
		}
	}
	s.warnings = append(s.warnings, msg)
}

var primitives = map[string]string{
	"string":  ir.TypeStr,
	"integer": ir.TypeInt,
	"number":  ir.TypeFloat,
	"boolean": ir.TypeBool,
}

// Resolve translates node into a type string. hint names the node if it has
// to materialise as a model; an empty hint keeps inline objects free-form and
// inline enums primitive.
func (p *Parser) Resolve(node *openapi3.SchemaRef, site Site, hint string) Result {
	sc := newScope(site.Pointer)
	t := p.resolve(node, site, hint, sc)
	sc.record(t)
	p.drain()
	return Result{
		Type:     t,
		Imports:  sc.imports.Sorted(),
		Models:   sc.models.Sorted(),
		Warnings: sc.warnings,
	}
}

func (p *Parser) resolve(node *openapi3.SchemaRef, site Site, hint string, sc *scope) string {
	if node == nil {
		sc.warn("missing schema at " + site.Pointer)
		return ir.TypeAny
	}
	if node.Ref != "" {
		return p.resolveRef(node, site, hint, sc)
	}
	if node.Value == nil {
		sc.warn("empty schema at " + site.Pointer)
		return ir.TypeAny
	}
	return p.resolveValue(node.Value, site, hint, sc)
}

// resolveRef applies rule 1. Component refs resolve by name; other refs the
// loader could follow materialise the target under its last segment.
func (p *Parser) resolveRef(node *openapi3.SchemaRef, site Site, hint string, sc *scope) string {
	if raw, ok := spec.ComponentSchemaName(node.Ref); ok {
		if _, defined := p.doc.Schema(raw); defined {
			return p.names.Canonical(raw)
		}
		p.unresolved(node.Ref, sc)
		return ir.TypeAny
	}
	if node.Value == nil {
		p.unresolved(node.Ref, sc)
		return ir.TypeAny
	}
	name := spec.RefName(node.Ref)
	if i := strings.LastIndex(name, "#"); i >= 0 {
		name = name[:i]
	}
	if strings.TrimSpace(name) == "" {
		name = hint
	}
	return p.materialise(node.Value, Site{Key: "ref:" + node.Ref}, name)
}

func (p *Parser) unresolved(ref string, sc *scope) {
	err := &ResolutionError{Ref: ref}
	sc.warn(err.Error())
	p.log.Warn("schema reference unresolved", "owner", sc.owner, "ref", ref)
}

func (p *Parser) resolveValue(s *openapi3.Schema, site Site, hint string, sc *scope) string {
	t := p.shape(s, site, hint, sc)
	if s.Nullable {
		t = ir.Optional(t)
	}
	return t
}

// shape applies rules 2 to 7.
func (p *Parser) shape(s *openapi3.Schema, site Site, hint string, sc *scope) string {
	if members := compositions(s, site); len(members) > 0 {
		types := make([]string, 0, len(members))
		for i, m := range members {
			h := hint
			if h != "" && len(members) > 1 {
				h += "Variant" + strconv.Itoa(i+1)
			}
			types = append(types, p.resolve(m.node, m.site, h, sc))
		}
		return ir.Union(types...)
	}
	if s.Type == "array" {
		if s.Items == nil {
			sc.warn("array without items at " + site.Pointer)
			return ir.TypeAny
		}
		return ir.List(p.resolve(s.Items, site.Child("items"), suffixed(hint, "Item"), sc))
	}
	if isObject(s) {
		if len(s.Properties) == 0 || hint == "" {
			return ir.TypeFreeForm
		}
		return p.materialise(s, site, hint)
	}
	if len(s.Enum) > 0 {
		if hint != "" {
			return p.materialise(s, site, hint+"Enum")
		}
		return enumPrimitive(s.Enum)
	}
	if t, ok := ir.FormatTypes[s.Format]; ok {
		return t
	}
	if t, ok := primitives[s.Type]; ok {
		return t
	}
	return ir.TypeAny
}

type member struct {
	node *openapi3.SchemaRef
	site Site
}

func compositions(s *openapi3.Schema, site Site) []member {
	var out []member
	for _, group := range []struct {
		key  string
		refs openapi3.SchemaRefs
	}{{"allOf", s.AllOf}, {"oneOf", s.OneOf}, {"anyOf", s.AnyOf}} {
		for i, ref := range group.refs {
			out = append(out, member{node: ref, site: site.Child(group.key, strconv.Itoa(i))})
		}
	}
	return out
}

func isObject(s *openapi3.Schema) bool {
	return s.Type == "object" || len(s.Properties) > 0
}

func suffixed(hint, suffix string) string {
	if hint == "" {
		return ""
	}
	return hint + suffix
}

// enumValues splits enum members into their literal forms, dropping nulls
// and duplicates. isInt is true when every member is an integer.
func enumValues(values []any) (out []string, isString, isInt bool) {
	isString, isInt = true, true
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		var lit string
		switch x := v.(type) {
		case nil:
			continue
		case string:
			isInt = false
			lit = x
		case float64:
			isString = false
			if x != math.Trunc(x) {
				isInt = false
			}
			lit = ir.FormatNumber(x)
		case int:
			isString = false
			lit = strconv.Itoa(x)
		case int64:
			isString = false
			lit = strconv.FormatInt(x, 10)
		case bool:
			isString, isInt = false, false
			lit = strconv.FormatBool(x)
		default:
			isString, isInt = false, false
			lit = strings.Trim(ir.Literal(x), `"`)
		}
		if _, dup := seen[lit]; dup {
			continue
		}
		seen[lit] = struct{}{}
		out = append(out, lit)
	}
	if len(out) == 0 {
		return nil, false, false
	}
	return out, isString, isInt
}

func enumPrimitive(values []any) string {
	_, isString, isInt := enumValues(values)
	switch {
	case isString:
		return ir.TypeStr
	case isInt:
		return ir.TypeInt
	}
	return ir.TypeAny
}
