package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/naming"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// Parser builds the Model IR registry of one run.
type Parser struct {
	doc       *spec.Document
	names     *naming.Registry
	models    *ir.Registry
	log       *slog.Logger
	roleHints bool

	pending []pendingModel
	queued  map[string]bool
	err     error
}

type pendingModel struct {
	name   string
	schema *openapi3.Schema
	site   Site
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for recovered problems.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.log = logging.OrDiscard(l) }
}

// WithRoleHints controls whether inline request bodies and responses
// materialise as models named after the endpoint. Disabled, they stay
// free-form dictionaries.
func WithRoleHints(enabled bool) Option {
	return func(p *Parser) { p.roleHints = enabled }
}

// NewParser returns a parser writing into names and models.
func NewParser(doc *spec.Document, names *naming.Registry, models *ir.Registry, opts ...Option) *Parser {
	p := &Parser{
		doc:       doc,
		names:     names,
		models:    models,
		log:       logging.Discard(),
		roleHints: true,
		queued:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the naming pass over components.schemas, parses every schema
// and materialises the inline models they reference.
func (p *Parser) Parse() error {
	raws := p.doc.SchemaNames()
	for _, raw := range raws {
		p.names.Canonical(raw)
	}
	for _, raw := range raws {
		node, _ := p.doc.Schema(raw)
		p.define(p.names.Canonical(raw), node, At(spec.Pointer("components", "schemas", raw)))
	}
	p.drain()
	return p.err
}

// Finish materialises anything still pending, checks the registries and
// freezes the model registry for emission.
func (p *Parser) Finish() error {
	p.drain()
	if p.err != nil {
		return p.err
	}
	if err := p.names.Check(); err != nil {
		return err
	}
	for _, name := range p.names.Names() {
		if !p.models.Has(name) {
			return fmt.Errorf("%w: %s is named but has no model", naming.ErrCollision, name)
		}
	}
	if err := p.models.Validate(); err != nil {
		return err
	}
	p.models.Freeze()
	return nil
}

// materialise names an inline schema and queues it for parsing.
func (p *Parser) materialise(s *openapi3.Schema, site Site, hint string) string {
	name := p.names.Inline(site.Key, hint)
	if !p.queued[name] {
		p.queued[name] = true
		p.pending = append(p.pending, pendingModel{name: name, schema: s, site: site})
	}
	return name
}

func (p *Parser) drain() {
	for len(p.pending) > 0 {
		next := p.pending[0]
		p.pending = p.pending[1:]
		p.define(next.name, &openapi3.SchemaRef{Value: next.schema}, next.site)
	}
}

func (p *Parser) define(name string, node *openapi3.SchemaRef, site Site) {
	p.queued[name] = true
	sc := newScope(name)
	m := ir.ModelIR{Name: name}
	s := node.Value
	switch {
	case node.Ref != "" || s == nil:
		m.Kind = ir.KindAlias
		m.AliasType = p.resolve(node, site, name, sc)
		sc.record(m.AliasType)
	case len(compositions(s, site)) > 0 || s.Type == "array":
		m.Kind = ir.KindAlias
		m.AliasType = p.resolveValue(s, site, name, sc)
		sc.record(m.AliasType)
	case isObject(s):
		m.Kind = ir.KindObject
		m.Fields = p.fields(name, s, site, sc)
	case len(s.Enum) > 0:
		values, isString, isInt := enumValues(s.Enum)
		switch {
		case len(values) == 0:
			sc.warn("enum without usable values")
			m.Kind = ir.KindAlias
			m.AliasType = ir.TypeAny
			sc.record(m.AliasType)
		case isInt && !isString:
			m.Kind = ir.KindEnumInt
			m.EnumValues = values
		default:
			m.Kind = ir.KindEnumString
			m.EnumValues = values
		}
	default:
		m.Kind = ir.KindAlias
		m.AliasType = p.resolveValue(s, site, name, sc)
		sc.record(m.AliasType)
	}
	if s != nil && node.Ref == "" {
		m.Description = s.Description
	}
	delete(sc.models, name)
	m.ReferencedModels = sc.models.Sorted()
	m.ExternalImports = sc.imports.Sorted()
	m.Warnings = sc.warnings
	if err := p.models.Put(m); err != nil && p.err == nil {
		p.err = err
	}
	for _, w := range m.Warnings {
		p.log.Debug("model warning", "schema", name, "warning", w)
	}
}

// fields builds the ModelFields of an object schema in declaration order.
func (p *Parser) fields(model string, s *openapi3.Schema, site Site, sc *scope) []ir.ModelField {
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	props := spec.Keys(p.doc.Order, site.Pointer+"/properties", s.Properties)
	out := make([]ir.ModelField, 0, len(props))
	used := make(map[string]int, len(props))
	for _, prop := range props {
		node := s.Properties[prop]
		f := ir.ModelField{
			Type:     p.resolve(node, site.Child("properties", prop), model+naming.PascalCase(prop), sc),
			Required: required[prop],
		}
		f.Name, f.Alias = fieldName(prop, used)
		if node != nil && node.Ref == "" && node.Value != nil {
			v := node.Value
			f.Description = v.Description
			if v.Default != nil {
				lit := ir.Literal(v.Default)
				f.Default = &lit
			}
			if constrainable(f.Type) {
				f.Constraints = constraints(v)
			}
		}
		if !f.Required && f.Default == nil {
			f.Type = ir.Optional(f.Type)
			null := ir.NullLiteral
			f.Default = &null
		}
		sc.record(f.Type)
		out = append(out, f)
	}
	return out
}

// shadowed lists BaseModel attributes a field must not reuse.
var shadowed = map[string]struct{}{
	"copy": {}, "dict": {}, "json": {}, "schema": {}, "schema_json": {}, "validate": {},
	"construct": {}, "fields": {}, "parse_obj": {}, "parse_raw": {}, "parse_file": {},
	"from_orm": {}, "update_forward_refs": {}, "model_config": {}, "model_fields": {},
}

// fieldName returns a safe attribute name for prop and the alias carrying
// the wire name when the two differ.
func fieldName(prop string, used map[string]int) (string, string) {
	name := prop
	if !naming.IsIdentifier(name) || strings.HasPrefix(name, "_") {
		name = naming.Identifier(naming.SnakeCase(prop))
	}
	if _, clash := shadowed[name]; clash {
		name += "_"
	}
	base := name
	used[base]++
	if n := used[base]; n > 1 {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	if name == prop {
		return name, ""
	}
	return name, prop
}

func constrainable(t string) bool {
	inner := ir.Unwrap(t)
	return ir.IsScalar(inner) || ir.ListElem(inner) != ""
}

func constraints(s *openapi3.Schema) map[string]string {
	c := make(map[string]string)
	if s.MinLength > 0 {
		c[ir.ConstraintMinLength] = fmt.Sprint(s.MinLength)
	}
	if s.MaxLength != nil {
		c[ir.ConstraintMaxLength] = fmt.Sprint(*s.MaxLength)
	}
	if s.Min != nil {
		c[ir.ConstraintMinimum] = ir.FormatNumber(*s.Min)
	}
	if s.Max != nil {
		c[ir.ConstraintMaximum] = ir.FormatNumber(*s.Max)
	}
	if s.Pattern != "" {
		c[ir.ConstraintPattern] = s.Pattern
	}
	if len(c) == 0 {
		return nil
	}
	return c
}
