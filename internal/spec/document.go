package spec

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document is the parsed OpenAPI document handed to the rest of the pipeline.
// It is read-only once built.
type Document struct {
	Doc   *openapi3.T
	Order *KeyOrder
	// Version is the major version of the source (2 or 3).
	Version  int
	Location string
	Warnings []string
}

// Title returns info.title.
func (d *Document) Title() string {
	if d.Doc == nil || d.Doc.Info == nil {
		return ""
	}
	return strings.TrimSpace(d.Doc.Info.Title)
}

// ServerURL returns servers[0].url, or "" when no server is declared.
func (d *Document) ServerURL() string {
	if d.Doc == nil || len(d.Doc.Servers) == 0 || d.Doc.Servers[0] == nil {
		return ""
	}
	return strings.TrimRight(d.Doc.Servers[0].URL, "/")
}

// SchemaNames returns components.schemas keys in declaration order.
func (d *Document) SchemaNames() []string {
	if d.Doc == nil || d.Doc.Components == nil {
		return nil
	}
	return Keys(d.Order, "/components/schemas", d.Doc.Components.Schemas)
}

// Schema returns the named component schema.
func (d *Document) Schema(name string) (*openapi3.SchemaRef, bool) {
	if d.Doc == nil || d.Doc.Components == nil {
		return nil, false
	}
	ref, ok := d.Doc.Components.Schemas[name]
	return ref, ok && ref != nil
}

// Paths returns the path keys in declaration order.
func (d *Document) Paths() []string {
	if d.Doc == nil {
		return nil
	}
	return Keys(d.Order, "/paths", d.Doc.Paths)
}

// Parameter returns the parameter behind ref, following component refs the
// loader left unresolved.
func (d *Document) Parameter(ref *openapi3.ParameterRef) *openapi3.Parameter {
	if ref == nil {
		return nil
	}
	if ref.Value != nil {
		return ref.Value
	}
	if d.Doc == nil || d.Doc.Components == nil {
		return nil
	}
	if target, ok := d.Doc.Components.Parameters[RefName(ref.Ref)]; ok && target != nil {
		return target.Value
	}
	return nil
}

// RequestBody returns the request body behind ref.
func (d *Document) RequestBody(ref *openapi3.RequestBodyRef) *openapi3.RequestBody {
	if ref == nil {
		return nil
	}
	if ref.Value != nil {
		return ref.Value
	}
	if d.Doc == nil || d.Doc.Components == nil {
		return nil
	}
	if target, ok := d.Doc.Components.RequestBodies[RefName(ref.Ref)]; ok && target != nil {
		return target.Value
	}
	return nil
}

// Response returns the response behind ref.
func (d *Document) Response(ref *openapi3.ResponseRef) *openapi3.Response {
	if ref == nil {
		return nil
	}
	if ref.Value != nil {
		return ref.Value
	}
	if d.Doc == nil || d.Doc.Components == nil {
		return nil
	}
	if target, ok := d.Doc.Components.Responses[RefName(ref.Ref)]; ok && target != nil {
		return target.Value
	}
	return nil
}

// RefName returns the last segment of a $ref, unescaped.
func RefName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(ref)
}

// Operations lists the operations using one of methods, paths and methods
// in declaration order.
func (d *Document) Operations(methods []string) []Operation {
	var out []Operation
	for _, p := range d.Paths() {
		item := d.Doc.Paths[p]
		if item == nil {
			continue
		}
		present := make([]string, 0, len(methods))
		for _, m := range methods {
			if item.GetOperation(strings.ToUpper(m)) != nil {
				present = append(present, strings.ToLower(m))
			}
		}
		for _, m := range d.Order.Sort(Pointer("paths", p), present) {
			method := strings.ToUpper(m)
			out = append(out, Operation{Path: p, Method: method, Item: item, Op: item.GetOperation(method)})
		}
	}
	return out
}
