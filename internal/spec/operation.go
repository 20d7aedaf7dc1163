package spec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation is one (path, method) pair of the document.
type Operation struct {
	Path   string
	Method string // upper-case
	Item   *openapi3.PathItem
	Op     *openapi3.Operation
}

// Pointer returns the JSON pointer of the operation.
func (o Operation) Pointer() string {
	return Pointer("paths", o.Path, strings.ToLower(o.Method))
}

// Param is a parameter in effect for an operation together with the pointer
// of its declaration.
type Param struct {
	Value   *openapi3.Parameter
	Pointer string
}

// Parameters merges path-level and operation-level parameters. An operation
// parameter replaces the path-level one with the same in and name, keeping
// its position; new ones are appended in declaration order.
func (d *Document) Parameters(op Operation) []Param {
	var out []Param
	index := make(map[string]int)
	add := func(refs openapi3.Parameters, base string) {
		for i, ref := range refs {
			p := d.Parameter(ref)
			if p == nil || strings.TrimSpace(p.Name) == "" {
				continue
			}
			ptr := base + "/" + strconv.Itoa(i)
			if ref.Ref != "" && strings.HasPrefix(ref.Ref, "#/") {
				ptr = strings.TrimPrefix(ref.Ref, "#")
			}
			key := strings.ToLower(p.In) + ":" + p.Name
			if at, ok := index[key]; ok {
				out[at] = Param{Value: p, Pointer: ptr}
				continue
			}
			index[key] = len(out)
			out = append(out, Param{Value: p, Pointer: ptr})
		}
	}
	if op.Item != nil {
		add(op.Item.Parameters, Pointer("paths", op.Path, "parameters"))
	}
	if op.Op != nil {
		add(op.Op.Parameters, op.Pointer()+"/parameters")
	}
	return out
}

// ContentPointer returns the pointer of the content map of a request body or
// response, following a component ref when the value is declared elsewhere.
func ContentPointer(usePointer, ref string) string {
	if ref != "" && strings.HasPrefix(ref, "#/") {
		return strings.TrimPrefix(ref, "#") + "/content"
	}
	return usePointer + "/content"
}

// SuccessStatus returns the first response key starting with "2", in
// declaration order.
func (d *Document) SuccessStatus(op Operation) (string, bool) {
	if op.Op == nil {
		return "", false
	}
	for _, status := range d.ResponseKeys(op) {
		if strings.HasPrefix(status, "2") {
			return status, true
		}
	}
	return "", false
}

// ResponseKeys returns the response status keys in declaration order.
func (d *Document) ResponseKeys(op Operation) []string {
	if op.Op == nil {
		return nil
	}
	return Keys(d.Order, op.Pointer()+"/responses", op.Op.Responses)
}

// PickMedia returns the first media type of prefs present in content.
// Entries carrying parameters ("application/json; charset=utf-8") match
// their bare type.
func PickMedia(content openapi3.Content, prefs ...string) (string, bool) {
	if len(content) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, pref := range prefs {
		if _, ok := content[pref]; ok {
			return pref, true
		}
		for _, k := range keys {
			bare, _, _ := strings.Cut(k, ";")
			if strings.EqualFold(strings.TrimSpace(bare), pref) {
				return k, true
			}
		}
	}
	return "", false
}

// ComponentSchemaName returns the schema name of a local
// "#/components/schemas/<name>" (or Swagger 2 "#/definitions/<name>") ref.
func ComponentSchemaName(ref string) (string, bool) {
	for _, prefix := range []string{"#/components/schemas/", "#/definitions/"} {
		if rest, ok := strings.CutPrefix(ref, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return RefName(rest), true
		}
	}
	return "", false
}
