package schema

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/naming"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// Media type preferences for payloads and responses.
var (
	RequestMedia  = []string{"application/json", "multipart/form-data"}
	ResponseMedia = []string{"application/json", "application/octet-stream", "text/plain"}
)

// MethodHint is the prefix of every inline model named after an endpoint.
func MethodHint(methodName string) string { return naming.PascalCase(methodName) }

// ParamHint names inline parameter schemas, e.g. ListItems + sort. Enums
// get an Enum suffix on top.
func ParamHint(methodName, param string) string {
	return MethodHint(methodName) + naming.PascalCase(param)
}

// BodyHint names the inline request payload, or returns "" when role hints
// are disabled.
func (p *Parser) BodyHint(methodName string) string {
	if !p.roleHints {
		return ""
	}
	return MethodHint(methodName) + "Body"
}

// ResponseHint names an inline response schema. The success response is
// <Method>Response; others carry their status key.
func (p *Parser) ResponseHint(methodName, status string, success bool) string {
	if !p.roleHints {
		return ""
	}
	if success {
		return MethodHint(methodName) + "Response"
	}
	return MethodHint(methodName) + "Response" + naming.PascalCase(status)
}

// Traced reports whether a parameter location is carried by the generated
// clients.
func Traced(in string) bool {
	return in == openapi3.ParameterInPath || in == openapi3.ParameterInQuery
}

// ParamType resolves the schema of a path or query parameter.
func (p *Parser) ParamType(op spec.Operation, prm spec.Param, methodName string) Result {
	node, sub := paramSchema(prm.Value)
	site := Site{
		Key:     op.Pointer() + spec.Pointer("parameters", prm.Value.In, prm.Value.Name),
		Pointer: prm.Pointer,
	}
	return p.Resolve(node, site.Child(sub...), ParamHint(methodName, prm.Value.Name))
}

func paramSchema(prm *openapi3.Parameter) (*openapi3.SchemaRef, []string) {
	if prm.Schema != nil {
		return prm.Schema, []string{"schema"}
	}
	if media, ok := spec.PickMedia(prm.Content, "application/json"); ok && prm.Content[media] != nil {
		return prm.Content[media].Schema, []string{"content", media, "schema"}
	}
	return nil, []string{"schema"}
}

// BodyType resolves the request payload schema declared for media.
func (p *Parser) BodyType(op spec.Operation, media, methodName string) Result {
	return p.bodyType(op, media, p.BodyHint(methodName))
}

func (p *Parser) bodyType(op spec.Operation, media, hint string) Result {
	ref := op.Op.RequestBody
	body := p.doc.RequestBody(ref)
	if body == nil || body.Content[media] == nil || body.Content[media].Schema == nil {
		return Result{Type: ir.TypeAny}
	}
	site := Site{
		Key:     op.Pointer() + spec.Pointer("requestBody", "content", media, "schema"),
		Pointer: spec.ContentPointer(op.Pointer()+"/requestBody", ref.Ref) + spec.Pointer(media, "schema"),
	}
	return p.Resolve(body.Content[media].Schema, site, hint)
}

// ResponseType resolves the schema of response status declared for media.
func (p *Parser) ResponseType(op spec.Operation, status, media, methodName string) Result {
	success, _ := p.doc.SuccessStatus(op)
	return p.responseType(op, status, media, p.ResponseHint(methodName, status, status == success))
}

func (p *Parser) responseType(op spec.Operation, status, media, hint string) Result {
	ref := op.Op.Responses[status]
	resp := p.doc.Response(ref)
	if resp == nil || resp.Content[media] == nil || resp.Content[media].Schema == nil {
		return Result{Type: ir.TypeAny}
	}
	refStr := ""
	if ref != nil {
		refStr = ref.Ref
	}
	use := op.Pointer() + spec.Pointer("responses", status)
	site := Site{
		Key:     use + spec.Pointer("content", media, "schema"),
		Pointer: spec.ContentPointer(use, refStr) + spec.Pointer(media, "schema"),
	}
	return p.Resolve(resp.Content[media].Schema, site, hint)
}

// EndpointModels walks the parameters, request body and responses of op and
// returns the canonical names of every model they reference, plus warnings
// for recovered problems. Only the preferred media type of each body gets a
// name hint; the other media types contribute their refs.
func (p *Parser) EndpointModels(op spec.Operation, methodName string) ([]string, []string) {
	set := ir.ModelSet{}
	var warnings []string
	collect := func(r Result) {
		set.Add(r.Models...)
		warnings = appendUnique(warnings, r.Warnings...)
	}

	for _, prm := range p.doc.Parameters(op) {
		if Traced(prm.Value.In) {
			collect(p.ParamType(op, prm, methodName))
		}
	}

	if body := p.doc.RequestBody(op.Op.RequestBody); body != nil {
		preferred, _ := spec.PickMedia(body.Content, RequestMedia...)
		if preferred != "" {
			collect(p.BodyType(op, preferred, methodName))
		}
		for _, media := range sortedMedia(body.Content) {
			if media != preferred {
				collect(p.bodyType(op, media, ""))
			}
		}
	}

	for _, status := range p.doc.ResponseKeys(op) {
		resp := p.doc.Response(op.Op.Responses[status])
		if resp == nil {
			continue
		}
		preferred, _ := spec.PickMedia(resp.Content, ResponseMedia...)
		if preferred != "" {
			collect(p.ResponseType(op, status, preferred, methodName))
		}
		for _, media := range sortedMedia(resp.Content) {
			if media != preferred {
				collect(p.responseType(op, status, media, ""))
			}
		}
	}
	return set.Sorted(), warnings
}

func sortedMedia(content openapi3.Content) []string {
	out := make([]string, 0, len(content))
	for k := range content {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, have := range list {
			if have == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
