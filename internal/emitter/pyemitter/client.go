package pyemitter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2client/internal/ir"
)

type clientFile struct {
	Header       string
	Class        string
	RuntimeClass string
	Methods      []methodView
}

type methodView struct {
	Decorator string
	Name      string
	Args      []string
	Return    string
	Doc       string
	URL       string
	Query     []queryItem
	Verb      string
	Payload   string
	Decode    string
}

type queryItem struct {
	Key string
	Var string
}

// tagGroup is one sub-client: the endpoints sharing a tag directory.
type tagGroup struct {
	Dir       string
	Class     string
	Endpoints []ir.EndpointIR
	Slice     []string
}

// clientRenderer renders the client of one tag group.
type clientRenderer struct {
	opts      Options
	serverURL string
	models    *ir.Registry
	known     ir.ModelSet
	tokens    ir.ModelSet
	used      ir.ModelSet
}

func (e *emitter) renderClient(g tagGroup) clientFile {
	r := &clientRenderer{
		opts:      e.opts,
		serverURL: e.svc.ServerURL,
		models:    e.svc.Models,
		known:     ir.ModelSet{},
		tokens:    ir.ModelSet{"Any": {}, "Dict": {}, "Optional": {}, "HTTPStatus": {}},
		used:      ir.ModelSet{},
	}
	r.known.Add(g.Slice...)
	file := clientFile{Class: g.Class, RuntimeClass: e.opts.RuntimeClass}
	for _, ep := range g.Endpoints {
		file.Methods = append(file.Methods, r.method(ep))
	}

	var third []string
	if mod := decoratorModule(e.opts.StepDecorator); mod != "" {
		third = append(third, "import "+mod)
	}
	third = append(third, runtimeImports(e.opts, decoratorName(e.opts.StepDecorator))...)
	var local string
	if names := r.used.Sorted(); len(names) > 0 {
		local = "from .models import " + strings.Join(names, ", ")
	}
	file.Header = joinBlocks(importBlock(r.tokens), strings.Join(third, "\n"), local)
	return file
}

func (r *clientRenderer) typ(t string) string {
	rendered := typeRenderer{known: r.known}.render(t)
	r.used.Add(ir.ModelNames(rendered)...)
	return record(r.tokens, rendered)
}

func (r *clientRenderer) method(ep ir.EndpointIR) methodView {
	m := methodView{
		Name: ep.MethodName,
		Verb: strings.ToLower(string(ep.HTTPMethod)),
		URL:  r.url(ep),
	}
	if deco := r.opts.StepDecorator; deco != "" {
		title := ep.Summary
		if title == "" {
			title = string(ep.HTTPMethod) + " " + ep.Path
		}
		m.Decorator = "@" + deco + "(" + quoteLine(title) + ")"
	}
	m.Doc = docstring(joinBlocks(ep.Summary, ep.Description), "        ")

	var optional []string
	for _, p := range ep.PathParams {
		m.Args = append(m.Args, p.PyName+": "+r.typ(p.Type))
	}
	for _, p := range ep.QueryParams {
		m.Query = append(m.Query, queryItem{Key: ir.QuoteString(p.Name), Var: p.PyName})
		if p.Required {
			m.Args = append(m.Args, p.PyName+": "+r.typ(p.Type))
			continue
		}
		optional = append(optional, p.PyName+": "+r.typ(ir.Optional(p.Type))+" = None")
	}

	switch {
	case ep.HasPayload() && ep.PayloadRequired:
		pt := r.typ(ep.PayloadType)
		m.Args = append(m.Args, "payload: "+pt)
		m.Payload = r.dump(pt, false)
	case ep.HasPayload():
		pt := r.typ(ep.PayloadType)
		optional = append(optional, "payload: "+r.typ(ir.Optional(pt))+" = None")
		m.Payload = r.dump(pt, true)
	case ep.HTTPMethod.HasBody():
		optional = append(optional, "payload: Optional["+ir.TypeFreeForm+"] = None")
		m.Payload = "payload"
	}

	m.Args = append(m.Args, optional...)
	m.Args = append(m.Args,
		"params: Optional["+ir.TypeFreeForm+"] = None",
		"headers: Optional[Dict[str, str]] = None",
		"expected_status: HTTPStatus = HTTPStatus."+ep.SuccessStatus,
	)

	ret := r.typ(ep.ReturnType)
	m.Return = ret
	m.Decode = r.decode(ret, ep.SuccessStatus)
	return m
}

// url renders the request URL expression, prefixed with the server URL.
func (r *clientRenderer) url(ep ir.EndpointIR) string {
	path := r.serverURL + ep.Path
	if len(ep.PathParams) == 0 {
		return ir.QuoteString(path)
	}
	pairs := make([]string, 0, 2*len(ep.PathParams))
	for _, p := range ep.PathParams {
		pairs = append(pairs, "{"+p.Name+"}", "{"+p.PyName+"}")
	}
	return "f" + ir.QuoteString(strings.NewReplacer(pairs...).Replace(path))
}

// kind returns the model kind of name when it is emitted with this client.
func (r *clientRenderer) kind(name string) (ir.ModelKind, bool) {
	if !r.known.Has(name) {
		return "", false
	}
	m, ok := r.models.Get(name)
	return m.Kind, ok
}

// dump renders the payload expression handed to the runtime client.
func (r *clientRenderer) dump(t string, optional bool) string {
	var expr string
	if kind, ok := r.kind(t); ok && kind == ir.KindObject {
		expr = "payload.model_dump(by_alias=True, exclude_none=True)"
	} else if elem := ir.ListElem(t); elem != "" {
		if kind, ok := r.kind(elem); ok && kind == ir.KindObject {
			expr = "[x.model_dump(by_alias=True, exclude_none=True) for x in payload]"
		}
	}
	if expr == "" {
		return "payload"
	}
	if optional {
		expr += " if payload is not None else None"
	}
	return expr
}

// decode renders the return expression. Typed construction only happens
// when the caller expects the success status; otherwise raw passes through.
func (r *clientRenderer) decode(t, status string) string {
	gate := " if expected_status == HTTPStatus." + status + " else raw"
	if ir.IsScalar(t) {
		return t + "(raw)" + gate
	}
	if kind, ok := r.kind(t); ok {
		switch kind {
		case ir.KindObject:
			return t + "(**raw)" + gate
		case ir.KindEnumString, ir.KindEnumInt:
			return t + "(raw)" + gate
		}
		return "raw"
	}
	if elem := ir.ListElem(t); elem != "" {
		if ir.IsScalar(elem) {
			return "[" + elem + "(x) for x in raw]" + gate
		}
		if kind, ok := r.kind(elem); ok {
			switch kind {
			case ir.KindObject:
				return "[" + elem + "(**x) for x in raw]" + gate
			case ir.KindEnumString, ir.KindEnumInt:
				return "[" + elem + "(x) for x in raw]" + gate
			}
		}
	}
	return "raw"
}

// runtimeImports returns the import of the runtime client class, plus the
// step decorator when it lives in the runtime module.
func runtimeImports(opts Options, localDecorator string) []string {
	names := []string{opts.RuntimeClass}
	if localDecorator != "" && localDecorator != opts.RuntimeClass {
		names = append(names, localDecorator)
		sort.Strings(names)
	}
	return []string{"from " + opts.RuntimeModule + " import " + strings.Join(names, ", ")}
}

// decoratorModule returns the module to import for a dotted decorator such
// as allure.step.
func decoratorModule(deco string) string {
	if i := strings.Index(deco, "."); i > 0 {
		return deco[:i]
	}
	return ""
}

// decoratorName returns an undotted decorator, which is imported from the
// runtime module.
func decoratorName(deco string) string {
	if deco == "" || strings.Contains(deco, ".") {
		return ""
	}
	return deco
}

func quoteLine(s string) string {
	return ir.QuoteString(strings.Join(strings.Fields(s), " "))
}

// groupEndpoints partitions eps by tag directory, sorted by directory. The
// class of a group comes from the first tag seen for it.
func groupEndpoints(eps []ir.EndpointIR, classOf func(tag string) string) []tagGroup {
	index := make(map[string]int)
	var groups []tagGroup
	for _, ep := range eps {
		at, ok := index[ep.TagDir]
		if !ok {
			at = len(groups)
			index[ep.TagDir] = at
			groups = append(groups, tagGroup{Dir: ep.TagDir, Class: classOf(ep.Tag)})
		}
		groups[at].Endpoints = append(groups[at].Endpoints, ep)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Dir < groups[j].Dir })
	used := make(map[string]int)
	for i := range groups {
		base := groups[i].Class
		used[base]++
		if n := used[base]; n > 1 {
			groups[i].Class = base + strconv.Itoa(n)
		}
	}
	return groups
}
