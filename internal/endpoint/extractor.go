// Package endpoint builds the Endpoint IR: one entry per supported
// (path, method) pair, with parameters, payload and return types resolved
// against the schema parser.
package endpoint

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/naming"
	"github.com/mark3labs/swagger2client/internal/schema"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// DefaultTag groups operations that declare no tags.
const DefaultTag = "default"

// reservedDirs are tag directory names that would shadow files emitted next
// to the sub-client packages.
var reservedDirs = map[string]string{
	"facade": "facade_api",
}

// reservedArgs are argument names taken by the emitted method signature.
var reservedArgs = map[string]struct{}{
	"self": {}, "payload": {}, "params": {}, "headers": {}, "expected_status": {},
}

var templateVarRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// OperationError reports an operation that could not be turned into an
// endpoint. The operation is skipped.
type OperationError struct {
	Path   string
	Method string
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Reason)
}

// Option configures an Extractor.
type Option func(*config)

type config struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	log         *slog.Logger
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) Option {
	return func(c *config) { c.includeTags = tagSet(c.includeTags, tags) }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) Option {
	return func(c *config) { c.excludeTags = tagSet(c.excludeTags, tags) }
}

// WithLogger sets the logger used for skipped operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = logging.OrDiscard(l) }
}

func tagSet(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// Extractor walks the operations of a document.
type Extractor struct {
	doc    *spec.Document
	parser *schema.Parser
	cfg    config

	methods map[string]map[string]struct{}
}

// NewExtractor returns an extractor resolving types through parser.
func NewExtractor(doc *spec.Document, parser *schema.Parser, opts ...Option) *Extractor {
	x := &Extractor{
		doc:     doc,
		parser:  parser,
		cfg:     config{log: logging.Discard()},
		methods: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&x.cfg)
	}
	return x
}

// Extract returns the endpoints in declaration order together with the
// operations that had to be skipped.
func (x *Extractor) Extract() ([]ir.EndpointIR, []*OperationError) {
	methods := make([]string, len(ir.SupportedMethods))
	for i, m := range ir.SupportedMethods {
		methods[i] = string(m)
	}
	var (
		out     []ir.EndpointIR
		skipped []*OperationError
	)
	for _, op := range x.doc.Operations(methods) {
		tags := trimmedTags(op.Op.Tags)
		if !x.allowByTags(tags) {
			continue
		}
		ep, err := x.build(op, tags)
		if err != nil {
			x.cfg.log.Warn("operation skipped", "path", op.Path, "method", op.Method, "error", err.Reason)
			skipped = append(skipped, err)
			continue
		}
		out = append(out, ep)
	}
	return out, skipped
}

func (x *Extractor) allowByTags(tags []string) bool {
	if len(x.cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := x.cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := x.cfg.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

func trimmedTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (x *Extractor) build(op spec.Operation, tags []string) (ir.EndpointIR, *OperationError) {
	fail := func(format string, args ...any) *OperationError {
		return &OperationError{Path: op.Path, Method: op.Method, Reason: fmt.Sprintf(format, args...)}
	}
	if !strings.HasPrefix(op.Path, "/") {
		return ir.EndpointIR{}, fail("path does not begin with /")
	}
	if strings.Count(op.Path, "{") != strings.Count(op.Path, "}") {
		return ir.EndpointIR{}, fail("unbalanced path template")
	}

	ep := ir.EndpointIR{
		Tag:         DefaultTag,
		HTTPMethod:  ir.HTTPMethod(op.Method),
		Path:        op.Path,
		Summary:     strings.TrimSpace(op.Op.Summary),
		Description: strings.TrimSpace(op.Op.Description),
	}
	if len(tags) > 0 {
		ep.Tag = tags[0]
	}
	ep.TagDir = TagDir(ep.Tag)
	ep.MethodName = x.uniqueMethod(ep.TagDir, MethodName(op))

	// Naming every inline model first keeps the names independent of the
	// order the types below are asked for.
	ep.Models, ep.Warnings = x.parser.EndpointModels(op, ep.MethodName)

	x.params(op, &ep)
	x.payload(op, &ep)
	x.response(op, &ep)
	return ep, nil
}

// TagDir normalises a tag into the sub-client directory name.
func TagDir(tag string) string {
	dir := naming.DirNameFromTag(tag)
	if alt, ok := reservedDirs[dir]; ok {
		return alt
	}
	return dir
}

// MethodName derives the method name of op before collision resolution.
func MethodName(op spec.Operation) string {
	for _, candidate := range []string{op.Op.OperationID, op.Op.Summary} {
		if name := naming.SnakeCase(candidate); name != "" {
			return naming.Identifier(name)
		}
	}
	name := strings.ToLower(op.Method)
	if slug := naming.SlugifyPath(op.Path); slug != "" {
		name += "_" + slug
	}
	return name
}

func (x *Extractor) uniqueMethod(dir, name string) string {
	used, ok := x.methods[dir]
	if !ok {
		used = make(map[string]struct{})
		x.methods[dir] = used
	}
	candidate := name
	for i := 2; ; i++ {
		if _, taken := used[candidate]; !taken {
			break
		}
		candidate = name + "_" + strconv.Itoa(i)
	}
	used[candidate] = struct{}{}
	return candidate
}

func (x *Extractor) params(op spec.Operation, ep *ir.EndpointIR) {
	declared := make(map[string]spec.Param)
	pyNames := make(map[string]int)
	pyName := func(name string) string {
		base := naming.Identifier(naming.SnakeCase(name))
		if _, clash := reservedArgs[base]; clash {
			base += "_"
		}
		pyNames[base]++
		if n := pyNames[base]; n > 1 {
			return base + "_" + strconv.Itoa(n)
		}
		return base
	}

	var paths, queries []spec.Param
	for _, prm := range x.doc.Parameters(op) {
		switch prm.Value.In {
		case openapi3.ParameterInPath:
			declared[prm.Value.Name] = prm
			paths = append(paths, prm)
		case openapi3.ParameterInQuery:
			queries = append(queries, prm)
		}
	}

	seen := make(map[string]struct{})
	for _, name := range PathVariables(op.Path) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		p := ir.Parameter{
			Name:     name,
			PyName:   pyName(name),
			Type:     ir.TypeStr,
			Required: true,
			Location: ir.LocationPath,
		}
		if prm, ok := declared[name]; ok {
			p.Type = x.parser.ParamType(op, prm, ep.MethodName).Type
			p.Description = strings.TrimSpace(prm.Value.Description)
		} else {
			ep.Warnings = append(ep.Warnings, "path variable "+name+" is not declared; typed as str")
		}
		ep.PathParams = append(ep.PathParams, p)
	}
	for _, prm := range paths {
		if _, ok := seen[prm.Value.Name]; !ok {
			ep.Warnings = append(ep.Warnings, "path parameter "+prm.Value.Name+" does not appear in the path; ignored")
		}
	}

	for _, prm := range queries {
		ep.QueryParams = append(ep.QueryParams, ir.Parameter{
			Name:        prm.Value.Name,
			PyName:      pyName(prm.Value.Name),
			Type:        x.parser.ParamType(op, prm, ep.MethodName).Type,
			Required:    prm.Value.Required,
			Location:    ir.LocationQuery,
			Description: strings.TrimSpace(prm.Value.Description),
		})
	}
}

// PathVariables returns the template variables of path in order.
func PathVariables(path string) []string {
	var out []string
	for _, m := range templateVarRe.FindAllStringSubmatch(path, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func (x *Extractor) payload(op spec.Operation, ep *ir.EndpointIR) {
	body := x.doc.RequestBody(op.Op.RequestBody)
	if body == nil {
		return
	}
	media, ok := spec.PickMedia(body.Content, schema.RequestMedia...)
	if !ok {
		ep.Warnings = append(ep.Warnings, "request body has no supported media type; payload omitted")
		return
	}
	ep.PayloadType = x.parser.BodyType(op, media, ep.MethodName).Type
	ep.PayloadMedia = media
	ep.PayloadRequired = body.Required
}

func (x *Extractor) response(op spec.Operation, ep *ir.EndpointIR) {
	ep.SuccessStatus = "OK"
	ep.ReturnType = ir.TypeAny
	status, ok := x.doc.SuccessStatus(op)
	if !ok {
		return
	}
	ep.SuccessStatus = StatusName(status)
	resp := x.doc.Response(op.Op.Responses[status])
	if resp == nil {
		return
	}
	media, ok := spec.PickMedia(resp.Content, schema.ResponseMedia...)
	if !ok {
		return
	}
	bare, _, _ := strings.Cut(media, ";")
	switch strings.ToLower(strings.TrimSpace(bare)) {
	case "application/json":
		ep.ReturnType = x.parser.ResponseType(op, status, media, ep.MethodName).Type
	case "application/octet-stream":
		ep.ReturnType = ir.TypeBytes
	case "text/plain":
		ep.ReturnType = ir.TypeStr
	}
}

var statusReplacer = strings.NewReplacer(" ", "_", "-", "_")

// StatusName returns the named form of a response status key, e.g. 201 →
// CREATED. Ranges and unknown codes fall back to OK.
func StatusName(status string) string {
	code, err := strconv.Atoi(status)
	if err != nil {
		return "OK"
	}
	text := http.StatusText(code)
	if text == "" {
		return "OK"
	}
	return strings.ToUpper(statusReplacer.Replace(text))
}
