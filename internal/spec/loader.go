package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
	ShapeError      ErrorCode = "ShapeError"
)

var (
	// ErrSpecLoad matches every SpecError caused by an unreachable, unreadable
	// or unparseable source.
	ErrSpecLoad = errors.New("spec load failed")
	// ErrSpecShape matches SpecErrors for documents missing required
	// top-level fields.
	ErrSpecShape = errors.New("spec shape invalid")
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Is maps codes onto ErrSpecLoad and ErrSpecShape.
func (e *SpecError) Is(target error) bool {
	switch target {
	case ErrSpecShape:
		return e.Code == ShapeError
	case ErrSpecLoad:
		return e.Code != ShapeError
	}
	return false
}

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs controls whether file refs are followed for remote roots.
	// Local roots always allow them.
	AllowFileRefs bool
	// CachePath receives a copy of the fetched document. Empty disables it.
	CachePath string
	// StrictValidation turns validation findings into errors instead of
	// document warnings.
	StrictValidation bool
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option     { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithCachePath(path string) Option        { return func(s *Settings) { s.CachePath = path } }
func WithStrictValidation(strict bool) Option { return func(s *Settings) { s.StrictValidation = strict } }

// Load fetches source, stores the cache copy and parses it into a Document.
// Swagger 2.0 input is converted to OpenAPI 3 via openapi2conv.
func Load(ctx context.Context, source string, opts ...Option) (*Document, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	src, err := Fetch(ctx, source, settings)
	if err != nil {
		return nil, err
	}
	return parse(ctx, src, settings)
}

// Parse builds a Document from raw JSON or YAML bytes.
func Parse(ctx context.Context, raw []byte, location string, opts ...Option) (*Document, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return parse(ctx, Source{Raw: raw, Location: location, Local: true}, settings)
}

func parse(ctx context.Context, src Source, settings Settings) (*Document, error) {
	version, err := detectSpecVersion(src.Raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.Location, Cause: err}
	}

	d := &Document{Version: version, Location: src.Location, Order: NewKeyOrder(src.Raw)}
	switch version {
	case 3:
		doc, warning, err := loadV3(src, settings)
		if err != nil {
			return nil, err
		}
		d.Doc = doc
		if warning != "" {
			d.Warnings = append(d.Warnings, warning)
		}
	case 2:
		raw := src.Raw
		// Preprocess incompatible v2 constructs to improve conversion success.
		if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
			raw = fixed
		}
		doc, err := convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2 to v3: %v", err), Location: src.Location, Cause: err}
		}
		if err := newLoader(settings, src.Local).ResolveRefsIn(doc, nil); err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("resolve refs after conversion: %v", err))
		}
		d.Doc = doc
		d.Order.alias("/definitions", "/components/schemas")
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: src.Location}
	}

	if err := checkShape(d.Doc, src.Location); err != nil {
		return nil, err
	}
	if err := d.Doc.Validate(ctx); err != nil {
		if settings.StrictValidation && !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, src.Location)
		}
		d.Warnings = append(d.Warnings, fmt.Sprintf("validation: %v", err))
	}
	return d, nil
}

// loadV3 resolves refs with the kin-openapi loader. Documents the loader
// rejects (typically for dangling refs) are decoded without ref resolution.
func loadV3(src Source, settings Settings) (*openapi3.T, string, error) {
	loader := newLoader(settings, src.Local)
	var (
		doc *openapi3.T
		err error
	)
	if loc := locationURL(src); loc != nil {
		doc, err = loader.LoadFromDataWithPath(src.Raw, loc)
	} else {
		doc, err = loader.LoadFromData(src.Raw)
	}
	if err == nil {
		return doc, "", nil
	}
	data, jerr := toJSON(src.Raw)
	if jerr != nil {
		return nil, "", mapValidateOrParseErr(err, src.Location)
	}
	var raw openapi3.T
	if uerr := json.Unmarshal(data, &raw); uerr != nil {
		return nil, "", mapValidateOrParseErr(err, src.Location)
	}
	return &raw, fmt.Sprintf("refs left unresolved: %v", err), nil
}

func locationURL(src Source) *url.URL {
	if src.Location == "" {
		return nil
	}
	if src.Local {
		return &url.URL{Path: src.Location}
	}
	u, err := url.Parse(src.Location)
	if err != nil {
		return nil
	}
	return u
}

func checkShape(doc *openapi3.T, location string) error {
	if doc.Info == nil || strings.TrimSpace(doc.Info.Title) == "" {
		return &SpecError{Code: ShapeError, Message: "spec: info.title is missing", Location: location, JSONPointer: "#/info/title"}
	}
	if doc.Paths == nil {
		return &SpecError{Code: ShapeError, Message: "spec: paths is missing", Location: location, JSONPointer: "#/paths"}
	}
	return nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	// Allow file refs only when configured or when loading from a local file root.
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	js, err := toJSON(data)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(js, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

// toJSON re-encodes JSON or YAML bytes as JSON. Mapping keys are kept as
// strings, so unquoted YAML status codes survive.
func toJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty document")
	}
	v, err := nodeValue(root.Content[0])
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Heuristics: some loader errors are parse errors.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") || strings.Contains(lower, "unmarshal") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors that the
// generator tolerates even in strict mode (unresolved $ref entries are
// downgraded to Any by the schema resolver).
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
