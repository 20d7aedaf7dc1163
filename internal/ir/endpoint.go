package ir

// HTTPMethod is an upper-case HTTP verb supported by the generated clients.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// SupportedMethods lists the verbs in the order operations are visited on a
// path item.
var SupportedMethods = []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// HasBody reports whether the runtime client accepts a payload for m.
func (m HTTPMethod) HasBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// ParamLocation is where a parameter travels.
type ParamLocation string

const (
	LocationPath  ParamLocation = "path"
	LocationQuery ParamLocation = "query"
)

// Parameter is a path or query parameter of an endpoint.
type Parameter struct {
	// Name is the wire name.
	Name string
	// PyName is the emitted argument name.
	PyName      string
	Type        string
	Required    bool
	Location    ParamLocation
	Description string
}

// EndpointIR describes one operation.
type EndpointIR struct {
	Tag        string
	TagDir     string
	MethodName string
	HTTPMethod HTTPMethod
	Path       string

	PathParams  []Parameter
	QueryParams []Parameter

	PayloadType     string
	PayloadRequired bool
	PayloadMedia    string

	SuccessStatus string
	ReturnType    string

	Summary     string
	Description string

	// Models is the endpoint's model slice before closure.
	Models   []string
	Warnings []string
}

// HasPayload reports whether a typed payload was declared.
func (e EndpointIR) HasPayload() bool { return e.PayloadType != "" }

// TypeNames returns every canonical name used by the endpoint's types.
func (e EndpointIR) TypeNames() []string {
	set := ModelSet{}
	set.Add(ModelNames(e.ReturnType)...)
	set.Add(ModelNames(e.PayloadType)...)
	for _, p := range e.PathParams {
		set.Add(ModelNames(p.Type)...)
	}
	for _, p := range e.QueryParams {
		set.Add(ModelNames(p.Type)...)
	}
	return set.Sorted()
}
