package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

var v2Methods = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "delete": {}, "patch": {}, "options": {}, "head": {},
}

// preprocessV2ForCompatibility rewrites Swagger 2 operations openapi2conv
// cannot convert:
//   - several body parameters are merged into one object-typed body whose
//     properties are the original parameters;
//   - body parameters mixed with formData are turned into formData and the
//     operation consumes multipart/form-data.
//
// On error the original bytes are returned with modified=false.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}
	modified := false
	for _, pim := range paths {
		item, ok := pim.(map[string]any)
		if !ok {
			continue
		}
		for method, opm := range item {
			if _, ok := v2Methods[strings.ToLower(method)]; !ok {
				continue
			}
			op, ok := opm.(map[string]any)
			if !ok {
				continue
			}
			if fixV2Operation(op) {
				modified = true
			}
		}
	}
	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func fixV2Operation(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}
	bodyCount := 0
	hasFormData := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch {
		case pm == nil:
		case strings.EqualFold(asString(pm["in"]), "body"):
			bodyCount++
		case strings.EqualFold(asString(pm["in"]), "formData"):
			hasFormData = true
		}
	}
	switch {
	case bodyCount == 0:
		return false
	case hasFormData:
		bodyToFormData(op, params)
		return true
	case bodyCount > 1:
		mergeBodyParams(op, params)
		return true
	}
	return false
}

func bodyToFormData(op map[string]any, params []any) {
	out := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		if strings.EqualFold(asString(pm["in"]), "body") {
			out = append(out, formDataFromBodyParam(pm))
			continue
		}
		out = append(out, pm)
	}
	op["parameters"] = out
	consumes, _ := op["consumes"].([]any)
	if !containsString(consumes, "multipart/form-data") {
		op["consumes"] = append(consumes, "multipart/form-data")
	}
}

func mergeBodyParams(op map[string]any, params []any) {
	props := map[string]any{}
	required := make([]any, 0)
	rest := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil || !strings.EqualFold(asString(pm["in"]), "body") {
			rest = append(rest, p)
			continue
		}
		name := asString(pm["name"])
		if name == "" {
			name = "field"
		}
		schema := extractSchemaFromParam(pm)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if rb, _ := pm["required"].(bool); rb {
			required = append(required, name)
		}
	}
	body := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		body["required"] = required
	}
	merged := map[string]any{"in": "body", "name": "body", "schema": body}
	op["parameters"] = append([]any{merged}, rest...)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func extractSchemaFromParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t, _ := pm["type"].(string)
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f, ok := pm["format"].(string); ok && f != "" {
		m["format"] = f
	}
	return m
}

func formDataFromBodyParam(pm map[string]any) map[string]any {
	name := asString(pm["name"])
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": "formData", "name": name}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}
	var (
		typ, format string
		items       any
	)
	if sch, ok := pm["schema"].(map[string]any); ok {
		typ = asString(sch["type"])
		format = asString(sch["format"])
		if it, ok := sch["items"].(map[string]any); ok {
			items = it
		}
		if typ == "" && sch["$ref"] != nil {
			// formData cannot carry a referenced object.
			typ = "string"
		}
	}
	if typ == "" {
		typ = asString(pm["type"])
		format = asString(pm["format"])
		if it, ok := pm["items"].(map[string]any); ok {
			items = it
		}
	}
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}
