package spec

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestV2Compat_MultipleBodyMerged(t *testing.T) {
	t.Parallel()
	in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /x:
    post:
      parameters:
      - in: body
        name: a
        required: true
        schema: { type: string }
      - in: body
        name: b
        schema: { type: integer }
      - in: query
        name: dry
        type: boolean
      responses: { '200': { description: ok } }
`)
	out, changed, err := preprocessV2ForCompatibility(in)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if !changed {
		t.Fatalf("expected changes")
	}
	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []map[string]any `yaml:"parameters"`
		} `yaml:"paths"`
	}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	params := doc.Paths["/x"]["post"].Parameters
	if len(params) != 2 {
		t.Fatalf("expected merged body plus query, got %d params:\n%s", len(params), out)
	}
	if params[0]["in"] != "body" || params[0]["name"] != "body" {
		t.Fatalf("first parameter is not the merged body: %v", params[0])
	}
	schema, _ := params[0]["schema"].(map[string]any)
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "a" {
		t.Fatalf("required = %v, want [a]", required)
	}
}

func TestV2Compat_BodyAndFormData_ToFormData(t *testing.T) {
	t.Parallel()
	in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /upload:
    post:
      parameters:
      - in: body
        name: desc
        schema: { type: string }
      - in: formData
        name: file
        type: file
        required: true
      responses: { '200': { description: ok } }
`)
	out, changed, err := preprocessV2ForCompatibility(in)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if !changed {
		t.Fatalf("expected changes")
	}
	s := string(out)
	if strings.Contains(s, "in: body") {
		t.Fatalf("expected no body params after conversion to formData, got:\n%s", s)
	}
	if !strings.Contains(s, "multipart/form-data") {
		t.Fatalf("expected consumes multipart/form-data, got:\n%s", s)
	}
}

func TestV2Compat_LeavesValidOperationsAlone(t *testing.T) {
	t.Parallel()
	in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /x:
    post:
      parameters:
      - in: body
        name: a
        schema: { type: string }
      responses: { '200': { description: ok } }
`)
	out, changed, err := preprocessV2ForCompatibility(in)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if changed || string(out) != string(in) {
		t.Fatalf("expected input unchanged")
	}
}
