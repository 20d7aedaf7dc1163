package spec

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyOrder records the declaration order of every mapping in the source
// document, keyed by JSON pointer. The parsed openapi3 document stores paths,
// properties and responses in Go maps, so walkers consult it to iterate in
// the order the author wrote.
type KeyOrder struct {
	keys map[string][]string
}

// NewKeyOrder indexes raw JSON or YAML bytes. Unparseable input yields an
// empty index.
func NewKeyOrder(raw []byte) *KeyOrder {
	o := &KeyOrder{keys: make(map[string][]string)}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return o
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		o.index("", root.Content[0])
	}
	return o
}

func (o *KeyOrder) index(ptr string, n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode:
		names := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			names = append(names, key)
			o.index(ptr+"/"+escapePointer(key), n.Content[i+1])
		}
		o.keys[ptr] = names
	case yaml.SequenceNode:
		for i, item := range n.Content {
			o.index(ptr+"/"+strconv.Itoa(i), item)
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			o.index(ptr, n.Alias)
		}
	}
}

// alias copies every entry under from to the same suffix under to. Swagger 2
// definitions use it to answer for their converted components location.
func (o *KeyOrder) alias(from, to string) {
	copied := make(map[string][]string)
	for ptr, names := range o.keys {
		if ptr == from || strings.HasPrefix(ptr, from+"/") {
			copied[to+strings.TrimPrefix(ptr, from)] = names
		}
	}
	for ptr, names := range copied {
		o.keys[ptr] = names
	}
}

// Sort orders names by their declaration order under ptr. Names the index
// does not know follow in sorted order.
func (o *KeyOrder) Sort(ptr string, names []string) []string {
	out := make([]string, 0, len(names))
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	if o != nil {
		for _, declared := range o.keys[ptr] {
			if _, ok := want[declared]; ok {
				out = append(out, declared)
				delete(want, declared)
			}
		}
	}
	rest := make([]string, 0, len(want))
	for n := range want {
		rest = append(rest, n)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Keys returns the keys of m in declaration order under ptr.
func Keys[V any](o *KeyOrder, ptr string, m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	return o.Sort(ptr, names)
}

// Pointer builds an escaped JSON pointer from raw segments.
func Pointer(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(escapePointer(p))
	}
	return b.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(s string) string { return pointerEscaper.Replace(s) }
