package ir

import (
	"sort"
	"strings"
)

// Type string vocabulary.
const (
	TypeStr      = "str"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBool     = "bool"
	TypeAny      = "Any"
	TypeBytes    = "bytes"
	TypeFreeForm = "Dict[str, Any]"

	headList     = "List"
	headDict     = "Dict"
	headOptional = "Optional"
	headUnion    = "Union"
)

// FormatTypes maps known schema formats to their type token.
var FormatTypes = map[string]string{
	"date":      "date",
	"date-time": "datetime",
	"uuid":      "UUID",
	"email":     "EmailStr",
	"uri":       "AnyUrl",
	"binary":    TypeBytes,
}

var builtins = map[string]struct{}{
	TypeStr: {}, TypeInt: {}, TypeFloat: {}, TypeBool: {}, TypeBytes: {}, TypeAny: {},
	"date": {}, "datetime": {}, "UUID": {}, "EmailStr": {}, "AnyUrl": {},
	headList: {}, headDict: {}, headOptional: {}, headUnion: {},
}

// importTokens are the vocabulary words that need an import at render time.
var importTokens = map[string]struct{}{
	TypeAny: {}, "date": {}, "datetime": {}, "UUID": {}, "EmailStr": {}, "AnyUrl": {},
	headList: {}, headDict: {}, headOptional: {}, headUnion: {},
}

// IsBuiltin reports whether name belongs to the fixed vocabulary.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// IsScalar reports whether t is a primitive that can be built by calling it.
func IsScalar(t string) bool {
	switch t {
	case TypeStr, TypeInt, TypeFloat, TypeBool:
		return true
	}
	return false
}

// TypeExpr is a parsed type string.
type TypeExpr struct {
	Head string
	Args []TypeExpr
}

// String renders the expression back into its canonical form.
func (e TypeExpr) String() string {
	return e.Render(func(leaf string) string { return leaf })
}

// Render renders the expression, passing every leaf through leaf.
func (e TypeExpr) Render(leaf func(string) string) string {
	if len(e.Args) == 0 {
		return leaf(e.Head)
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.Render(leaf)
	}
	return e.Head + "[" + strings.Join(parts, ", ") + "]"
}

// ParseType parses a type string. Malformed input degrades to a single leaf.
func ParseType(t string) TypeExpr {
	expr, rest := parseExpr(strings.TrimSpace(t))
	if strings.TrimSpace(rest) != "" {
		return TypeExpr{Head: strings.TrimSpace(t)}
	}
	return expr
}

func parseExpr(s string) (TypeExpr, string) {
	s = strings.TrimLeft(s, " ")
	i := strings.IndexAny(s, "[],")
	if i < 0 {
		return TypeExpr{Head: strings.TrimSpace(s)}, ""
	}
	head := strings.TrimSpace(s[:i])
	if s[i] != '[' {
		return TypeExpr{Head: head}, s[i:]
	}
	expr := TypeExpr{Head: head}
	rest := s[i+1:]
	for {
		var arg TypeExpr
		arg, rest = parseExpr(rest)
		expr.Args = append(expr.Args, arg)
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return expr, ""
		}
		if rest[0] == ',' {
			rest = rest[1:]
			continue
		}
		if rest[0] == ']' {
			return expr, rest[1:]
		}
		return expr, rest
	}
}

// List wraps t in a list.
func List(t string) string { return headList + "[" + t + "]" }

// Optional wraps t as optional unless it already admits null.
func Optional(t string) string {
	if t == TypeAny || IsOptional(t) {
		return t
	}
	return headOptional + "[" + t + "]"
}

// IsOptional reports whether t is an Optional wrapper.
func IsOptional(t string) bool { return ParseType(t).Head == headOptional }

// Unwrap strips an Optional wrapper.
func Unwrap(t string) string {
	e := ParseType(t)
	if e.Head == headOptional && len(e.Args) == 1 {
		return e.Args[0].String()
	}
	return t
}

// ListElem returns the element type of a List, or "" when t is not a list.
func ListElem(t string) string {
	e := ParseType(t)
	if e.Head == headList && len(e.Args) == 1 {
		return e.Args[0].String()
	}
	return ""
}

// IsFreeForm reports whether t is a free-form dictionary.
func IsFreeForm(t string) bool { return ParseType(t).Head == headDict }

// Union combines members in order, dropping duplicates. A single member is
// returned as is.
func Union(members ...string) string {
	seen := make(map[string]struct{}, len(members))
	uniq := make([]string, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		uniq = append(uniq, m)
	}
	switch len(uniq) {
	case 0:
		return TypeAny
	case 1:
		return uniq[0]
	}
	return headUnion + "[" + strings.Join(uniq, ", ") + "]"
}

// ModelNames returns the canonical model names referenced by t, sorted.
func ModelNames(t string) []string {
	if t == "" {
		return nil
	}
	set := ModelSet{}
	walkLeaves(ParseType(t), func(leaf string) {
		if !IsBuiltin(leaf) {
			set.Add(leaf)
		}
	})
	return set.Sorted()
}

// Imports returns the symbolic import tokens needed by t, sorted.
func Imports(t string) []string {
	if t == "" {
		return nil
	}
	set := ModelSet{}
	var walk func(TypeExpr)
	walk = func(e TypeExpr) {
		if _, ok := importTokens[e.Head]; ok {
			set.Add(e.Head)
		}
		for _, a := range e.Args {
			walk(a)
		}
	}
	walk(ParseType(t))
	return set.Sorted()
}

func walkLeaves(e TypeExpr, fn func(string)) {
	if len(e.Args) == 0 {
		fn(e.Head)
		return
	}
	for _, a := range e.Args {
		walkLeaves(a, fn)
	}
}

func sortStrings(s []string) { sort.Strings(s) }
