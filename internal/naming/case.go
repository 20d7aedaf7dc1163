package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	separatorReplacer = strings.NewReplacer("_", " ", "-", " ", ".", " ")
	lowerUpperRe      = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymRe         = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	nonAlnumRe        = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// splitWords runs the boundary part of the canonicalisation pipeline and
// returns the resulting tokens.
func splitWords(raw string) []string {
	s := separatorReplacer.Replace(raw)
	s = acronymRe.ReplaceAllString(s, "$1 $2")
	s = lowerUpperRe.ReplaceAllString(s, "$1 $2")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Fields(s)
}

// PascalCase converts raw into a PascalCase candidate. Runs of one-letter
// tokens are merged so that SnakeCase and PascalCase round-trip.
func PascalCase(raw string) string {
	words := mergeSingleLetters(splitWords(raw))
	var b strings.Builder
	for _, w := range words {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// SnakeCase lowercases raw and joins its words with underscores.
func SnakeCase(raw string) string {
	s := acronymRe.ReplaceAllString(raw, "${1}_${2}")
	s = lowerUpperRe.ReplaceAllString(s, "${1}_${2}")
	s = nonAlnumRe.ReplaceAllString(s, "_")
	return strings.Trim(strings.ToLower(s), "_")
}

// LowerCamel lowercases the first rune of an already PascalCase name.
func LowerCamel(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// ClassNameFromTag derives the sub-client class name of a tag.
func ClassNameFromTag(tag string) string {
	tag = strings.ReplaceAll(tag, "-", "_")
	segments := strings.FieldsFunc(tag, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
	var b strings.Builder
	for _, seg := range segments {
		seg = nonAlnumRe.ReplaceAllString(seg, "")
		if seg == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(seg)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(seg[size:])
	}
	name := b.String()
	if name == "" {
		return "Default"
	}
	if startsWithDigit(name) {
		name = "Tag" + name
	}
	return name
}

// DirNameFromTag normalises a tag into a package directory name.
func DirNameFromTag(tag string) string {
	dir := SnakeCase(strings.ReplaceAll(tag, "-", "_"))
	if dir == "" {
		return "default"
	}
	return Identifier(dir)
}

// SlugifyPath turns a templated path into an identifier fragment.
func SlugifyPath(path string) string {
	return SnakeCase(path)
}

// Identifier makes a snake_case name safe to use as a Python identifier.
func Identifier(name string) string {
	if name == "" {
		return "value"
	}
	if startsWithDigit(name) {
		name = "n_" + name
	}
	if IsKeyword(name) {
		name += "_"
	}
	return name
}

// IsIdentifier reports whether name is a valid, non-keyword Python identifier
// made of ASCII characters.
func IsIdentifier(name string) bool {
	if name == "" || startsWithDigit(name) || IsKeyword(name) {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

var pythonKeywords = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {}, "async": {},
	"await": {}, "break": {}, "class": {}, "continue": {}, "def": {}, "del": {}, "elif": {},
	"else": {}, "except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {}, "or": {},
	"pass": {}, "raise": {}, "return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

// IsKeyword reports whether name is a reserved Python keyword.
func IsKeyword(name string) bool {
	_, ok := pythonKeywords[name]
	return ok
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

func mergeSingleLetters(words []string) []string {
	out := make([]string, 0, len(words))
	pending := ""
	for _, w := range words {
		if len(w) == 1 && unicode.IsLetter(rune(w[0])) {
			pending += w
			continue
		}
		if pending != "" {
			out = append(out, pending)
			pending = ""
		}
		out = append(out, w)
	}
	if pending != "" {
		out = append(out, pending)
	}
	return out
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
