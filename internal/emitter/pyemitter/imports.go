package pyemitter

import (
	"sort"
	"strings"

	"github.com/mark3labs/swagger2client/internal/ir"
)

// Import groups, rendered in this order and separated by a blank line.
const (
	groupStdlib = iota
	groupTyping
	groupLibrary
)

type tokenSource struct {
	module string
	group  int
}

// tokenSources maps symbolic import tokens to the module that provides them.
var tokenSources = map[string]tokenSource{
	"date":       {"datetime", groupStdlib},
	"datetime":   {"datetime", groupStdlib},
	"Enum":       {"enum", groupStdlib},
	"HTTPStatus": {"http", groupStdlib},
	"UUID":       {"uuid", groupStdlib},
	"Any":        {"typing", groupTyping},
	"Dict":       {"typing", groupTyping},
	"List":       {"typing", groupTyping},
	"Optional":   {"typing", groupTyping},
	"Union":      {"typing", groupTyping},
	"AnyUrl":     {"pydantic", groupLibrary},
	"EmailStr":   {"pydantic", groupLibrary},
	"Field":      {"pydantic", groupLibrary},
}

// importBlock renders tokens as grouped "from x import a, b" lines. Unknown
// tokens are ignored.
func importBlock(tokens ir.ModelSet) string {
	byModule := make(map[string][]string)
	groups := make(map[int][]string)
	for _, tok := range tokens.Sorted() {
		src, ok := tokenSources[tok]
		if !ok {
			continue
		}
		if _, seen := byModule[src.module]; !seen {
			groups[src.group] = append(groups[src.group], src.module)
		}
		byModule[src.module] = append(byModule[src.module], tok)
	}
	var blocks []string
	for _, g := range []int{groupStdlib, groupTyping, groupLibrary} {
		modules := groups[g]
		if len(modules) == 0 {
			continue
		}
		sort.Strings(modules)
		lines := make([]string, len(modules))
		for i, mod := range modules {
			names := byModule[mod]
			sort.Strings(names)
			lines[i] = "from " + mod + " import " + strings.Join(names, ", ")
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// typeRenderer renders IR type strings for one emitted file. References to
// self are quoted and models outside the file's slice degrade to Any.
type typeRenderer struct {
	self  string
	known ir.ModelSet
}

func (r typeRenderer) render(t string) string {
	if t == "" {
		return ""
	}
	return ir.ParseType(t).Render(func(leaf string) string {
		switch {
		case ir.IsBuiltin(leaf):
			return leaf
		case r.self != "" && leaf == r.self:
			return `"` + leaf + `"`
		case r.known.Has(leaf):
			return leaf
		}
		return ir.TypeAny
	})
}

// record adds the import tokens of a rendered type to tokens and returns the
// type unchanged.
func record(tokens ir.ModelSet, rendered string) string {
	tokens.Add(ir.Imports(rendered)...)
	return rendered
}
