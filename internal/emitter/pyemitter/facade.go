package pyemitter

import (
	"strings"

	"github.com/mark3labs/swagger2client/internal/naming"
)

type facadeFile struct {
	Header       string
	Class        string
	RuntimeClass string
	Members      []facadeMember
}

type facadeMember struct {
	Attr  string
	Class string
}

func facadeClass(module string) string { return naming.PascalCase(module) + "Facade" }

// renderServiceFacade exposes every sub-client of the module as an attribute.
func (e *emitter) renderServiceFacade(groups []tagGroup) facadeFile {
	f := facadeFile{Class: facadeClass(e.module), RuntimeClass: e.opts.RuntimeClass}
	var locals []string
	for _, g := range groups {
		locals = append(locals, "from ."+g.Dir+" import "+g.Class)
		f.Members = append(f.Members, facadeMember{Attr: naming.Identifier(naming.LowerCamel(g.Class)), Class: g.Class})
	}
	f.Header = joinBlocks(e.runtimeImport(), strings.Join(locals, "\n"))
	return f
}

// renderAggregateFacade exposes one module facade per attribute. modules
// must be sorted.
func (e *emitter) renderAggregateFacade(modules []string) facadeFile {
	f := facadeFile{Class: aggregateFacadeClass, RuntimeClass: e.opts.RuntimeClass}
	var locals []string
	for _, m := range modules {
		locals = append(locals, "from ."+m+".facade import "+facadeClass(m))
		f.Members = append(f.Members, facadeMember{Attr: m, Class: facadeClass(m)})
	}
	f.Header = joinBlocks(e.runtimeImport(), strings.Join(locals, "\n"))
	return f
}

func (e *emitter) runtimeImport() string {
	return "from " + e.opts.RuntimeModule + " import " + e.opts.RuntimeClass
}
