package pyemitter

import (
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2client/internal/ir"
)

// maxAssertDepth bounds how deep assertions follow nested models.
const maxAssertDepth = 4

type conftestFile struct {
	Imports  []string
	Fixtures []fixtureView
}

type fixtureView struct {
	Name  string
	Class string
}

type testFile struct {
	NeedsPytest bool
	Fixture     string
	Methods     []testMethod
}

type testMethod struct {
	Name string
	Skip bool
	Args []string
}

type assertFile struct {
	Name           string
	UsesAssertThat bool
	Lines          []string
}

func fixtureName(dir string) string { return dir + "_client" }

func (e *emitter) renderConftest(groups []tagGroup) conftestFile {
	var f conftestFile
	for _, g := range groups {
		f.Imports = append(f.Imports, "from "+e.pkg+"."+e.module+"."+g.Dir+" import "+g.Class)
		f.Fixtures = append(f.Fixtures, fixtureView{Name: fixtureName(g.Dir), Class: g.Class})
	}
	return f
}

func renderTest(g tagGroup) testFile {
	f := testFile{Fixture: fixtureName(g.Dir)}
	for _, ep := range g.Endpoints {
		m := testMethod{Name: ep.MethodName}
		for _, p := range ep.PathParams {
			m.Args = append(m.Args, p.PyName)
		}
		for _, p := range ep.QueryParams {
			if p.Required {
				m.Args = append(m.Args, p.PyName)
			}
		}
		if ep.HasPayload() && ep.PayloadRequired {
			m.Args = append(m.Args, "payload")
		}
		m.Skip = len(m.Args) > 0
		f.NeedsPytest = f.NeedsPytest || m.Skip
		f.Methods = append(f.Methods, m)
	}
	return f
}

// assertWriter builds the assertion body for one endpoint, walking the
// return type through the models of the slice.
type assertWriter struct {
	models *ir.Registry
	known  ir.ModelSet
	lines  []string
	loops  int
}

func (e *emitter) renderAssert(ep ir.EndpointIR, slice []string) assertFile {
	w := &assertWriter{models: e.svc.Models, known: ir.ModelSet{}}
	w.known.Add(slice...)
	ret := typeRenderer{known: w.known}.render(ep.ReturnType)
	switch {
	case ret == ir.TypeAny && (ep.SuccessStatus == "NO_CONTENT" || ep.SuccessStatus == "RESET_CONTENT"):
	default:
		w.value("raw", ret, 0, 0, map[string]bool{})
	}
	return assertFile{Name: ep.MethodName, UsesAssertThat: len(w.lines) > 0, Lines: w.lines}
}

func (w *assertWriter) emit(indent int, line string) {
	w.lines = append(w.lines, strings.Repeat("    ", indent)+line)
}

func (w *assertWriter) value(expr, t string, indent, depth int, visiting map[string]bool) {
	switch {
	case t == ir.TypeStr:
		w.emit(indent, "assert_that("+expr+").is_not_none().is_not_empty()")
		return
	case ir.ListElem(t) != "":
		w.emit(indent, "assert_that("+expr+").is_not_none().is_not_empty()")
		if depth >= maxAssertDepth {
			return
		}
		w.loops++
		item := "item"
		if w.loops > 1 {
			item += strconv.Itoa(w.loops)
		}
		before := len(w.lines)
		w.emit(indent, "for "+item+" in "+expr+":")
		w.value(item, ir.ListElem(t), indent+1, depth+1, visiting)
		if len(w.lines) == before+1 {
			w.lines = w.lines[:before]
		}
		return
	}
	w.emit(indent, "assert_that("+expr+").is_not_none()")
	if !w.known.Has(t) || visiting[t] || depth >= maxAssertDepth {
		return
	}
	m, ok := w.models.Get(t)
	if !ok || m.Kind != ir.KindObject {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)
	for _, f := range m.Fields {
		if !f.Required || ir.IsOptional(f.Type) {
			continue
		}
		ft := typeRenderer{known: w.known}.render(f.Type)
		if ft == ir.TypeAny {
			continue
		}
		w.value(expr+"."+f.Name, ft, indent, depth+1, visiting)
	}
}
