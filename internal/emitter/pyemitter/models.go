package pyemitter

import (
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/naming"
)

const baseModelClass = "BaseConfigModel"

// reservedModules are file stems inside models/ that a model must not take.
var reservedModules = map[string]struct{}{"base_config": {}, "__init__": {}}

// constraintArgs maps constraint keys to Field keyword arguments.
var constraintArgs = map[string]string{
	ir.ConstraintMinLength: "min_length",
	ir.ConstraintMaxLength: "max_length",
	ir.ConstraintMinimum:   "ge",
	ir.ConstraintMaximum:   "le",
	ir.ConstraintPattern:   "pattern",
}

type modelFile struct {
	Header string
	Model  modelView
}

type modelView struct {
	Name    string
	Kind    string
	Base    string
	Doc     string
	Alias   string
	Members []memberView
	Fields  []fieldView
	Empty   bool
}

type memberView struct {
	Name  string
	Value string
}

type fieldView struct {
	Decl string
	Doc  string
}

type export struct {
	Module string
	Name   string
}

type packageInit struct {
	Doc     string
	Exports []export
}

// moduleNames assigns the file stem of every model in slice.
func moduleNames(slice []string) map[string]string {
	out := make(map[string]string, len(slice))
	used := make(map[string]struct{}, len(slice))
	for _, name := range slice {
		base := naming.SnakeCase(name)
		if _, reserved := reservedModules[base]; reserved || base == "" {
			base += "_model"
		}
		stem := base
		for i := 2; ; i++ {
			if _, taken := used[stem]; !taken {
				break
			}
			stem = base + "_" + strconv.Itoa(i)
		}
		used[stem] = struct{}{}
		out[name] = stem
	}
	return out
}

// renderModel builds the view of one model file. modules maps every model of
// the slice to its file stem; deps is the transitive closure of the model's
// references, sorted.
func renderModel(m ir.ModelIR, modules map[string]string, deps []string) modelFile {
	known := ir.ModelSet{}
	for name := range modules {
		known.Add(name)
	}
	tr := typeRenderer{self: m.Name, known: known}
	tokens := ir.ModelSet{}
	view := modelView{Name: m.Name, Doc: docstring(m.Description, "    ")}
	var locals []string

	switch m.Kind {
	case ir.KindEnumString, ir.KindEnumInt:
		view.Kind = "enum"
		view.Base = "str, Enum"
		if m.Kind == ir.KindEnumInt {
			view.Base = "int, Enum"
		}
		tokens.Add("Enum")
		for i, v := range m.EnumValues {
			value := v
			if m.Kind == ir.KindEnumString {
				value = ir.QuoteString(v)
			}
			view.Members = append(view.Members, memberView{Name: "VALUE_" + strconv.Itoa(i+1), Value: value})
		}
		view.Empty = len(view.Members) == 0
	case ir.KindAlias:
		view.Kind = "alias"
		view.Doc = ""
		view.Alias = record(tokens, tr.render(m.AliasType))
	default:
		view.Kind = "object"
		view.Base = baseModelClass
		locals = append(locals, "from .base_config import "+baseModelClass)
		for _, f := range m.Fields {
			view.Fields = append(view.Fields, fieldView{
				Decl: fieldDecl(f, record(tokens, tr.render(f.Type)), tokens),
				Doc:  docstring(f.Description, "    "),
			})
		}
		view.Empty = len(view.Fields) == 0
	}

	for _, ref := range deps {
		if ref == m.Name {
			continue
		}
		if stem, ok := modules[ref]; ok {
			locals = append(locals, "from ."+stem+" import "+ref)
		}
	}
	return modelFile{Header: joinBlocks(importBlock(tokens), strings.Join(locals, "\n")), Model: view}
}

// fieldDecl renders "name: Type[ = default]" for f, switching to a Field()
// declaration when an alias or constraints are present.
func fieldDecl(f ir.ModelField, typ string, tokens ir.ModelSet) string {
	var args []string
	if f.Alias != "" {
		args = append(args, "alias="+ir.QuoteString(f.Alias))
	}
	for _, key := range ir.ConstraintOrder {
		v, ok := f.Constraints[key]
		if !ok {
			continue
		}
		if key == ir.ConstraintPattern {
			v = ir.QuotePattern(v)
		}
		args = append(args, constraintArgs[key]+"="+v)
	}
	decl := f.Name + ": " + typ
	if len(args) == 0 {
		if f.HasDefault() {
			decl += " = " + *f.Default
		}
		return decl
	}
	tokens.Add("Field")
	first := "..."
	if f.HasDefault() {
		first = "default=" + *f.Default
	}
	return decl + " = Field(" + first + ", " + strings.Join(args, ", ") + ")"
}

// modelsInit lists the slice exports in sorted order.
func modelsInit(slice []string, modules map[string]string) packageInit {
	pkgInit := packageInit{}
	for _, name := range slice {
		pkgInit.Exports = append(pkgInit.Exports, export{Module: modules[name], Name: name})
	}
	return pkgInit
}

// docstring renders text as a triple-quoted literal whose continuation lines
// are indented by indent. Empty text yields "".
func docstring(text, indent string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"""`, `\"\"\"`)
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		if strings.HasSuffix(text, `"`) {
			text += " "
		}
		return `"""` + text + `"""`
	}
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if line != "" {
			line = indent + line
		}
		lines[i] = line
	}
	return `"""` + strings.Join(lines, "\n") + "\n" + indent + `"""`
}

// joinBlocks joins the non-empty blocks with a blank line.
func joinBlocks(blocks ...string) string {
	var out []string
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
