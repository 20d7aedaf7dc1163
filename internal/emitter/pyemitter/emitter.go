// Package pyemitter renders the Python client package, its facades and the
// optional test skeleton from the endpoint and model IR.
package pyemitter

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/naming"
	"github.com/mark3labs/swagger2client/internal/slicer"
)

const (
	DefaultRuntimeModule = "rest_runtime"
	DefaultRuntimeClass  = "RestClient"
	DefaultStepDecorator = "allure.step"

	aggregateFacadeFile  = "api_facade.py"
	aggregateFacadeClass = "ApiFacade"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("py").ParseFS(templateFS, "templates/*.tmpl"))

// ErrEmitIO classifies filesystem failures while writing the output trees.
var ErrEmitIO = errors.New("emit i/o failure")

// EmitError reports the file that could not be written.
type EmitError struct {
	Path string
	Err  error
}

func (e *EmitError) Error() string        { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *EmitError) Unwrap() error        { return e.Err }
func (e *EmitError) Is(target error) bool { return target == ErrEmitIO }

// Options controls where and how the Python package is rendered.
type Options struct {
	OutDir string // required; root of the client tree
	// TestsDir is the root of the test skeleton; empty disables it.
	TestsDir      string
	RuntimeModule string // defaults to DefaultRuntimeModule
	RuntimeClass  string // defaults to DefaultRuntimeClass
	// StepDecorator wraps every client method; empty disables it.
	StepDecorator string
	DryRun        bool // don't write, only plan
	Logger        *slog.Logger
}

// Service is the input of one emission run.
type Service struct {
	Title     string
	ServerURL string
	Endpoints []ir.EndpointIR
	Models    *ir.Registry
	Slicer    *slicer.Slicer
}

// PlannedFile describes a file the emitter writes, in write order.
type PlannedFile struct {
	Root    string
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved names.
type Result struct {
	Module   string
	OutDir   string
	TestsDir string
	Planned  []PlannedFile
	// Roots are the directories holding emitted Python sources.
	Roots []string
}

type pendingFile struct {
	root    string
	rel     string
	content []byte
}

type emitter struct {
	opts    Options
	svc     *Service
	log     *slog.Logger
	module  string
	pkg     string
	outDir  string
	testDir string
	files   []pendingFile
}

// ModuleName derives the module directory of a service title.
func ModuleName(title string) string {
	name := naming.SnakeCase(title)
	if name == "" {
		return "api"
	}
	return naming.Identifier(name)
}

// Emit renders svc into opts.OutDir (and opts.TestsDir when set). Files
// are planned first and then written in plan order.
func Emit(ctx context.Context, svc *Service, opts Options) (*Result, error) {
	if svc == nil || svc.Models == nil {
		return nil, fmt.Errorf("pyemitter: nil service")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("pyemitter: OutDir is required")
	}
	if opts.RuntimeModule == "" {
		opts.RuntimeModule = DefaultRuntimeModule
	}
	if opts.RuntimeClass == "" {
		opts.RuntimeClass = DefaultRuntimeClass
	}
	if svc.Slicer == nil {
		svc.Slicer = slicer.New(svc.Models, slicer.DefaultSkip)
	}

	outDir, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("pyemitter: resolve output directory: %w", err)
	}
	e := &emitter{
		opts:   opts,
		svc:    svc,
		log:    logging.OrDiscard(opts.Logger),
		module: ModuleName(svc.Title),
		pkg:    naming.Identifier(naming.SnakeCase(filepath.Base(outDir))),
		outDir: outDir,
	}
	if opts.TestsDir != "" {
		if e.testDir, err = filepath.Abs(opts.TestsDir); err != nil {
			return nil, fmt.Errorf("pyemitter: resolve tests directory: %w", err)
		}
	}
	if err := validateOutputDirectory(e.outDir); err != nil {
		return nil, err
	}

	if err := e.plan(); err != nil {
		return nil, err
	}

	res := &Result{Module: e.module, OutDir: e.outDir, TestsDir: e.testDir, Roots: []string{e.outDir}}
	if e.testDir != "" {
		res.Roots = append(res.Roots, filepath.Join(e.testDir, e.module))
	}
	for _, f := range e.files {
		res.Planned = append(res.Planned, PlannedFile{Root: f.root, RelPath: f.rel, Size: len(f.content), Mode: 0o644})
	}
	if opts.DryRun {
		return res, nil
	}
	for _, f := range e.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFileAtomic(f.root, f.rel, f.content); err != nil {
			return nil, &EmitError{Path: filepath.Join(f.root, filepath.FromSlash(f.rel)), Err: err}
		}
		e.log.Debug("wrote file", "root", f.root, "path", f.rel, "bytes", len(f.content))
	}
	return res, nil
}

func (e *emitter) plan() error {
	groups := groupEndpoints(e.svc.Endpoints, naming.ClassNameFromTag)
	for i := range groups {
		groups[i].Slice = e.groupSlice(groups[i])
	}

	e.add(e.outDir, "__init__.py", nil)
	for _, g := range groups {
		if err := e.planGroup(g); err != nil {
			return err
		}
	}
	if err := e.planModule(groups); err != nil {
		return err
	}
	if err := e.planAggregate(); err != nil {
		return err
	}
	if e.testDir != "" {
		return e.planTests(groups)
	}
	return nil
}

// groupSlice is the union of the closed slices of a group's endpoints.
func (e *emitter) groupSlice(g tagGroup) []string {
	set := ir.ModelSet{}
	for _, ep := range g.Endpoints {
		set.Add(e.svc.Slicer.Endpoint(ep)...)
	}
	return set.Sorted()
}

func (e *emitter) planGroup(g tagGroup) error {
	dir := e.module + "/" + g.Dir
	if err := e.render(e.outDir, dir+"/models/base_config.py", "base_config.py.tmpl", nil); err != nil {
		return err
	}
	modules := moduleNames(g.Slice)
	for _, name := range g.Slice {
		m, ok := e.svc.Models.Get(name)
		if !ok {
			return fmt.Errorf("pyemitter: model %s is not registered", name)
		}
		if err := e.render(e.outDir, dir+"/models/"+modules[name]+".py", "model.py.tmpl", renderModel(m, modules, e.svc.Slicer.Close(m.ReferencedModels))); err != nil {
			return err
		}
	}
	if err := e.render(e.outDir, dir+"/models/__init__.py", "package_init.py.tmpl", modelsInit(g.Slice, modules)); err != nil {
		return err
	}
	if err := e.render(e.outDir, dir+"/client.py", "client.py.tmpl", e.renderClient(g)); err != nil {
		return err
	}
	pkgInit := packageInit{Exports: []export{{Module: "client", Name: g.Class}}}
	return e.render(e.outDir, dir+"/__init__.py", "package_init.py.tmpl", pkgInit)
}

func (e *emitter) planModule(groups []tagGroup) error {
	facade := e.renderServiceFacade(groups)
	if err := e.render(e.outDir, e.module+"/facade.py", "facade.py.tmpl", facade); err != nil {
		return err
	}
	pkgInit := packageInit{Doc: docstring(e.svc.Title+" client.", "")}
	for _, g := range groups {
		pkgInit.Exports = append(pkgInit.Exports, export{Module: g.Dir, Name: g.Class})
	}
	pkgInit.Exports = append(pkgInit.Exports, export{Module: "facade", Name: facade.Class})
	return e.render(e.outDir, e.module+"/__init__.py", "package_init.py.tmpl", pkgInit)
}

func (e *emitter) planAggregate() error {
	modules, err := siblingModules(e.outDir)
	if err != nil {
		return err
	}
	if !contains(modules, e.module) {
		modules = append(modules, e.module)
		sort.Strings(modules)
	}
	return e.render(e.outDir, aggregateFacadeFile, "facade.py.tmpl", e.renderAggregateFacade(modules))
}

func (e *emitter) planTests(groups []tagGroup) error {
	root := e.module
	e.add(e.testDir, root+"/__init__.py", nil)
	if err := e.render(e.testDir, root+"/conftest.py", "conftest.py.tmpl", e.renderConftest(groups)); err != nil {
		return err
	}
	for _, g := range groups {
		dir := root + "/" + g.Dir
		e.add(e.testDir, dir+"/__init__.py", nil)
		e.add(e.testDir, dir+"/asserts/__init__.py", nil)
		for _, ep := range g.Endpoints {
			rel := dir + "/asserts/assert_" + ep.MethodName + ".py"
			if err := e.render(e.testDir, rel, "assert.py.tmpl", e.renderAssert(ep, g.Slice)); err != nil {
				return err
			}
		}
		if err := e.render(e.testDir, dir+"/test_"+g.Dir+".py", "test_tag.py.tmpl", renderTest(g)); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) add(root, rel string, content []byte) {
	e.files = append(e.files, pendingFile{root: root, rel: rel, content: content})
}

func (e *emitter) render(root, rel, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("pyemitter: render %s: %w", rel, err)
	}
	e.add(root, rel, buf.Bytes())
	return nil
}

// siblingModules lists the directories under outDir holding a facade.py.
func siblingModules(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &EmitError{Path: outDir, Err: err}
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() || !naming.IsIdentifier(entry.Name()) {
			continue
		}
		if st, err := os.Stat(filepath.Join(outDir, entry.Name(), "facade.py")); err == nil && st.Mode().IsRegular() {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// validateOutputDirectory checks that the output path is usable. Existing
// content is overwritten file by file.
func validateOutputDirectory(absPath string) error {
	stat, err := os.Stat(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &EmitError{Path: absPath, Err: err}
	}
	if !stat.IsDir() {
		return &EmitError{Path: absPath, Err: fmt.Errorf("output path %q is not a directory", absPath)}
	}
	return nil
}

// writeFileAtomic writes a file atomically using temporary file + rename.
func writeFileAtomic(baseDir, relPath string, content []byte) error {
	fullPath := filepath.Join(baseDir, filepath.FromSlash(relPath))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-pyemitter-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", relPath, err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("write content to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("atomic rename %s to %s: %w", tmpPath, fullPath, err)
	}
	success = true
	return nil
}
