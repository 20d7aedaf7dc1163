// Package generator drives one run: load the document, build the model and
// endpoint IR, emit the Python tree and post-process it.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mark3labs/swagger2client/internal/emitter/pyemitter"
	"github.com/mark3labs/swagger2client/internal/endpoint"
	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/naming"
	"github.com/mark3labs/swagger2client/internal/postprocess"
	"github.com/mark3labs/swagger2client/internal/schema"
	"github.com/mark3labs/swagger2client/internal/slicer"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// Phase names a pipeline stage in diagnostics.
type Phase string

const (
	PhaseLoad    Phase = "load"
	PhaseParse   Phase = "parse"
	PhaseExtract Phase = "extract"
	PhaseEmit    Phase = "emit"
)

// PhaseError is the single diagnostic of a failed run.
type PhaseError struct {
	Phase  Phase
	Entity string
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Phase, e.Entity, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Config holds the resolved inputs of a run.
type Config struct {
	Source       string
	OutputDir    string
	Tests        bool
	CachePath    string
	IncludeTags  []string
	ExcludeTags  []string
	SkipModels   []string
	InlineModels bool

	RuntimeModule string
	RuntimeClass  string
	StepDecorator string

	PostProcess bool
	// Tools replaces the default post-processors when non-nil.
	Tools  []postprocess.Tool
	DryRun bool

	SpecOptions []spec.Option
	Logger      *slog.Logger
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		OutputDir:     "rest_clients",
		CachePath:     "swagger.json",
		SkipModels:    append([]string(nil), slicer.DefaultSkip...),
		InlineModels:  true,
		RuntimeModule: pyemitter.DefaultRuntimeModule,
		RuntimeClass:  pyemitter.DefaultRuntimeClass,
		StepDecorator: pyemitter.DefaultStepDecorator,
		PostProcess:   true,
	}
}

// Report summarises a finished run.
type Report struct {
	Module      string
	OutDir      string
	TestsDir    string
	Endpoints   int
	Models      int
	Skipped     []*endpoint.OperationError
	Planned     []pyemitter.PlannedFile
	PostProcess []postprocess.Outcome
}

// TestsDir returns the test skeleton root paired with outputDir:
// <parent>/tests/<basename>.
func TestsDir(outputDir string) (string, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(abs), "tests", filepath.Base(abs)), nil
}

// Run executes the pipeline.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	log := logging.OrDiscard(cfg.Logger)

	opts := append([]spec.Option{spec.WithCachePath(cfg.CachePath)}, cfg.SpecOptions...)
	doc, err := spec.Load(ctx, cfg.Source, opts...)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Entity: loadEntity(err, cfg.Source), Err: err}
	}
	for _, w := range doc.Warnings {
		log.Warn("spec warning", "location", doc.Location, "warning", w)
	}

	names := naming.NewRegistry()
	models := ir.NewRegistry()
	parser := schema.NewParser(doc, names, models,
		schema.WithLogger(log),
		schema.WithRoleHints(cfg.InlineModels),
	)
	if err := parser.Parse(); err != nil {
		return nil, &PhaseError{Phase: PhaseParse, Entity: "components.schemas", Err: err}
	}

	extractor := endpoint.NewExtractor(doc, parser,
		endpoint.WithIncludeTags(cfg.IncludeTags),
		endpoint.WithExcludeTags(cfg.ExcludeTags),
		endpoint.WithLogger(log),
	)
	endpoints, skipped := extractor.Extract()
	for _, ep := range endpoints {
		for _, w := range ep.Warnings {
			log.Warn("endpoint warning", "path", ep.Path, "method", string(ep.HTTPMethod), "warning", w)
		}
	}
	if err := parser.Finish(); err != nil {
		return nil, &PhaseError{Phase: PhaseExtract, Entity: "model registry", Err: err}
	}
	log.Info("parsed document", "title", doc.Title(), "models", models.Len(), "endpoints", len(endpoints), "skipped", len(skipped))

	emitOpts := pyemitter.Options{
		OutDir:        cfg.OutputDir,
		RuntimeModule: cfg.RuntimeModule,
		RuntimeClass:  cfg.RuntimeClass,
		StepDecorator: cfg.StepDecorator,
		DryRun:        cfg.DryRun,
		Logger:        log,
	}
	if cfg.Tests {
		if emitOpts.TestsDir, err = TestsDir(cfg.OutputDir); err != nil {
			return nil, &PhaseError{Phase: PhaseEmit, Entity: cfg.OutputDir, Err: err}
		}
	}
	svc := &pyemitter.Service{
		Title:     doc.Title(),
		ServerURL: doc.ServerURL(),
		Endpoints: endpoints,
		Models:    models,
		Slicer:    slicer.New(models, cfg.SkipModels),
	}
	res, err := pyemitter.Emit(ctx, svc, emitOpts)
	if err != nil {
		entity := cfg.OutputDir
		var emitErr *pyemitter.EmitError
		if errors.As(err, &emitErr) {
			entity = emitErr.Path
		}
		return nil, &PhaseError{Phase: PhaseEmit, Entity: entity, Err: err}
	}

	report := &Report{
		Module:    res.Module,
		OutDir:    res.OutDir,
		TestsDir:  res.TestsDir,
		Endpoints: len(endpoints),
		Models:    models.Len(),
		Skipped:   skipped,
		Planned:   res.Planned,
	}
	if cfg.PostProcess && !cfg.DryRun {
		popts := []postprocess.Option{postprocess.WithLogger(log)}
		if cfg.Tools != nil {
			popts = append(popts, postprocess.WithTools(cfg.Tools))
		}
		outcomes, err := postprocess.New(popts...).Run(ctx, res.Roots)
		if err != nil {
			return nil, err
		}
		report.PostProcess = outcomes
	}
	return report, nil
}

func loadEntity(err error, source string) string {
	var se *spec.SpecError
	if errors.As(err, &se) {
		entity := se.Location
		if entity == "" {
			entity = source
		}
		if se.JSONPointer != "" {
			entity += " " + se.JSONPointer
		}
		return entity
	}
	return strings.TrimSpace(source)
}
