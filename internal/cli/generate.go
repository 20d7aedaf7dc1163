package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swagger2client/internal/emitter/pyemitter"
	"github.com/mark3labs/swagger2client/internal/generator"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/slicer"
)

// GenerateConfig captures all inputs that influence generation after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	SwaggerURL    string
	OutputDir     string
	Tests         bool
	CachePath     string
	IncludeTags   []string
	ExcludeTags   []string
	RuntimeModule string
	RuntimeClass  string
	StepDecorator string
	SkipModels    []string
	InlineModels  bool
	PostProcess   bool
	DryRun        bool
	Verbose       bool
	LogFormat     string
	ConfigPath    string
}

func defaultGenerateConfig() GenerateConfig {
	d := generator.DefaultConfig()
	return GenerateConfig{
		OutputDir:     d.OutputDir,
		CachePath:     d.CachePath,
		RuntimeModule: d.RuntimeModule,
		RuntimeClass:  d.RuntimeClass,
		StepDecorator: d.StepDecorator,
		SkipModels:    d.SkipModels,
		InlineModels:  d.InlineModels,
		PostProcess:   d.PostProcess,
		LogFormat:     "text",
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Short: "Generate Python REST clients from an OpenAPI/Swagger document",
		Long: "Generate a typed Python REST client package (pydantic models, one sub-client per tag, " +
			"facades and an optional test skeleton) from an OpenAPI/Swagger document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swagger2client --swagger-url ./openapi.json --output-dir rest_clients --tests
  swagger2client --config swagger2client.yaml --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("swagger-url", "", "Path, file:// or http(s) URL of the OpenAPI/Swagger document")
	flags.String("output-dir", "rest_clients", "Destination root for generated code")
	flags.Bool("tests", false, "Also emit a test skeleton under <parent>/tests/<output-dir name>")
	flags.String("cache-path", "swagger.json", "Where the fetched document is copied")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.String("runtime-module", pyemitter.DefaultRuntimeModule, "Python module providing the runtime client")
	flags.String("runtime-class", pyemitter.DefaultRuntimeClass, "Runtime client class the sub-clients wrap")
	flags.String("step-decorator", pyemitter.DefaultStepDecorator, "Decorator applied to client methods; empty disables")
	flags.StringSlice("skip-models", slicer.DefaultSkip, "Schemas dropped from every model slice")
	flags.Bool("inline-models", true, "Materialise inline request/response objects as models")
	flags.Bool("post-process", true, "Run autoflake and black over the output")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.String("log-format", "text", "Log format (text|json)")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"swagger-url":    &cfg.SwaggerURL,
		"output-dir":     &cfg.OutputDir,
		"cache-path":     &cfg.CachePath,
		"runtime-module": &cfg.RuntimeModule,
		"runtime-class":  &cfg.RuntimeClass,
		"step-decorator": &cfg.StepDecorator,
		"log-format":     &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	lists := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"skip-models":  &cfg.SkipModels,
	}
	for name, dst := range lists {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}

	bools := map[string]*bool{
		"tests":         &cfg.Tests,
		"inline-models": &cfg.InlineModels,
		"post-process":  &cfg.PostProcess,
		"dry-run":       &cfg.DryRun,
		"verbose":       &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.SwaggerURL = strings.TrimSpace(c.SwaggerURL)
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.CachePath = strings.TrimSpace(c.CachePath)
	c.RuntimeModule = strings.TrimSpace(c.RuntimeModule)
	c.RuntimeClass = strings.TrimSpace(c.RuntimeClass)
	c.StepDecorator = strings.TrimPrefix(strings.TrimSpace(c.StepDecorator), "@")
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.SkipModels = sanitizeTags(c.SkipModels)
	if c.OutputDir == "" {
		c.OutputDir = "rest_clients"
	}
}

func (c *GenerateConfig) validate() error {
	if c.SwaggerURL == "" {
		return newUsageError("generate: --swagger-url is required (set via flag or config file)")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return usagef("generate: unsupported --log-format %q (allowed: text, json)", c.LogFormat)
	}
	if c.RuntimeModule == "" || c.RuntimeClass == "" {
		return newUsageError("generate: --runtime-module and --runtime-class must not be empty")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return usagef("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", "))
	}

	return nil
}

func (c *GenerateConfig) generatorConfig(w io.Writer) generator.Config {
	level := "warn"
	if c.Verbose {
		level = "debug"
	}
	return generator.Config{
		Source:        c.SwaggerURL,
		OutputDir:     c.OutputDir,
		Tests:         c.Tests,
		CachePath:     c.CachePath,
		IncludeTags:   c.IncludeTags,
		ExcludeTags:   c.ExcludeTags,
		SkipModels:    c.SkipModels,
		InlineModels:  c.InlineModels,
		RuntimeModule: c.RuntimeModule,
		RuntimeClass:  c.RuntimeClass,
		StepDecorator: c.StepDecorator,
		PostProcess:   c.PostProcess,
		DryRun:        c.DryRun,
		Logger:        logging.New(w, c.LogFormat, level),
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig, out, errOut io.Writer) error {
	report, err := generator.Run(ctx, cfg.generatorConfig(errOut))
	if err != nil {
		return err
	}
	if cfg.DryRun {
		printPlan(out, report)
		return nil
	}
	fmt.Fprintf(out, "generated %s into %s\n", report.Module, report.OutDir)
	return nil
}

func printPlan(w io.Writer, report *generator.Report) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", report.OutDir, len(report.Planned))
	for _, p := range report.Planned {
		path := filepath.Join(p.Root, filepath.FromSlash(p.RelPath))
		if rel, err := filepath.Rel(filepath.Dir(report.OutDir), path); err == nil {
			path = rel
		}
		fmt.Fprintf(w, "- %s (%d bytes)\n", filepath.ToSlash(path), p.Size)
	}
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usagef("read config file %q: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return usagef("parse config file %q: %v", path, err)
	}

	strs := map[string]*string{
		"swaggerurl":    &cfg.SwaggerURL,
		"outputdir":     &cfg.OutputDir,
		"cachepath":     &cfg.CachePath,
		"runtimemodule": &cfg.RuntimeModule,
		"runtimeclass":  &cfg.RuntimeClass,
		"stepdecorator": &cfg.StepDecorator,
		"logformat":     &cfg.LogFormat,
	}
	lists := map[string]*[]string{
		"includetags": &cfg.IncludeTags,
		"excludetags": &cfg.ExcludeTags,
		"skipmodels":  &cfg.SkipModels,
	}
	bools := map[string]*bool{
		"tests":        &cfg.Tests,
		"inlinemodels": &cfg.InlineModels,
		"postprocess":  &cfg.PostProcess,
		"dryrun":       &cfg.DryRun,
		"verbose":      &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			*dst = sanitizeTags(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			*dst = val
			continue
		}
		return usagef("config file %q: unknown field %q", path, key)
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
