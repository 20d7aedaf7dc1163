// Package postprocess runs external clean-up tools over emitted Python trees.
// Tool failures are logged and never fail the run.
package postprocess

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/swagger2client/internal/logging"
)

// Tool is one external command; the root directory is appended to Args.
type Tool struct {
	Name string
	Args []string
}

// DefaultTools removes unused imports and then formats the code.
var DefaultTools = []Tool{
	{Name: "autoflake", Args: []string{"--in-place", "--recursive", "--remove-all-unused-imports"}},
	{Name: "black", Args: []string{"--quiet"}},
}

// Outcome records one tool invocation.
type Outcome struct {
	Root string
	Tool string
	Err  error
}

// Option configures a Runner.
type Option func(*Runner)

// WithTools replaces DefaultTools. An empty list makes Run a no-op.
func WithTools(tools []Tool) Option { return func(r *Runner) { r.tools = tools } }

// WithLogger sets the logger for tool runs; nil discards.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.log = logging.OrDiscard(l) } }

// Runner applies its tools in order to every root. Roots are processed
// concurrently.
type Runner struct {
	tools    []Tool
	log      *slog.Logger
	lookPath func(string) (string, error)
}

// New returns a Runner using DefaultTools unless overridden.
func New(opts ...Option) *Runner {
	r := &Runner{tools: DefaultTools, log: logging.Discard(), lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes roots and returns one outcome per root and tool, grouped
// by root in input order. Only context cancellation is returned as error.
func (r *Runner) Run(ctx context.Context, roots []string) ([]Outcome, error) {
	results := make([][]Outcome, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			results[i] = r.runRoot(gctx, root)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Outcome
	for _, rs := range results {
		out = append(out, rs...)
	}
	return out, nil
}

func (r *Runner) runRoot(ctx context.Context, root string) []Outcome {
	outcomes := make([]Outcome, 0, len(r.tools))
	for _, tool := range r.tools {
		if ctx.Err() != nil {
			break
		}
		err := r.runTool(ctx, tool, root)
		if err != nil {
			r.log.WarnContext(ctx, "post-processor failed", slog.String("tool", tool.Name), slog.String("root", root), slog.String("error", err.Error()))
		}
		outcomes = append(outcomes, Outcome{Root: root, Tool: tool.Name, Err: err})
	}
	return outcomes
}

func (r *Runner) runTool(ctx context.Context, tool Tool, root string) error {
	path, err := r.lookPath(tool.Name)
	if err != nil {
		return err
	}
	args := append(append([]string(nil), tool.Args...), root)
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.log.DebugContext(ctx, "running post-processor", slog.String("tool", tool.Name), slog.Any("args", cmd.Args))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return &ToolError{Tool: tool.Name, Err: err, Stderr: msg}
		}
		return &ToolError{Tool: tool.Name, Err: err}
	}
	return nil
}

// ToolError carries the stderr of a failed tool.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return e.Tool + ": " + e.Err.Error()
	}
	return e.Tool + ": " + e.Err.Error() + ": " + e.Stderr
}

func (e *ToolError) Unwrap() error { return e.Err }
