package postprocess

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func TestRunRecordsFailuresWithoutFailing(t *testing.T) {
	t.Parallel()
	requireTools(t, "true", "false")
	roots := []string{t.TempDir(), t.TempDir()}
	r := New(WithTools([]Tool{
		{Name: "true"},
		{Name: "false"},
		{Name: "swagger2client-missing-tool"},
	}))

	got, err := r.Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}

	type row struct {
		Root, Tool string
		Failed     bool
	}
	var rows []row
	for _, o := range got {
		rows = append(rows, row{o.Root, o.Tool, o.Err != nil})
	}
	var want []row
	for _, root := range roots {
		want = append(want,
			row{root, "true", false},
			row{root, "false", true},
			row{root, "swagger2client-missing-tool", true},
		)
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("outcomes (-want +got):\n%s", diff)
	}

	var toolErr *ToolError
	if !errors.As(got[1].Err, &toolErr) || toolErr.Tool != "false" {
		t.Errorf("expected ToolError for false, got %v", got[1].Err)
	}
	if !errors.Is(got[2].Err, exec.ErrNotFound) {
		t.Errorf("expected exec.ErrNotFound for a missing tool, got %v", got[2].Err)
	}
}

func TestRunPassesRootAsLastArgument(t *testing.T) {
	t.Parallel()
	requireTools(t, "touch")
	root := t.TempDir()
	marker := filepath.Join(root, "marker")
	r := New(WithTools([]Tool{{Name: "touch", Args: []string{marker}}}))

	if _, err := r.Run(context.Background(), []string{filepath.Join(root, "also-touched")}); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	for _, p := range []string{marker, filepath.Join(root, "also-touched")} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Run(ctx, []string{t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestToolErrorMessage(t *testing.T) {
	t.Parallel()
	base := errors.New("exit status 1")
	if got := (&ToolError{Tool: "black", Err: base}).Error(); got != "black: exit status 1" {
		t.Errorf("got %q", got)
	}
	if got := (&ToolError{Tool: "black", Err: base, Stderr: "cannot parse"}).Error(); got != "black: exit status 1: cannot parse" {
		t.Errorf("got %q", got)
	}
}
