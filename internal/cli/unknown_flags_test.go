package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{
		{"--unknown-flag"},
		{"init", "--unknown-flag"},
	} {
		_, err := execute(args...)
		if err == nil {
			t.Fatalf("%v: expected error for unknown flag", args)
		}
		var ue *usageError
		if !errors.As(err, &ue) || !errors.Is(err, ErrUsage) {
			t.Fatalf("%v: expected usage error, got %T: %v", args, err, err)
		}
		if !strings.Contains(err.Error(), "unknown flag") || !strings.Contains(err.Error(), "Usage:") {
			t.Fatalf("%v: unexpected error text: %v", args, err)
		}
	}
}

func TestUsageErrorSurvivesWrapping(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("generate: %w", usagef("bad value %q", "x"))
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("wrapped usage error lost ErrUsage: %v", err)
	}
	if got, want := err.Error(), `generate: bad value "x"`; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if errors.Is(errors.New("other"), ErrUsage) {
		t.Errorf("plain error matched ErrUsage")
	}
}
