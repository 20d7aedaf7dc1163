package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the swagger2client CLI.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI; cancelling ctx stops generation between file writes.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
// The root command itself generates; init is its only sub-command.
func NewRootCmd() *cobra.Command {
	cmd := newGenerateCmd()
	cmd.Use = "swagger2client"
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErrors := func(c *cobra.Command, err error) error {
		return usagef("%v\n\n%s", err, c.UsageString())
	}
	cmd.SetFlagErrorFunc(flagErrors)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	i := newInitCmd()
	i.SetFlagErrorFunc(flagErrors)
	cmd.AddCommand(i)

	return cmd
}
