package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "swagger2client.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample swagger2client configuration file",
		Long:  "Scaffold a commented swagger2client configuration file that documents available options.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return usagef("init: %q already exists (use --force to overwrite)", absPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return usagef("init: cannot create parent directory: %v", err)
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return usagef("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return usagef("init: cannot place file at %s: %v", absPath, err)
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key applyGenerateConfigFromFile accepts.
const sampleConfigYAML = `# swagger2client configuration (YAML)
# All fields are optional except swaggerUrl. Command-line flags override config values.

# Path, file:// or http(s) URL of the Swagger/OpenAPI document.
# swaggerUrl: ./openapi.json

# Destination root for the generated package.
# outputDir: rest_clients

# Also emit a pytest skeleton under <parent>/tests/<outputDir name>.
# tests: false

# Where the fetched document is copied.
# cachePath: swagger.json

# Only include operations with these tags (comma-separated or list).
# includeTags: [public,read]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Python module and class of the runtime client the sub-clients wrap.
# runtimeModule: rest_runtime
# runtimeClass: RestClient

# Decorator applied to every client method. Empty disables it.
# stepDecorator: allure.step

# Schemas never emitted into model slices.
# skipModels: [HTTPValidationError, ValidationError]

# Materialise inline request/response objects as named models.
# inlineModels: true

# Run autoflake and black over the generated trees.
# postProcess: true

# Preview planned outputs without writing files.
# dryRun: false

# Enable verbose logging and choose its format (text|json).
# verbose: false
# logFormat: text
`
