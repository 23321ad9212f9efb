// Package cli implements the vertexgen command line with Cobra. Each subcommand mirrors one
// of the Vertex AI Gemini samples: streaming text, multimodal generation, token counting,
// function calling, plus summarizing a web page.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/providers/observability/slogobs"
)

// rootFlags are the global flags shared by every subcommand.
type rootFlags struct {
	configFile string
	envFile    string
	model      string
	token      string
	baseURL    string
	logLevel   string
	logFormat  string
}

// Execute runs the command line and returns the process exit status. Errors are printed
// to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "vertexgen",
		Short: "Call Gemini models on Vertex AI",
		Long: `vertexgen sends prompts to a Gemini publisher model on Vertex AI.

The endpoint comes from API_ENDPOINT, PROJECT_ID and LOCATION_ID, read from the
environment or a .env file. Tokens come from Application Default Credentials
unless --token or GOOGLE_ACCESS_TOKEN is set.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configFile, "config", "", "YAML config file (default $VERTEXGEN_CONFIG)")
	flags.StringVar(&a.flags.envFile, "env-file", "", "env file to load (default .env when present)")
	flags.StringVar(&a.flags.model, "model", "", "publisher model id (default $GEMINI_MODEL, the config file, then the command default)")
	flags.StringVar(&a.flags.token, "token", "", "bearer token to send instead of Application Default Credentials")
	flags.StringVar(&a.flags.baseURL, "base-url", "", "override the API scheme and host, e.g. for a local emulator")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "trace, debug, info, warn or error (default $VERTEXGEN_LOG_LEVEL, else warn)")
	flags.StringVar(&a.flags.logFormat, "log-format", "", "compact, pretty or json (default $VERTEXGEN_LOG_FORMAT)")

	root.AddCommand(
		newStreamCommand(a),
		newGenerateCommand(a),
		newCountTokensCommand(a),
		newFunctionCallCommand(a),
		newSummarizeURLCommand(a),
	)
	return root
}

// level prefers the flag, then the environment, then warn so that normal runs only
// print the answer.
func (f rootFlags) level(cmd *cobra.Command) slog.Level {
	if cmd.Flags().Changed("log-level") {
		return slogobs.ParseLevel(f.logLevel)
	}
	if os.Getenv(slogobs.EnvLogLevel) != "" || os.Getenv("LOG_LEVEL") != "" {
		return slogobs.LevelFromEnv()
	}
	return slog.LevelWarn
}

func (f rootFlags) format(cmd *cobra.Command) slogobs.Format {
	if cmd.Flags().Changed("log-format") {
		return slogobs.ParseFormat(f.logFormat)
	}
	return slogobs.FormatFromEnv()
}
