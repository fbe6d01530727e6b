package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flag values shared by every subcommand.
type rootOptions struct {
	LogLevel string
}

// buildRootCmd constructs the command tree: serve, pull, models.
func buildRootCmd() *cobra.Command {
	opts := &rootOptions{LogLevel: envStr("FAKELLM_LOG_LEVEL", "info")}

	root := &cobra.Command{
		Use:           "fakellm",
		Short:         "OpenAI-compatible server backed by small local GGUF models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")

	root.AddCommand(buildServeCmd(opts))
	root.AddCommand(buildPullCmd(opts))
	root.AddCommand(buildModelsCmd(opts))
	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// newLogger builds a stderr logger at the requested level. Unknown levels
// fall back to info rather than failing startup.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
