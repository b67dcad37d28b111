// Package cli defines the treegen command-line interface.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cpcf/treegen/config"
	"github.com/cpcf/treegen/logging"
)

type globalOptions struct {
	logLevel string
	noColor  bool
	logger   *slog.Logger
}

// Execute builds the root command and runs it with args. Command output
// goes to stdout, logs and errors to stderr.
func Execute(args []string, stdout, stderr io.Writer) error {
	opts := &globalOptions{logger: logging.NewLogger(stderr, logging.Options{})}

	envs, err := config.LoadEnv()
	if err != nil {
		opts.logger.Error("command failed", "error", err)
		return err
	}

	cmd := newRootCommand(opts, envs, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err = cmd.Execute()
	if err != nil {
		opts.logger.Error("command failed", "error", err)
	}
	return err
}

func newRootCommand(opts *globalOptions, envs config.Env, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "treegen",
		Short:         "Render a tree of templates into a tree of files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			level := logging.ParseLevel(opts.logLevel)
			opts.logger = logging.NewLogger(stderr, logging.Options{Level: level, NoColor: opts.noColor})
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, opts.logger))
			opts.logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envs.LogLevel, "Log level (debug, info, warn, error) [$TREEGEN_LOG_LEVEL]")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", envs.NoColor, "Disable colored output [$TREEGEN_NO_COLOR]")

	cmd.AddCommand(
		newRunCommand(envs),
		newKeysCommand(),
		newHelpersCommand(),
		newCleanCommand(),
	)

	return cmd
}

type loggerKey struct{}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
