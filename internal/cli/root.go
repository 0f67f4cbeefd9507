package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/five82/gatehouse/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	PrefsPath  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the gatehouse command. Without a subcommand it runs
// the TUI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gatehouse",
		Short:         "Gatehouse - parking access administration console",
		Long:          "Terminal console for vehicles, guards, access requests, dues and gate logs.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: opts.ConfigPath,
				PrefsPath:  opts.PrefsPath,
				Verbose:    opts.Verbose,
			})
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/gatehouse/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/gatehouse/prefs.toml)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewExportLogsCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// build wires the core for a headless command. Logs go to stderr when
// verbose and are dropped otherwise, since stdout carries the result.
func build(opts *RootOptions, cmd *cobra.Command) (*app.Services, error) {
	logWriter := io.Discard
	if opts.Verbose {
		logWriter = cmd.ErrOrStderr()
	}
	svc, err := app.Build(app.Options{
		ConfigPath: opts.ConfigPath,
		PrefsPath:  opts.PrefsPath,
		Verbose:    opts.Verbose,
		LogWriter:  logWriter,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "startup", err)
	}
	return svc, nil
}
