package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/gatehouse/internal/config"
	"github.com/five82/gatehouse/internal/logtail"
)

// LogResult is the JSON payload of the log command.
type LogResult struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}

// NewLogCommand creates the log command, which prints the tail of the
// console's own log file.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		lines int
		level string
	)

	cmd := &cobra.Command{
		Use:           "log",
		Short:         "Show the end of the gatehouse log file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, lines, level, cmd)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to read")
	cmd.Flags().StringVar(&level, "level", "", "minimum level to show (debug|info|warn|error)")

	return cmd
}

func runLog(rootOpts *RootOptions, lines int, level string, cmd *cobra.Command) error {
	if lines <= 0 {
		return NewExitError(ExitCommandError, "--lines must be positive")
	}

	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "log", err)
	}

	out, err := logtail.Read(cfg.LogFile, lines)
	if err != nil {
		return WrapExitError(ExitFailure, "log", err)
	}

	if strings.TrimSpace(level) != "" {
		var min slog.Level
		if err := min.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid level %q", level))
		}
		out = logtail.AtLeast(out, min)
	}

	if rootOpts.Format == "json" {
		formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
		if out == nil {
			out = []string{}
		}
		return formatter.Success("", LogResult{Path: cfg.LogFile, Lines: out})
	}

	w := cmd.OutOrStdout()
	for _, line := range out {
		fmt.Fprintln(w, line)
	}
	return nil
}
