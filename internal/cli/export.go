package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/five82/gatehouse/internal/query"
)

// ExportResult is the JSON payload of a successful export.
type ExportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// NewExportLogsCommand creates the export-logs command.
func NewExportLogsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		out     string
		filters []string
		vehicle string
	)

	cmd := &cobra.Command{
		Use:           "export-logs",
		Short:         "Download the gate log export as CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportLogs(rootOpts, out, filters, vehicle, cmd)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default <export_dir>/gate-logs-<date>.csv)")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "server filter as key=value (repeatable)")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "only events for this vehicle")

	return cmd
}

func runExportLogs(rootOpts *RootOptions, out string, filters []string, vehicle string, cmd *cobra.Command) error {
	parsed, err := parseAssignments(filters)
	if err != nil {
		return WrapExitError(ExitCommandError, "export-logs", err)
	}
	q := query.New()
	for k, v := range parsed {
		q.Filters[k] = v
	}
	q.Search = strings.TrimSpace(vehicle)

	svc, err := build(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := svc.Coordinator.ExportLogs(cmd.Context(), q)
	if err != nil {
		return WrapExitError(ExitFailure, "export-logs", err)
	}

	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if strings.TrimSpace(out) == "" {
		out = filepath.Join(svc.Config.ExportDir, "gate-logs-"+time.Now().Format("2006-01-02")+".csv")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "export-logs", err)
	}
	if err := atomic.WriteFile(out, bytes.NewReader(data)); err != nil {
		return WrapExitError(ExitFailure, "export-logs", fmt.Errorf("write %s: %w", out, err))
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(fmt.Sprintf("wrote %d bytes to %s", len(data), out), ExportResult{Path: out, Bytes: len(data)})
}
