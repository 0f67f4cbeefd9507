package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/gatehouse/internal/binding"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

type listOptions struct {
	filters []string
	search  string
	page    int
	sortBy  string
	desc    bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Print one page of a collection",
		Long: `Load a collection from the administration API and print one page of it.

Kinds: vehicles, users, guards, requests, logs, dues, audit, settings, metrics.
Filters are sent to the server; paging and sorting happen locally.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, "server filter as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "free-text search")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "page to print")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "column key to sort by")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "sort descending")

	return cmd
}

func runList(rootOpts *RootOptions, opts *listOptions, rawKind string, cmd *cobra.Command) error {
	kind, err := state.ParseKind(rawKind)
	if err != nil {
		return WrapExitError(ExitCommandError, "list", err)
	}
	filters, err := parseAssignments(opts.filters)
	if err != nil {
		return WrapExitError(ExitCommandError, "list", err)
	}

	q := query.New()
	for k, v := range filters {
		q.Filters[k] = v
	}
	q.Search = strings.TrimSpace(opts.search)
	if q.Search != "" && kind.SearchKey() == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s has no search", kind))
	}

	svc, err := build(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Coordinator.Load(cmd.Context(), kind, q); err != nil {
		var fetchErr *syncer.FetchError
		if errors.As(err, &fetchErr) {
			return NewExitError(ExitFailure, fmt.Sprintf("load %s: %s", kind, fetchErr.Message()))
		}
		return WrapExitError(ExitFailure, "load "+string(kind), err)
	}

	tbl, _, err := binding.Project(svc.Registry, kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "list", err)
	}
	if opts.sortBy != "" {
		col := columnIndex(tbl, opts.sortBy)
		if col < 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown column %q for %s", opts.sortBy, kind))
		}
		tbl = tbl.Sort(col, opts.desc)
	}

	perPage := svc.Config.ItemsPerPage
	total := len(tbl.Rows)
	page := query.ClampPage(opts.page, total, perPage)

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Table(tbl.Page(page, perPage), TablePage{
		Kind:  string(kind),
		Page:  page,
		Pages: query.TotalPages(total, perPage),
		Total: total,
	})
}

func columnIndex(t binding.Table, key string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col.Key, key) || strings.EqualFold(col.Title, key) {
			return i
		}
	}
	return -1
}

// parseAssignments splits key=value pairs.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
