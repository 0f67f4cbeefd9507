package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/gatehouse/internal/binding"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The API refused or could not be reached
	ExitCommandError = 2 // Bad arguments or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for command output.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success outputs data. Text mode prints msg.
func (f *OutputFormatter) Success(msg string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, msg)
	return err
}

// TablePage is the JSON shape of a listed page.
type TablePage struct {
	Kind  string              `json:"kind"`
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
	Total int                 `json:"total"`
	Rows  []map[string]string `json:"rows"`
}

// Table prints one page of t.
func (f *OutputFormatter) Table(t binding.Table, page TablePage) error {
	if f.Format == "json" {
		page.Rows = make([]map[string]string, 0, len(t.Rows))
		for _, r := range t.Rows {
			row := make(map[string]string, len(t.Columns))
			for i, col := range t.Columns {
				if i < len(r.Cells) {
					row[col.Key] = r.Cells[i]
				}
			}
			page.Rows = append(page.Rows, row)
		}
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: page})
	}

	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Title
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Cells
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(f.Writer, tbl.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "%s: page %d of %d (%d total)\n", page.Kind, page.Page, page.Pages, page.Total)
	return err
}
