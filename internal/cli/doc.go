// Package cli defines the gatehouse command tree.
//
// The bare command runs the TUI. The list, apply and export-logs
// subcommands drive the same coordinator and applier headlessly, which is
// handy for scripts and for checking the API from a shell. Errors carry an
// exit code through ExitError.
package cli
