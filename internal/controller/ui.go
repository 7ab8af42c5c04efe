// Package controller provides output adapters for displaying obfuscation
// results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// UI defines the interface for displaying batch results, inspection tables
// and diffs. Implementations can use different output methods (simple text,
// TUI, etc).
type UI interface {
	// DisplayReports renders the outcome table of a batch run.
	DisplayReports(ctx context.Context, reports []m.FileReport) error

	// DisplaySites renders per-file transformation site counts.
	DisplaySites(ctx context.Context, summaries []m.SiteSummary) error

	// DisplayDiff renders a unified diff between the original and the
	// obfuscated source of one file.
	DisplayDiff(ctx context.Context, path, original, obfuscated string) error

	// DisplayMessage prints a plain status line.
	DisplayMessage(ctx context.Context, format string, args ...any)
}

// NewUI picks the interactive or plain implementation.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether stdout is attached to a terminal, which decides
// between the interactive and plain UI.
func IsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
