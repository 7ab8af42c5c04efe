package controller

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayReports prints one row per file plus a footer with totals.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.FileReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderReportTable(reports))

	return nil
}

func renderReportTable(reports []m.FileReport) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Path", "Status", "Transformations", "Size"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	succeeded := 0

	for _, report := range reports {
		status := failStyle.Render("failed")
		transformations, size := "-", "-"

		if report.Success {
			status = okStyle.Render("ok")
			succeeded++
		}

		if report.Metrics != nil {
			transformations = strconv.Itoa(report.Metrics.Counts.Total())
			size = fmt.Sprintf("%d -> %d", report.Metrics.InputBytes, report.Metrics.OutputBytes)
		}

		table.Append([]string{string(report.Path), status, transformations, size})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(reports)),
		fmt.Sprintf("%d ok", succeeded),
		"", "",
	})

	table.Render()

	return buf.String()
}

// DisplaySites prints the eligible-site counts for each inspected file.
func (s *SimpleUI) DisplaySites(ctx context.Context, summaries []m.SiteSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Path", "Bindings", "Strings", "Numbers", "Conditions", "Statements", "Functions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, summary := range summaries {
		c := summary.Counts
		table.Append([]string{
			string(summary.Path),
			strconv.Itoa(c.Bindings),
			strconv.Itoa(c.Strings),
			strconv.Itoa(c.Numbers),
			strconv.Itoa(c.Conditions),
			strconv.Itoa(c.Statements),
			strconv.Itoa(c.Functions),
		})
	}

	table.Render()
	s.printf("\n%s", buf.String())

	return nil
}

// DisplayDiff prints a unified diff between the two renditions.
func (s *SimpleUI) DisplayDiff(ctx context.Context, path, original, obfuscated string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := unifiedDiff(path, original, obfuscated)
	if err != nil {
		return err
	}

	s.printf("%s", text)

	return nil
}

// DisplayMessage prints a plain status line.
func (s *SimpleUI) DisplayMessage(ctx context.Context, format string, args ...any) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf(format+"\n", args...)
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func unifiedDiff(path, original, obfuscated string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(obfuscated),
		FromFile: path,
		ToFile:   path + " (obfuscated)",
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}
