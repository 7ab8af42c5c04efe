package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// TUI implements UI with an interactive Bubble Tea diff viewer. Tabular
// output stays identical to SimpleUI; only diffs gain scrolling.
type TUI struct {
	*SimpleUI
}

// NewTUI creates a new TUI writing through the command's output stream.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{SimpleUI: NewSimpleUI(cmd)}
}

// DisplayDiff opens the diff in a scrollable viewport. Short diffs are
// printed directly so piping through the pager is never forced.
func (t *TUI) DisplayDiff(ctx context.Context, path, original, obfuscated string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := unifiedDiff(path, original, obfuscated)
	if err != nil {
		return err
	}

	const shortDiffLines = 40
	if strings.Count(text, "\n") <= shortDiffLines {
		t.printf("%s", text)
		return nil
	}

	program := tea.NewProgram(
		newDiffModel(path, text),
		tea.WithOutput(t.cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run diff viewer: %w", err)
	}

	return nil
}

var (
	diffTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	diffHelpStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	addedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	removedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type diffModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func newDiffModel(path, text string) diffModel {
	return diffModel{title: path, content: colorizeDiff(text)}
}

func colorizeDiff(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		}
	}

	return strings.Join(lines, "\n")
}

func (dm diffModel) Init() tea.Cmd {
	return nil
}

func (dm diffModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return dm, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := 2
		if !dm.ready {
			dm.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			dm.viewport.SetContent(dm.content)
			dm.ready = true
		} else {
			dm.viewport.Width = msg.Width
			dm.viewport.Height = msg.Height - headerHeight
		}
	}

	var cmd tea.Cmd
	dm.viewport, cmd = dm.viewport.Update(msg)

	return dm, cmd
}

func (dm diffModel) View() string {
	if !dm.ready {
		return "loading..."
	}

	header := diffTitleStyle.Render(dm.title) +
		diffHelpStyle.Render("(j/k scroll, q quit)")

	return header + "\n" + dm.viewport.View() + "\n"
}
