// Package ui runs the terminal interface that drives a selection session.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/amalgam/internal/selection"
	"github.com/temirov/amalgam/internal/tree"
)

// Outcome tells how the user left the interface.
type Outcome int

const (
	// OutcomePending means the program has not finished.
	OutcomePending Outcome = iota
	// OutcomeConfirmed means the selection was confirmed.
	OutcomeConfirmed
	// OutcomeCancelled means the user aborted.
	OutcomeCancelled
)

type focusArea int

const (
	focusTree focusArea = iota
	focusButton
)

const (
	checkboxIncluded = "[✓]"
	checkboxExcluded = "[ ]"
	checkboxPartial  = "[~]"
	markerExpanded   = "▾ "
	markerCollapsed  = "▸ "
	markerLeaf       = "  "
	rowIndent        = "  "
	directorySuffix  = "/"
	okButtonLabel    = " OK "
	headerFormat     = "%s: %d of %d files selected"
	defaultTitle     = "Select files"
	chromeHeight     = 5
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	focusedRowStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	excludedRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	buttonStyle        = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder())
	focusedButtonStyle = buttonStyle.BorderForeground(lipgloss.Color("212")).Bold(true)
)

// Options configures the interface.
type Options struct {
	Title  string
	Input  io.Reader
	Output io.Writer
}

// Model is the bubbletea model wrapping a selection session.
type Model struct {
	session    *selection.Session
	keys       keyMap
	help       help.Model
	viewport   viewport.Model
	ready      bool
	focus      focusArea
	title      string
	totalFiles int
	outcome    Outcome
	result     selection.Result
}

// NewModel constructs a model for session.
func NewModel(session *selection.Session, title string) Model {
	if title == "" {
		title = defaultTitle
	}
	files, _ := session.Tree().Counts()
	return Model{
		session:    session,
		keys:       newKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(0, 0),
		title:      title,
		totalFiles: files,
	}
}

// Outcome reports how the model finished.
func (model Model) Outcome() Outcome {
	return model.outcome
}

// Result returns the confirmed selection.
func (model Model) Result() selection.Result {
	return model.result
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Every key press maps onto at most one session command.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	if model.outcome != OutcomePending {
		return model, tea.Quit
	}
	switch typedMessage := message.(type) {
	case tea.WindowSizeMsg:
		model.viewport.Width = typedMessage.Width
		model.viewport.Height = typedMessage.Height - chromeHeight
		if model.viewport.Height < 1 {
			model.viewport.Height = 1
		}
		model.help.Width = typedMessage.Width
		model.ready = true
	case tea.KeyMsg:
		if command := model.handleKey(typedMessage); command != nil {
			return model, command
		}
	}
	model.syncViewport()
	return model, nil
}

func (model *Model) handleKey(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Cancel):
		_ = model.session.Cancel()
		model.outcome = OutcomeCancelled
		return tea.Quit
	case key.Matches(message, model.keys.Confirm):
		return model.confirm()
	case key.Matches(message, model.keys.Enter):
		if model.focus == focusButton {
			return model.confirm()
		}
		_ = model.session.ToggleExpanded()
	case key.Matches(message, model.keys.SwitchTab):
		if model.focus == focusTree {
			model.focus = focusButton
		} else {
			model.focus = focusTree
		}
	case key.Matches(message, model.keys.Help):
		model.help.ShowAll = !model.help.ShowAll
	case key.Matches(message, model.keys.Up):
		model.focus = focusTree
		_ = model.session.MoveFocus(selection.DirectionUp)
	case key.Matches(message, model.keys.Down):
		model.focus = focusTree
		_ = model.session.MoveFocus(selection.DirectionDown)
	case key.Matches(message, model.keys.First):
		model.focus = focusTree
		_ = model.session.MoveFocus(selection.DirectionFirst)
	case key.Matches(message, model.keys.Last):
		model.focus = focusTree
		_ = model.session.MoveFocus(selection.DirectionLast)
	case key.Matches(message, model.keys.Toggle):
		if model.focus == focusTree {
			_ = model.session.ToggleFocused()
		}
	case key.Matches(message, model.keys.ToggleAll):
		_ = model.session.ToggleAll()
	case key.Matches(message, model.keys.Expand):
		if model.focusedDirectory() && !model.session.Expanded(model.session.Focus()) {
			_ = model.session.ToggleExpanded()
		}
	case key.Matches(message, model.keys.Collapse):
		if model.focusedDirectory() && model.session.Expanded(model.session.Focus()) {
			_ = model.session.ToggleExpanded()
		} else {
			_ = model.session.MoveFocus(selection.DirectionParent)
		}
	}
	return nil
}

func (model *Model) confirm() tea.Cmd {
	result, confirmError := model.session.Confirm()
	if confirmError != nil {
		return nil
	}
	model.result = result
	model.outcome = OutcomeConfirmed
	return tea.Quit
}

func (model Model) focusedDirectory() bool {
	return model.session.Tree().Node(model.session.Focus()).IsDirectory()
}

func (model *Model) syncViewport() {
	if !model.ready {
		return
	}
	rows := model.session.Rows()
	model.viewport.SetContent(renderRows(rows))
	focusedIndex := 0
	for rowIndex, row := range rows {
		if row.Focused {
			focusedIndex = rowIndex
			break
		}
	}
	if focusedIndex < model.viewport.YOffset {
		model.viewport.SetYOffset(focusedIndex)
	} else if focusedIndex >= model.viewport.YOffset+model.viewport.Height {
		model.viewport.SetYOffset(focusedIndex - model.viewport.Height + 1)
	}
}

// View implements tea.Model.
func (model Model) View() string {
	var builder strings.Builder
	header := fmt.Sprintf(headerFormat, model.title, model.session.IncludedCount(), model.totalFiles)
	builder.WriteString(titleStyle.Render(header))
	builder.WriteString("\n")
	if model.ready {
		builder.WriteString(model.viewport.View())
	} else {
		builder.WriteString(renderRows(model.session.Rows()))
	}
	builder.WriteString("\n")
	if model.focus == focusButton {
		builder.WriteString(focusedButtonStyle.Render(okButtonLabel))
	} else {
		builder.WriteString(buttonStyle.Render(okButtonLabel))
	}
	builder.WriteString("\n")
	builder.WriteString(model.help.View(model.keys))
	return builder.String()
}

func renderRows(rows []selection.Row) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, renderRow(row))
	}
	return strings.Join(lines, "\n")
}

func renderRow(row selection.Row) string {
	var builder strings.Builder
	builder.WriteString(strings.Repeat(rowIndent, row.Depth))
	switch {
	case row.IsDirectory && row.Expanded:
		builder.WriteString(markerExpanded)
	case row.IsDirectory:
		builder.WriteString(markerCollapsed)
	default:
		builder.WriteString(markerLeaf)
	}
	builder.WriteString(checkbox(row.State))
	builder.WriteString(" ")
	builder.WriteString(row.Name)
	if row.IsDirectory {
		builder.WriteString(directorySuffix)
	}
	line := builder.String()
	switch {
	case row.Focused:
		return focusedRowStyle.Render(line)
	case row.State == tree.Excluded:
		return excludedRowStyle.Render(line)
	default:
		return line
	}
}

func checkbox(state tree.State) string {
	switch state {
	case tree.Excluded:
		return checkboxExcluded
	case tree.PartiallyIncluded:
		return checkboxPartial
	default:
		return checkboxIncluded
	}
}

// Run shows the interface until the user confirms or aborts.
func Run(session *selection.Session, options Options) (Outcome, selection.Result, error) {
	output := options.Output
	if output == nil {
		output = os.Stderr
	}
	programOptions := []tea.ProgramOption{tea.WithOutput(output), tea.WithAltScreen()}
	if options.Input != nil {
		programOptions = append(programOptions, tea.WithInput(options.Input))
	}
	program := tea.NewProgram(NewModel(session, options.Title), programOptions...)
	finalModel, runError := program.Run()
	if runError != nil {
		return OutcomeCancelled, nil, runError
	}
	finished, ok := finalModel.(Model)
	if !ok || finished.outcome != OutcomeConfirmed {
		return OutcomeCancelled, nil, nil
	}
	return finished.outcome, finished.result, nil
}
