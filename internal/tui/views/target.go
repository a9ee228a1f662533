package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buemura/baseera/internal/tui/styles"
	"github.com/buemura/baseera/pkg/types"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TargetModel is the view model for target URL input.
type TargetModel struct {
	textInput  textinput.Model
	probeCount int
	err        string
}

// NewTargetModel creates a new target input view, prefilled with value.
func NewTargetModel(value string) TargetModel {
	ti := textinput.New()
	ti.Placeholder = "e.g. https://example.com/login?next=/"
	ti.Focus()
	ti.CharLimit = 2048
	ti.Width = 60
	ti.PromptStyle = styles.CursorStyle
	ti.TextStyle = styles.SelectedStyle
	ti.SetValue(value)

	return TargetModel{textInput: ti}
}

// SetProbeCount sets how many probes the scan will run.
func (m *TargetModel) SetProbeCount(n int) {
	m.probeCount = n
}

// ProbeCount returns how many probes the scan will run.
func (m TargetModel) ProbeCount() int {
	return m.probeCount
}

// Init returns the text input blink command.
func (m TargetModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input events.
func (m TargetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		if _, err := m.ValidatedTarget(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.err = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.err = ""
	return m, cmd
}

// View renders the target input form.
func (m TargetModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Baseera - Interactive Mode"))
	b.WriteString("\n\n")
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%d probes enabled", m.probeCount)))
	b.WriteString("\n")
	b.WriteString("Enter the page URL to scan:\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(m.err))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("enter scan • esc back"))

	return b.String()
}

// Value returns the raw input.
func (m TargetModel) Value() string {
	return strings.TrimSpace(m.textInput.Value())
}

// ValidatedTarget parses and returns the target, or an error if invalid.
func (m TargetModel) ValidatedTarget() (types.Target, error) {
	value := m.Value()
	if value == "" {
		return types.Target{}, errors.New("target is required")
	}
	return types.ParseTarget(value)
}
