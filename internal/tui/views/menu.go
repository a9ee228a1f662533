package views

import (
	"fmt"
	"strings"

	"github.com/buemura/baseera/internal/tui/styles"
	"github.com/buemura/baseera/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
)

// ProbeItem represents a probe listed in the menu.
type ProbeItem struct {
	Name        string
	DisplayName string
	Severity    types.Severity
	Enabled     bool
}

// MenuModel is the view model for the probe selection menu. Space toggles
// the highlighted probe.
type MenuModel struct {
	items  []ProbeItem
	cursor int
	err    string
}

// NewMenuModel creates a menu with the given probe items.
func NewMenuModel(items []ProbeItem) MenuModel {
	return MenuModel{items: items}
}

// Init returns nil (no initial command).
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles key navigation in the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = ""
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ", "x":
			if len(m.items) > 0 {
				m.items[m.cursor].Enabled = !m.items[m.cursor].Enabled
			}
		case "a":
			all := m.EnabledCount() < len(m.items)
			for i := range m.items {
				m.items[i].Enabled = all
			}
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the probe selection menu.
func (m MenuModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Baseera - Interactive Mode"))
	b.WriteString("\n\n")
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("Probes (%d of %d enabled):", m.EnabledCount(), len(m.items))))
	b.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		nameStyle := styles.HelpStyle
		if i == m.cursor {
			cursor = styles.CursorStyle.Render("> ")
			nameStyle = styles.SelectedStyle
		}
		check := "[ ]"
		if item.Enabled {
			check = "[x]"
		} else {
			nameStyle = styles.DisabledStyle
		}

		b.WriteString(fmt.Sprintf("%s%s %s  %s\n",
			cursor,
			check,
			nameStyle.Render(item.DisplayName),
			styles.SeverityStyle(item.Severity).Render(string(item.Severity)),
		))
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("↑/↓ navigate • space toggle • a toggle all • enter continue • q quit"))

	return b.String()
}

// SetError shows msg under the list until the next key press.
func (m *MenuModel) SetError(msg string) {
	m.err = msg
}

// EnabledCount returns how many probes are toggled on.
func (m MenuModel) EnabledCount() int {
	n := 0
	for _, item := range m.items {
		if item.Enabled {
			n++
		}
	}
	return n
}

// Cursor returns the current cursor position.
func (m MenuModel) Cursor() int {
	return m.cursor
}

// Items returns the menu items.
func (m MenuModel) Items() []ProbeItem {
	return m.items
}
