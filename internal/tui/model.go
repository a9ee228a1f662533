package tui

import (
	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/tui/views"
	tea "github.com/charmbracelet/bubbletea"
)

// Engine is what the TUI drives. *service.Service satisfies it.
type Engine interface {
	views.Scanner
	Registry() *probe.Registry
}

// appState represents which view is currently active.
type appState int

const (
	stateMenu    appState = iota // Probe selection menu
	stateTarget                  // Target URL input
	stateScan                    // Scan in progress
	stateResults                 // Results display
)

// Model is the root Bubble Tea model that manages view transitions.
type Model struct {
	state         appState
	engine        Engine
	defaultTarget string
	width         int
	height        int

	// Sub-models for each view.
	menu    views.MenuModel
	target  views.TargetModel
	scan    views.ScanModel
	results views.ResultsModel
}

// NewModel creates a root model over engine's registry. defaultTarget
// prefills the target input.
func NewModel(engine Engine, defaultTarget string) Model {
	cat := catalog.Default()
	descs := engine.Registry().Descriptors()
	items := make([]views.ProbeItem, len(descs))
	for i, d := range descs {
		name := d.Name
		if e, err := cat.Lookup(d.TypeID); err == nil {
			name = e.DisplayName
		}
		items[i] = views.ProbeItem{
			Name:        d.Name,
			DisplayName: name,
			Severity:    d.Severity,
			Enabled:     d.Enabled,
		}
	}

	return Model{
		state:         stateMenu,
		engine:        engine,
		defaultTarget: defaultTarget,
		menu:          views.NewMenuModel(items),
		target:        views.NewTargetModel(defaultTarget),
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and manages state transitions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.state == stateScan {
				m.scan.Cancel()
			}
			return m, tea.Quit
		case "esc":
			return m.handleBack()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	switch m.state {
	case stateMenu:
		return m.updateMenu(msg)
	case stateTarget:
		return m.updateTarget(msg)
	case stateScan:
		return m.updateScan(msg)
	case stateResults:
		return m.updateResults(msg)
	}

	return m, nil
}

// View renders the current view.
func (m Model) View() string {
	switch m.state {
	case stateMenu:
		return m.menu.View()
	case stateTarget:
		return m.target.View()
	case stateScan:
		return m.scan.View()
	case stateResults:
		return m.results.View()
	}
	return ""
}

func (m Model) handleBack() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateTarget, stateResults:
		m.state = stateMenu
	case stateScan:
		m.scan.Cancel()
		m.state = stateMenu
	}
	return m, nil
}

// applySelection writes the menu toggles back to the registry.
func (m Model) applySelection() error {
	reg := m.engine.Registry()
	for _, item := range m.menu.Items() {
		if err := reg.SetEnabled(item.Name, item.Enabled); err != nil {
			return err
		}
	}
	return nil
}

func (m Model) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		if m.menu.EnabledCount() == 0 {
			m.menu.SetError("enable at least one probe")
			return m, nil
		}
		if err := m.applySelection(); err != nil {
			m.menu.SetError(err.Error())
			return m, nil
		}
		value := m.target.Value()
		if value == "" {
			value = m.defaultTarget
		}
		m.target = views.NewTargetModel(value)
		m.target.SetProbeCount(m.menu.EnabledCount())
		m.state = stateTarget
		return m, m.target.Init()
	}

	updated, cmd := m.menu.Update(msg)
	m.menu = updated.(views.MenuModel)
	return m, cmd
}

func (m Model) updateTarget(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		if target, err := m.target.ValidatedTarget(); err == nil {
			m.scan = views.NewScanModel(m.engine, target, m.target.ProbeCount())
			m.state = stateScan
			return m, m.scan.Init()
		}
	}

	updated, cmd := m.target.Update(msg)
	m.target = updated.(views.TargetModel)
	return m, cmd
}

func (m Model) updateScan(msg tea.Msg) (tea.Model, tea.Cmd) {
	if scanMsg, ok := msg.(views.ScanCompleteMsg); ok {
		m.scan.Cancel()
		m.results = views.NewResultsModel(scanMsg.Session)
		m.state = stateResults
		return m, nil
	}

	updated, cmd := m.scan.Update(msg)
	m.scan = updated.(views.ScanModel)
	return m, cmd
}

func (m Model) updateResults(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.results.Update(msg)
	m.results = updated.(views.ResultsModel)
	return m, cmd
}
