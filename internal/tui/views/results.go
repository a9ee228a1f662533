package views

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/internal/tui/styles"
	"github.com/buemura/baseera/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
)

// ExportFile is where the results view writes its JSON export.
const ExportFile = "baseera-results.json"

// ResultsModel is the view model for displaying scan results.
type ResultsModel struct {
	report    types.Report
	failed    []string
	rows      []findingRow
	cursor    int
	offset    int
	maxRows   int
	exported  bool
	exportErr string
}

type findingRow struct {
	finding  types.Finding
	severity types.Severity
	typeName string
}

// NewResultsModel creates a results view for a completed session.
func NewResultsModel(session *probe.Session) ResultsModel {
	report := session.Report()
	cat := catalog.Default()

	rows := make([]findingRow, len(report.Results))
	for i, f := range report.Results {
		name := fmt.Sprintf("type %d", f.TypeID)
		if e, err := cat.Lookup(f.TypeID); err == nil {
			name = e.DisplayName
		}
		rows[i] = findingRow{finding: f, severity: severity.Classify(f.TypeID), typeName: name}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return types.SeverityRank(rows[i].severity) < types.SeverityRank(rows[j].severity)
	})

	return ResultsModel{
		report:  report,
		failed:  session.Failed,
		rows:    rows,
		maxRows: 15,
	}
}

// Init returns nil (no initial command).
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// Update handles key events for scrolling and export.
func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.maxRows {
					m.offset = m.cursor - m.maxRows + 1
				}
			}
		case "e":
			m.exportJSON()
		case "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the results table.
func (m ResultsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Baseera - Scan Results"))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render(m.report.URL))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString("No findings discovered.\n")
	} else {
		b.WriteString(m.summaryLine())
		b.WriteString("\n\n")

		header := fmt.Sprintf("  %-10s %-30s %s", "SEVERITY", "TYPE", "TITLE")
		b.WriteString(styles.HeaderStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", 80))
		b.WriteString("\n")

		end := min(m.offset+m.maxRows, len(m.rows))
		for i := m.offset; i < end; i++ {
			r := m.rows[i]
			cursor := "  "
			if i == m.cursor {
				cursor = styles.CursorStyle.Render("> ")
			}

			sev := styles.SeverityStyle(r.severity).Render(fmt.Sprintf("%-10s", r.severity))
			b.WriteString(fmt.Sprintf("%s%s %-30s %s\n", cursor, sev, truncate(r.typeName, 30), truncate(r.finding.Title, 40)))
		}

		if len(m.rows) > m.maxRows {
			b.WriteString(fmt.Sprintf("\n  Showing %d-%d of %d findings\n", m.offset+1, end, len(m.rows)))
		}

		b.WriteString("\n")
		b.WriteString(m.detailView(m.rows[m.cursor]))
	}

	if len(m.failed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render("Probes that did not complete: " + strings.Join(m.failed, ", ")))
	}
	if m.exported {
		b.WriteString("\n")
		b.WriteString(styles.SelectedStyle.Render("Results exported to " + ExportFile))
	}
	if m.exportErr != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(m.exportErr))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("↑/↓ scroll • e export JSON • esc back • q quit"))

	return b.String()
}

func (m ResultsModel) summaryLine() string {
	s := m.report.Summary
	parts := []string{}
	for _, sev := range types.Severities() {
		if c := s.Count(sev); c > 0 {
			parts = append(parts, styles.SeverityStyle(sev).Render(fmt.Sprintf("%s: %d", sev, c)))
		}
	}
	return fmt.Sprintf("Total: %d findings  [%s]", s.Total, strings.Join(parts, "  "))
}

func (m ResultsModel) detailView(r findingRow) string {
	var b strings.Builder
	b.WriteString(styles.BorderStyle.Render(
		fmt.Sprintf("Title: %s\nType: %s (%d)\nSeverity: %s\nLocation: %s\nDescription: %s",
			r.finding.Title,
			r.typeName,
			r.finding.TypeID,
			r.severity,
			r.finding.Location,
			r.finding.Description,
		),
	))

	if r.finding.Evidence != "" {
		b.WriteString(fmt.Sprintf("\n  Evidence: %s", r.finding.Evidence))
	}
	if r.finding.Recommendation != "" {
		b.WriteString(fmt.Sprintf("\n  Recommendation: %s", r.finding.Recommendation))
	}

	return b.String()
}

func (m *ResultsModel) exportJSON() {
	data, err := json.MarshalIndent(m.report, "", "  ")
	if err != nil {
		m.exportErr = fmt.Sprintf("export failed: %v", err)
		return
	}

	if err := os.WriteFile(ExportFile, data, 0o644); err != nil {
		m.exportErr = fmt.Sprintf("export failed: %v", err)
		return
	}

	m.exported = true
	m.exportErr = ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
