package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/tui/styles"
	"github.com/buemura/baseera/pkg/types"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Scanner runs one scan. *service.Service satisfies it.
type Scanner interface {
	Scan(ctx context.Context, targetID, rawURL string, progress probe.ProgressFunc) (*probe.Session, error)
}

// ProgressMsg carries one progress event from a running scan.
type ProgressMsg struct {
	Event types.ProgressEvent
}

// ScanCompleteMsg is sent when a scan finishes.
type ScanCompleteMsg struct {
	Session *probe.Session
}

// ScanErrorMsg is sent when a scan cannot complete.
type ScanErrorMsg struct {
	Err error
}

// ScanModel is the view model for the scan progress view.
type ScanModel struct {
	spinner spinner.Model
	bar     progress.Model
	scanner Scanner
	target  types.Target
	total   int
	last    types.ProgressEvent
	events  chan tea.Msg
	ctx     context.Context
	cancel  context.CancelFunc
	done    bool
	err     string
}

// NewScanModel creates a scan progress view for target running total probes.
func NewScanModel(s Scanner, target types.Target, total int) ScanModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.ColorAccent)

	ctx, cancel := context.WithCancel(context.Background())
	return ScanModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		scanner: s,
		target:  target,
		total:   total,
		events:  make(chan tea.Msg),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Init starts the spinner and launches the scan.
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runScan(), m.waitForEvent())
}

// Update handles spinner ticks, progress and scan completion.
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.last = msg.Event
		if msg.Event.TotalCount > 0 {
			m.total = msg.Event.TotalCount
		}
		return m, m.waitForEvent()

	case ScanCompleteMsg:
		m.done = true
		m.cancel()
		return m, nil

	case ScanErrorMsg:
		m.done = true
		m.err = msg.Err.Error()
		m.cancel()
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the scan progress.
func (m ScanModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Baseera - Interactive Mode"))
	b.WriteString("\n\n")

	if m.done && m.err != "" {
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("Scan failed: %s", m.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("esc back • ctrl+c quit"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s Scanning %s\n\n", m.spinner.View(), styles.SelectedStyle.Render(m.target.URL)))
	b.WriteString("  ")
	b.WriteString(m.bar.ViewAs(float64(m.last.Percentage) / 100))
	b.WriteString("\n")
	if m.last.ProbeName != "" {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  %d/%d  last: %s", m.last.CompletedCount, m.total, m.last.ProbeName)))
	} else {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  0/%d  loading page", m.total)))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("esc cancel • ctrl+c quit"))

	return b.String()
}

// Cancel stops the running scan.
func (m ScanModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Done reports whether the scan has ended.
func (m ScanModel) Done() bool {
	return m.done
}

// Last returns the most recent progress event.
func (m ScanModel) Last() types.ProgressEvent {
	return m.last
}

// runScan runs the scan and reports through m.events until the final
// message has been delivered.
func (m ScanModel) runScan() tea.Cmd {
	s, ctx, events, rawURL, targetID := m.scanner, m.ctx, m.events, m.target.URL, m.target.ID
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}
	return func() tea.Msg {
		session, err := s.Scan(ctx, targetID, rawURL, func(e types.ProgressEvent) {
			send(ProgressMsg{Event: e})
		})
		if err != nil {
			send(ScanErrorMsg{Err: err})
			return nil
		}
		send(ScanCompleteMsg{Session: session})
		return nil
	}
}

func (m ScanModel) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}
