package output

import (
	"fmt"
	"io"

	"github.com/buemura/baseera/pkg/types"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter renders results as a colored terminal table.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, report types.Report) error {
	fmt.Fprintf(w, "\n[%s] %s - %d findings\n", shortID(report.SessionID), report.URL, len(report.Results))

	if len(report.Results) == 0 {
		fmt.Fprintln(w, "  No findings.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Severity", "Type", "Title", "Location", "Evidence"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")

	for _, r := range rows(report.Results) {
		table.Append([]string{colorSeverity(r.Severity), r.Type, r.Title, r.Location, truncate(r.Evidence, 80)})
	}

	table.Render()

	fmt.Fprintf(w, "  Summary: %s\n", summaryLine(report.Summary))
	return nil
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("CRITICAL")
	case types.SeverityHigh:
		return color.RedString("HIGH")
	case types.SeverityMedium:
		return color.YellowString("MEDIUM")
	case types.SeverityLow:
		return color.CyanString("LOW")
	default:
		return string(s)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
