package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/buemura/baseera/pkg/types"
)

// MarkdownFormatter renders results as Markdown tables suitable for
// pasting into docs, issues, or pull-request descriptions.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, report types.Report) error {
	fmt.Fprintf(w, "## %s\n\n", escapeMarkdown(report.URL))
	if !report.CompletedAt.IsZero() {
		fmt.Fprintf(w, "_Scanned %s (session `%s`)_\n\n", report.CompletedAt.UTC().Format("2006-01-02 15:04:05 MST"), report.SessionID)
	}

	if len(report.Results) == 0 {
		fmt.Fprintln(w, "_No findings._")
		return nil
	}

	fmt.Fprintln(w, "| Severity | Type | Title | Location | Evidence | Recommendation |")
	fmt.Fprintln(w, "|----------|------|-------|----------|----------|----------------|")

	for _, r := range rows(report.Results) {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
			severityBadge(r.Severity),
			escapeMarkdown(r.Type),
			escapeMarkdown(r.Title),
			escapeMarkdown(r.Location),
			escapeMarkdown(r.Evidence),
			escapeMarkdown(r.Recommendation),
		)
	}

	fmt.Fprintf(w, "\n**Summary:** %s\n", summaryLine(report.Summary))
	return nil
}

// severityBadge returns a bold, uppercased severity label for Markdown.
func severityBadge(s types.Severity) string {
	return fmt.Sprintf("**%s**", string(s))
}

// escapeMarkdown escapes pipe characters and newlines that would break
// Markdown tables.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
