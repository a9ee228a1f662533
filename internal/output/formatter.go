package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
)

// Formatter renders a scan report to a writer.
type Formatter interface {
	Format(w io.Writer, report types.Report) error
}

// Formats lists the supported format names.
var Formats = []string{"table", "json", "markdown", "html"}

// GetFormatter returns the appropriate formatter for the given format string.
func GetFormatter(format string) (Formatter, error) {
	switch format {
	case "table":
		return &TableFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, markdown, html)", format)
	}
}

// row is a finding with its derived tier and catalog name.
type row struct {
	types.Finding
	Severity types.Severity
	Type     string
}

// rows returns the findings most severe first, keeping execution order
// within a tier. The report is not modified.
func rows(findings []types.Finding) []row {
	cat := catalog.Default()
	out := make([]row, len(findings))
	for i, f := range findings {
		name := fmt.Sprintf("type %d", f.TypeID)
		if e, err := cat.Lookup(f.TypeID); err == nil {
			name = e.DisplayName
		}
		out[i] = row{Finding: f, Severity: severity.Classify(f.TypeID), Type: name}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return types.SeverityRank(out[i].Severity) < types.SeverityRank(out[j].Severity)
	})
	return out
}

func summaryLine(s types.SeveritySummary) string {
	return fmt.Sprintf("%d findings (%d critical, %d high, %d medium, %d low)",
		s.Total, s.Critical, s.High, s.Medium, s.Low)
}
