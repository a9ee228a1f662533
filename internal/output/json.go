package output

import (
	"encoding/json"
	"io"

	"github.com/buemura/baseera/pkg/types"
)

// JSONFormatter renders the report as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, report types.Report) error {
	if report.Results == nil {
		report.Results = []types.Finding{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
