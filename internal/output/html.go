package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/buemura/baseera/pkg/types"
)

// HTMLFormatter renders results as a self-contained HTML report with
// styled severity badges and expandable finding details.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Format(w io.Writer, report types.Report) error {
	return htmlTpl.Execute(w, templateData{Report: report, Rows: rows(report.Results)})
}

type templateData struct {
	Report types.Report
	Rows   []row
}

// severityClass maps a Severity to a CSS class name.
func severityClass(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "critical"
	case types.SeverityHigh:
		return "high"
	case types.SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

var funcMap = template.FuncMap{
	"severityClass": severityClass,
}

var htmlTpl = template.Must(template.New("report").Funcs(funcMap).Parse(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Baseera Scan Report</title>
<style>%s</style>
</head>
<body>
<div class="container">
  <h1>Baseera Scan Report</h1>
  <p class="meta">{{.Report.URL}}{{if not .Report.CompletedAt.IsZero}} &middot; {{.Report.CompletedAt.UTC.Format "2006-01-02 15:04:05 MST"}}{{end}}</p>

  <div class="summary-bar">
    <span class="badge critical">{{.Report.Summary.Critical}} Critical</span>
    <span class="badge high">{{.Report.Summary.High}} High</span>
    <span class="badge medium">{{.Report.Summary.Medium}} Medium</span>
    <span class="badge low">{{.Report.Summary.Low}} Low</span>
    <span class="total">{{.Report.Summary.Total}} total findings</span>
  </div>

  <section class="findings">
    {{if not .Rows}}
      <p class="no-findings">No findings.</p>
    {{else}}
      <table>
        <thead>
          <tr><th>Severity</th><th>Type</th><th>Title</th><th>Location</th></tr>
        </thead>
        <tbody>
          {{range .Rows}}
          <tr>
            <td><span class="badge {{severityClass .Severity}}">{{.Severity}}</span></td>
            <td>{{.Type}}</td>
            <td>
              {{.Title}}
              {{if or .Description .Evidence .Recommendation}}
              <details>
                <summary>Details</summary>
                {{if .Description}}<p>{{.Description}}</p>{{end}}
                {{if .Evidence}}<p><strong>Evidence:</strong> {{.Evidence}}</p>{{end}}
                {{if .Recommendation}}<p><strong>Recommendation:</strong> {{.Recommendation}}</p>{{end}}
              </details>
              {{end}}
            </td>
            <td class="location">{{.Location}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
    {{end}}
  </section>
</div>
</body>
</html>`, cssStyles)))

const cssStyles = `
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,Helvetica,Arial,sans-serif;
     line-height:1.6;color:#1a1a2e;background:#f5f5fa;padding:2rem}
.container{max-width:960px;margin:0 auto}
h1{margin-bottom:1rem;font-size:1.8rem}
.summary-bar{display:flex;gap:.5rem;flex-wrap:wrap;align-items:center;margin-bottom:1.5rem}
.total{margin-left:.5rem;font-weight:600}
.badge{display:inline-block;padding:2px 10px;border-radius:12px;font-size:.8rem;font-weight:700;color:#fff;text-transform:uppercase}
.badge.critical{background:#d32f2f}
.badge.high{background:#ef6c00}
.badge.medium{background:#f9a825;color:#333}
.badge.low{background:#0288d1}
table{width:100%;border-collapse:collapse;margin-bottom:1rem}
th,td{text-align:left;padding:.5rem .75rem;border-bottom:1px solid #e0e0e0}
th{background:#eaeaea;font-weight:600}
tbody tr:nth-child(even){background:#fafafe}
details{margin-top:.4rem}
summary{cursor:pointer;color:#1565c0;font-size:.85rem}
.meta{color:#555;margin-bottom:1rem;word-break:break-all}
.location{font-size:.85rem;word-break:break-all}
.no-findings{color:#666;font-style:italic}
.findings{margin-bottom:2rem}
`
