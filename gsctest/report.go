package gsctest

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"time"

	"osnma/output"
)

// Report is the full outcome of one RunAll invocation, suitable for
// archiving alongside a receiver build (spec.md §8: "the six literal
// scenarios ... asserting the literal expectations").
type Report struct {
	Timestamp time.Time           `json:"timestamp"`
	Total     int                 `json:"total"`
	Passed    int                 `json:"passed"`
	Failed    int                 `json:"failed"`
	Results   []output.GSCResult  `json:"results"`
}

// BuildReport summarizes results into a Report. timestamp is supplied by
// the caller rather than taken from time.Now so report generation stays
// deterministic under replay.
func BuildReport(results []output.GSCResult, timestamp time.Time) Report {
	r := Report{Timestamp: timestamp, Total: len(results), Results: results}
	for _, res := range results {
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	return r
}

// WriteJSON writes r as indented JSON to path.
func (r Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("gsctest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// WriteHTML renders r as a standalone HTML report to path.
func (r Report) WriteHTML(path string) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"statusClass": func(passed bool) string {
			if passed {
				return "pass"
			}
			return "fail"
		},
		"statusIcon": func(passed bool) string {
			if passed {
				return "✓"
			}
			return "✗"
		},
	}).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("gsctest: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gsctest: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, r); err != nil {
		return fmt.Errorf("gsctest: %w", err)
	}
	return nil
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>OSNMA GSC Scenario Report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  background: #1a1a2e; color: #eee; padding: 20px; line-height: 1.6; }
h1 { color: #00d4ff; margin-bottom: 10px; }
.summary { display: flex; gap: 15px; margin-bottom: 20px; }
.stat { background: #16213e; padding: 15px 20px; border-radius: 8px; text-align: center; }
.stat-value { font-size: 1.8em; font-weight: bold; }
.pass .stat-value { color: #4ade80; }
.fail .stat-value { color: #f87171; }
table { width: 100%; border-collapse: collapse; margin-top: 10px; }
th, td { padding: 8px 10px; text-align: left; border-bottom: 1px solid #333; }
th { background: #16213e; color: #00d4ff; }
.status-pass { color: #4ade80; }
.status-fail { color: #f87171; }
.detail { color: #a5b4fc; font-size: 0.9em; }
</style>
</head>
<body>
<h1>OSNMA GSC Scenario Report</h1>
<p>Generated: {{.Timestamp.Format "2006-01-02 15:04:05"}}</p>
<div class="summary">
  <div class="stat"><div class="stat-value">{{.Total}}</div>Total</div>
  <div class="stat pass"><div class="stat-value">{{.Passed}}</div>Passed</div>
  <div class="stat fail"><div class="stat-value">{{.Failed}}</div>Failed</div>
</div>
<table>
<thead><tr><th>Status</th><th>Scenario</th><th>Detail</th></tr></thead>
<tbody>
{{range .Results}}
<tr>
  <td class="status-{{statusClass .Passed}}">{{statusIcon .Passed}}</td>
  <td>{{.Name}}</td>
  <td class="detail">{{.Detail}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>`
