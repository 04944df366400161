package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/serpent/internal/serp"
)

// Summary contains aggregated metrics about a batch scrape run.
type Summary struct {
	TotalQueries     int
	Succeeded        int
	Failed           int
	FromCache        int
	TotalResults     int
	FailuresByReason map[string]int
	ResultsByEngine  map[string]int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	TopFailures      []Failure
}

// Failure names one query that did not produce a document.
type Failure struct {
	Keyword string
	Engine  string
	Reason  string
	Error   string
}

// GenerateSummary aggregates a batch result into summary metrics.
func GenerateSummary(batch *serp.BatchResult) Summary {
	s := Summary{
		FailuresByReason: make(map[string]int),
		ResultsByEngine:  make(map[string]int),
	}
	if batch == nil {
		return s
	}

	s.StartTime = batch.StartedAt
	s.EndTime = batch.CompletedAt
	s.Duration = s.EndTime.Sub(s.StartTime)

	for q, out := range batch.Statuses {
		s.TotalQueries++
		if out.Err != nil {
			s.Failed++
			s.FailuresByReason[out.Reason]++
			s.TopFailures = append(s.TopFailures, Failure{
				Keyword: q.Keyword,
				Engine:  string(q.Engine),
				Reason:  out.Reason,
				Error:   out.Err.Error(),
			})
			continue
		}
		s.Succeeded++
		if out.Reason == "cache" {
			s.FromCache++
		}
		if out.Document != nil {
			s.TotalResults += len(out.Document.Results)
			s.ResultsByEngine[string(q.Engine)] += len(out.Document.Results)
		}
	}

	// Map iteration order is random; keep the failure list stable.
	sort.Slice(s.TopFailures, func(i, j int) bool {
		return s.TopFailures[i].Keyword < s.TopFailures[j].Keyword
	})
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Serpent Batch Summary
---------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Queries:       {{.TotalQueries}}
Succeeded:     {{.Succeeded}} ({{.FromCache}} from cache)
Failed:        {{.Failed}}
Results:       {{.TotalResults}}

Results By Engine:
{{- range $engine, $count := .ResultsByEngine}}
  {{$engine}}: {{$count}}
{{- else}}
  None
{{- end}}

Failures:
{{- range .TopFailures}}
  {{.Keyword}} ({{.Engine}}): {{.Reason}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text summary: %w", err)
	}

	return nil
}
