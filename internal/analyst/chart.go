package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/llm"
	"github.com/lakelens/lakelens/internal/observability"
)

// chartKeywords are the substrings that signal the user wants a
// visualization alongside the narration.
var chartKeywords = []string{"plot", "chart", "graph", "visualiz", "show", "display", "draw"}

var chartKinds = map[string]bool{
	"bar":       true,
	"line":      true,
	"scatter":   true,
	"pie":       true,
	"histogram": true,
}

// ChartSpec is a declarative description of a chart over the query result.
// Clients render it with whatever plotting library they carry; the server
// never emits executable code.
type ChartSpec struct {
	Kind  string `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y,omitempty"`
	Title string `json:"title,omitempty"`
}

// WantsChart reports whether the question asks for a visualization.
func WantsChart(question string) bool {
	lowered := strings.ToLower(question)
	for _, keyword := range chartKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// GenerateChartSpec asks the model for a chart description and validates it
// against the result's columns. Callers treat any error as "no chart".
func (s *Service) GenerateChartSpec(ctx context.Context, question string, result lakehouse.QueryResult) (*ChartSpec, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	prompt := `You are a data visualization assistant.

The user asked: ` + question + `

The query result has these columns: ` + strings.Join(result.Columns, ", ") + `

Choose the single best chart for this result and respond with ONLY a JSON object, no markdown:
{"kind": "bar|line|scatter|pie|histogram", "x": "<column name>", "y": "<column name or empty for histogram>", "title": "<short title>"}

The x and y values must be column names from the list above.`

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, llm.Request{
		System: prompt,
		Parts:  []llm.Part{llm.TextPart(renderRows(result.Columns, head(result.Rows, 5)))},
	})
	observability.ObserveModelCall("chart_spec", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("chart spec: %w", err)
	}

	var spec ChartSpec
	if err := json.Unmarshal([]byte(stripJSONFences(reply)), &spec); err != nil {
		return nil, fmt.Errorf("chart spec not valid JSON: %w", err)
	}
	if err := spec.Validate(result.Columns); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the spec against the columns the chart will draw from.
func (c *ChartSpec) Validate(columns []string) error {
	if !chartKinds[c.Kind] {
		return fmt.Errorf("unknown chart kind %q", c.Kind)
	}
	known := make(map[string]bool, len(columns))
	for _, column := range columns {
		known[column] = true
	}
	if !known[c.X] {
		return fmt.Errorf("chart x column %q not in result", c.X)
	}
	if c.Y != "" && !known[c.Y] {
		return fmt.Errorf("chart y column %q not in result", c.Y)
	}
	if c.Y == "" && c.Kind != "histogram" && c.Kind != "pie" {
		return fmt.Errorf("%s chart requires a y column", c.Kind)
	}
	return nil
}

func stripJSONFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
