package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/llm"
	"github.com/lakelens/lakelens/internal/observability"
)

// fullListingLimit is the row count up to which the narration prompt carries
// the whole result instead of a head plus summary statistics.
const fullListingLimit = 10

// Narrate produces the conversational answer from an executed result. Large
// results are summarized before they reach the model so the prompt stays
// bounded regardless of row count.
func (s *Service) Narrate(ctx context.Context, question, sqlText string, result lakehouse.QueryResult, hasChart bool) (string, error) {
	prompt := `You are a helpful data analyst explaining query results to a business user.

Instructions:
- Answer the user's question directly using the data summary below
- Mention concrete numbers from the result
- Keep the tone conversational and concise
- Do not show SQL or mention how the query was constructed`
	if hasChart {
		prompt += "\n- A chart accompanies this answer; refer the user to it"
	}

	body := "User Question: " + question + "\n\nSQL Used: " + sqlText + "\n\nData Summary:\n" + summarizeResult(result)

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, llm.Request{
		System: prompt,
		Parts:  []llm.Part{llm.TextPart(body)},
	})
	observability.ObserveModelCall("narrate", time.Since(start))
	if err != nil {
		return "", err
	}
	narration := strings.TrimSpace(reply)
	if narration == "" {
		return "", fmt.Errorf("model returned empty narration")
	}
	return narration, nil
}

func summarizeResult(result lakehouse.QueryResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rows: %d, Columns: %d (%s)\n", len(result.Rows), len(result.Columns), strings.Join(result.Columns, ", "))
	if len(result.Rows) == 0 {
		sb.WriteString("The query returned no rows.\n")
		return sb.String()
	}
	if len(result.Rows) <= fullListingLimit {
		sb.WriteString("Complete result:\n")
		sb.WriteString(renderRows(result.Columns, result.Rows))
		return sb.String()
	}
	sb.WriteString("First rows:\n")
	sb.WriteString(renderRows(result.Columns, head(result.Rows, 5)))
	sb.WriteString(numericStats(result))
	return sb.String()
}

func renderRows(columns []string, rows [][]any) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(columns, "\t"))
	sb.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, value := range row {
			if value == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", value)
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// numericStats renders count, min, max, and mean per numeric column so the
// model can speak to the shape of results it never sees in full.
func numericStats(result lakehouse.QueryResult) string {
	var sb strings.Builder
	for i, column := range result.Columns {
		var count int
		var sum, min, max float64
		for _, row := range result.Rows {
			if i >= len(row) {
				continue
			}
			value, ok := asFloat(row[i])
			if !ok {
				continue
			}
			if count == 0 || value < min {
				min = value
			}
			if count == 0 || value > max {
				max = value
			}
			sum += value
			count++
		}
		if count == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Stats for %s: count=%d min=%g max=%g mean=%g\n", column, count, min, max, sum/float64(count))
	}
	return sb.String()
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func head(rows [][]any, n int) [][]any {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}
