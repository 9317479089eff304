// Package analyst converts natural-language questions into SQL over the
// session's tables, executes them through the lakehouse store, and narrates
// the result, optionally with a chart specification.
package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/llm"
	"github.com/lakelens/lakelens/internal/observability"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in a session's append-only chat history.
type ChatMessage struct {
	Role          string     `json:"role"`
	Content       string     `json:"content"`
	Query         string     `json:"query,omitempty"`
	ResultColumns []string   `json:"result_columns,omitempty"`
	ResultRows    [][]any    `json:"result_rows,omitempty"`
	Chart         *ChartSpec `json:"chart,omitempty"`
	Err           string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Service struct {
	LLM    llm.Client
	Logger *slog.Logger
}

func NewService(client llm.Client, logger *slog.Logger) *Service {
	return &Service{LLM: client, Logger: logger}
}

// SynthesizeSQL builds one instruction from the schema context and the
// question and returns the model's SQL with code fences stripped. The SQL is
// not validated semantically; execution is the only safety net.
func (s *Service) SynthesizeSQL(ctx context.Context, question string, schemas []TableSchema) (string, error) {
	if len(schemas) == 0 {
		return "", fmt.Errorf("no table schemas available")
	}

	prompt := `You are an expert Data Analyst using DuckDB SQL.

Available Tables and Schemas:
` + BuildSchemaContext(schemas) + `

Task: Generate a precise SQL query to answer the user's question.

Instructions:
- Return ONLY the SQL query, no explanations or markdown
- Use proper table and column names from the schema above
- For multi-table queries, use appropriate JOINs based on common columns
- Use aggregate functions (SUM, COUNT, AVG) when appropriate
- Add ORDER BY and LIMIT clauses for readability when listing data
- Exclude metadata columns (` + lakehouse.IngestedAtColumn + `, ` + lakehouse.RawDataColumn + `) from SELECT unless specifically requested
- If the question is unrelated to analysis of the available data, politely decline and steer the user back to their data; in that case return a comment line starting with -- instead of a query`

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, llm.Request{
		System: prompt,
		Parts:  []llm.Part{llm.TextPart("User Question: " + question)},
	})
	observability.ObserveModelCall("synthesize_sql", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("synthesize sql: %w", err)
	}

	sqlText := stripMarkdownSQL(reply)
	if sqlText == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sqlText, nil
}

// Ask runs one full chat turn: synthesize SQL, execute it, optionally produce
// a chart spec, then narrate. An execution failure is recorded as an error
// entry rather than raised; a chart failure degrades to no chart; a narration
// failure is returned alongside a message that still carries the query and
// its result.
func (s *Service) Ask(ctx context.Context, store *lakehouse.Store, question string, selectedTables []string) (ChatMessage, error) {
	observability.IncrementQuestions()

	schemas := make([]TableSchema, 0, len(selectedTables))
	for _, table := range selectedTables {
		columns, ok := store.GetSchema(ctx, table)
		if !ok {
			return ChatMessage{}, fmt.Errorf("schema unavailable for table %q", table)
		}
		schemas = append(schemas, TableSchema{TableName: table, Columns: columns})
	}

	sqlText, err := s.SynthesizeSQL(ctx, question, schemas)
	if err != nil {
		return ChatMessage{}, err
	}

	result, execErr := store.Execute(ctx, sqlText)
	if execErr != nil {
		observability.IncrementSQLFailures()
		if s.Logger != nil {
			s.Logger.WarnContext(ctx, "query_failed",
				slog.String("sql", sqlText),
				slog.String("error", execErr.Error()),
			)
		}
		return ChatMessage{
			Role:      RoleAssistant,
			Content:   "Query Error: " + execErr.Error(),
			Query:     sqlText,
			Err:       execErr.Error(),
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	var chart *ChartSpec
	if WantsChart(question) && len(result.Rows) > 0 {
		spec, chartErr := s.GenerateChartSpec(ctx, question, result)
		if chartErr != nil {
			observability.IncrementChartFailures()
			if s.Logger != nil {
				s.Logger.WarnContext(ctx, "chart_spec_dropped", slog.String("error", chartErr.Error()))
			}
		} else {
			chart = spec
		}
	}

	message := ChatMessage{
		Role:          RoleAssistant,
		Query:         sqlText,
		ResultColumns: result.Columns,
		ResultRows:    result.Rows,
		Chart:         chart,
		CreatedAt:     time.Now().UTC(),
	}

	narration, err := s.Narrate(ctx, question, sqlText, result, chart != nil)
	if err != nil {
		// The executed result stays on the message so the turn's work is not lost.
		return message, fmt.Errorf("narrate result: %w", err)
	}
	message.Content = narration
	return message, nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
