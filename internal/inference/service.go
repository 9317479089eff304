package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/llm"
	"github.com/lakelens/lakelens/internal/observability"
)

type Service struct {
	LLM    llm.Client
	Logger *slog.Logger
}

func NewService(client llm.Client, logger *slog.Logger) *Service {
	return &Service{LLM: client, Logger: logger}
}

// AnalyzeDocument sends the file content to the model and parses the reply
// into an ExtractionResult. Image MIME types are inlined as base64 image
// data; everything else is embedded as raw text. One attempt, no retry; a
// model failure or an unparseable reply comes back as *InferenceError.
func (s *Service) AnalyzeDocument(ctx context.Context, fileBytes []byte, mimeType, filename string) (*ExtractionResult, error) {
	parts := []llm.Part{llm.TextPart("Filename: " + filename)}
	if strings.HasPrefix(mimeType, "image/") {
		parts = append(parts, llm.ImagePart(mimeType, fileBytes))
	} else {
		parts = append(parts, llm.TextPart(string(fileBytes)))
	}

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, llm.Request{System: analyzePrompt, Parts: parts})
	observability.ObserveModelCall("analyze", time.Since(start))
	if err != nil {
		observability.ObserveDocumentAnalyzed("error")
		return nil, &InferenceError{Err: err}
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &result); err != nil {
		observability.ObserveDocumentAnalyzed("unparseable")
		return nil, &InferenceError{Err: fmt.Errorf("parse model reply: %w", err)}
	}
	if result.TableName == "" || len(result.Columns) == 0 {
		observability.ObserveDocumentAnalyzed("unparseable")
		return nil, &InferenceError{Err: fmt.Errorf("model reply missing table_name or columns")}
	}

	observability.ObserveDocumentAnalyzed("ok")
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "document_analyzed",
			slog.String("filename", filename),
			slog.String("document_type", result.DocumentType),
			slog.String("table_name", result.TableName),
			slog.Int("columns", len(result.Columns)),
			slog.Int("rows", len(result.Data)),
			slog.Int("issues", len(result.Issues)),
		)
	}
	return &result, nil
}

// RepairRecords asks the model for a corrected row set. Issues must be
// non-empty; the caller clears them only after accepting the returned rows.
func (s *Service) RepairRecords(ctx context.Context, records []lakehouse.Record, issues []string) ([]lakehouse.Record, error) {
	if len(issues) == 0 {
		return nil, &RepairError{Err: fmt.Errorf("no issues to repair")}
	}

	dataJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, &RepairError{Err: fmt.Errorf("encode records: %w", err)}
	}

	start := time.Now()
	reply, err := s.LLM.Complete(ctx, llm.Request{
		System: repairPrompt(issues),
		Parts:  []llm.Part{llm.TextPart("Data to Clean: " + string(dataJSON))},
	})
	observability.ObserveModelCall("repair", time.Since(start))
	if err != nil {
		observability.ObserveRepairRun("error")
		return nil, &RepairError{Err: err}
	}

	var repaired []lakehouse.Record
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &repaired); err != nil {
		observability.ObserveRepairRun("unparseable")
		return nil, &RepairError{Err: fmt.Errorf("parse model reply: %w", err)}
	}

	observability.ObserveRepairRun("ok")
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "records_repaired",
			slog.Int("rows_in", len(records)),
			slog.Int("rows_out", len(repaired)),
			slog.Int("issues", len(issues)),
		)
	}
	return repaired, nil
}
