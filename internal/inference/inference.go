// Package inference turns unstructured file content into typed table data by
// way of a single language-model call, and repairs extracted rows when the
// model reported data-quality issues.
package inference

import (
	"fmt"

	"github.com/lakelens/lakelens/internal/lakehouse"
)

// ExtractionResult is the parsed outcome of one document analysis. It lives
// in per-session state until the rows are loaded or the flow is abandoned;
// the repair step replaces Data and clears Issues only on explicit user
// confirmation.
type ExtractionResult struct {
	DocumentType string                 `json:"document_type"`
	TableName    string                 `json:"table_name"`
	Columns      []lakehouse.ColumnSpec `json:"columns"`
	Data         []lakehouse.Record     `json:"data"`
	Issues       []string               `json:"issues"`
}

// InferenceError marks a failed document analysis: either the model call
// itself failed or its reply was not the required JSON shape.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("schema inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// RepairError marks a failed data-quality repair.
type RepairError struct {
	Err error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("data repair failed: %v", e.Err)
}

func (e *RepairError) Unwrap() error {
	return e.Err
}
