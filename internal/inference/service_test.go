package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/llm"
)

type scriptedClient struct {
	reply    string
	err      error
	lastReq  llm.Request
	requests int
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.lastReq = req
	c.requests++
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

const analyzeReply = `{
	"document_type": "Sales Report",
	"table_name": "sales_transactions",
	"columns": [
		{"name": "name", "type": "VARCHAR", "description": "Customer"},
		{"name": "total", "type": "DOUBLE", "description": "Amount"}
	],
	"data": [{"name": "alpha", "total": 10.5}],
	"issues": ["Missing critical values"]
}`

func TestAnalyzeDocumentParsesResult(t *testing.T) {
	client := &scriptedClient{reply: analyzeReply}
	svc := NewService(client, nil)

	result, err := svc.AnalyzeDocument(context.Background(), []byte("name,total\nalpha,10.5\n"), "text/csv", "report.csv")
	if err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if result.TableName != "sales_transactions" {
		t.Fatalf("TableName = %q", result.TableName)
	}
	if len(result.Columns) != 2 || result.Columns[1].Type != "DOUBLE" {
		t.Fatalf("Columns = %+v", result.Columns)
	}
	if len(result.Data) != 1 || result.Data[0]["name"] != "alpha" {
		t.Fatalf("Data = %+v", result.Data)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Issues = %v", result.Issues)
	}
	if client.requests != 1 {
		t.Fatalf("model calls = %d, want exactly one attempt", client.requests)
	}
}

func TestAnalyzeDocumentStripsCodeFences(t *testing.T) {
	client := &scriptedClient{reply: "```json\n" + analyzeReply + "\n```"}
	svc := NewService(client, nil)

	result, err := svc.AnalyzeDocument(context.Background(), []byte("x"), "text/plain", "x.txt")
	if err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if result.DocumentType != "Sales Report" {
		t.Fatalf("DocumentType = %q", result.DocumentType)
	}
}

func TestAnalyzeDocumentEmbedsImageContent(t *testing.T) {
	client := &scriptedClient{reply: analyzeReply}
	svc := NewService(client, nil)

	if _, err := svc.AnalyzeDocument(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "invoice.jpg"); err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if len(client.lastReq.Parts) != 2 {
		t.Fatalf("parts = %d", len(client.lastReq.Parts))
	}
	if client.lastReq.Parts[1].ImageMIME != "image/jpeg" {
		t.Fatalf("image MIME = %q", client.lastReq.Parts[1].ImageMIME)
	}
}

func TestAnalyzeDocumentEmbedsTextContent(t *testing.T) {
	client := &scriptedClient{reply: analyzeReply}
	svc := NewService(client, nil)

	if _, err := svc.AnalyzeDocument(context.Background(), []byte("a,b\n1,2\n"), "text/csv", "d.csv"); err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if got := client.lastReq.Parts[1].Text; got != "a,b\n1,2\n" {
		t.Fatalf("text part = %q", got)
	}
	if !strings.Contains(client.lastReq.System, "snake_case") {
		t.Fatal("instruction does not mandate snake_case naming")
	}
	if !strings.Contains(client.lastReq.System, "Extract ALL rows") {
		t.Fatal("instruction does not mandate exhaustive extraction")
	}
}

func TestAnalyzeDocumentReturnsInferenceErrorOnGarbage(t *testing.T) {
	client := &scriptedClient{reply: "I could not find a table in this file."}
	svc := NewService(client, nil)

	_, err := svc.AnalyzeDocument(context.Background(), []byte("x"), "text/plain", "x.txt")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("error = %v, want *InferenceError", err)
	}
}

func TestAnalyzeDocumentReturnsInferenceErrorOnModelFailure(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("model unavailable")}
	svc := NewService(client, nil)

	_, err := svc.AnalyzeDocument(context.Background(), []byte("x"), "text/plain", "x.txt")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("error = %v, want *InferenceError", err)
	}
}

func TestRepairRecordsParsesRepairedRows(t *testing.T) {
	client := &scriptedClient{reply: "```json\n[{\"name\": \"Alpha\", \"total\": 10.5}]\n```"}
	svc := NewService(client, nil)

	records := []lakehouse.Record{{"name": "alpha ", "total": 10.5}}
	repaired, err := svc.RepairRecords(context.Background(), records, []string{"Inconsistent formatting"})
	if err != nil {
		t.Fatalf("RepairRecords() error = %v", err)
	}
	if len(repaired) != 1 || repaired[0]["name"] != "Alpha" {
		t.Fatalf("repaired = %+v", repaired)
	}
	if !strings.Contains(client.lastReq.System, "Inconsistent formatting") {
		t.Fatal("repair instruction does not embed the reported issues")
	}
}

func TestRepairRecordsRequiresIssues(t *testing.T) {
	svc := NewService(&scriptedClient{reply: "[]"}, nil)
	_, err := svc.RepairRecords(context.Background(), []lakehouse.Record{{"a": 1}}, nil)
	var repErr *RepairError
	if !errors.As(err, &repErr) {
		t.Fatalf("error = %v, want *RepairError", err)
	}
}

func TestRepairRecordsReturnsRepairErrorOnGarbage(t *testing.T) {
	svc := NewService(&scriptedClient{reply: "all fixed!"}, nil)
	_, err := svc.RepairRecords(context.Background(), []lakehouse.Record{{"a": 1}}, []string{"Duplicates"})
	var repErr *RepairError
	if !errors.As(err, &repErr) {
		t.Fatalf("error = %v, want *RepairError", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := stripCodeFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("stripCodeFences() = %q", got)
	}
	if got := stripCodeFences("  {\"a\":1} "); got != `{"a":1}` {
		t.Fatalf("stripCodeFences() = %q", got)
	}
}
