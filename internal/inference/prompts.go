package inference

import (
	"encoding/json"
	"strings"
)

const analyzePrompt = `You are an expert Data Engineer specializing in schema discovery and data extraction.

Your task: Analyze the provided unstructured data and extract structured, clean data.

Steps:
1. Identify the document type (e.g., "Invoice", "Sales Report", "Inventory List")
2. Suggest a descriptive table name in snake_case (e.g., "sales_transactions", "customer_invoices")
3. Extract ALL data into a list of JSON objects
4. Standardize column names to snake_case (e.g., "customer_name", "total_amount")
5. Assign appropriate SQL data types:
   - VARCHAR for text/strings
   - INTEGER for whole numbers
   - DOUBLE for decimals
   - DATE for dates (format: YYYY-MM-DD)
   - BOOLEAN for true/false values
6. Identify data quality issues:
   - Mixed date formats
   - Missing critical values
   - Inconsistent formatting
   - Duplicate entries

Output Format (JSON only, no markdown):
{
    "document_type": "Type of document",
    "table_name": "suggested_table_name",
    "columns": [
        {"name": "column_name", "type": "SQL_TYPE", "description": "Brief description"}
    ],
    "data": [
        {"column_name": "value"}
    ],
    "issues": ["Issue 1", "Issue 2"]
}

Requirements:
- Extract ALL rows/records, not just samples
- Maintain data accuracy and completeness
- Flag ANY quality concerns
- Return valid JSON only`

func repairPrompt(issues []string) string {
	issuesJSON, _ := json.MarshalIndent(issues, "", "  ")
	return `You are an expert Data Quality Engineer.

Data Quality Issues Detected:
` + string(issuesJSON) + `

Your task: Fix these issues in the provided data.

Cleaning Rules:
1. Standardize date formats to YYYY-MM-DD
2. Fix inconsistent formatting (capitalization, spacing)
3. Fill obvious missing values or use null
4. Remove duplicate entries
5. Correct clear typos and misspellings
6. Ensure numeric values are properly formatted
7. Standardize categorical values

IMPORTANT:
- Maintain all original data rows
- Only fix the specific issues mentioned
- Preserve data accuracy
- Return valid JSON only (no markdown)

Output Format:
[
    {"column1": "cleaned_value1", "column2": "cleaned_value2"}
]`
}

// stripCodeFences removes a markdown code fence wrapper from a model reply so
// the payload can be parsed as JSON.
func stripCodeFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
