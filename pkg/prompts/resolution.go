// Package prompts builds the LLM prompts used during query resolution.
package prompts

import (
	"fmt"
	"strings"

	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
)

// FunctionCallingSystemMessage instructs the model to answer schema questions
// by calling tools.
const FunctionCallingSystemMessage = "You are a data schema assistant. " +
	"Answer questions about scanned tabular files by calling exactly one of the provided tools. " +
	"Pick the most specific tool for the question and fill its parameters from the question text. " +
	"File names include their extension, e.g. orders.csv."

// BuildStructuredOutputPrompt asks the model to emit a tool selection as JSON
// when the endpoint has no native tool-calling support.
func BuildStructuredOutputPrompt(query string, tools []llm.ToolDefinition, availableFiles []string) string {
	var prompt strings.Builder

	prompt.WriteString("Select the tool that answers the user's question about scanned tabular files.\n\n")

	prompt.WriteString("## Available Tools\n\n")
	for _, tool := range tools {
		fmt.Fprintf(&prompt, "- %s: %s\n", tool.Name, tool.Description)
		if props, ok := tool.Parameters["properties"].(map[string]any); ok && len(props) > 0 {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			fmt.Fprintf(&prompt, "  parameters: %s\n", strings.Join(names, ", "))
		}
	}

	if len(availableFiles) > 0 {
		prompt.WriteString("\n## Available Files\n\n")
		prompt.WriteString(strings.Join(availableFiles, ", "))
		prompt.WriteString("\n")
	}

	prompt.WriteString("\n## Question\n\n")
	prompt.WriteString(query)
	prompt.WriteString("\n\n## Response Format\n\n")
	prompt.WriteString(`Respond with a single JSON object and nothing else:
{"tool": "<tool name>", "parameters": {<parameter name>: <value>}, "confidence": <0.0 to 1.0>}
Use {} for parameters when the tool takes none.`)

	return prompt.String()
}

// BuildSQLGenerationPrompt asks the model to translate the question into one
// read-only SELECT over the schema_columns metadata table.
func BuildSQLGenerationPrompt(query string, cols []models.ColumnDescriptor) string {
	var prompt strings.Builder

	prompt.WriteString("Translate the question into a single PostgreSQL SELECT statement over the table below.\n\n")
	prompt.WriteString("## Table: schema_columns\n\n")
	prompt.WriteString("One row per scanned column:\n")
	prompt.WriteString("- file_name (text), file_path (text)\n")
	prompt.WriteString("- column_name (text), data_type (text: integer, float, boolean, datetime, string)\n")
	prompt.WriteString("- null_count (bigint), unique_count (bigint), total_rows (bigint)\n")
	prompt.WriteString("- file_size_mb (double precision), last_scanned (timestamptz)\n")

	if len(cols) > 0 {
		prompt.WriteString("\n## Sample of current contents\n\n")
		limit := len(cols)
		if limit > 20 {
			limit = 20
		}
		for _, c := range cols[:limit] {
			fmt.Fprintf(&prompt, "- %s | %s | %s\n", c.FileName, c.ColumnName, c.DataType)
		}
	}

	prompt.WriteString("\n## Examples\n\n")
	prompt.WriteString("Q: which file has the most columns?\n")
	prompt.WriteString("A: SELECT file_name, COUNT(*) AS column_count FROM schema_columns GROUP BY file_name ORDER BY column_count DESC LIMIT 1\n\n")
	prompt.WriteString("Q: how many string columns are there?\n")
	prompt.WriteString("A: SELECT COUNT(*) FROM schema_columns WHERE data_type = 'string'\n")

	prompt.WriteString("\n## Question\n\n")
	prompt.WriteString(query)
	prompt.WriteString("\n\nRespond with the SQL statement only. No explanation, no markdown. SELECT statements only.")

	return prompt.String()
}

// BuildSQLRetryPrompt feeds a failed attempt back to the model.
func BuildSQLRetryPrompt(query, failedSQL, failure string) string {
	var prompt strings.Builder

	prompt.WriteString("The previous SQL attempt failed. Produce a corrected PostgreSQL SELECT statement.\n\n")
	fmt.Fprintf(&prompt, "## Question\n\n%s\n\n", query)
	fmt.Fprintf(&prompt, "## Failed SQL\n\n%s\n\n", failedSQL)
	fmt.Fprintf(&prompt, "## Error\n\n%s\n\n", failure)
	prompt.WriteString("The table is schema_columns with columns file_name, file_path, column_name, data_type, ")
	prompt.WriteString("null_count, unique_count, total_rows, file_size_mb, last_scanned.\n")
	prompt.WriteString("Respond with the corrected SQL statement only.")

	return prompt.String()
}

// SynthesisSystemMessage frames tool output rewriting.
const SynthesisSystemMessage = "You are a data schema assistant. " +
	"Rewrite the tool output as a concise, friendly answer to the user's question. " +
	"Keep every fact and number from the tool output. Do not invent information."

// BuildSynthesisPrompt asks the model to phrase a tool result as an answer.
func BuildSynthesisPrompt(query, toolResult string) string {
	return fmt.Sprintf("## Question\n\n%s\n\n## Tool Output\n\n%s\n\nAnswer the question using only the tool output.", query, toolResult)
}
