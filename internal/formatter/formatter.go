// package formatter provides functions to export todo lists to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// Formats lists every supported export format.
var Formats = []Format{JSON, CSV, Markdown, Text}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// ParseFormat validates a user-supplied format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or text)", shared.ErrInvalidArgument, s)
	}
}

// Export encodes todos in format f.
func Export(todos []models.Todo, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return ExportToJSON(todos)
	case CSV:
		return ExportToCSV(todos)
	case Markdown:
		return ExportToMarkdown(todos, "Todos")
	case Text:
		return ExportToText(todos)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToJSON renders todos as an indented JSON array.
func ExportToJSON(todos []models.Todo) ([]byte, error) {
	if todos == nil {
		todos = []models.Todo{}
	}
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts todos to CSV format with columns: ID, Text, Done, Created, Updated
func ExportToCSV(todos []models.Todo) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Text", "Done", "Created", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, todo := range todos {
		record := []string{
			todo.TodoID,
			todo.Text,
			strconv.FormatBool(todo.Done),
			todo.Created.UTC().Format(time.RFC3339),
			todo.Updated.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts todos to a Markdown task list under title.
func ExportToMarkdown(todos []models.Todo, title string) ([]byte, error) {
	var buf bytes.Buffer

	done := countDone(todos)
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Open**: %d\n", len(todos)-done))
	buf.WriteString(fmt.Sprintf("**Done**: %d\n\n", done))

	for _, todo := range todos {
		mark := " "
		if todo.Done {
			mark = "x"
		}
		buf.WriteString(fmt.Sprintf("- [%s] %s\n", mark, todo.Text))
	}

	return buf.Bytes(), nil
}

// ExportToText converts todos to plain text format
func ExportToText(todos []models.Todo) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Todos: %d (%d done)\n\n", len(todos), countDone(todos)))
	for i, todo := range todos {
		status := "[ ]"
		if todo.Done {
			status = "[x]"
		}
		buf.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, status, todo.Text))
	}

	return buf.Bytes(), nil
}

// WriteExport writes todos in format f to path.
//
// Defaults to todos.{ext} as the filename.
func WriteExport(todos []models.Todo, f Format, path string) (string, error) {
	if path == "" {
		path = "todos." + f.Extension()
	}

	data, err := Export(todos, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func countDone(todos []models.Todo) int {
	n := 0
	for _, t := range todos {
		if t.Done {
			n++
		}
	}
	return n
}
