package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"swapiexport/internal/etl"
)

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// tablePreview is the wire form of a sampled table.
type tablePreview struct {
	Entity  string      `json:"entity"`
	Schema  *etl.Schema `json:"schema"`
	Columns []string    `json:"columns"`
	Rows    [][]any     `json:"rows"`
}

func newTablePreview(t *etl.Table) tablePreview {
	rows := make([][]any, t.Len())
	for i := range t.Rows {
		rows[i] = t.Values(i)
	}
	return tablePreview{
		Entity:  t.Name,
		Schema:  etl.InferSchema(t),
		Columns: t.Columns,
		Rows:    rows,
	}
}
