package schema

import (
	"slicer/internal/mcp/contracts"
	"slicer/internal/mcp/openapi"
)

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Version     string         `json:"version"`
}

// BuildToolDefinitions exposes the operations as one tool whose "operation"
// argument selects among them. Per-operation schemas travel in "oneOf".
func BuildToolDefinitions(ops []openapi.Operation) []ToolDefinition {
	ids := make([]string, 0, len(ops))
	variants := make([]any, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, string(op.ID))
		variants = append(variants, map[string]any{
			"properties": map[string]any{
				"operation": map[string]any{"const": string(op.ID)},
				"params":    op.InputSchema,
			},
		})
	}

	return []ToolDefinition{
		{
			Name:        contracts.ToolNameSlicer,
			Description: "Slices a service program into one deployable directory per service.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Operation identifier (e.g., slice).",
						"enum":        ids,
					},
					"params": map[string]any{
						"type":                 "object",
						"additionalProperties": true,
					},
				},
				"required": []string{"operation"},
				"oneOf":    variants,
			},
		},
	}
}
