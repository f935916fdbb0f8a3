package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"slicer/internal/mcp/contracts"
	"slicer/internal/mcp/openapi"
)

const maxServiceCount = 256

// Validator checks tool arguments against the operation schemas and decodes
// them into the typed inputs of contracts.
type Validator struct {
	tool    string
	schemas map[contracts.OperationID]*openapi3.Schema
}

func New(tool string, ops []openapi.Operation) *Validator {
	schemas := make(map[contracts.OperationID]*openapi3.Schema, len(ops))
	for _, op := range ops {
		schemas[op.ID] = op.Schema
	}
	return &Validator{tool: tool, schemas: schemas}
}

// Allows reports whether the operation is exposed.
func (v *Validator) Allows(id contracts.OperationID) bool {
	_, ok := v.schemas[id]
	return ok
}

// ParseToolArgs reads {"operation": ..., "params": {...}}.
func (v *Validator) ParseToolArgs(tool string, raw map[string]any) (contracts.OperationID, any, error) {
	if strings.TrimSpace(tool) == "" {
		return "", nil, invalid("tool name is required")
	}
	if !strings.EqualFold(tool, v.tool) {
		return "", nil, invalid(fmt.Sprintf("unsupported tool: %s", tool))
	}
	if raw == nil {
		raw = map[string]any{}
	}

	operationRaw, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(operationRaw) == "" {
		return "", nil, invalid("operation is required")
	}
	operation := contracts.OperationID(strings.ToLower(strings.TrimSpace(operationRaw)))
	schema, ok := v.schemas[operation]
	if !ok {
		return "", nil, invalid(fmt.Sprintf("unsupported operation: %s", operation))
	}

	params := map[string]any{}
	if rawParams, ok := raw["params"]; ok && rawParams != nil {
		typed, ok := rawParams.(map[string]any)
		if !ok {
			return "", nil, invalid("params must be an object")
		}
		params = typed
	}
	if schema != nil {
		if err := schema.VisitJSON(params); err != nil {
			return "", nil, contracts.ToolError{
				Code:    contracts.ErrorInvalidArgument,
				Message: "invalid params",
				Details: map[string]any{"operation": string(operation), "error": err.Error()},
			}
		}
	}

	switch operation {
	case contracts.OperationSlice:
		var input contracts.SliceInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Program = strings.TrimSpace(input.Program)
		input.Config = strings.TrimSpace(input.Config)
		input.OutputDirectory = strings.TrimSpace(input.OutputDirectory)
		input.Services = normalizeStrings(input.Services, maxServiceCount)
		if input.Program == "" || input.Config == "" {
			return "", nil, invalid("program and config are required")
		}
		return operation, input, nil
	case contracts.OperationServicesList:
		var input contracts.ServicesListInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Program = strings.TrimSpace(input.Program)
		if input.Program == "" {
			return "", nil, invalid("program is required")
		}
		return operation, input, nil
	case contracts.OperationHistoryList:
		var input contracts.HistoryListInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	default:
		return "", nil, invalid(fmt.Sprintf("unsupported operation: %s", operation))
	}
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return invalid("invalid params encoding")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func normalizeStrings(values []string, maxCount int) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func invalid(msg string) error {
	return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: msg}
}
