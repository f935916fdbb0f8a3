package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"slicer/internal/mcp/contracts"
)

// Operation is one remote operation: its public descriptor and the schema
// its params are checked against.
type Operation struct {
	contracts.OperationDescriptor
	Schema *openapi3.Schema
}

// Convert turns every path operation into an Operation keyed by its
// operationId, sorted by id.
func Convert(spec *openapi3.T) ([]Operation, error) {
	if spec == nil {
		return nil, fmt.Errorf("openapi spec is nil")
	}
	if spec.Paths == nil || len(spec.Paths.Map()) == 0 {
		return nil, fmt.Errorf("openapi spec has no operations")
	}

	ops := make([]Operation, 0, len(spec.Paths.Map()))
	seen := make(map[contracts.OperationID]bool)
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if operation == nil {
				continue
			}
			id := contracts.OperationID(strings.TrimSpace(operation.OperationID))
			if id == "" {
				return nil, fmt.Errorf("operation %s %s is missing operationId", strings.ToUpper(method), path)
			}
			if !isValidOperationID(id) {
				return nil, fmt.Errorf("operationId %q is invalid for %s %s", id, strings.ToUpper(method), path)
			}
			if seen[id] {
				return nil, fmt.Errorf("duplicate operationId %q in openapi spec", id)
			}
			seen[id] = true

			schema, err := requestSchema(operation)
			if err != nil {
				return nil, fmt.Errorf("operation %s (%s %s): %w", id, strings.ToUpper(method), path, err)
			}
			inputSchema, err := schemaToMap(schema)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", id, err)
			}

			ops = append(ops, Operation{
				OperationDescriptor: contracts.OperationDescriptor{
					ID:          id,
					Summary:     strings.TrimSpace(operation.Summary),
					Description: strings.TrimSpace(operation.Description),
					InputSchema: inputSchema,
				},
				Schema: schema,
			})
		}
	}
	sortOperations(ops)
	return ops, nil
}

// requestSchema returns the application/json body schema, or an open object
// schema when the operation takes no body.
func requestSchema(op *openapi3.Operation) (*openapi3.Schema, error) {
	if op.RequestBody == nil {
		return openapi3.NewObjectSchema(), nil
	}
	if op.RequestBody.Value == nil {
		return nil, fmt.Errorf("requestBody is empty")
	}
	content := op.RequestBody.Value.Content.Get("application/json")
	if content == nil || content.Schema == nil || content.Schema.Value == nil {
		return nil, fmt.Errorf("requestBody must define an application/json schema")
	}
	schema := content.Schema.Value
	if schema.Type != nil && !schema.Type.Is(openapi3.TypeObject) {
		return nil, fmt.Errorf("unsupported schema type %v (only object schemas are supported)", schema.Type.Slice())
	}
	return schema, nil
}

func schemaToMap(schema *openapi3.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out, nil
}

// ApplyAllowlist keeps the operations named in allowlist. An empty list
// keeps every operation.
func ApplyAllowlist(ops []Operation, allowlist []string) []Operation {
	if len(allowlist) == 0 {
		out := append([]Operation(nil), ops...)
		sortOperations(out)
		return out
	}
	allowed := make(map[contracts.OperationID]bool, len(allowlist))
	for _, raw := range allowlist {
		if normalized := strings.ToLower(strings.TrimSpace(raw)); normalized != "" {
			allowed[contracts.OperationID(normalized)] = true
		}
	}
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if allowed[op.ID] {
			out = append(out, op)
		}
	}
	sortOperations(out)
	return out
}

func sortOperations(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
}

// isValidOperationID accepts dot separated lower-case words such as
// "services.list".
func isValidOperationID(id contracts.OperationID) bool {
	value := string(id)
	partLen := 0
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			partLen++
		case ch == '_' && partLen > 0:
			partLen++
		case ch == '.' && partLen > 0:
			partLen = 0
		default:
			return false
		}
	}
	return partLen > 0
}
