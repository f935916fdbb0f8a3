package openapi

import (
	"reflect"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"slicer/internal/mcp/contracts"
)

func TestLoadEmbedded(t *testing.T) {
	spec, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	ops, err := Convert(spec)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	ids := make([]contracts.OperationID, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	expected := []contracts.OperationID{
		contracts.OperationHistoryList,
		contracts.OperationServicesList,
		contracts.OperationSlice,
	}
	if !reflect.DeepEqual(ids, expected) {
		t.Fatalf("expected ids %v, got %v", expected, ids)
	}

	slice := ops[2]
	required, _ := slice.InputSchema["required"].([]any)
	if len(required) != 2 || required[0] != "program" || required[1] != "config" {
		t.Fatalf("unexpected required list: %+v", slice.InputSchema)
	}
	if slice.Schema == nil {
		t.Fatal("expected a validation schema")
	}
}

func TestConvert_OpenAPIToOperations(t *testing.T) {
	spec := mustLoad(t, `
openapi: 3.0.3
info:
  title: slicer
  version: "1.0"
paths:
  /history:
    get:
      operationId: history.list
      summary: List runs
      responses:
        "200":
          description: ok
  /slice:
    post:
      operationId: slice
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                program:
                  type: string
      responses:
        "200":
          description: ok
`)

	ops, err := Convert(spec)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].ID != contracts.OperationHistoryList || ops[1].ID != contracts.OperationSlice {
		t.Fatalf("unexpected operation order: %+v", ops)
	}
	if ops[0].Summary != "List runs" {
		t.Fatalf("unexpected summary %q", ops[0].Summary)
	}
	if ops[1].InputSchema["type"] != "object" {
		t.Fatalf("expected object schema, got %+v", ops[1].InputSchema)
	}
}

func TestConvert_InvalidSchema(t *testing.T) {
	spec := mustLoad(t, `
openapi: 3.0.3
info:
  title: slicer
  version: "1.0"
paths:
  /slice:
    post:
      operationId: slice
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: array
              items:
                type: string
      responses:
        "200":
          description: ok
`)

	_, err := Convert(spec)
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if !strings.Contains(err.Error(), "unsupported schema type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConvert_MissingOperationID(t *testing.T) {
	spec := mustLoad(t, `
openapi: 3.0.3
info:
  title: slicer
  version: "1.0"
paths:
  /services:
    get:
      summary: List services
      responses:
        "200":
          description: ok
`)

	_, err := Convert(spec)
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if !strings.Contains(err.Error(), "missing operationId") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConvert_RejectsUpperCaseOperationID(t *testing.T) {
	spec := mustLoad(t, `
openapi: 3.0.3
info:
  title: slicer
  version: "1.0"
paths:
  /slice:
    get:
      operationId: Slice
      responses:
        "200":
          description: ok
`)

	if _, err := Convert(spec); err == nil {
		t.Fatal("expected invalid operationId error")
	}
}

func TestApplyAllowlist(t *testing.T) {
	ops := []Operation{
		{OperationDescriptor: contracts.OperationDescriptor{ID: contracts.OperationSlice}},
		{OperationDescriptor: contracts.OperationDescriptor{ID: contracts.OperationHistoryList}},
		{OperationDescriptor: contracts.OperationDescriptor{ID: contracts.OperationServicesList}},
	}

	filtered := ApplyAllowlist(ops, []string{" Slice ", "services.list"})
	ids := make([]contracts.OperationID, 0, len(filtered))
	for _, op := range filtered {
		ids = append(ids, op.ID)
	}
	expected := []contracts.OperationID{contracts.OperationServicesList, contracts.OperationSlice}
	if !reflect.DeepEqual(ids, expected) {
		t.Fatalf("expected ids %v, got %v", expected, ids)
	}

	if all := ApplyAllowlist(ops, nil); len(all) != 3 || all[0].ID != contracts.OperationHistoryList {
		t.Fatalf("an empty allowlist keeps every operation sorted, got %+v", all)
	}
}

func TestLoad_RejectsInvalidDocument(t *testing.T) {
	if _, err := Load([]byte("openapi: 3.0.3\npaths: {}\n")); err == nil {
		t.Fatal("expected validation error for a document without info")
	}
}

func mustLoad(t *testing.T, doc string) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData([]byte(doc))
	if err != nil {
		t.Fatalf("load spec from data: %v", err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		t.Fatalf("validate spec: %v", err)
	}
	return spec
}
