package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed operations.yaml
var operationsDoc []byte

// LoadEmbedded returns the validated description of the remote operations
// shipped with the binary.
func LoadEmbedded() (*openapi3.T, error) {
	return Load(operationsDoc)
}

// Load parses and validates an OpenAPI document given as YAML or JSON.
func Load(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("openapi document resolved to nil")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}
