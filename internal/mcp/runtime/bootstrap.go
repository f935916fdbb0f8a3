package runtime

import (
	"fmt"
	"io"

	"slicer/internal/core/config"
	"slicer/internal/mcp/contracts"
	"slicer/internal/mcp/openapi"
	"slicer/internal/mcp/registry"
	"slicer/internal/mcp/schema"
	"slicer/internal/mcp/transport"
	"slicer/internal/mcp/validate"
)

// Build assembles a stdio server from the embedded operation document,
// restricted to cfg.Server.Operations when that is set.
func Build(cfg *config.Config, deps Dependencies, in io.Reader, out io.Writer) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	doc, err := openapi.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load operation document: %w", err)
	}
	ops, err := openapi.Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("convert operations: %w", err)
	}
	ops = openapi.ApplyAllowlist(ops, cfg.Server.Operations)
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations left after applying %v", cfg.Server.Operations)
	}

	adapter, err := transport.NewStdio(in, out, cfg.Server, schema.BuildToolDefinitions(ops))
	if err != nil {
		return nil, err
	}
	validator := validate.New(contracts.ToolNameSlicer, ops)
	return New(cfg, deps, registry.New(), adapter, validator)
}
