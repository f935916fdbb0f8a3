package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Program   string
	Selection string
	OutputDir string
	HistoryDB string
}

// ResolvePaths makes every path absolute against cwd. The output directory
// falls back to output.dir, then to DefaultOutputDir of the program.
func ResolvePaths(cfg *Config, cwd, program, selection, output string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}
	if strings.TrimSpace(program) == "" {
		return ResolvedPaths{}, fmt.Errorf("program path must not be empty")
	}

	resolved := ResolvedPaths{
		Program:   ResolveRelative(cwd, program),
		HistoryDB: ResolveRelative(cwd, cfg.History.Path),
	}
	if strings.TrimSpace(selection) != "" {
		resolved.Selection = ResolveRelative(cwd, selection)
	}
	switch {
	case strings.TrimSpace(output) != "":
		resolved.OutputDir = ResolveRelative(cwd, output)
	case strings.TrimSpace(cfg.Output.Dir) != "":
		resolved.OutputDir = ResolveRelative(cwd, cfg.Output.Dir)
	default:
		resolved.OutputDir = DefaultOutputDir(resolved.Program)
	}
	return resolved, nil
}

// DefaultOutputDir is the sibling of the program file named after it
// without its .json and .ol extensions: /src/shop.ol.json -> /src/shop.
func DefaultOutputDir(program string) string {
	base := filepath.Base(program)
	for _, ext := range []string{".json", ".ol"} {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		base = "slices"
	}
	return filepath.Join(filepath.Dir(program), base)
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
