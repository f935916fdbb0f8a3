// Package selection loads and validates the service selection: a JSON object
// mapping each service to slice onto the startup parameters it is deployed
// with. Payloads are opaque and only forwarded to the generated artifacts.
package selection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"slicer/internal/core/errors"
	"slicer/internal/engine/ast"
)

// Selection is a parsed selection document.
type Selection struct {
	Path    string
	Raw     []byte
	entries map[string]json.RawMessage
}

// Load reads and parses the selection file. I/O errors are returned as is.
func Load(path string) (*Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sel, err := Parse(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	sel.Path = path
	return sel, nil
}

// Parse rejects any document whose top-level value is not an object.
func Parse(data []byte) (*Selection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New(errors.CodeConfigurationFormat, "configuration must map service names to parameters")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigurationFormat, "configuration is not valid JSON")
	}
	return &Selection{Raw: data, entries: entries}, nil
}

// Names returns the configured service names, sorted.
func (s *Selection) Names() []string {
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Payload returns the raw parameters configured for name.
func (s *Selection) Payload(name string) (json.RawMessage, bool) {
	p, ok := s.entries[name]
	return p, ok
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Narrow keeps the services matching at least one glob pattern. A pattern
// that matches no configured service is an error. No patterns keeps all.
func (s *Selection) Narrow(patterns []string) (*Selection, error) {
	if len(patterns) == 0 {
		return s, nil
	}
	out := &Selection{Path: s.Path, Raw: s.Raw, entries: make(map[string]json.RawMessage)}
	var unmatched []string
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid service pattern %q", pattern))
		}
		matched := false
		for name, payload := range s.entries {
			if g.Match(name) {
				out.entries[name] = payload
				matched = true
			}
		}
		if !matched {
			unmatched = append(unmatched, pattern)
		}
	}
	if len(unmatched) > 0 {
		de := &errors.DomainError{
			Code:    errors.CodeValidationError,
			Message: fmt.Sprintf("service patterns match no configured service: %s", strings.Join(unmatched, ", ")),
		}
		return nil, de.WithContext(errors.CtxServices, unmatched)
	}
	return out, nil
}

// Validate cross-checks the selection against the declared services and
// reports every violation at once: one error naming all undeclared keys and
// one error per declared service that needs a startup parameter but is
// configured with null.
func Validate(sel *Selection, declared map[string]*ast.Service) error {
	var errs []error

	var undeclared []string
	for _, name := range sel.Names() {
		if _, ok := declared[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		de := &errors.DomainError{
			Code:    errors.CodeUndeclaredService,
			Message: fmt.Sprintf("configured services are not declared in the program: %s", strings.Join(undeclared, ", ")),
		}
		errs = append(errs, de.WithContext(errors.CtxServices, undeclared))
	}

	for _, name := range sel.Names() {
		svc, ok := declared[name]
		if !ok || svc.Parameter == nil {
			continue
		}
		if payload, _ := sel.Payload(name); isNull(payload) {
			de := &errors.DomainError{
				Code:    errors.CodeParameterConfiguration,
				Message: fmt.Sprintf("service %s declares parameter %s but is configured without one", name, svc.Parameter.Name),
			}
			errs = append(errs, de.WithContext(errors.CtxService, name))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
