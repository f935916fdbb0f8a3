// Package asttest builds small program trees for tests.
package asttest

import "slicer/internal/engine/ast"

const Source = "monolith.ol"

func at(line int) ast.Context { return ast.Context{Source: Source, Line: line} }

// Program wraps children in a program rooted at line 1.
func Program(children ...ast.Node) *ast.Program {
	return &ast.Program{Context: at(1), Children: children}
}

// Type declares an inline type with the given subtypes.
func Type(line int, name string, subs ...ast.TypeDefinition) *ast.TypeInline {
	native := ast.NativeVoid
	if len(subs) == 0 {
		native = ast.NativeString
	}
	return &ast.TypeInline{Context: at(line), Name: name, Native: native, Cardinality: ast.One, SubTypes: subs}
}

// Field is a nested subtype of a native type.
func Field(name string, native ast.NativeType) *ast.TypeInline {
	return &ast.TypeInline{Name: name, Native: native, Cardinality: ast.One}
}

// Ref is a nested subtype referring to another type by name.
func Ref(field, target string) *ast.TypeLink {
	return &ast.TypeLink{Name: field, LinkedName: target, Cardinality: ast.One}
}

// Alias declares "type name: target".
func Alias(line int, name, target string) *ast.TypeLink {
	return &ast.TypeLink{Context: at(line), Name: name, LinkedName: target, Cardinality: ast.One}
}

// Choice declares "type name: left | right".
func Choice(line int, name, left, right string) *ast.TypeChoice {
	return &ast.TypeChoice{
		Context:     at(line),
		Name:        name,
		Cardinality: ast.One,
		Left:        Ref(left, left),
		Right:       Ref(right, right),
	}
}

// Interface declares an interface.
func Interface(line int, name string, ops ...ast.OperationDecl) *ast.Interface {
	return &ast.Interface{Context: at(line), Name: name, Operations: ops}
}

// RequestResponse declares "name(req)(resp) throws faults..." where the
// fault payloads are type names.
func RequestResponse(name, req, resp string, faults ...string) *ast.RequestResponseDecl {
	op := &ast.RequestResponseDecl{Name: name, Request: Ref(req, req), Response: Ref(resp, resp)}
	for _, f := range faults {
		op.Faults = append(op.Faults, ast.Fault{Name: f + "Fault", Type: Ref(f, f)})
	}
	return op
}

// OneWay declares "name(req)".
func OneWay(name, req string) *ast.OneWayDecl {
	return &ast.OneWayDecl{Name: name, Request: Ref(req, req)}
}

// InputPort binds the named interfaces with fresh reference instances.
func InputPort(line int, name string, interfaces ...string) *ast.Port {
	p := &ast.Port{Context: at(line), Input: true, Name: name, Location: "local"}
	for _, iface := range interfaces {
		p.Interfaces = append(p.Interfaces, &ast.Interface{Context: at(line), Name: iface})
	}
	return p
}

// OutputPort is InputPort for the output direction.
func OutputPort(line int, name string, interfaces ...string) *ast.Port {
	p := InputPort(line, name, interfaces...)
	p.Input = false
	p.Location = ""
	return p
}

// Service declares a service with body nodes.
func Service(line int, name string, body ...ast.Node) *ast.Service {
	return &ast.Service{Context: at(line), Name: name, Body: body}
}

// WithParameter sets the startup parameter type.
func WithParameter(s *ast.Service, typeName string) *ast.Service {
	s.Parameter = &ast.Parameter{Name: "p", Type: Ref(typeName, typeName)}
	return s
}

// Embed is "embed service in port".
func Embed(line int, service, port string) *ast.EmbedService {
	return &ast.EmbedService{Context: at(line), ServiceName: service, PortName: port}
}

// EmbedAs is "embed service as port": it returns the embed together with the
// output port the frontend generates for it.
func EmbedAs(line int, service, port string, interfaces ...string) (*ast.EmbedService, *ast.Port) {
	binding := OutputPort(line, port, interfaces...)
	embed := &ast.EmbedService{Context: at(line), ServiceName: service, AsNewPort: true, PortName: port, BindingPort: binding}
	return embed, binding
}

// Import is "from path import symbols"; "A as B" is written "A:B".
func Import(line int, path string, symbols ...string) *ast.Import {
	imp := &ast.Import{Context: at(line), Path: path}
	for _, s := range symbols {
		sym := ast.ImportSymbol{Name: s}
		for i := range s {
			if s[i] == ':' {
				sym = ast.ImportSymbol{Name: s[:i], Alias: s[i+1:]}
				break
			}
		}
		imp.Symbols = append(imp.Symbols, sym)
	}
	return imp
}

// Main is a "main { op(x)(x) }" definition.
func Main(line int, op string) *ast.Definition {
	return &ast.Definition{
		Context: at(line),
		Name:    "main",
		Body: &ast.RequestResponseStatement{
			Context:   at(line),
			Operation: op,
			Input:     Path("x"),
			Output:    Path("x"),
		},
	}
}

// Path is a single-segment variable path.
func Path(name string) *ast.VariablePath {
	return &ast.VariablePath{Segments: []ast.PathSegment{{Name: name}}}
}
