// Package ast holds the program tree handed over by the language frontend.
//
// The tree is a closed sum type: every node implements the sealed Node
// interface and reports exactly one Kind. Consumers switch on the concrete
// type and treat an unknown kind as an internal error.
package ast

// Context locates a node in its source file.
type Context struct {
	Source string
	Line   int
}

// Pos returns the node position.
func (c Context) Pos() Context { return c }

func (Context) sealed() {}

// Node is any element of a program tree.
type Node interface {
	Kind() Kind
	Pos() Context
	sealed()
}

// Program is the root of a parsed file: its direct children are the
// top-level declarations and import statements.
type Program struct {
	Context
	Children []Node
}

func (*Program) Kind() Kind { return KindProgram }

// Services returns the service declarations among the program children,
// in source order.
func (p *Program) Services() []*Service {
	var out []*Service
	for _, child := range p.Children {
		if svc, ok := child.(*Service); ok {
			out = append(out, svc)
		}
	}
	return out
}

// DeclarationName returns the human readable name of a top-level node, or
// an empty string for nodes that carry none.
func DeclarationName(n Node) string {
	switch n := n.(type) {
	case TypeDefinition:
		return n.TypeName()
	case *Interface:
		return n.Name
	case *InterfaceExtender:
		return n.Name
	case *Service:
		return n.Name
	case *Port:
		return n.Name
	case *Definition:
		return n.Name
	case *Import:
		return "import " + n.Path
	case *EmbeddedService:
		return n.URL
	}
	return ""
}
