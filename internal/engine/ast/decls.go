package ast

// OperationDecl is implemented by one-way and request-response declarations.
type OperationDecl interface {
	Node
	OperationName() string
}

// OneWayDecl declares a fire-and-forget operation.
type OneWayDecl struct {
	Context
	Name    string
	Request TypeDefinition
	Doc     string
}

func (*OneWayDecl) Kind() Kind { return KindOneWayDecl }
func (o *OneWayDecl) OperationName() string { return o.Name }

// Fault is a fault an operation may raise, optionally carrying a typed payload.
type Fault struct {
	Name string
	Type TypeDefinition
}

// RequestResponseDecl declares a two-way operation.
type RequestResponseDecl struct {
	Context
	Name     string
	Request  TypeDefinition
	Response TypeDefinition
	Faults   []Fault
	Doc      string
}

func (*RequestResponseDecl) Kind() Kind { return KindRequestResponseDecl }
func (o *RequestResponseDecl) OperationName() string { return o.Name }

// Interface groups operation declarations. The canonical definition is a
// top-level node; ports refer to interfaces through separate Interface
// instances that usually carry only the name.
type Interface struct {
	Context
	Name       string
	Operations []OperationDecl
	Doc        string
}

func (*Interface) Kind() Kind { return KindInterface }

// InterfaceExtender adds operations to aggregated interfaces.
type InterfaceExtender struct {
	Context
	Name       string
	Operations []OperationDecl
}

func (*InterfaceExtender) Kind() Kind { return KindInterfaceExtender }

// Redirect binds a resource name of an input port to an output port.
type Redirect struct {
	Name string
	Port string
}

// Port is an input or output communication endpoint.
type Port struct {
	Context
	Input      bool
	Name       string
	Location   string
	Protocol   string
	Interfaces []*Interface
	Operations []OperationDecl
	Aggregates []string
	Redirects  []Redirect
}

func (p *Port) Kind() Kind {
	if p.Input {
		return KindInputPort
	}
	return KindOutputPort
}

// Parameter is the startup parameter a service expects.
type Parameter struct {
	Name string
	Type TypeDefinition
}

// Service is a deployable unit: ports, embeddings and behaviour.
type Service struct {
	Context
	Name      string
	Parameter *Parameter
	Body      []Node
	Doc       string
}

func (*Service) Kind() Kind { return KindService }

// GeneratedPorts returns the output ports the frontend created for
// "embed X as P" constructs of this service.
func (s *Service) GeneratedPorts() map[*Port]bool {
	ports := make(map[*Port]bool)
	for _, n := range s.Body {
		if embed, ok := n.(*EmbedService); ok && embed.AsNewPort && embed.BindingPort != nil {
			ports[embed.BindingPort] = true
		}
	}
	return ports
}

// EmbedService statically instantiates another service: "embed S(arg) in P"
// binds it to an existing port, "embed S(arg) as P" to a port generated by
// the frontend.
type EmbedService struct {
	Context
	ServiceName string
	Argument    Node
	AsNewPort   bool
	PortName    string
	BindingPort *Port
}

func (*EmbedService) Kind() Kind { return KindEmbedService }

// EmbeddedService is the legacy "embedded { Type: url in Port }" form.
type EmbeddedService struct {
	Context
	Type     string
	URL      string
	PortName string
}

func (*EmbeddedService) Kind() Kind { return KindEmbeddedService }

// ImportSymbol is one "Name [as Alias]" target of an import statement.
type ImportSymbol struct {
	Name  string
	Alias string
}

// LocalName is the name the symbol is bound to in the importing program.
func (s ImportSymbol) LocalName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Import is "from Path import A, B as C" (or "import *").
type Import struct {
	Context
	Path     string
	Symbols  []ImportSymbol
	Wildcard bool
}

func (*Import) Kind() Kind { return KindImport }
