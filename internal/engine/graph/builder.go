package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"slicer/internal/core/errors"
	"slicer/internal/engine/ast"
)

// CyclePolicy decides what happens when declarations reference each other.
type CyclePolicy string

const (
	// CyclesAccept completes the strongly connected component: every member
	// depends on every other member and on everything any of them needs.
	CyclesAccept CyclePolicy = "accept"
	// CyclesReject fails construction with a CYCLIC_REFERENCE error.
	CyclesReject CyclePolicy = "reject"
)

// ParseCyclePolicy accepts "accept", "reject" or "" (accept).
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(s) {
	case "", CyclesAccept:
		return CyclesAccept, nil
	case CyclesReject:
		return CyclesReject, nil
	}
	return "", errors.Newf(errors.CodeValidationError, "unknown cycle policy %q", s)
}

type Option func(*Builder)

func WithCyclePolicy(p CyclePolicy) Option {
	return func(b *Builder) { b.policy = p }
}

type memoState uint8

const (
	unvisited memoState = iota
	inProgress
	done
)

// Builder computes the transitive dependencies of program nodes. Every
// top-level declaration is resolved inside NewBuilder; afterwards the memo
// is sealed and the builder is safe for concurrent use.
type Builder struct {
	table  *Table
	policy CyclePolicy

	memo   []IDSet
	cyclic []bool
	cycles [][]DeclID
}

// NewBuilder classifies program and resolves every top-level declaration.
func NewBuilder(program *ast.Program, opts ...Option) (*Builder, error) {
	b := &Builder{policy: CyclesAccept}
	for _, opt := range opts {
		opt(b)
	}
	b.table = Classify(program)
	n := b.table.Len()
	b.memo = make([]IDSet, n)
	b.cyclic = make([]bool, n)

	r := newResolution(b, true)
	for _, id := range b.table.Declarations() {
		if r.states[id] == unvisited {
			r.visit(id)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	for _, id := range b.table.Declarations() {
		if r.states[id] != done {
			return nil, errors.Newf(errors.CodeInternal, "declaration %s left unresolved", b.table.Name(id))
		}
	}
	return b, nil
}

// Table returns the declaration table the builder was constructed over.
func (b *Builder) Table() *Table { return b.table }

// DependenciesOf returns the top-level declarations and import statements
// node transitively depends on. A top-level declaration never contains
// itself. The returned set belongs to the caller.
func (b *Builder) DependenciesOf(node ast.Node) (IDSet, error) {
	if id, ok := b.table.Lookup(node); ok {
		if b.table.IsImport(id) {
			return IDSet{}, nil
		}
		return b.memo[id].Clone(), nil
	}
	r := newResolution(b, false)
	deps := IDSet{}
	r.deps(node, deps)
	if r.err != nil {
		return nil, r.err
	}
	return deps, nil
}

// IsCyclic reports whether id belongs to a reference cycle.
func (b *Builder) IsCyclic(id DeclID) bool { return b.cyclic[id] }

// Cycles lists every reference cycle found, members in source order.
func (b *Builder) Cycles() [][]DeclID {
	out := make([][]DeclID, len(b.cycles))
	for i, c := range b.cycles {
		out[i] = append([]DeclID(nil), c...)
	}
	return out
}

// resolution is the state threaded through one walk. The construction walk
// runs Tarjan's algorithm over declarations; later walks only read the memo.
type resolution struct {
	b        *Builder
	building bool
	err      error

	states  []memoState
	partial []IDSet
	index   []int
	lowlink []int
	onStack []bool
	stack   []DeclID
	path    []DeclID
	counter int
}

func newResolution(b *Builder, building bool) *resolution {
	r := &resolution{b: b, building: building}
	if building {
		n := b.table.Len()
		r.states = make([]memoState, n)
		r.partial = make([]IDSet, n)
		r.index = make([]int, n)
		r.lowlink = make([]int, n)
		r.onStack = make([]bool, n)
	}
	return r
}

func (r *resolution) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// visit resolves declaration id and returns what is known of its
// dependencies: the full closure once the declaration is done, a partial
// set while its cycle is still open.
func (r *resolution) visit(id DeclID) IDSet {
	r.states[id] = inProgress
	r.index[id] = r.counter
	r.lowlink[id] = r.counter
	r.counter++
	r.stack = append(r.stack, id)
	r.onStack[id] = true
	r.path = append(r.path, id)

	deps := IDSet{}
	r.structural(r.b.table.Node(id), deps)
	r.partial[id] = deps
	r.path = r.path[:len(r.path)-1]

	if r.lowlink[id] != r.index[id] {
		return deps
	}

	var members []DeclID
	for {
		top := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		r.onStack[top] = false
		members = append(members, top)
		if top == id {
			break
		}
	}
	r.complete(members)
	return r.b.memo[id]
}

// complete seals a strongly connected component.
func (r *resolution) complete(members []DeclID) {
	b := r.b
	if len(members) == 1 {
		id := members[0]
		deps := r.partial[id]
		if deps.Has(id) {
			r.cycle(members)
		}
		deps.Remove(id)
		b.memo[id] = deps
		r.states[id] = done
		r.partial[id] = nil
		return
	}

	union := IDSet{}
	for _, m := range members {
		union.Union(r.partial[m])
		union.Add(m)
	}
	r.cycle(members)
	for _, m := range members {
		deps := union.Clone()
		deps.Remove(m)
		b.memo[m] = deps
		r.states[m] = done
		r.partial[m] = nil
	}
}

func (r *resolution) cycle(members []DeclID) {
	b := r.b
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	names := make([]string, len(members))
	for i, m := range members {
		b.cyclic[m] = true
		names[i] = b.table.Name(m)
	}
	b.cycles = append(b.cycles, append([]DeclID(nil), members...))
	if b.policy == CyclesReject {
		de := &errors.DomainError{
			Code:    errors.CodeCyclicReference,
			Message: fmt.Sprintf("declarations reference each other: %s", strings.Join(names, " -> ")),
		}
		r.fail(de.WithContext(errors.CtxCycle, names))
		return
	}
	slog.Debug("Reference cycle completed", "members", names)
}

// use records an edge to declaration id and folds in its closure.
func (r *resolution) use(id DeclID, into IDSet) {
	into.Add(id)
	if r.b.table.IsImport(id) {
		return
	}
	if !r.building {
		into.Union(r.b.memo[id])
		return
	}

	caller := DeclID(-1)
	if len(r.path) > 0 {
		caller = r.path[len(r.path)-1]
	}
	switch r.states[id] {
	case done:
		into.Union(r.b.memo[id])
	case inProgress:
		if caller >= 0 && r.onStack[id] && r.index[id] < r.lowlink[caller] {
			r.lowlink[caller] = r.index[id]
		}
	default:
		into.Union(r.visit(id))
		if caller >= 0 && r.lowlink[id] < r.lowlink[caller] {
			r.lowlink[caller] = r.lowlink[id]
		}
	}
}

// deps collects the dependencies of a node reached from inside a declaration.
func (r *resolution) deps(n ast.Node, into IDSet) {
	if n == nil || r.err != nil {
		return
	}
	if id, ok := r.b.table.Lookup(n); ok {
		r.use(id, into)
		return
	}
	if iface, ok := n.(*ast.Interface); ok {
		r.interfaceRef(iface, into)
		return
	}
	r.structural(n, into)
}

func (r *resolution) unresolved(n ast.Node, what, name string) {
	pos := n.Pos()
	de := &errors.DomainError{
		Code:    errors.CodeUnresolvedReference,
		Message: fmt.Sprintf("%s %q resolves to neither a declaration nor an import", what, name),
	}
	de.WithContext(errors.CtxSymbol, name).WithContext(errors.CtxLine, pos.Line)
	if pos.Source != "" {
		de.WithContext(errors.CtxPath, pos.Source)
	}
	r.fail(de)
}

// typeRef resolves a named type: import, local type, then native leaf.
func (r *resolution) typeRef(n ast.Node, name string, into IDSet) {
	if id, ok := r.b.table.Imports().Resolve(name); ok {
		r.use(id, into)
		return
	}
	if id, ok := r.b.table.TypeByName(name); ok {
		r.use(id, into)
		return
	}
	if _, ok := ast.LookupNative(name); ok {
		return
	}
	r.unresolved(n, "type", name)
}

// interfaceRef resolves an interface named in a port to the canonical
// top-level instance.
func (r *resolution) interfaceRef(iface *ast.Interface, into IDSet) {
	if id, ok := r.b.table.Imports().Resolve(iface.Name); ok {
		r.use(id, into)
		return
	}
	if id, ok := r.b.table.InterfaceByName(iface.Name); ok {
		r.use(id, into)
		return
	}
	r.unresolved(iface, "interface", iface.Name)
}

func (r *resolution) serviceRef(n ast.Node, name string, into IDSet) {
	if id, ok := r.b.table.Imports().Resolve(name); ok {
		r.use(id, into)
		return
	}
	if id, ok := r.b.table.ServiceByName(name); ok {
		r.use(id, into)
		return
	}
	r.unresolved(n, "service", name)
}

func (r *resolution) operations(ops []ast.OperationDecl, into IDSet) {
	for _, op := range ops {
		r.deps(op, into)
	}
}

// structural walks the syntactic sub-parts of n. Behaviour and expressions
// never reference top-level declarations.
func (r *resolution) structural(n ast.Node, into IDSet) {
	switch n := n.(type) {
	case *ast.Program:
		for _, child := range n.Children {
			r.deps(child, into)
		}

	case *ast.TypeInline:
		for _, sub := range n.SubTypes {
			r.deps(sub, into)
		}
	case *ast.TypeLink:
		r.typeRef(n, n.LinkedName, into)
	case *ast.TypeChoice:
		r.deps(n.Left, into)
		r.deps(n.Right, into)

	case *ast.Interface:
		r.operations(n.Operations, into)
	case *ast.InterfaceExtender:
		r.operations(n.Operations, into)
	case *ast.OneWayDecl:
		r.deps(n.Request, into)
	case *ast.RequestResponseDecl:
		r.deps(n.Request, into)
		r.deps(n.Response, into)
		for _, f := range n.Faults {
			r.deps(f.Type, into)
		}

	case *ast.Port:
		for _, iface := range n.Interfaces {
			r.deps(iface, into)
		}
		r.operations(n.Operations, into)
	case *ast.Service:
		if n.Parameter != nil {
			r.deps(n.Parameter.Type, into)
		}
		for _, child := range n.Body {
			r.deps(child, into)
		}
	case *ast.EmbedService:
		r.serviceRef(n, n.ServiceName, into)
	case *ast.EmbeddedService, *ast.Import:

	case *ast.Definition, *ast.DefinitionCall, *ast.Sequence, *ast.Parallel, *ast.NDChoice,
		*ast.OneWayStatement, *ast.RequestResponseStatement, *ast.NotificationStatement,
		*ast.SolicitResponseStatement, *ast.LinkIn, *ast.LinkOut, *ast.Assign,
		*ast.OperatorAssign, *ast.Increment, *ast.DeepCopy, *ast.Pointer, *ast.Undef,
		*ast.If, *ast.While, *ast.For, *ast.ForEachSubNode, *ast.ForEachArrayItem,
		*ast.Scope, *ast.Install, *ast.Compensate, *ast.Throw, *ast.Exit,
		*ast.NullProcess, *ast.Spawn, *ast.Synchronized, *ast.CurrentHandler,
		*ast.ProvideUntil, *ast.ExecutionInfo, *ast.CorrelationSet, *ast.Documentation,
		*ast.Courier, *ast.Forward:

	case *ast.Constant, *ast.VariablePath, *ast.Sum, *ast.Product, *ast.Or, *ast.And,
		*ast.Not, *ast.Compare, *ast.VectorSize, *ast.IsType, *ast.InstanceOf,
		*ast.TypeCast, *ast.InlineTree, *ast.Void, *ast.FreshValue,
		*ast.InstallFixedVariable:

	default:
		r.fail(errors.Newf(errors.CodeInternal, "no dependency rule for node kind %s", n.Kind()))
	}
}
