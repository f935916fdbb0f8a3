// Package slicer partitions a monolithic program into one minimal program
// per selected service.
package slicer

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"slicer/internal/engine/ast"
	"slicer/internal/engine/graph"
)

type Option func(*Slicer)

// WithParallelism bounds the number of slices assembled at once. Values
// below one select GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(s *Slicer) { s.parallelism = n }
}

// WithCyclePolicy is forwarded to the dependency builder.
func WithCyclePolicy(p graph.CyclePolicy) Option {
	return func(s *Slicer) { s.graphOpts = append(s.graphOpts, graph.WithCyclePolicy(p)) }
}

// Slicer is built once per program. The input tree is never mutated.
type Slicer struct {
	program     *ast.Program
	stripped    *ast.Program
	builder     *graph.Builder
	parallelism int
	graphOpts   []graph.Option
}

// New strips the ports generated for "embed ... as" constructs and resolves
// the dependencies of every top-level declaration.
func New(program *ast.Program, opts ...Option) (*Slicer, error) {
	s := &Slicer{program: program}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelism < 1 {
		s.parallelism = runtime.GOMAXPROCS(0)
	}
	s.stripped = stripGeneratedPorts(program)
	builder, err := graph.NewBuilder(s.stripped, s.graphOpts...)
	if err != nil {
		return nil, err
	}
	s.builder = builder
	return s, nil
}

// Builder exposes the sealed dependency builder.
func (s *Slicer) Builder() *graph.Builder { return s.builder }

// Services lists the declared service names in source order.
func (s *Slicer) Services() []string {
	var names []string
	for _, svc := range s.stripped.Services() {
		names = append(names, svc.Name)
	}
	return names
}

type job struct {
	id  graph.DeclID
	svc *ast.Service
}

// Slice returns, for every declared service named in selected, the ordered
// closure of the service followed by the service itself. Names that match
// no service are ignored; the output may still contain an unselected service
// as a dependency of an embedding one.
func (s *Slicer) Slice(ctx context.Context, selected []string) (map[string]*ast.Program, error) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}

	table := s.builder.Table()
	var jobs []job
	for _, name := range s.Services() {
		if !want[name] {
			continue
		}
		want[name] = false
		id, _ := table.ServiceByName(name)
		jobs = append(jobs, job{id: id, svc: table.Node(id).(*ast.Service)})
	}

	slices := make([]*ast.Program, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.assemble(j)
			if err != nil {
				return err
			}
			slices[i] = p
			slog.Debug("Service sliced", "service", j.svc.Name, "declarations", len(p.Children))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*ast.Program, len(jobs))
	for i, j := range jobs {
		out[j.svc.Name] = slices[i]
	}
	return out, nil
}

func (s *Slicer) assemble(j job) (*ast.Program, error) {
	deps, err := s.builder.DependenciesOf(j.svc)
	if err != nil {
		return nil, err
	}
	table := s.builder.Table()
	ids := deps.Sorted()
	sort.SliceStable(ids, func(a, b int) bool {
		return table.Node(ids[a]).Pos().Line < table.Node(ids[b]).Pos().Line
	})

	children := make([]ast.Node, 0, len(ids)+1)
	for _, id := range ids {
		children = append(children, table.Node(id))
	}
	children = append(children, j.svc)
	return &ast.Program{Context: s.program.Context, Children: children}, nil
}

// stripGeneratedPorts returns a program whose services no longer hold the
// output ports bound by "embed ... as" constructs. Services that hold none
// are shared with the input; the others are shallow copies.
func stripGeneratedPorts(program *ast.Program) *ast.Program {
	out := &ast.Program{Context: program.Context, Children: make([]ast.Node, len(program.Children))}
	for i, child := range program.Children {
		out.Children[i] = child
		svc, ok := child.(*ast.Service)
		if !ok {
			continue
		}
		generated := svc.GeneratedPorts()
		if len(generated) == 0 {
			continue
		}
		stripped := *svc
		stripped.Body = make([]ast.Node, 0, len(svc.Body))
		for _, n := range svc.Body {
			if port, ok := n.(*ast.Port); ok && generated[port] {
				continue
			}
			stripped.Body = append(stripped.Body, n)
		}
		out.Children[i] = &stripped
	}
	return out
}
