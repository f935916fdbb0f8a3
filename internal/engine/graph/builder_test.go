package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/core/errors"
	"slicer/internal/engine/ast"
	"slicer/internal/engine/ast/asttest"
)

func mustBuild(t *testing.T, p *ast.Program, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(p, opts...)
	require.NoError(t, err)
	return b
}

func depsOf(t *testing.T, b *Builder, n ast.Node) []DeclID {
	t.Helper()
	deps, err := b.DependenciesOf(n)
	require.NoError(t, err)
	return deps.Sorted()
}

func TestServiceClosureThroughInterface(t *testing.T) {
	req := asttest.Type(1, "Req", asttest.Field("f", ast.NativeString))
	iface := asttest.Interface(2, "Iface", asttest.RequestResponse("op", "Req", "Req"))
	a := asttest.Service(3, "A", asttest.InputPort(4, "IP", "Iface"), asttest.Main(5, "op"))
	other := asttest.Type(8, "Other")
	b := asttest.Service(9, "B", asttest.OutputPort(10, "OP"))
	builder := mustBuild(t, asttest.Program(req, iface, a, other, b))

	assert.Equal(t, []DeclID{0, 1}, depsOf(t, builder, a))
	assert.Equal(t, []DeclID{0}, depsOf(t, builder, iface))
	assert.Empty(t, depsOf(t, builder, req))
	assert.Empty(t, depsOf(t, builder, b))
}

func TestImportShortCircuit(t *testing.T) {
	imp := asttest.Import(1, "shared", "Req")
	localReq := asttest.Type(2, "Req")
	iface := asttest.Interface(3, "Iface", asttest.OneWay("push", "Req"))
	builder := mustBuild(t, asttest.Program(imp, localReq, iface))

	assert.Equal(t, []DeclID{0}, depsOf(t, builder, iface))
	assert.True(t, builder.Table().IsImport(0))
	assert.Empty(t, depsOf(t, builder, imp))
}

func TestImportAliasResolvesByLocalName(t *testing.T) {
	imp := asttest.Import(1, "shared", "Remote:Local")
	user := asttest.Type(2, "User", asttest.Ref("r", "Local"))
	builder := mustBuild(t, asttest.Program(imp, user))
	assert.Equal(t, []DeclID{0}, depsOf(t, builder, user))

	_, err := NewBuilder(asttest.Program(imp, asttest.Type(2, "User", asttest.Ref("r", "Remote"))))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnresolvedReference))
}

func TestInterfaceReferenceResolvesToCanonical(t *testing.T) {
	req := asttest.Type(1, "Req")
	canonical := asttest.Interface(2, "Iface", asttest.RequestResponse("op", "Req", "Req"))
	port := asttest.InputPort(4, "IP", "Iface")
	svc := asttest.Service(3, "A", port)
	builder := mustBuild(t, asttest.Program(req, canonical, svc))

	reference := port.Interfaces[0]
	require.NotSame(t, canonical, reference)
	assert.Equal(t, []DeclID{0, 1}, depsOf(t, builder, reference))
	assert.Equal(t, []DeclID{0, 1}, depsOf(t, builder, svc))
}

func TestDiamondDependencies(t *testing.T) {
	base := asttest.Type(1, "Base")
	left := asttest.Type(2, "Left", asttest.Ref("b", "Base"))
	right := asttest.Type(3, "Right", asttest.Ref("b", "Base"))
	top := asttest.Choice(4, "Top", "Left", "Right")
	builder := mustBuild(t, asttest.Program(base, left, right, top))

	deps, err := builder.DependenciesOf(top)
	require.NoError(t, err)
	assert.Equal(t, 3, deps.Len())
	assert.Equal(t, []DeclID{0, 1, 2}, deps.Sorted())
}

func TestEmbeddingIsAnEdge(t *testing.T) {
	creq := asttest.Type(1, "CReq")
	ciface := asttest.Interface(2, "CIface", asttest.OneWay("ping", "CReq"))
	c := asttest.Service(3, "C", asttest.InputPort(4, "CIP", "CIface"))
	a := asttest.Service(6, "A", asttest.OutputPort(7, "ToC", "CIface"), asttest.Embed(8, "C", "ToC"))
	builder := mustBuild(t, asttest.Program(creq, ciface, c, a))

	assert.Equal(t, []DeclID{0, 1, 2}, depsOf(t, builder, a))
}

func TestEmbeddingImportedService(t *testing.T) {
	imp := asttest.Import(1, "remote", "C")
	local := asttest.Service(2, "C")
	a := asttest.Service(3, "A", asttest.Embed(4, "C", "P"))
	builder := mustBuild(t, asttest.Program(imp, local, a))

	assert.Equal(t, []DeclID{0}, depsOf(t, builder, a))
}

func TestFaultsAndParameterAreEdges(t *testing.T) {
	errT := asttest.Type(1, "Err")
	cfg := asttest.Type(2, "Cfg")
	req := asttest.Type(3, "Req")
	iface := asttest.Interface(4, "I", asttest.RequestResponse("op", "Req", "string", "Err"))
	svc := asttest.WithParameter(asttest.Service(5, "S", asttest.InputPort(6, "IP", "I")), "Cfg")
	builder := mustBuild(t, asttest.Program(errT, cfg, req, iface, svc))

	assert.Equal(t, []DeclID{0, 2}, depsOf(t, builder, iface))
	assert.Equal(t, []DeclID{0, 1, 2, 3}, depsOf(t, builder, svc))
}

func TestPortInlineOperations(t *testing.T) {
	req := asttest.Type(1, "Req")
	port := asttest.InputPort(3, "IP")
	port.Operations = []ast.OperationDecl{asttest.OneWay("push", "Req")}
	svc := asttest.Service(2, "S", port)
	builder := mustBuild(t, asttest.Program(req, svc))
	assert.Equal(t, []DeclID{0}, depsOf(t, builder, svc))
}

func TestUnresolvedReferences(t *testing.T) {
	tests := []struct {
		name    string
		program *ast.Program
		symbol  string
	}{
		{"type", asttest.Program(asttest.Type(1, "T", asttest.Ref("x", "Missing"))), "Missing"},
		{"interface", asttest.Program(asttest.Service(1, "S", asttest.InputPort(2, "IP", "Nope"))), "Nope"},
		{"service", asttest.Program(asttest.Service(1, "S", asttest.Embed(2, "Ghost", "P"))), "Ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.program)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeUnresolvedReference), err.Error())
			assert.Contains(t, err.Error(), tt.symbol)
		})
	}
}

func TestNativeNamesAreLeaves(t *testing.T) {
	t1 := asttest.Type(1, "T", asttest.Ref("a", "int"), asttest.Ref("b", "undefined"), asttest.Ref("c", "raw"))
	builder := mustBuild(t, asttest.Program(t1))
	assert.Empty(t, depsOf(t, builder, t1))
}

func TestMutualRecursionAccepted(t *testing.T) {
	a := asttest.Type(1, "A", asttest.Ref("b", "B"))
	b := asttest.Type(2, "B", asttest.Ref("a", "A"), asttest.Ref("l", "Leaf"))
	leaf := asttest.Type(3, "Leaf")
	user := asttest.Alias(4, "User", "A")
	builder := mustBuild(t, asttest.Program(a, b, leaf, user))

	assert.Equal(t, []DeclID{1, 2}, depsOf(t, builder, a))
	assert.Equal(t, []DeclID{0, 2}, depsOf(t, builder, b))
	assert.Equal(t, []DeclID{0, 1, 2}, depsOf(t, builder, user))
	assert.True(t, builder.IsCyclic(0))
	assert.True(t, builder.IsCyclic(1))
	assert.False(t, builder.IsCyclic(2))
	assert.Equal(t, [][]DeclID{{0, 1}}, builder.Cycles())
}

func TestLongCycleAccepted(t *testing.T) {
	// A -> B -> C -> A, with C also needing D.
	a := asttest.Type(1, "A", asttest.Ref("b", "B"))
	b := asttest.Type(2, "B", asttest.Ref("c", "C"))
	c := asttest.Type(3, "C", asttest.Ref("a", "A"), asttest.Ref("d", "D"))
	d := asttest.Type(4, "D")
	builder := mustBuild(t, asttest.Program(a, b, c, d))

	assert.Equal(t, []DeclID{1, 2, 3}, depsOf(t, builder, a))
	assert.Equal(t, []DeclID{0, 2, 3}, depsOf(t, builder, b))
	assert.Equal(t, []DeclID{0, 1, 3}, depsOf(t, builder, c))
	assert.Empty(t, depsOf(t, builder, d))
}

func TestSelfRecursiveType(t *testing.T) {
	node := asttest.Type(1, "Node", asttest.Ref("next", "Node"))
	builder := mustBuild(t, asttest.Program(node))
	assert.Empty(t, depsOf(t, builder, node))
	assert.True(t, builder.IsCyclic(0))
}

func TestCyclesRejected(t *testing.T) {
	a := asttest.Type(1, "A", asttest.Ref("b", "B"))
	b := asttest.Type(2, "B", asttest.Ref("a", "A"))
	_, err := NewBuilder(asttest.Program(a, b), WithCyclePolicy(CyclesReject))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCyclicReference))
	assert.Contains(t, err.Error(), "A -> B")
}

func TestParseCyclePolicy(t *testing.T) {
	p, err := ParseCyclePolicy("")
	require.NoError(t, err)
	assert.Equal(t, CyclesAccept, p)
	p, err = ParseCyclePolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, CyclesReject, p)
	_, err = ParseCyclePolicy("ignore")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestDependenciesAreStableAndCopied(t *testing.T) {
	req := asttest.Type(1, "Req")
	iface := asttest.Interface(2, "I", asttest.OneWay("push", "Req"))
	svc := asttest.Service(3, "S", asttest.InputPort(4, "IP", "I"))
	builder := mustBuild(t, asttest.Program(req, iface, svc))

	first, err := builder.DependenciesOf(svc)
	require.NoError(t, err)
	first.Add(99)
	assert.Equal(t, []DeclID{0, 1}, depsOf(t, builder, svc), "callers must not mutate the memo")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deps, err := builder.DependenciesOf(svc)
			assert.NoError(t, err)
			assert.Equal(t, []DeclID{0, 1}, deps.Sorted())
		}()
	}
	wg.Wait()
}

func TestEveryKindHasADependencyRule(t *testing.T) {
	typ := asttest.Type(1, "T")
	iface := asttest.Interface(2, "I", asttest.OneWay("o", "T"))
	svc := asttest.Service(3, "S", asttest.InputPort(4, "P", "I"))
	builder := mustBuild(t, asttest.Program(typ, iface, svc))

	structural := map[ast.Kind][]DeclID{
		ast.KindTypeLink:            {0},
		ast.KindTypeChoice:          {0},
		ast.KindInterface:           {0, 1},
		ast.KindInterfaceExtender:   {0},
		ast.KindOneWayDecl:          {0},
		ast.KindRequestResponseDecl: {0},
		ast.KindInputPort:           {0, 1},
		ast.KindOutputPort:          {0, 1},
		ast.KindEmbedService:        {0, 1, 2},
	}
	for _, k := range ast.Kinds() {
		n := asttest.Sample(k)
		require.NotNil(t, n, "no sample for %s", k)
		require.Equal(t, k, n.Kind())
		deps, err := builder.DependenciesOf(n)
		require.NoError(t, err, k.String())
		want := structural[k]
		if want == nil {
			assert.Empty(t, deps.Sorted(), "%s should carry no edge", k)
			continue
		}
		assert.Equal(t, want, deps.Sorted(), k.String())
	}
}

func TestDependenciesOfTopLevelImport(t *testing.T) {
	imp := asttest.Import(1, "x", "A")
	builder := mustBuild(t, asttest.Program(imp))
	assert.Empty(t, depsOf(t, builder, imp))
}
