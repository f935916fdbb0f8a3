package slicer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/engine/ast"
	"slicer/internal/engine/ast/asttest"
)

func names(p *ast.Program) []string {
	out := make([]string, 0, len(p.Children))
	for _, n := range p.Children {
		out = append(out, ast.DeclarationName(n))
	}
	return out
}

func mustSlice(t *testing.T, p *ast.Program, selected ...string) map[string]*ast.Program {
	t.Helper()
	s, err := New(p)
	require.NoError(t, err)
	out, err := s.Slice(context.Background(), selected)
	require.NoError(t, err)
	return out
}

func shopWithUnrelatedService() *ast.Program {
	return asttest.Program(
		asttest.Type(1, "Req", asttest.Field("f", ast.NativeString)),
		asttest.Interface(2, "Iface", asttest.RequestResponse("op", "Req", "Req")),
		asttest.Service(3, "A", asttest.InputPort(4, "IP", "Iface"), asttest.Main(5, "op")),
		asttest.Type(8, "Unrelated"),
		asttest.Interface(9, "BIface", asttest.OneWay("tick", "Unrelated")),
		asttest.Service(10, "B", asttest.InputPort(11, "BIP", "BIface")),
	)
}

func TestSliceKeepsOnlySelectedServices(t *testing.T) {
	program := shopWithUnrelatedService()
	out := mustSlice(t, program, "A")

	require.Len(t, out, 1)
	require.Contains(t, out, "A")
	assert.Equal(t, []string{"Req", "Iface", "A"}, names(out["A"]))
	assert.Equal(t, program.Context, out["A"].Context)
	assert.Same(t, program.Children[0], out["A"].Children[0])
}

func TestEmbeddedServiceIsPulledIn(t *testing.T) {
	program := asttest.Program(
		asttest.Type(1, "CReq"),
		asttest.Interface(2, "CIface", asttest.OneWay("ping", "CReq")),
		asttest.Service(3, "C", asttest.InputPort(4, "CIP", "CIface")),
		asttest.Type(6, "AReq"),
		asttest.Interface(7, "AIface", asttest.OneWay("go", "AReq")),
		asttest.Service(8, "A",
			asttest.InputPort(9, "AIP", "AIface"),
			asttest.OutputPort(10, "ToC", "CIface"),
			asttest.Embed(11, "C", "ToC"),
		),
	)
	out := mustSlice(t, program, "A")

	require.Len(t, out, 1)
	assert.NotContains(t, out, "C")
	assert.Equal(t, []string{"CReq", "CIface", "C", "AReq", "AIface", "A"}, names(out["A"]))
}

func TestSharedDeclarationsAreDuplicatedAcrossSlices(t *testing.T) {
	program := asttest.Program(
		asttest.Type(1, "Shared"),
		asttest.Interface(2, "I", asttest.OneWay("o", "Shared")),
		asttest.Service(3, "A", asttest.InputPort(4, "P", "I")),
		asttest.Service(5, "B", asttest.OutputPort(6, "P", "I")),
	)
	out := mustSlice(t, program, "A", "B")
	assert.Equal(t, []string{"Shared", "I", "A"}, names(out["A"]))
	assert.Equal(t, []string{"Shared", "I", "B"}, names(out["B"]))
	assert.Same(t, out["A"].Children[0], out["B"].Children[0])
}

func TestGeneratedEmbedPortsAreStripped(t *testing.T) {
	embed, binding := asttest.EmbedAs(5, "C", "CPort", "CIface")
	a := asttest.Service(4, "A", binding, embed, asttest.Main(6, "op"))
	program := asttest.Program(
		asttest.Interface(1, "CIface"),
		asttest.Service(2, "C", asttest.InputPort(3, "CIP", "CIface")),
		a,
	)

	out := mustSlice(t, program, "A")
	sliced := out["A"].Children[len(out["A"].Children)-1].(*ast.Service)
	assert.NotSame(t, a, sliced)
	assert.Len(t, sliced.Body, 2)
	for _, n := range sliced.Body {
		assert.NotSame(t, binding, n)
	}
	assert.Len(t, a.Body, 3, "the input program is left untouched")
	assert.Equal(t, []string{"CIface", "C", "A"}, names(out["A"]))
}

func TestImportShortCircuit(t *testing.T) {
	program := asttest.Program(
		asttest.Import(1, "shared.ol", "Req"),
		asttest.Type(2, "Req"),
		asttest.Interface(3, "I", asttest.OneWay("o", "Req")),
		asttest.Service(4, "S", asttest.InputPort(5, "P", "I")),
	)
	out := mustSlice(t, program, "S")
	assert.Equal(t, []string{"import shared.ol", "I", "S"}, names(out["S"]))
}

func TestCanonicalInterfaceAppearsOnce(t *testing.T) {
	program := asttest.Program(
		asttest.Type(1, "T"),
		asttest.Interface(2, "I", asttest.OneWay("o", "T")),
		asttest.Service(3, "S",
			asttest.InputPort(4, "In", "I"),
			asttest.OutputPort(5, "Out", "I"),
		),
	)
	out := mustSlice(t, program, "S")
	assert.Equal(t, []string{"T", "I", "S"}, names(out["S"]))
}

func TestDiamondAppearsOnceInSourceOrder(t *testing.T) {
	program := asttest.Program(
		asttest.Type(1, "Base"),
		asttest.Type(2, "Left", asttest.Ref("b", "Base")),
		asttest.Type(3, "Right", asttest.Ref("b", "Base")),
		asttest.Interface(4, "I", asttest.RequestResponse("o", "Left", "Right")),
		asttest.Service(5, "S", asttest.InputPort(6, "P", "I")),
	)
	out := mustSlice(t, program, "S")
	assert.Equal(t, []string{"Base", "Left", "Right", "I", "S"}, names(out["S"]))
}

func TestOrderFollowsSourceLinesNotDeclarationOrder(t *testing.T) {
	// Children are out of line order; equal lines fall back to position.
	program := asttest.Program(
		asttest.Type(7, "Late"),
		asttest.Type(2, "Early"),
		asttest.Type(2, "Tie"),
		asttest.Interface(9, "I", asttest.RequestResponse("o", "Late", "Early"), asttest.OneWay("t", "Tie")),
		asttest.Service(10, "S", asttest.InputPort(11, "P", "I")),
	)
	out := mustSlice(t, program, "S")
	assert.Equal(t, []string{"Early", "Tie", "Late", "I", "S"}, names(out["S"]))
}

func TestSliceIsDeterministic(t *testing.T) {
	program := shopWithUnrelatedService()
	s, err := New(program, WithParallelism(4))
	require.NoError(t, err)

	first, err := s.Slice(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := s.Slice(context.Background(), []string{"B", "A"})
		require.NoError(t, err)
		for name, p := range first {
			assert.Equal(t, names(p), names(again[name]))
		}
	}
}

func TestManyServicesInParallel(t *testing.T) {
	children := []ast.Node{asttest.Type(1, "T"), asttest.Interface(2, "I", asttest.OneWay("o", "T"))}
	var selected []string
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("S%02d", i)
		children = append(children, asttest.Service(10+i, name, asttest.InputPort(10+i, "P", "I")))
		selected = append(selected, name)
	}
	s, err := New(asttest.Program(children...), WithParallelism(3))
	require.NoError(t, err)
	out, err := s.Slice(context.Background(), selected)
	require.NoError(t, err)
	require.Len(t, out, 50)
	for _, name := range selected {
		assert.Equal(t, []string{"T", "I", name}, names(out[name]))
	}
	assert.Len(t, s.Services(), 50)
}

func TestUnknownSelectionIsIgnored(t *testing.T) {
	out := mustSlice(t, shopWithUnrelatedService(), "Nope")
	assert.Empty(t, out)
}

func TestCancelledContext(t *testing.T) {
	s, err := New(shopWithUnrelatedService())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Slice(ctx, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnresolvedReferenceFailsConstruction(t *testing.T) {
	program := asttest.Program(asttest.Service(1, "S", asttest.InputPort(2, "P", "Missing")))
	_, err := New(program)
	require.Error(t, err)
}
