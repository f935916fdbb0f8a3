package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/engine/ast"
	"slicer/internal/engine/ast/asttest"
)

func TestRenderDeclarations(t *testing.T) {
	program := asttest.Program(
		asttest.Type(1, "Order", asttest.Field("id", ast.NativeInt), asttest.Ref("item", "Item")),
		asttest.Alias(4, "Id", "string"),
		asttest.Interface(5, "Shop",
			asttest.RequestResponse("buy", "Order", "Receipt", "Stock"),
			asttest.OneWay("ping", "Id"),
		),
		asttest.WithParameter(asttest.Service(9, "Front",
			asttest.InputPort(10, "In", "Shop"),
			asttest.Embed(11, "Back", "BackPort"),
			asttest.Main(12, "buy"),
		), "Id"),
		asttest.Import(20, "lib.types", "Item", "Receipt:Bill"),
	)

	want := `type Order: void {
  id: int
  item: Item
}

type Id: string

interface Shop {
  OneWay:
    ping( Id )
  RequestResponse:
    buy( Order )( Receipt ) throws StockFault( Stock )
}

service Front( p : Id ) {
  inputPort In {
    location: "local"
    interfaces: Shop
  }
  embed Back in BackPort
  main {
    buy( x )( x )
  }
}

from lib.types import Item, Receipt as Bill
`
	got, err := Program(program, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRenderIndent(t *testing.T) {
	program := asttest.Program(asttest.Type(1, "Order", asttest.Field("id", ast.NativeInt)))

	got, err := Program(program, 4)
	require.NoError(t, err)
	assert.Equal(t, "type Order: void {\n    id: int\n}\n", got)

	got, err = Program(program, 0)
	require.NoError(t, err)
	assert.Contains(t, got, "\n  id: int\n", "indent below one falls back to two spaces")
}

func TestRenderTypeShapes(t *testing.T) {
	tests := []struct {
		name string
		node ast.Node
		want string
	}{
		{
			name: "cardinalities",
			node: &ast.TypeInline{Name: "Tags", Native: ast.NativeVoid, Cardinality: ast.One, SubTypes: []ast.TypeDefinition{
				&ast.TypeInline{Name: "tag", Native: ast.NativeString, Cardinality: ast.Cardinality{Min: 0, Max: ast.Unbounded}},
				&ast.TypeInline{Name: "note", Native: ast.NativeString, Cardinality: ast.Cardinality{Min: 0, Max: 1}},
				&ast.TypeLink{Name: "ids", LinkedName: "Id", Cardinality: ast.Cardinality{Min: 2, Max: 5}},
			}},
			want: "type Tags: void {\n  tag*: string\n  note?: string\n  ids[2,5]: Id\n}\n",
		},
		{
			name: "open",
			node: &ast.TypeInline{Name: "Bag", Native: ast.NativeVoid, Cardinality: ast.One, Open: true},
			want: "type Bag: void {\n  ?\n}\n",
		},
		{
			name: "choice",
			node: asttest.Choice(1, "Result", "Ok", "Failure"),
			want: "type Result: Ok | Failure\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Program(asttest.Program(tt.node), 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderBehaviour(t *testing.T) {
	main := &ast.Definition{Name: "main", Body: &ast.Sequence{Children: []ast.Node{
		&ast.Assign{Target: asttest.Path("n"), Value: &ast.Constant{Type: ast.ConstInt, Value: "1"}},
		&ast.If{
			Branches: []ast.Branch{{
				Guard: &ast.Compare{Operator: ">", Left: asttest.Path("n"), Right: &ast.Constant{Type: ast.ConstInt, Value: "0"}},
				Body:  &ast.NotificationStatement{Operation: "log", Port: "Out", Output: &ast.Constant{Type: ast.ConstString, Value: "positive"}},
			}},
			Else: &ast.Throw{Fault: "Negative", Value: asttest.Path("n")},
		},
		&ast.SolicitResponseStatement{Operation: "ask", Port: "Out", Output: asttest.Path("n"), Input: asttest.Path("r")},
	}}}

	want := `main {
  n = 1;
  if( n > 0 ) {
    log@Out( "positive" )
  } else {
    throw( Negative, n )
  };
  ask@Out( n )( r )
}
`
	got, err := Program(asttest.Program(main), 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRenderExpressions(t *testing.T) {
	printer := New(2)
	tests := []struct {
		node ast.Node
		want string
	}{
		{&ast.Constant{Type: ast.ConstLong, Value: "7"}, "7L"},
		{&ast.Constant{Type: ast.ConstString, Value: `say "hi"`}, `"say \"hi\""`},
		{&ast.VariablePath{Global: true, Segments: []ast.PathSegment{
			{Name: "a", Index: &ast.Constant{Type: ast.ConstInt, Value: "0"}},
			{Name: "b"},
		}}, "global.a[0].b"},
		{&ast.Sum{Operands: []ast.Operand{
			{Value: asttest.Path("a")},
			{Operator: "-", Value: &ast.Constant{Type: ast.ConstInt, Value: "1"}},
		}}, "a - 1"},
		{&ast.And{Operands: []ast.Node{asttest.Path("a"), &ast.Not{Operand: asttest.Path("b")}}}, "a && !b"},
		{&ast.IsType{Check: "defined", Target: asttest.Path("a")}, "is_defined( a )"},
		{&ast.TypeCast{Native: ast.NativeInt, Value: asttest.Path("s")}, "int( s )"},
		{&ast.InlineTree{Root: asttest.Path("r"), Operations: []ast.TreeOperation{
			{Operator: "=", Path: asttest.Path("x"), Value: &ast.Constant{Type: ast.ConstInt, Value: "1"}},
			{Operator: "<<", Path: asttest.Path("y"), Value: asttest.Path("z")},
		}}, "r { .x = 1, .y << z }"},
		{&ast.VectorSize{Target: asttest.Path("items")}, "#items"},
		{&ast.FreshValue{}, "new"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, printer.expr(tt.node), tt.node.Kind().String())
	}
	require.NoError(t, printer.err)
}

func TestRenderEmptyBlocks(t *testing.T) {
	got, err := Program(asttest.Program(asttest.Service(1, "Empty")), 2)
	require.NoError(t, err)
	assert.Equal(t, "service Empty {}\n", got)
}

func TestRenderEmbedAsNewPort(t *testing.T) {
	embed, _ := asttest.EmbedAs(2, "Back", "BackPort", "BackAPI")
	got, err := Program(asttest.Program(asttest.Service(1, "Front", embed)), 2)
	require.NoError(t, err)
	assert.Contains(t, got, "  embed Back as BackPort\n")
	assert.NotContains(t, got, "outputPort")
}

func TestEveryKindHasAPrintingRule(t *testing.T) {
	for _, k := range ast.Kinds() {
		n := asttest.Sample(k)
		require.NotNil(t, n, k.String())

		program, ok := n.(*ast.Program)
		if !ok {
			program = asttest.Program(n)
		}
		got, err := Program(program, 2)
		require.NoError(t, err, k.String())
		assert.True(t, strings.HasSuffix(got, "\n"), k.String())
	}
}

func TestRenderNilProgram(t *testing.T) {
	_, err := New(2).Render(nil)
	require.Error(t, err)
}
