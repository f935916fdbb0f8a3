package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/engine/ast/asttest"
)

func TestClassify(t *testing.T) {
	imp := asttest.Import(1, "lib", "Shared", "Remote:Alias")
	req := asttest.Type(2, "Req")
	dup := asttest.Type(3, "Req")
	iface := asttest.Interface(4, "I")
	svc := asttest.Service(5, "S")
	table := Classify(asttest.Program(imp, req, dup, iface, svc))

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, []DeclID{1, 2, 3, 4}, table.Declarations())

	id, ok := table.Lookup(dup)
	require.True(t, ok)
	assert.Equal(t, DeclID(2), id, "identity is per node instance")
	_, ok = table.Lookup(asttest.Type(2, "Req"))
	assert.False(t, ok, "structurally equal nodes are distinct")

	id, ok = table.TypeByName("Req")
	require.True(t, ok)
	assert.Equal(t, DeclID(1), id, "first declaration wins the name")

	id, ok = table.InterfaceByName("I")
	require.True(t, ok)
	assert.Equal(t, DeclID(3), id)
	id, ok = table.ServiceByName("S")
	require.True(t, ok)
	assert.Equal(t, DeclID(4), id)
	assert.Len(t, table.Services(), 1)

	assert.True(t, table.IsImport(0))
	assert.False(t, table.IsImport(1))
	assert.Equal(t, "import lib", table.Name(0))
	assert.Equal(t, "S", table.Name(4))
}

func TestImportIndex(t *testing.T) {
	first := asttest.Import(1, "a", "X", "Y:Z")
	second := asttest.Import(2, "b", "W")
	table := Classify(asttest.Program(first, asttest.Type(3, "X"), second))
	index := table.Imports()

	assert.Equal(t, 3, index.Len())
	for name, want := range map[string]DeclID{"X": 0, "Z": 0, "W": 2} {
		id, ok := index.Resolve(name)
		require.True(t, ok, name)
		assert.Equal(t, want, id, name)
	}
	_, ok := index.Resolve("Y")
	assert.False(t, ok, "aliased imports bind only the alias")
}
