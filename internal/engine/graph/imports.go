package graph

import "slicer/internal/engine/ast"

// ImportIndex maps every imported local name to the import statement that
// bound it. Wildcard imports bind no name the index could know about.
type ImportIndex struct {
	symbols map[string]DeclID
}

func newImportIndex(imports []*ast.Import, ids []DeclID) *ImportIndex {
	x := &ImportIndex{symbols: make(map[string]DeclID)}
	for i, imp := range imports {
		for _, sym := range imp.Symbols {
			// A later import of the same local name shadows the earlier one.
			x.symbols[sym.LocalName()] = ids[i]
		}
	}
	return x
}

// Resolve returns the import statement that bound name.
func (x *ImportIndex) Resolve(name string) (DeclID, bool) {
	id, ok := x.symbols[name]
	return id, ok
}

// Len is the number of bound names.
func (x *ImportIndex) Len() int { return len(x.symbols) }
