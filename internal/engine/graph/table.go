package graph

import "slicer/internal/engine/ast"

// DeclID identifies a direct child of the program by its position.
type DeclID int

// Table is the one-time classification of a program's direct children.
// Identity is per node instance: two children with the same name get two ids.
type Table struct {
	program *ast.Program
	nodes   []ast.Node
	ids     map[ast.Node]DeclID
	decls   []DeclID

	types      map[string]DeclID
	interfaces map[string]DeclID
	services   map[string]DeclID

	imports *ImportIndex
}

// Classify scans program once. Import statements are routed to the import
// index; every other child is a candidate dependency target. When two
// declarations of a category share a name the first one is indexed.
func Classify(program *ast.Program) *Table {
	t := &Table{
		program:    program,
		nodes:      make([]ast.Node, len(program.Children)),
		ids:        make(map[ast.Node]DeclID, len(program.Children)),
		types:      make(map[string]DeclID),
		interfaces: make(map[string]DeclID),
		services:   make(map[string]DeclID),
	}
	var imports []*ast.Import
	var importIDs []DeclID
	for i, child := range program.Children {
		id := DeclID(i)
		t.nodes[i] = child
		t.ids[child] = id
		switch n := child.(type) {
		case *ast.Import:
			imports = append(imports, n)
			importIDs = append(importIDs, id)
			continue
		case ast.TypeDefinition:
			indexName(t.types, n.TypeName(), id)
		case *ast.Interface:
			indexName(t.interfaces, n.Name, id)
		case *ast.Service:
			indexName(t.services, n.Name, id)
		}
		t.decls = append(t.decls, id)
	}
	t.imports = newImportIndex(imports, importIDs)
	return t
}

func indexName(index map[string]DeclID, name string, id DeclID) {
	if _, exists := index[name]; !exists {
		index[name] = id
	}
}

// Program returns the classified program.
func (t *Table) Program() *ast.Program { return t.program }

// Len is the number of direct children, imports included.
func (t *Table) Len() int { return len(t.nodes) }

// Lookup returns the id of n when n is itself a direct child of the program.
func (t *Table) Lookup(n ast.Node) (DeclID, bool) {
	if n == nil {
		return 0, false
	}
	id, ok := t.ids[n]
	return id, ok
}

// Node returns the child with the given id.
func (t *Table) Node(id DeclID) ast.Node {
	return t.nodes[id]
}

// Declarations lists the ids of every non-import child in source order.
func (t *Table) Declarations() []DeclID {
	return append([]DeclID(nil), t.decls...)
}

// IsImport reports whether id names an import statement.
func (t *Table) IsImport(id DeclID) bool {
	_, ok := t.nodes[id].(*ast.Import)
	return ok
}

func (t *Table) TypeByName(name string) (DeclID, bool) {
	id, ok := t.types[name]
	return id, ok
}

func (t *Table) InterfaceByName(name string) (DeclID, bool) {
	id, ok := t.interfaces[name]
	return id, ok
}

func (t *Table) ServiceByName(name string) (DeclID, bool) {
	id, ok := t.services[name]
	return id, ok
}

// Services returns every declared service, keyed by name.
func (t *Table) Services() map[string]*ast.Service {
	out := make(map[string]*ast.Service, len(t.services))
	for name, id := range t.services {
		out[name] = t.nodes[id].(*ast.Service)
	}
	return out
}

// Imports returns the import symbol index built during classification.
func (t *Table) Imports() *ImportIndex { return t.imports }

// Name renders id for logs and error messages.
func (t *Table) Name(id DeclID) string {
	n := t.nodes[id]
	if name := ast.DeclarationName(n); name != "" {
		return name
	}
	return n.Kind().String()
}
