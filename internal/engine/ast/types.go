package ast

import "fmt"

// NativeType is one of the language's built-in basic types.
type NativeType string

const (
	NativeVoid   NativeType = "void"
	NativeBool   NativeType = "bool"
	NativeInt    NativeType = "int"
	NativeLong   NativeType = "long"
	NativeDouble NativeType = "double"
	NativeString NativeType = "string"
	NativeRaw    NativeType = "raw"
	NativeAny    NativeType = "any"
)

var nativeTypes = map[string]NativeType{
	"void":      NativeVoid,
	"bool":      NativeBool,
	"int":       NativeInt,
	"long":      NativeLong,
	"double":    NativeDouble,
	"string":    NativeString,
	"raw":       NativeRaw,
	"any":       NativeAny,
	"undefined": NativeAny,
}

// LookupNative reports whether name is a built-in type.
func LookupNative(name string) (NativeType, bool) {
	t, ok := nativeTypes[name]
	return t, ok
}

// Unbounded is the Max of an open-ended cardinality.
const Unbounded = -1

// Cardinality bounds the number of occurrences of a (sub)type.
type Cardinality struct {
	Min int
	Max int
}

// One is the default [1,1] cardinality.
var One = Cardinality{Min: 1, Max: 1}

func (c Cardinality) String() string {
	switch {
	case c == One || c == (Cardinality{}):
		return ""
	case c.Min == 0 && c.Max == 1:
		return "?"
	case c.Min == 0 && c.Max == Unbounded:
		return "*"
	case c.Max == Unbounded:
		return fmt.Sprintf("[%d,*]", c.Min)
	default:
		return fmt.Sprintf("[%d,%d]", c.Min, c.Max)
	}
}

// TypeDefinition is implemented by the three type variants.
type TypeDefinition interface {
	Node
	TypeName() string
	Card() Cardinality
}

// TypeInline is a structural type: a native root plus named subtypes.
type TypeInline struct {
	Context
	Name        string
	Native      NativeType
	Cardinality Cardinality
	Open        bool // "{ ? }": accepts undeclared subnodes
	SubTypes    []TypeDefinition
	Doc         string
}

func (*TypeInline) Kind() Kind { return KindTypeInline }
func (t *TypeInline) TypeName() string { return t.Name }
func (t *TypeInline) Card() Cardinality { return t.Cardinality }

// TypeLink names another type. Top-level links are aliases; nested links
// are references from a subtype, an operation or a choice alternative.
type TypeLink struct {
	Context
	Name        string
	LinkedName  string
	Cardinality Cardinality
	Doc         string
}

func (*TypeLink) Kind() Kind { return KindTypeLink }
func (t *TypeLink) TypeName() string { return t.Name }
func (t *TypeLink) Card() Cardinality { return t.Cardinality }

// TypeChoice is the "A | B" alternative of two types.
type TypeChoice struct {
	Context
	Name        string
	Cardinality Cardinality
	Left        TypeDefinition
	Right       TypeDefinition
	Doc         string
}

func (*TypeChoice) Kind() Kind { return KindTypeChoice }
func (t *TypeChoice) TypeName() string { return t.Name }
func (t *TypeChoice) Card() Cardinality { return t.Cardinality }
