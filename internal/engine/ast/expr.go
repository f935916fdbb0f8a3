package ast

// ConstantType tags the literal kind of a Constant.
type ConstantType string

const (
	ConstInt    ConstantType = "int"
	ConstLong   ConstantType = "long"
	ConstDouble ConstantType = "double"
	ConstBool   ConstantType = "bool"
	ConstString ConstantType = "string"
)

// Constant is a literal; Value keeps the frontend's textual form.
type Constant struct {
	Context
	Type  ConstantType
	Value string
}

func (*Constant) Kind() Kind { return KindConstant }

// PathSegment is one ".name[index]" step of a variable path.
type PathSegment struct {
	Name  string
	Index Node
}

// VariablePath addresses a node of the data tree; Global selects "global.".
type VariablePath struct {
	Context
	Global   bool
	Segments []PathSegment
}

func (*VariablePath) Kind() Kind { return KindVariablePath }

// Operand is one term of a sum or product with its leading operator
// (empty for the first term).
type Operand struct {
	Operator string
	Value    Node
}

type Sum struct {
	Context
	Operands []Operand
}

func (*Sum) Kind() Kind { return KindSum }

type Product struct {
	Context
	Operands []Operand
}

func (*Product) Kind() Kind { return KindProduct }

type Or struct {
	Context
	Operands []Node
}

func (*Or) Kind() Kind { return KindOr }

type And struct {
	Context
	Operands []Node
}

func (*And) Kind() Kind { return KindAnd }

type Not struct {
	Context
	Operand Node
}

func (*Not) Kind() Kind { return KindNot }

// Compare is a binary comparison: "==", "!=", "<", ">", "<=", ">=".
type Compare struct {
	Context
	Operator string
	Left     Node
	Right    Node
}

func (*Compare) Kind() Kind { return KindCompare }

// VectorSize is "#path".
type VectorSize struct {
	Context
	Target *VariablePath
}

func (*VectorSize) Kind() Kind { return KindVectorSize }

// IsType is a predicate such as is_defined(path) or is_int(path).
type IsType struct {
	Context
	Check  string
	Target *VariablePath
}

func (*IsType) Kind() Kind { return KindIsType }

// InstanceOf is "expr instanceof Type".
type InstanceOf struct {
	Context
	Value    Node
	TypeName string
}

func (*InstanceOf) Kind() Kind { return KindInstanceOf }

// TypeCast is "int(expr)", "string(expr)" and friends.
type TypeCast struct {
	Context
	Native NativeType
	Value  Node
}

func (*TypeCast) Kind() Kind { return KindTypeCast }

// TreeOperation is one ".path = v", ".path << v" or ".path -> p" entry of an
// inline tree.
type TreeOperation struct {
	Operator string
	Path     *VariablePath
	Value    Node
}

// InlineTree is "root { .a = 1, .b << x }".
type InlineTree struct {
	Context
	Root       Node
	Operations []TreeOperation
}

func (*InlineTree) Kind() Kind { return KindInlineTree }

// Void is the empty expression of "op()()".
type Void struct {
	Context
}

func (*Void) Kind() Kind { return KindVoid }

// FreshValue is the "new" expression.
type FreshValue struct {
	Context
}

func (*FreshValue) Kind() Kind { return KindFreshValue }

// InstallFixedVariable is "^path" inside an install handler.
type InstallFixedVariable struct {
	Context
	Target *VariablePath
}

func (*InstallFixedVariable) Kind() Kind { return KindInstallFixedVariable }
