package ast

// Definition is a named procedure: main, init or a custom define block.
type Definition struct {
	Context
	Name string
	Body Node
}

func (*Definition) Kind() Kind { return KindDefinition }

// DefinitionCall invokes a define block.
type DefinitionCall struct {
	Context
	Name string
}

func (*DefinitionCall) Kind() Kind { return KindDefinitionCall }

// Sequence composes statements with ";".
type Sequence struct {
	Context
	Children []Node
}

func (*Sequence) Kind() Kind { return KindSequence }

// Parallel composes statements with "|".
type Parallel struct {
	Context
	Children []Node
}

func (*Parallel) Kind() Kind { return KindParallel }

// Branch pairs a guard (condition or input guard) with its body.
type Branch struct {
	Guard Node
	Body  Node
}

// NDChoice is the input-guarded non-deterministic choice "[ guard ] { body }".
type NDChoice struct {
	Context
	Branches []Branch
}

func (*NDChoice) Kind() Kind { return KindNDChoice }

// OneWayStatement receives a one-way message.
type OneWayStatement struct {
	Context
	Operation string
	Input     *VariablePath
}

func (*OneWayStatement) Kind() Kind { return KindOneWayStatement }

// RequestResponseStatement receives a request and replies.
type RequestResponseStatement struct {
	Context
	Operation string
	Input     *VariablePath
	Output    Node
	Body      Node
}

func (*RequestResponseStatement) Kind() Kind { return KindRequestResponseStatement }

// NotificationStatement sends a one-way message through an output port.
type NotificationStatement struct {
	Context
	Operation string
	Port      string
	Output    Node
}

func (*NotificationStatement) Kind() Kind { return KindNotificationStatement }

// SolicitResponseStatement sends a request and waits for the response.
type SolicitResponseStatement struct {
	Context
	Operation string
	Port      string
	Output    Node
	Input     *VariablePath
}

func (*SolicitResponseStatement) Kind() Kind { return KindSolicitResponseStatement }

// LinkIn waits on an internal link.
type LinkIn struct {
	Context
	Link string
}

func (*LinkIn) Kind() Kind { return KindLinkIn }

// LinkOut signals an internal link.
type LinkOut struct {
	Context
	Link string
}

func (*LinkOut) Kind() Kind { return KindLinkOut }

// Assign is "path = expr".
type Assign struct {
	Context
	Target *VariablePath
	Value  Node
}

func (*Assign) Kind() Kind { return KindAssign }

// OperatorAssign is one of "+=", "-=", "*=", "/=".
type OperatorAssign struct {
	Context
	Operator string
	Target   *VariablePath
	Value    Node
}

func (*OperatorAssign) Kind() Kind { return KindOperatorAssign }

// Increment is "++path", "path++", "--path" or "path--".
type Increment struct {
	Context
	Operator string
	Prefix   bool
	Target   *VariablePath
}

func (*Increment) Kind() Kind { return KindIncrement }

// DeepCopy is "path << expr".
type DeepCopy struct {
	Context
	Target *VariablePath
	Value  Node
}

func (*DeepCopy) Kind() Kind { return KindDeepCopy }

// Pointer is "path -> path".
type Pointer struct {
	Context
	Target *VariablePath
	Source *VariablePath
}

func (*Pointer) Kind() Kind { return KindPointer }

// Undef removes a variable.
type Undef struct {
	Context
	Target *VariablePath
}

func (*Undef) Kind() Kind { return KindUndef }

// If holds the if / else if chain; Else may be nil.
type If struct {
	Context
	Branches []Branch
	Else     Node
}

func (*If) Kind() Kind { return KindIf }

type While struct {
	Context
	Condition Node
	Body      Node
}

func (*While) Kind() Kind { return KindWhile }

type For struct {
	Context
	Init      Node
	Condition Node
	Post      Node
	Body      Node
}

func (*For) Kind() Kind { return KindFor }

// ForEachSubNode is "foreach ( key : path ) body".
type ForEachSubNode struct {
	Context
	Key    *VariablePath
	Target *VariablePath
	Body   Node
}

func (*ForEachSubNode) Kind() Kind { return KindForEachSubNode }

// ForEachArrayItem is "for ( item in path ) body".
type ForEachArrayItem struct {
	Context
	Item   *VariablePath
	Target *VariablePath
	Body   Node
}

func (*ForEachArrayItem) Kind() Kind { return KindForEachArrayItem }

type Scope struct {
	Context
	Name string
	Body Node
}

func (*Scope) Kind() Kind { return KindScope }

// FaultHandler binds a fault name (or "this" for compensation) to a body.
type FaultHandler struct {
	Fault string
	Body  Node
}

type Install struct {
	Context
	Handlers []FaultHandler
}

func (*Install) Kind() Kind { return KindInstall }

type Compensate struct {
	Context
	Scope string
}

func (*Compensate) Kind() Kind { return KindCompensate }

type Throw struct {
	Context
	Fault string
	Value Node
}

func (*Throw) Kind() Kind { return KindThrow }

type Exit struct {
	Context
}

func (*Exit) Kind() Kind { return KindExit }

type NullProcess struct {
	Context
}

func (*NullProcess) Kind() Kind { return KindNullProcess }

// Spawn is "spawn ( index over upper ) in output body".
type Spawn struct {
	Context
	Index  *VariablePath
	Upper  Node
	Output *VariablePath
	Body   Node
}

func (*Spawn) Kind() Kind { return KindSpawn }

type Synchronized struct {
	Context
	ID   string
	Body Node
}

func (*Synchronized) Kind() Kind { return KindSynchronized }

// CurrentHandler is the "cH" statement.
type CurrentHandler struct {
	Context
}

func (*CurrentHandler) Kind() Kind { return KindCurrentHandler }

// ProvideUntil repeats the Provide choice until one of the Until branches fires.
type ProvideUntil struct {
	Context
	Provide *NDChoice
	Until   *NDChoice
}

func (*ProvideUntil) Kind() Kind { return KindProvideUntil }

// ExecutionInfo is "execution: single | concurrent | sequential".
type ExecutionInfo struct {
	Context
	Mode string
}

func (*ExecutionInfo) Kind() Kind { return KindExecutionInfo }

// CorrelationVariable is one "path: alias alias" line of a cset.
type CorrelationVariable struct {
	Path    string
	Aliases []string
}

type CorrelationSet struct {
	Context
	Variables []CorrelationVariable
}

func (*CorrelationSet) Kind() Kind { return KindCorrelationSet }

// Documentation is a "///" or "/** */" comment kept by the frontend.
type Documentation struct {
	Context
	Text string
}

func (*Documentation) Kind() Kind { return KindDocumentation }

// Courier is an aggregation courier process bound to an input port.
type Courier struct {
	Context
	Port string
	Body Node
}

func (*Courier) Kind() Kind { return KindCourier }

// Forward relays a courier message to its aggregated target.
type Forward struct {
	Context
	Port            string
	Output          *VariablePath
	Input           *VariablePath
	SolicitResponse bool
}

func (*Forward) Kind() Kind { return KindForward }
