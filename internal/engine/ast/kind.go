package ast

import "fmt"

// Kind enumerates every node variant of the tree.
type Kind int

const (
	KindInvalid Kind = iota
	KindProgram

	// Declarations.
	KindTypeInline
	KindTypeLink
	KindTypeChoice
	KindInterface
	KindInterfaceExtender
	KindOneWayDecl
	KindRequestResponseDecl
	KindInputPort
	KindOutputPort
	KindService
	KindEmbedService
	KindEmbeddedService
	KindImport

	// Behaviour.
	KindDefinition
	KindDefinitionCall
	KindSequence
	KindParallel
	KindNDChoice
	KindOneWayStatement
	KindRequestResponseStatement
	KindNotificationStatement
	KindSolicitResponseStatement
	KindLinkIn
	KindLinkOut
	KindAssign
	KindOperatorAssign
	KindIncrement
	KindDeepCopy
	KindPointer
	KindUndef
	KindIf
	KindWhile
	KindFor
	KindForEachSubNode
	KindForEachArrayItem
	KindScope
	KindInstall
	KindCompensate
	KindThrow
	KindExit
	KindNullProcess
	KindSpawn
	KindSynchronized
	KindCurrentHandler
	KindProvideUntil
	KindExecutionInfo
	KindCorrelationSet
	KindDocumentation
	KindCourier
	KindForward

	// Expressions.
	KindConstant
	KindVariablePath
	KindSum
	KindProduct
	KindOr
	KindAnd
	KindNot
	KindCompare
	KindVectorSize
	KindIsType
	KindInstanceOf
	KindTypeCast
	KindInlineTree
	KindVoid
	KindFreshValue
	KindInstallFixedVariable

	kindCount
)

var kindNames = [...]string{
	KindInvalid:                  "invalid",
	KindProgram:                  "program",
	KindTypeInline:               "typeInline",
	KindTypeLink:                 "typeLink",
	KindTypeChoice:               "typeChoice",
	KindInterface:                "interface",
	KindInterfaceExtender:        "interfaceExtender",
	KindOneWayDecl:               "oneWayDecl",
	KindRequestResponseDecl:      "requestResponseDecl",
	KindInputPort:                "inputPort",
	KindOutputPort:               "outputPort",
	KindService:                  "service",
	KindEmbedService:             "embed",
	KindEmbeddedService:          "embedded",
	KindImport:                   "import",
	KindDefinition:               "define",
	KindDefinitionCall:           "call",
	KindSequence:                 "sequence",
	KindParallel:                 "parallel",
	KindNDChoice:                 "choice",
	KindOneWayStatement:          "oneWay",
	KindRequestResponseStatement: "requestResponse",
	KindNotificationStatement:    "notification",
	KindSolicitResponseStatement: "solicitResponse",
	KindLinkIn:                   "linkIn",
	KindLinkOut:                  "linkOut",
	KindAssign:                   "assign",
	KindOperatorAssign:           "operatorAssign",
	KindIncrement:                "increment",
	KindDeepCopy:                 "deepCopy",
	KindPointer:                  "pointer",
	KindUndef:                    "undef",
	KindIf:                       "if",
	KindWhile:                    "while",
	KindFor:                      "for",
	KindForEachSubNode:           "foreachSubNode",
	KindForEachArrayItem:         "foreachArrayItem",
	KindScope:                    "scope",
	KindInstall:                  "install",
	KindCompensate:               "compensate",
	KindThrow:                    "throw",
	KindExit:                     "exit",
	KindNullProcess:              "nullProcess",
	KindSpawn:                    "spawn",
	KindSynchronized:             "synchronized",
	KindCurrentHandler:           "currentHandler",
	KindProvideUntil:             "provideUntil",
	KindExecutionInfo:            "execution",
	KindCorrelationSet:           "cset",
	KindDocumentation:            "documentation",
	KindCourier:                  "courier",
	KindForward:                  "forward",
	KindConstant:                 "constant",
	KindVariablePath:             "path",
	KindSum:                      "sum",
	KindProduct:                  "product",
	KindOr:                       "or",
	KindAnd:                      "and",
	KindNot:                      "not",
	KindCompare:                  "compare",
	KindVectorSize:               "vectorSize",
	KindIsType:                   "isType",
	KindInstanceOf:               "instanceOf",
	KindTypeCast:                 "cast",
	KindInlineTree:               "inlineTree",
	KindVoid:                     "void",
	KindFreshValue:               "new",
	KindInstallFixedVariable:     "fixedVariable",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) || kindNames[k] == "" {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Kinds returns every valid kind, in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, int(kindCount)-1)
	for k := KindProgram; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k := KindProgram; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()
