package asttest

import "slicer/internal/engine/ast"

// Sample returns a minimal node of kind k. Its references name type T,
// interface I, service S and port P.
func Sample(k ast.Kind) ast.Node {
	path := Path("x")
	switch k {
	case ast.KindProgram:
		return Program(Type(1, "Local"))
	case ast.KindTypeInline:
		return Field("f", ast.NativeInt)
	case ast.KindTypeLink:
		return Ref("f", "T")
	case ast.KindTypeChoice:
		return &ast.TypeChoice{Left: Ref("l", "T"), Right: Field("r", ast.NativeInt)}
	case ast.KindInterface:
		return &ast.Interface{Name: "I"}
	case ast.KindInterfaceExtender:
		return &ast.InterfaceExtender{Name: "X", Operations: []ast.OperationDecl{OneWay("o", "T")}}
	case ast.KindOneWayDecl:
		return OneWay("o", "T")
	case ast.KindRequestResponseDecl:
		return RequestResponse("o", "T", "T")
	case ast.KindInputPort:
		return InputPort(1, "P", "I")
	case ast.KindOutputPort:
		return OutputPort(1, "P", "I")
	case ast.KindService:
		return Service(1, "Inner")
	case ast.KindEmbedService:
		return Embed(1, "S", "P")
	case ast.KindEmbeddedService:
		return &ast.EmbeddedService{Type: "Jolie", URL: "x.ol", PortName: "P"}
	case ast.KindImport:
		return &ast.Import{Path: "elsewhere"}
	case ast.KindDefinition:
		return &ast.Definition{Name: "d", Body: &ast.NullProcess{}}
	case ast.KindDefinitionCall:
		return &ast.DefinitionCall{Name: "d"}
	case ast.KindSequence:
		return &ast.Sequence{Children: []ast.Node{&ast.Exit{}}}
	case ast.KindParallel:
		return &ast.Parallel{}
	case ast.KindNDChoice:
		return &ast.NDChoice{}
	case ast.KindOneWayStatement:
		return &ast.OneWayStatement{Operation: "o", Input: path}
	case ast.KindRequestResponseStatement:
		return &ast.RequestResponseStatement{Operation: "o", Input: path}
	case ast.KindNotificationStatement:
		return &ast.NotificationStatement{Operation: "o", Port: "P"}
	case ast.KindSolicitResponseStatement:
		return &ast.SolicitResponseStatement{Operation: "o", Port: "P"}
	case ast.KindLinkIn:
		return &ast.LinkIn{Link: "l"}
	case ast.KindLinkOut:
		return &ast.LinkOut{Link: "l"}
	case ast.KindAssign:
		return &ast.Assign{Target: path, Value: &ast.Constant{Type: ast.ConstInt, Value: "1"}}
	case ast.KindOperatorAssign:
		return &ast.OperatorAssign{Operator: "+=", Target: path}
	case ast.KindIncrement:
		return &ast.Increment{Operator: "++", Target: path}
	case ast.KindDeepCopy:
		return &ast.DeepCopy{Target: path}
	case ast.KindPointer:
		return &ast.Pointer{Target: path, Source: path}
	case ast.KindUndef:
		return &ast.Undef{Target: path}
	case ast.KindIf:
		return &ast.If{}
	case ast.KindWhile:
		return &ast.While{}
	case ast.KindFor:
		return &ast.For{}
	case ast.KindForEachSubNode:
		return &ast.ForEachSubNode{}
	case ast.KindForEachArrayItem:
		return &ast.ForEachArrayItem{}
	case ast.KindScope:
		return &ast.Scope{Name: "s"}
	case ast.KindInstall:
		return &ast.Install{}
	case ast.KindCompensate:
		return &ast.Compensate{Scope: "s"}
	case ast.KindThrow:
		return &ast.Throw{Fault: "F"}
	case ast.KindExit:
		return &ast.Exit{}
	case ast.KindNullProcess:
		return &ast.NullProcess{}
	case ast.KindSpawn:
		return &ast.Spawn{}
	case ast.KindSynchronized:
		return &ast.Synchronized{ID: "lock"}
	case ast.KindCurrentHandler:
		return &ast.CurrentHandler{}
	case ast.KindProvideUntil:
		return &ast.ProvideUntil{}
	case ast.KindExecutionInfo:
		return &ast.ExecutionInfo{Mode: "concurrent"}
	case ast.KindCorrelationSet:
		return &ast.CorrelationSet{}
	case ast.KindDocumentation:
		return &ast.Documentation{Text: "doc"}
	case ast.KindCourier:
		return &ast.Courier{Port: "P"}
	case ast.KindForward:
		return &ast.Forward{}
	case ast.KindConstant:
		return &ast.Constant{Type: ast.ConstString, Value: "s"}
	case ast.KindVariablePath:
		return path
	case ast.KindSum:
		return &ast.Sum{}
	case ast.KindProduct:
		return &ast.Product{}
	case ast.KindOr:
		return &ast.Or{}
	case ast.KindAnd:
		return &ast.And{}
	case ast.KindNot:
		return &ast.Not{}
	case ast.KindCompare:
		return &ast.Compare{Operator: "=="}
	case ast.KindVectorSize:
		return &ast.VectorSize{Target: path}
	case ast.KindIsType:
		return &ast.IsType{Check: "is_defined", Target: path}
	case ast.KindInstanceOf:
		return &ast.InstanceOf{Value: path, TypeName: "T"}
	case ast.KindTypeCast:
		return &ast.TypeCast{Native: ast.NativeInt, Value: path}
	case ast.KindInlineTree:
		return &ast.InlineTree{}
	case ast.KindVoid:
		return &ast.Void{}
	case ast.KindFreshValue:
		return &ast.FreshValue{}
	case ast.KindInstallFixedVariable:
		return &ast.InstallFixedVariable{Target: path}
	}
	return nil
}
