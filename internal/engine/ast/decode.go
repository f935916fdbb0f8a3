package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeError reports a malformed program document.
type DecodeError struct {
	Line int
	Kind string
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
}

// Decode reads a program tree produced by the frontend. The document is an
// object {"source": ..., "children": [...]} whose nodes are objects tagged by
// "kind" and located by "line".
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Program, error) {
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("program document: %w", err)
	}
	d := &decoder{}
	d.source = d.str(root, "source")
	program := &Program{
		Context:  Context{Source: d.source, Line: d.integer(root, "line")},
		Children: d.nodes(root, "children"),
	}
	if d.err != nil {
		return nil, d.err
	}
	return program, nil
}

type object map[string]json.RawMessage

// decoder keeps the first error and keeps going with zero values, so a
// single pass reports the earliest defect.
type decoder struct {
	source string
	line   int
	kind   string
	err    error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = &DecodeError{Line: d.line, Kind: d.kind, Msg: fmt.Sprintf(format, args...)}
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (d *decoder) field(o object, key string, dst any) bool {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.fail("field %q: %v", key, err)
		return false
	}
	return true
}

func (d *decoder) str(o object, key string) string {
	var s string
	d.field(o, key, &s)
	return s
}

func (d *decoder) strs(o object, key string) []string {
	var s []string
	d.field(o, key, &s)
	return s
}

func (d *decoder) integer(o object, key string) int {
	var n int
	d.field(o, key, &n)
	return n
}

func (d *decoder) flag(o object, key string) bool {
	var b bool
	d.field(o, key, &b)
	return b
}

func (d *decoder) objects(o object, key string) []object {
	var list []object
	d.field(o, key, &list)
	return list
}

func (d *decoder) node(o object, key string) Node {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	return d.decode(raw)
}

func (d *decoder) nodes(o object, key string) []Node {
	var list []json.RawMessage
	if !d.field(o, key, &list) {
		return nil
	}
	out := make([]Node, 0, len(list))
	for _, raw := range list {
		if n := d.decode(raw); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// path accepts a "path" node or a dotted shorthand string.
func (d *decoder) path(o object, key string) *VariablePath {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var dotted string
	if json.Unmarshal(raw, &dotted) == nil {
		return d.dottedPath(dotted)
	}
	n := d.decode(raw)
	if n == nil {
		return nil
	}
	p, ok := n.(*VariablePath)
	if !ok {
		d.fail("field %q: expected path, got %s", key, n.Kind())
		return nil
	}
	return p
}

func (d *decoder) dottedPath(dotted string) *VariablePath {
	p := &VariablePath{Context: d.ctx()}
	if rest, ok := strings.CutPrefix(dotted, "global."); ok {
		p.Global = true
		dotted = rest
	}
	for _, name := range strings.Split(dotted, ".") {
		if name != "" {
			p.Segments = append(p.Segments, PathSegment{Name: name})
		}
	}
	return p
}

// typeRef accepts a type node, or a type name: native names become inline
// leaves and every other name becomes a link.
func (d *decoder) typeRef(o object, key string) TypeDefinition {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var name string
	if json.Unmarshal(raw, &name) == nil {
		if native, ok := LookupNative(name); ok {
			return &TypeInline{Context: d.ctx(), Name: name, Native: native, Cardinality: One}
		}
		return &TypeLink{Context: d.ctx(), Name: name, LinkedName: name, Cardinality: One}
	}
	n := d.decode(raw)
	if n == nil {
		return nil
	}
	t, ok := n.(TypeDefinition)
	if !ok {
		d.fail("field %q: expected type, got %s", key, n.Kind())
		return nil
	}
	return t
}

func (d *decoder) types(o object, key string) []TypeDefinition {
	var list []json.RawMessage
	if !d.field(o, key, &list) {
		return nil
	}
	out := make([]TypeDefinition, 0, len(list))
	for _, raw := range list {
		if t := d.typeRef(object{"t": raw}, "t"); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (d *decoder) cardinality(o object) Cardinality {
	var wire struct {
		Min *int `json:"min"`
		Max *int `json:"max"`
	}
	if !d.field(o, "cardinality", &wire) {
		return One
	}
	c := One
	if wire.Min != nil {
		c.Min = *wire.Min
	}
	if wire.Max != nil {
		c.Max = *wire.Max
	}
	if c.Max != Unbounded && c.Max < c.Min {
		d.fail("cardinality [%d,%d] is empty", c.Min, c.Max)
	}
	return c
}

func (d *decoder) operations(o object, key string) []OperationDecl {
	nodes := d.nodes(o, key)
	out := make([]OperationDecl, 0, len(nodes))
	for _, n := range nodes {
		op, ok := n.(OperationDecl)
		if !ok {
			d.fail("field %q: expected operation, got %s", key, n.Kind())
			continue
		}
		out = append(out, op)
	}
	return out
}

func (d *decoder) interfaces(o object) []*Interface {
	var list []json.RawMessage
	if !d.field(o, "interfaces", &list) {
		return nil
	}
	out := make([]*Interface, 0, len(list))
	for _, raw := range list {
		var name string
		if json.Unmarshal(raw, &name) == nil {
			out = append(out, &Interface{Context: d.ctx(), Name: name})
			continue
		}
		n := d.decode(raw)
		iface, ok := n.(*Interface)
		if !ok {
			d.fail("port interface list holds a non-interface node")
			continue
		}
		out = append(out, iface)
	}
	return out
}

func (d *decoder) choice(o object, key string) *NDChoice {
	n := d.node(o, key)
	if n == nil {
		return nil
	}
	c, ok := n.(*NDChoice)
	if !ok {
		d.fail("field %q: expected choice, got %s", key, n.Kind())
		return nil
	}
	return c
}

func (d *decoder) branches(o object) []Branch {
	var out []Branch
	for _, b := range d.objects(o, "branches") {
		out = append(out, Branch{Guard: d.node(b, "guard"), Body: d.node(b, "body")})
	}
	return out
}

func (d *decoder) ctx() Context {
	return Context{Source: d.source, Line: d.line}
}

func (d *decoder) decode(raw json.RawMessage) Node {
	if d.err != nil || isNull(raw) {
		return nil
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		d.fail("node: %v", err)
		return nil
	}
	kindName := d.str(o, "kind")
	kind, ok := ParseKind(kindName)
	if !ok || kind == KindProgram {
		d.fail("unknown node kind %q", kindName)
		return nil
	}

	// Nodes without a line inherit their parent's.
	outerLine, outerKind := d.line, d.kind
	if line := d.integer(o, "line"); line > 0 {
		d.line = line
	}
	d.kind = kindName
	defer func() { d.line, d.kind = outerLine, outerKind }()

	return d.build(kind, o)
}

func (d *decoder) build(kind Kind, o object) Node {
	ctx := d.ctx()
	switch kind {
	case KindTypeInline:
		native := NativeVoid
		if name := d.str(o, "native"); name != "" {
			var ok bool
			if native, ok = LookupNative(name); !ok {
				d.fail("unknown native type %q", name)
			}
		}
		return &TypeInline{
			Context:     ctx,
			Name:        d.str(o, "name"),
			Native:      native,
			Cardinality: d.cardinality(o),
			Open:        d.flag(o, "open"),
			SubTypes:    d.types(o, "subTypes"),
			Doc:         d.str(o, "doc"),
		}
	case KindTypeLink:
		return &TypeLink{
			Context:     ctx,
			Name:        d.str(o, "name"),
			LinkedName:  d.str(o, "link"),
			Cardinality: d.cardinality(o),
			Doc:         d.str(o, "doc"),
		}
	case KindTypeChoice:
		return &TypeChoice{
			Context:     ctx,
			Name:        d.str(o, "name"),
			Cardinality: d.cardinality(o),
			Left:        d.typeRef(o, "left"),
			Right:       d.typeRef(o, "right"),
			Doc:         d.str(o, "doc"),
		}
	case KindInterface:
		return &Interface{Context: ctx, Name: d.str(o, "name"), Operations: d.operations(o, "operations"), Doc: d.str(o, "doc")}
	case KindInterfaceExtender:
		return &InterfaceExtender{Context: ctx, Name: d.str(o, "name"), Operations: d.operations(o, "operations")}
	case KindOneWayDecl:
		return &OneWayDecl{Context: ctx, Name: d.str(o, "name"), Request: d.typeRef(o, "request"), Doc: d.str(o, "doc")}
	case KindRequestResponseDecl:
		op := &RequestResponseDecl{
			Context:  ctx,
			Name:     d.str(o, "name"),
			Request:  d.typeRef(o, "request"),
			Response: d.typeRef(o, "response"),
			Doc:      d.str(o, "doc"),
		}
		for _, f := range d.objects(o, "faults") {
			op.Faults = append(op.Faults, Fault{Name: d.str(f, "name"), Type: d.typeRef(f, "type")})
		}
		return op
	case KindInputPort, KindOutputPort:
		port := &Port{
			Context:    ctx,
			Input:      kind == KindInputPort,
			Name:       d.str(o, "name"),
			Location:   d.str(o, "location"),
			Protocol:   d.str(o, "protocol"),
			Interfaces: d.interfaces(o),
			Operations: d.operations(o, "operations"),
			Aggregates: d.strs(o, "aggregates"),
		}
		for _, r := range d.objects(o, "redirects") {
			port.Redirects = append(port.Redirects, Redirect{Name: d.str(r, "name"), Port: d.str(r, "port")})
		}
		return port
	case KindService:
		svc := &Service{Context: ctx, Name: d.str(o, "name"), Body: d.nodes(o, "body"), Doc: d.str(o, "doc")}
		var param object
		if d.field(o, "parameter", &param) {
			svc.Parameter = &Parameter{Name: d.str(param, "name"), Type: d.typeRef(param, "type")}
		}
		d.bindGeneratedPorts(svc)
		return svc
	case KindEmbedService:
		return &EmbedService{
			Context:     ctx,
			ServiceName: d.str(o, "service"),
			Argument:    d.node(o, "argument"),
			AsNewPort:   d.flag(o, "asNewPort"),
			PortName:    d.str(o, "port"),
		}
	case KindEmbeddedService:
		return &EmbeddedService{Context: ctx, Type: d.str(o, "type"), URL: d.str(o, "url"), PortName: d.str(o, "port")}
	case KindImport:
		imp := &Import{Context: ctx, Path: d.str(o, "path"), Wildcard: d.flag(o, "wildcard")}
		for _, s := range d.objects(o, "symbols") {
			imp.Symbols = append(imp.Symbols, ImportSymbol{Name: d.str(s, "name"), Alias: d.str(s, "alias")})
		}
		return imp

	case KindDefinition:
		return &Definition{Context: ctx, Name: d.str(o, "name"), Body: d.node(o, "body")}
	case KindDefinitionCall:
		return &DefinitionCall{Context: ctx, Name: d.str(o, "name")}
	case KindSequence:
		return &Sequence{Context: ctx, Children: d.nodes(o, "children")}
	case KindParallel:
		return &Parallel{Context: ctx, Children: d.nodes(o, "children")}
	case KindNDChoice:
		return &NDChoice{Context: ctx, Branches: d.branches(o)}
	case KindOneWayStatement:
		return &OneWayStatement{Context: ctx, Operation: d.str(o, "operation"), Input: d.path(o, "input")}
	case KindRequestResponseStatement:
		return &RequestResponseStatement{
			Context:   ctx,
			Operation: d.str(o, "operation"),
			Input:     d.path(o, "input"),
			Output:    d.node(o, "output"),
			Body:      d.node(o, "body"),
		}
	case KindNotificationStatement:
		return &NotificationStatement{Context: ctx, Operation: d.str(o, "operation"), Port: d.str(o, "port"), Output: d.node(o, "output")}
	case KindSolicitResponseStatement:
		return &SolicitResponseStatement{
			Context:   ctx,
			Operation: d.str(o, "operation"),
			Port:      d.str(o, "port"),
			Output:    d.node(o, "output"),
			Input:     d.path(o, "input"),
		}
	case KindLinkIn:
		return &LinkIn{Context: ctx, Link: d.str(o, "link")}
	case KindLinkOut:
		return &LinkOut{Context: ctx, Link: d.str(o, "link")}
	case KindAssign:
		return &Assign{Context: ctx, Target: d.path(o, "target"), Value: d.node(o, "value")}
	case KindOperatorAssign:
		return &OperatorAssign{Context: ctx, Operator: d.str(o, "operator"), Target: d.path(o, "target"), Value: d.node(o, "value")}
	case KindIncrement:
		return &Increment{Context: ctx, Operator: d.str(o, "operator"), Prefix: d.flag(o, "prefix"), Target: d.path(o, "target")}
	case KindDeepCopy:
		return &DeepCopy{Context: ctx, Target: d.path(o, "target"), Value: d.node(o, "value")}
	case KindPointer:
		return &Pointer{Context: ctx, Target: d.path(o, "target"), Source: d.path(o, "source")}
	case KindUndef:
		return &Undef{Context: ctx, Target: d.path(o, "target")}
	case KindIf:
		return &If{Context: ctx, Branches: d.branches(o), Else: d.node(o, "else")}
	case KindWhile:
		return &While{Context: ctx, Condition: d.node(o, "condition"), Body: d.node(o, "body")}
	case KindFor:
		return &For{Context: ctx, Init: d.node(o, "init"), Condition: d.node(o, "condition"), Post: d.node(o, "post"), Body: d.node(o, "body")}
	case KindForEachSubNode:
		return &ForEachSubNode{Context: ctx, Key: d.path(o, "key"), Target: d.path(o, "target"), Body: d.node(o, "body")}
	case KindForEachArrayItem:
		return &ForEachArrayItem{Context: ctx, Item: d.path(o, "item"), Target: d.path(o, "target"), Body: d.node(o, "body")}
	case KindScope:
		return &Scope{Context: ctx, Name: d.str(o, "name"), Body: d.node(o, "body")}
	case KindInstall:
		install := &Install{Context: ctx}
		for _, h := range d.objects(o, "handlers") {
			install.Handlers = append(install.Handlers, FaultHandler{Fault: d.str(h, "fault"), Body: d.node(h, "body")})
		}
		return install
	case KindCompensate:
		return &Compensate{Context: ctx, Scope: d.str(o, "scope")}
	case KindThrow:
		return &Throw{Context: ctx, Fault: d.str(o, "fault"), Value: d.node(o, "value")}
	case KindExit:
		return &Exit{Context: ctx}
	case KindNullProcess:
		return &NullProcess{Context: ctx}
	case KindSpawn:
		return &Spawn{Context: ctx, Index: d.path(o, "index"), Upper: d.node(o, "upper"), Output: d.path(o, "output"), Body: d.node(o, "body")}
	case KindSynchronized:
		return &Synchronized{Context: ctx, ID: d.str(o, "id"), Body: d.node(o, "body")}
	case KindCurrentHandler:
		return &CurrentHandler{Context: ctx}
	case KindProvideUntil:
		return &ProvideUntil{Context: ctx, Provide: d.choice(o, "provide"), Until: d.choice(o, "until")}
	case KindExecutionInfo:
		return &ExecutionInfo{Context: ctx, Mode: d.str(o, "mode")}
	case KindCorrelationSet:
		cset := &CorrelationSet{Context: ctx}
		for _, v := range d.objects(o, "variables") {
			cset.Variables = append(cset.Variables, CorrelationVariable{Path: d.str(v, "path"), Aliases: d.strs(v, "aliases")})
		}
		return cset
	case KindDocumentation:
		return &Documentation{Context: ctx, Text: d.str(o, "text")}
	case KindCourier:
		return &Courier{Context: ctx, Port: d.str(o, "port"), Body: d.node(o, "body")}
	case KindForward:
		return &Forward{
			Context:         ctx,
			Port:            d.str(o, "port"),
			Output:          d.path(o, "output"),
			Input:           d.path(o, "input"),
			SolicitResponse: d.flag(o, "solicitResponse"),
		}

	case KindConstant:
		return d.constant(ctx, o)
	case KindVariablePath:
		p := &VariablePath{Context: ctx, Global: d.flag(o, "global")}
		var segments []json.RawMessage
		d.field(o, "segments", &segments)
		for _, raw := range segments {
			var name string
			if json.Unmarshal(raw, &name) == nil {
				p.Segments = append(p.Segments, PathSegment{Name: name})
				continue
			}
			var seg object
			if err := json.Unmarshal(raw, &seg); err != nil {
				d.fail("path segment: %v", err)
				continue
			}
			p.Segments = append(p.Segments, PathSegment{Name: d.str(seg, "name"), Index: d.node(seg, "index")})
		}
		return p
	case KindSum:
		return &Sum{Context: ctx, Operands: d.operands(o)}
	case KindProduct:
		return &Product{Context: ctx, Operands: d.operands(o)}
	case KindOr:
		return &Or{Context: ctx, Operands: d.nodes(o, "operands")}
	case KindAnd:
		return &And{Context: ctx, Operands: d.nodes(o, "operands")}
	case KindNot:
		return &Not{Context: ctx, Operand: d.node(o, "operand")}
	case KindCompare:
		return &Compare{Context: ctx, Operator: d.str(o, "operator"), Left: d.node(o, "left"), Right: d.node(o, "right")}
	case KindVectorSize:
		return &VectorSize{Context: ctx, Target: d.path(o, "target")}
	case KindIsType:
		return &IsType{Context: ctx, Check: d.str(o, "check"), Target: d.path(o, "target")}
	case KindInstanceOf:
		return &InstanceOf{Context: ctx, Value: d.node(o, "value"), TypeName: d.str(o, "type")}
	case KindTypeCast:
		native, ok := LookupNative(d.str(o, "native"))
		if !ok {
			d.fail("unknown cast target %q", d.str(o, "native"))
		}
		return &TypeCast{Context: ctx, Native: native, Value: d.node(o, "value")}
	case KindInlineTree:
		tree := &InlineTree{Context: ctx, Root: d.node(o, "root")}
		for _, op := range d.objects(o, "operations") {
			tree.Operations = append(tree.Operations, TreeOperation{Operator: d.str(op, "op"), Path: d.path(op, "path"), Value: d.node(op, "value")})
		}
		return tree
	case KindVoid:
		return &Void{Context: ctx}
	case KindFreshValue:
		return &FreshValue{Context: ctx}
	case KindInstallFixedVariable:
		return &InstallFixedVariable{Context: ctx, Target: d.path(o, "target")}
	}
	d.fail("kind %s cannot appear in a program body", kind)
	return nil
}

func (d *decoder) operands(o object) []Operand {
	var out []Operand
	for _, op := range d.objects(o, "operands") {
		out = append(out, Operand{Operator: d.str(op, "op"), Value: d.node(op, "value")})
	}
	return out
}

// constant keeps the literal's text; the type defaults from the JSON value.
func (d *decoder) constant(ctx Context, o object) *Constant {
	c := &Constant{Context: ctx, Type: ConstantType(d.str(o, "type"))}
	raw := bytes.TrimSpace(o["value"])
	var s string
	switch {
	case len(raw) == 0:
		c.Value = ""
	case json.Unmarshal(raw, &s) == nil:
		c.Value = s
		if c.Type == "" {
			c.Type = ConstString
		}
	default:
		c.Value = string(raw)
		if c.Type == "" {
			switch {
			case c.Value == "true" || c.Value == "false":
				c.Type = ConstBool
			case bytes.ContainsAny(raw, ".eE"):
				c.Type = ConstDouble
			default:
				c.Type = ConstInt
			}
		}
	}
	if c.Type == "" {
		c.Type = ConstString
	}
	return c
}

// bindGeneratedPorts links every "embed ... as P" to the output port named P
// that the frontend generated in the same service body.
func (d *decoder) bindGeneratedPorts(svc *Service) {
	ports := make(map[string]*Port)
	for _, n := range svc.Body {
		if p, ok := n.(*Port); ok && !p.Input {
			ports[p.Name] = p
		}
	}
	for _, n := range svc.Body {
		embed, ok := n.(*EmbedService)
		if !ok || !embed.AsNewPort {
			continue
		}
		port, ok := ports[embed.PortName]
		if !ok {
			d.fail("service %s: embed %s as %s has no generated output port", svc.Name, embed.ServiceName, embed.PortName)
			continue
		}
		embed.BindingPort = port
	}
}
