// Package render turns a (sliced) program tree back into service source text.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	domainErrors "slicer/internal/core/errors"
	"slicer/internal/engine/ast"
)

const defaultIndent = 2

type Printer struct {
	indent string
	buf    bytes.Buffer
	depth  int
	fresh  bool
	err    error
}

// New returns a printer indenting nested blocks by the given number of
// spaces; values below one fall back to two.
func New(indent int) *Printer {
	if indent < 1 {
		indent = defaultIndent
	}
	return &Printer{indent: strings.Repeat(" ", indent)}
}

// Program renders program with the given indent.
func Program(program *ast.Program, indent int) (string, error) {
	return New(indent).Render(program)
}

// Render prints the top-level children of program separated by blank lines.
// A node kind without a printing rule is an internal error.
func (p *Printer) Render(program *ast.Program) (string, error) {
	p.buf.Reset()
	p.depth = 0
	p.fresh = true
	p.err = nil

	if program == nil {
		return "", domainErrors.New(domainErrors.CodeInternal, "nothing to render")
	}
	for i, child := range program.Children {
		if i > 0 {
			p.newline()
			p.newline()
		}
		p.node(child)
	}
	p.newline()

	if p.err != nil {
		return "", p.err
	}
	return p.buf.String(), nil
}

func (p *Printer) fail(n ast.Node) {
	if p.err == nil {
		err := &domainErrors.DomainError{
			Code:    domainErrors.CodeInternal,
			Message: fmt.Sprintf("no printing rule for %s", n.Kind()),
		}
		p.err = err.WithContext(domainErrors.CtxLine, n.Pos().Line)
	}
}

func (p *Printer) write(s string) {
	if s == "" {
		return
	}
	if p.fresh {
		for i := 0; i < p.depth; i++ {
			p.buf.WriteString(p.indent)
		}
		p.fresh = false
	}
	p.buf.WriteString(s)
}

func (p *Printer) newline() {
	p.buf.WriteByte('\n')
	p.fresh = true
}

// block writes "{ ... }" around fn, collapsing to "{}" when fn prints nothing.
func (p *Printer) block(fn func()) {
	p.write("{")
	p.depth++
	p.newline()
	mark := p.buf.Len()
	fn()
	p.depth--
	if p.buf.Len() == mark {
		p.buf.Truncate(mark - 1)
		p.fresh = false
		p.buf.WriteString("}")
		return
	}
	p.newline()
	p.write("}")
}

// lines writes each printer on its own line.
func (p *Printer) lines(items []func()) {
	for i, item := range items {
		if i > 0 {
			p.newline()
		}
		item()
	}
}

func parens(s string) string {
	if s == "" {
		return "()"
	}
	return "( " + s + " )"
}

func (p *Printer) node(n ast.Node) {
	switch n := n.(type) {
	case nil:
	case *ast.Program:
		for i, child := range n.Children {
			if i > 0 {
				p.newline()
			}
			p.node(child)
		}
	case ast.TypeDefinition:
		p.typeDecl(n, true)
	case *ast.Interface:
		p.write("interface " + n.Name + " ")
		p.block(func() { p.operations(n.Operations) })
	case *ast.InterfaceExtender:
		p.write("interface extender " + n.Name + " ")
		p.block(func() { p.operations(n.Operations) })
	case ast.OperationDecl:
		p.operation(n)
	case *ast.Port:
		p.port(n)
	case *ast.Service:
		p.service(n)
	case *ast.EmbedService:
		p.write("embed " + n.ServiceName)
		if n.Argument != nil {
			p.write(parens(p.expr(n.Argument)))
		}
		if n.PortName != "" {
			if n.AsNewPort {
				p.write(" as " + n.PortName)
			} else {
				p.write(" in " + n.PortName)
			}
		}
	case *ast.EmbeddedService:
		p.write("embedded ")
		p.block(func() {
			p.write(n.Type + ": " + strconv.Quote(n.URL))
			if n.PortName != "" {
				p.write(" in " + n.PortName)
			}
		})
	case *ast.Import:
		p.write("from " + n.Path + " import ")
		if n.Wildcard {
			p.write("*")
			return
		}
		symbols := make([]string, 0, len(n.Symbols))
		for _, s := range n.Symbols {
			if s.Alias != "" && s.Alias != s.Name {
				symbols = append(symbols, s.Name+" as "+s.Alias)
				continue
			}
			symbols = append(symbols, s.Name)
		}
		p.write(strings.Join(symbols, ", "))
	default:
		p.statement(n)
	}
}

func (p *Printer) typeDecl(t ast.TypeDefinition, top bool) {
	if top {
		p.write("type ")
	}
	p.write(t.TypeName() + t.Card().String() + ": ")
	p.typeBody(t)
}

func (p *Printer) typeBody(t ast.TypeDefinition) {
	switch t := t.(type) {
	case nil:
		p.write(string(ast.NativeVoid))
	case *ast.TypeInline:
		native := t.Native
		if native == "" {
			native = ast.NativeVoid
		}
		p.write(string(native))
		if len(t.SubTypes) == 0 && !t.Open {
			return
		}
		p.write(" ")
		p.block(func() {
			for i, sub := range t.SubTypes {
				if i > 0 {
					p.newline()
				}
				p.typeDecl(sub, false)
			}
			if t.Open {
				if len(t.SubTypes) > 0 {
					p.newline()
				}
				p.write("?")
			}
		})
	case *ast.TypeLink:
		p.write(t.LinkedName)
	case *ast.TypeChoice:
		p.typeBody(t.Left)
		p.write(" | ")
		p.typeBody(t.Right)
	default:
		p.fail(t)
	}
}

// operations prints the OneWay and RequestResponse sections of an interface
// or port, one declaration per line.
func (p *Printer) operations(ops []ast.OperationDecl) {
	var oneWay, requestResponse []ast.OperationDecl
	for _, op := range ops {
		if _, ok := op.(*ast.OneWayDecl); ok {
			oneWay = append(oneWay, op)
		} else {
			requestResponse = append(requestResponse, op)
		}
	}

	written := false
	section := func(title string, list []ast.OperationDecl) {
		if len(list) == 0 {
			return
		}
		if written {
			p.newline()
		}
		written = true
		p.write(title + ":")
		p.depth++
		for i, op := range list {
			p.newline()
			p.operation(op)
			if i < len(list)-1 {
				p.write(",")
			}
		}
		p.depth--
	}
	section("OneWay", oneWay)
	section("RequestResponse", requestResponse)
}

func (p *Printer) operation(op ast.OperationDecl) {
	switch op := op.(type) {
	case *ast.OneWayDecl:
		p.write(op.Name + "( ")
		p.typeBody(op.Request)
		p.write(" )")
	case *ast.RequestResponseDecl:
		p.write(op.Name + "( ")
		p.typeBody(op.Request)
		p.write(" )( ")
		p.typeBody(op.Response)
		p.write(" )")
		if len(op.Faults) == 0 {
			return
		}
		p.write(" throws")
		for _, f := range op.Faults {
			p.write(" " + f.Name)
			if f.Type != nil {
				p.write("( ")
				p.typeBody(f.Type)
				p.write(" )")
			}
		}
	default:
		p.fail(op)
	}
}

func (p *Printer) port(port *ast.Port) {
	keyword := "outputPort"
	if port.Input {
		keyword = "inputPort"
	}
	p.write(keyword + " " + port.Name + " ")
	p.block(func() {
		var items []func()
		field := func(s string) { items = append(items, func() { p.write(s) }) }

		if port.Location != "" {
			field("location: " + strconv.Quote(port.Location))
		}
		if port.Protocol != "" {
			field("protocol: " + port.Protocol)
		}
		if len(port.Interfaces) > 0 {
			names := make([]string, 0, len(port.Interfaces))
			for _, iface := range port.Interfaces {
				names = append(names, iface.Name)
			}
			field("interfaces: " + strings.Join(names, ", "))
		}
		if len(port.Operations) > 0 {
			items = append(items, func() { p.operations(port.Operations) })
		}
		if len(port.Aggregates) > 0 {
			field("aggregates: " + strings.Join(port.Aggregates, ", "))
		}
		if len(port.Redirects) > 0 {
			redirects := make([]string, 0, len(port.Redirects))
			for _, r := range port.Redirects {
				redirects = append(redirects, r.Name+" => "+r.Port)
			}
			field("redirects: " + strings.Join(redirects, ", "))
		}
		p.lines(items)
	})
}

func (p *Printer) service(svc *ast.Service) {
	p.write("service " + svc.Name)
	if svc.Parameter != nil {
		p.write("( " + svc.Parameter.Name + " : ")
		p.typeBody(svc.Parameter.Type)
		p.write(" )")
	}
	p.write(" ")
	p.block(func() {
		for i, n := range svc.Body {
			if i > 0 {
				p.newline()
			}
			p.node(n)
		}
	})
}

func (p *Printer) body(n ast.Node) {
	p.block(func() { p.node(n) })
}

func (p *Printer) statement(n ast.Node) {
	switch n := n.(type) {
	case *ast.Definition:
		switch n.Name {
		case "main", "init":
			p.write(n.Name + " ")
		default:
			p.write("define " + n.Name + " ")
		}
		p.body(n.Body)
	case *ast.DefinitionCall:
		p.write(n.Name)
	case *ast.Sequence:
		for i, child := range n.Children {
			if i > 0 {
				p.write(";")
				p.newline()
			}
			p.node(child)
		}
	case *ast.Parallel:
		for i, child := range n.Children {
			if i > 0 {
				p.write(" |")
				p.newline()
			}
			p.node(child)
		}
	case *ast.NDChoice:
		for i, branch := range n.Branches {
			if i > 0 {
				p.newline()
			}
			p.write("[ ")
			p.node(branch.Guard)
			p.write(" ] ")
			p.body(branch.Body)
		}
	case *ast.OneWayStatement:
		p.write(n.Operation + parens(path(n.Input)))
	case *ast.RequestResponseStatement:
		p.write(n.Operation + parens(path(n.Input)) + parens(p.expr(n.Output)))
		if n.Body != nil {
			p.write(" ")
			p.body(n.Body)
		}
	case *ast.NotificationStatement:
		p.write(n.Operation + "@" + n.Port + parens(p.expr(n.Output)))
	case *ast.SolicitResponseStatement:
		p.write(n.Operation + "@" + n.Port + parens(p.expr(n.Output)) + parens(path(n.Input)))
	case *ast.LinkIn:
		p.write("linkIn" + parens(n.Link))
	case *ast.LinkOut:
		p.write("linkOut" + parens(n.Link))
	case *ast.Assign:
		p.write(path(n.Target) + " = " + p.expr(n.Value))
	case *ast.OperatorAssign:
		p.write(path(n.Target) + " " + n.Operator + " " + p.expr(n.Value))
	case *ast.Increment:
		if n.Prefix {
			p.write(n.Operator + path(n.Target))
		} else {
			p.write(path(n.Target) + n.Operator)
		}
	case *ast.DeepCopy:
		p.write(path(n.Target) + " << " + p.expr(n.Value))
	case *ast.Pointer:
		p.write(path(n.Target) + " -> " + path(n.Source))
	case *ast.Undef:
		p.write("undef" + parens(path(n.Target)))
	case *ast.If:
		for i, branch := range n.Branches {
			if i > 0 {
				p.write(" else ")
			}
			p.write("if" + parens(p.expr(branch.Guard)) + " ")
			p.body(branch.Body)
		}
		if n.Else != nil {
			p.write(" else ")
			p.body(n.Else)
		}
	case *ast.While:
		p.write("while" + parens(p.expr(n.Condition)) + " ")
		p.body(n.Body)
	case *ast.For:
		p.write("for" + parens(p.inline(n.Init)+", "+p.expr(n.Condition)+", "+p.inline(n.Post)) + " ")
		p.body(n.Body)
	case *ast.ForEachSubNode:
		p.write("foreach" + parens(path(n.Key)+" : "+path(n.Target)) + " ")
		p.body(n.Body)
	case *ast.ForEachArrayItem:
		p.write("for" + parens(path(n.Item)+" in "+path(n.Target)) + " ")
		p.body(n.Body)
	case *ast.Scope:
		p.write("scope" + parens(n.Name) + " ")
		p.body(n.Body)
	case *ast.Install:
		p.write("install( ")
		for i, h := range n.Handlers {
			if i > 0 {
				p.write(",")
				p.newline()
			}
			fault := h.Fault
			if fault == "" {
				fault = "this"
			}
			p.write(fault + " => ")
			p.node(h.Body)
		}
		p.write(" )")
	case *ast.Compensate:
		p.write("comp" + parens(n.Scope))
	case *ast.Throw:
		if n.Value != nil {
			p.write("throw" + parens(n.Fault+", "+p.expr(n.Value)))
		} else {
			p.write("throw" + parens(n.Fault))
		}
	case *ast.Exit:
		p.write("exit")
	case *ast.NullProcess:
		p.write("nullProcess")
	case *ast.CurrentHandler:
		p.write("cH")
	case *ast.Spawn:
		p.write("spawn" + parens(path(n.Index)+" over "+p.expr(n.Upper)) + " in " + path(n.Output) + " ")
		p.body(n.Body)
	case *ast.Synchronized:
		p.write("synchronized" + parens(n.ID) + " ")
		p.body(n.Body)
	case *ast.ProvideUntil:
		p.write("provide")
		p.depth++
		if n.Provide != nil {
			p.newline()
			p.node(n.Provide)
		}
		p.depth--
		p.newline()
		p.write("until")
		p.depth++
		if n.Until != nil {
			p.newline()
			p.node(n.Until)
		}
		p.depth--
	case *ast.ExecutionInfo:
		p.write("execution: " + strings.ToLower(n.Mode))
	case *ast.CorrelationSet:
		p.write("cset ")
		p.block(func() {
			for i, v := range n.Variables {
				if i > 0 {
					p.write(",")
					p.newline()
				}
				p.write(v.Path + ": " + strings.Join(v.Aliases, " "))
			}
		})
	case *ast.Documentation:
		for i, line := range strings.Split(strings.TrimRight(n.Text, "\n"), "\n") {
			if i > 0 {
				p.newline()
			}
			p.write(strings.TrimRight("/// "+line, " "))
		}
	case *ast.Courier:
		p.write("courier " + n.Port + " ")
		p.body(n.Body)
	case *ast.Forward:
		p.write("forward")
		if n.Port != "" {
			p.write(" " + n.Port)
		}
		p.write(parens(path(n.Output)))
		if n.SolicitResponse {
			p.write(parens(path(n.Input)))
		}
	default:
		p.write(p.expr(n))
	}
}

// inline renders a statement on its own printer, for the init and post
// clauses of a for loop.
func (p *Printer) inline(n ast.Node) string {
	sub := &Printer{indent: p.indent, fresh: true}
	sub.node(n)
	if sub.err != nil && p.err == nil {
		p.err = sub.err
	}
	return sub.buf.String()
}

func path(v *ast.VariablePath) string {
	if v == nil {
		return ""
	}
	var b strings.Builder
	if v.Global {
		b.WriteString("global.")
	}
	for i, seg := range v.Segments {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
		if seg.Index != nil {
			b.WriteString("[" + exprString(seg.Index) + "]")
		}
	}
	return b.String()
}

func exprString(n ast.Node) string {
	p := &Printer{indent: strings.Repeat(" ", defaultIndent)}
	return p.expr(n)
}

func (p *Printer) expr(n ast.Node) string {
	switch n := n.(type) {
	case nil:
		return ""
	case *ast.Constant:
		switch n.Type {
		case ast.ConstString:
			return strconv.Quote(n.Value)
		case ast.ConstLong:
			return n.Value + "L"
		default:
			return n.Value
		}
	case *ast.VariablePath:
		return path(n)
	case *ast.Sum:
		return operands(p, n.Operands)
	case *ast.Product:
		return operands(p, n.Operands)
	case *ast.Or:
		return p.join(n.Operands, " || ")
	case *ast.And:
		return p.join(n.Operands, " && ")
	case *ast.Not:
		return "!" + p.expr(n.Operand)
	case *ast.Compare:
		return p.expr(n.Left) + " " + n.Operator + " " + p.expr(n.Right)
	case *ast.VectorSize:
		return "#" + path(n.Target)
	case *ast.IsType:
		check := n.Check
		if !strings.HasPrefix(check, "is_") {
			check = "is_" + check
		}
		return check + parens(path(n.Target))
	case *ast.InstanceOf:
		return p.expr(n.Value) + " instanceof " + n.TypeName
	case *ast.TypeCast:
		return string(n.Native) + parens(p.expr(n.Value))
	case *ast.InlineTree:
		ops := make([]string, 0, len(n.Operations))
		for _, op := range n.Operations {
			target := "." + path(op.Path)
			switch op.Operator {
			case "->":
				ops = append(ops, target+" -> "+p.expr(op.Value))
			case "<<":
				ops = append(ops, target+" << "+p.expr(op.Value))
			default:
				ops = append(ops, target+" = "+p.expr(op.Value))
			}
		}
		if len(ops) == 0 {
			return p.expr(n.Root)
		}
		return p.expr(n.Root) + " { " + strings.Join(ops, ", ") + " }"
	case *ast.Void:
		return ""
	case *ast.FreshValue:
		return "new"
	case *ast.InstallFixedVariable:
		return "^" + path(n.Target)
	default:
		p.fail(n)
		return fmt.Sprintf("<%s>", n.Kind())
	}
}

func operands(p *Printer, list []ast.Operand) string {
	var b strings.Builder
	for i, op := range list {
		if i > 0 {
			b.WriteString(" " + op.Operator + " ")
		}
		b.WriteString(p.expr(op.Value))
	}
	return b.String()
}

func (p *Printer) join(list []ast.Node, sep string) string {
	parts := make([]string, 0, len(list))
	for _, n := range list {
		parts = append(parts, p.expr(n))
	}
	return strings.Join(parts, sep)
}
