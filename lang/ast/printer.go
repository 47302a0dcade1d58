package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer pretty-prints an AST node and its children, one per line, indented
// by nesting depth.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer
}

// Print renders n and everything it contains.
func (p *Printer) Print(n Node) {
	p.print(n, 0)
}

func (p *Printer) print(n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch e := n.(type) {
	case *Block:
		fmt.Fprintf(p.Output, "%sBlock\n", indent)
		for _, s := range e.Stmts {
			p.print(s, depth+1)
		}
	case *LetAssign:
		fmt.Fprintf(p.Output, "%sLetAssign %s\n", indent, e.Name)
		p.print(e.Init, depth+1)
	case *LetGet:
		fmt.Fprintf(p.Output, "%sLetGet %s\n", indent, e.Name)
	case *LetSet:
		fmt.Fprintf(p.Output, "%sLetSet %s\n", indent, e.Name)
		p.print(e.Value, depth+1)
	case *Fun:
		fmt.Fprintf(p.Output, "%sFun %s(%s)\n", indent, e.Name, strings.Join(e.Sig.Params, ", "))
		p.print(e.Body, depth+1)
	case *Call:
		fmt.Fprintf(p.Output, "%sCall\n", indent)
		p.print(e.Callee, depth+1)
		for _, arg := range e.Args {
			p.print(arg, depth+1)
		}
	case *While:
		fmt.Fprintf(p.Output, "%sWhile\n", indent)
		p.print(e.Cond, depth+1)
		p.print(e.Body, depth+1)
	case *IfElse:
		fmt.Fprintf(p.Output, "%sIfElse\n", indent)
		p.print(e.Cond, depth+1)
		p.print(e.Then, depth+1)
		if e.Else != nil {
			p.print(e.Else, depth+1)
		}
	case *Print:
		fmt.Fprintf(p.Output, "%sPrint\n", indent)
		p.print(e.Expr, depth+1)
	case *Return:
		fmt.Fprintf(p.Output, "%sReturn\n", indent)
		if e.Expr != nil {
			p.print(e.Expr, depth+1)
		}
	case *Grouping:
		fmt.Fprintf(p.Output, "%sGrouping\n", indent)
		p.print(e.Expr, depth+1)
	case *Binary:
		fmt.Fprintf(p.Output, "%sBinary %s\n", indent, e.Op)
		p.print(e.Left, depth+1)
		p.print(e.Right, depth+1)
	case *Unary:
		fmt.Fprintf(p.Output, "%sUnary %s\n", indent, e.Op)
		p.print(e.Expr, depth+1)
	case *Literal:
		fmt.Fprintf(p.Output, "%sLiteral %s\n", indent, literalText(e))
	default:
		fmt.Fprintf(p.Output, "%s<unknown node>\n", indent)
	}
}

func literalText(l *Literal) string {
	switch l.Kind {
	case LitNumber:
		return fmt.Sprintf("%g", l.Number)
	case LitString:
		return fmt.Sprintf("%q", l.String)
	case LitTrue:
		return "true"
	case LitFalse:
		return "false"
	case LitNil:
		return "nil"
	default:
		return "?"
	}
}
