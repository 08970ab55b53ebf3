package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree as a stable s-expression, one top-level node per
// line. Locations are omitted, so two parses dump to identical text
// exactly when they are structurally identical.
func Dump(p *Program) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(program %s\n", p.Filename)
	for _, node := range p.Nodes {
		dumpNode(&sb, node, 1)
	}
	sb.WriteString(")\n")
	return sb.String()
}

func dumpNode(sb *strings.Builder, node Node, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case *FuncDecl:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			if p.Type != nil {
				params[i] = fmt.Sprintf("(%s %s)", p.Name.Name, p.Type.Name)
			} else {
				params[i] = fmt.Sprintf("(%s)", p.Name.Name)
			}
		}
		ret := "void"
		if n.ReturnType != nil {
			ret = n.ReturnType.Name
		}
		fmt.Fprintf(sb, "%s(fn %s [%s] %s\n", pad, n.Name.Name, strings.Join(params, " "), ret)
		dumpBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s)\n", pad)
	case *StructDecl:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = fmt.Sprintf("(%s %s)", f.Name.Name, f.Type.Name)
		}
		fmt.Fprintf(sb, "%s(struct %s %s)\n", pad, n.Name.Name, strings.Join(fields, " "))
	case *EnumDecl:
		variants := make([]string, len(n.Variants))
		for i, v := range n.Variants {
			if v.Payload != nil {
				variants[i] = fmt.Sprintf("(%s %s)", v.Name.Name, v.Payload.Name)
			} else {
				variants[i] = fmt.Sprintf("(%s)", v.Name.Name)
			}
		}
		fmt.Fprintf(sb, "%s(enum %s %s)\n", pad, n.Name.Name, strings.Join(variants, " "))
	case *AssignStmt:
		fmt.Fprintf(sb, "%s(assign %s %s)\n", pad, dumpExpr(n.Lhs), dumpExpr(n.Rhs))
	case *IfStmt:
		fmt.Fprintf(sb, "%s(if %s\n", pad, dumpExpr(n.Cond))
		dumpBlock(sb, n.Body, depth+1)
		if n.Else != nil {
			fmt.Fprintf(sb, "%s else\n", pad)
			dumpNode(sb, n.Else, depth+1)
		}
		fmt.Fprintf(sb, "%s)\n", pad)
	case *WhileStmt:
		fmt.Fprintf(sb, "%s(while %s\n", pad, dumpExpr(n.Cond))
		dumpBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s)\n", pad)
	case *ForStmt:
		fmt.Fprintf(sb, "%s(for %s %s\n", pad, n.Var.Name, dumpExpr(n.Range))
		dumpBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s)\n", pad)
	case *PrintStmt:
		fmt.Fprintf(sb, "%s(print %s)\n", pad, dumpExpr(n.X))
	case *ReturnStmt:
		if n.Result != nil {
			fmt.Fprintf(sb, "%s(return %s)\n", pad, dumpExpr(n.Result))
		} else {
			fmt.Fprintf(sb, "%s(return)\n", pad)
		}
	case *ExprStmt:
		fmt.Fprintf(sb, "%s(expr %s)\n", pad, dumpExpr(n.X))
	case *Block:
		fmt.Fprintf(sb, "%s(block\n", pad)
		dumpBlock(sb, n, depth+1)
		fmt.Fprintf(sb, "%s)\n", pad)
	}
}

func dumpBlock(sb *strings.Builder, blk *Block, depth int) {
	if blk == nil {
		return
	}
	for _, node := range blk.Nodes {
		dumpNode(sb, node, depth)
	}
}

func dumpExpr(expr Expression) string {
	switch e := expr.(type) {
	case *BasicLit:
		return fmt.Sprintf("(%s %q)", litKindName(e.Kind), e.Value)
	case *IdentifierExpr:
		return fmt.Sprintf("(ident %s)", e.Name)
	case *BinaryExpr:
		return fmt.Sprintf("(binary %s %s %s)", e.Op.Value, dumpExpr(e.X), dumpExpr(e.Y))
	case *UnaryExpr:
		return fmt.Sprintf("(unary %s %s)", e.Op.Value, dumpExpr(e.X))
	case *RangeExpr:
		return fmt.Sprintf("(range %s %s)", dumpExpr(e.Start), dumpExpr(e.End))
	case *CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = dumpExpr(a)
		}
		return fmt.Sprintf("(call %s %s)", dumpExpr(e.Fun), strings.Join(args, " "))
	case *FieldAccessExpr:
		return fmt.Sprintf("(field %s %s)", dumpExpr(e.Object), e.Field.Name)
	case *IndexExpr:
		return fmt.Sprintf("(index %s %s)", dumpExpr(e.X), dumpExpr(e.Index))
	case *ArrayLitExpr:
		elts := make([]string, len(e.Elts))
		for i, el := range e.Elts {
			elts[i] = dumpExpr(el)
		}
		return fmt.Sprintf("(array %s)", strings.Join(elts, " "))
	case *StructLitExpr:
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = fmt.Sprintf("(%s %s)", f.Name.Name, dumpExpr(f.Value))
		}
		return fmt.Sprintf("(struct-lit %s %s)", e.Name.Name, strings.Join(fields, " "))
	case *EnumVariantExpr:
		if e.Data != nil {
			return fmt.Sprintf("(variant %s %s %s)", e.EnumName, e.VariantName, dumpExpr(e.Data))
		}
		return fmt.Sprintf("(variant %s %s)", e.EnumName, e.VariantName)
	default:
		return "(?)"
	}
}

func litKindName(k LiteralKind) string {
	switch k {
	case INT:
		return "int"
	case FLOAT:
		return "float"
	case STRING:
		return "string"
	case BOOL:
		return "bool"
	}
	return "lit"
}
