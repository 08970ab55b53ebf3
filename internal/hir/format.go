package hir

import (
	"fmt"
	"sort"
	"strings"

	"compiler/internal/frontend/ast"
)

// Format renders the checked module as deterministic canonical text.
// Declarations appear in source order; the symbol summary at the top is
// sorted by name. Two structurally identical modules render to identical
// bytes.
func Format(m *Module) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "; module %s\n", m.Program.Filename)
	writeSymbolSummary(&sb, m.Symbols)
	sb.WriteByte('\n')

	for _, node := range m.Program.Nodes {
		writeNode(&sb, node, 0)
	}
	return sb.String()
}

func writeSymbolSummary(sb *strings.Builder, t *SymbolTable) {
	names := func(m map[string]bool) []string {
		out := make([]string, 0, len(m))
		for n := range m {
			out = append(out, n)
		}
		sort.Strings(out)
		return out
	}

	var fns []string
	for n := range t.Functions {
		fns = append(fns, n)
	}
	sort.Strings(fns)
	for _, n := range fns {
		fmt.Fprintf(sb, "; fn %s/%d\n", n, t.Functions[n].Arity())
	}

	var structs []string
	for n := range t.Structs {
		structs = append(structs, n)
	}
	sort.Strings(structs)
	for _, n := range structs {
		fmt.Fprintf(sb, "; struct %s{%s}\n", n, strings.Join(t.Structs[n].Fields, ","))
	}

	var enums []string
	for n := range t.Enums {
		enums = append(enums, n)
	}
	sort.Strings(enums)
	for _, n := range enums {
		fmt.Fprintf(sb, "; enum %s{%s}\n", n, strings.Join(names(t.Enums[n].Payload), ","))
	}

	for _, n := range names(t.Globals) {
		fmt.Fprintf(sb, "; global %s\n", n)
	}
}

func writeNode(sb *strings.Builder, node ast.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case *ast.FuncDecl:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			if p.Type != nil {
				params[i] = fmt.Sprintf("%s: %s", p.Name.Name, p.Type.Name)
			} else {
				params[i] = p.Name.Name
			}
		}
		ret := ""
		if n.ReturnType != nil {
			ret = " -> " + n.ReturnType.Name
		}
		fmt.Fprintf(sb, "%sfn %s(%s)%s {\n", pad, n.Name.Name, strings.Join(params, ", "), ret)
		writeBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s}\n", pad)
	case *ast.StructDecl:
		fmt.Fprintf(sb, "%sstruct %s {\n", pad, n.Name.Name)
		for _, f := range n.Fields {
			fmt.Fprintf(sb, "%s  %s: %s,\n", pad, f.Name.Name, f.Type.Name)
		}
		fmt.Fprintf(sb, "%s}\n", pad)
	case *ast.EnumDecl:
		fmt.Fprintf(sb, "%senum %s {\n", pad, n.Name.Name)
		for _, v := range n.Variants {
			if v.Payload != nil {
				fmt.Fprintf(sb, "%s  %s(%s),\n", pad, v.Name.Name, v.Payload.Name)
			} else {
				fmt.Fprintf(sb, "%s  %s,\n", pad, v.Name.Name)
			}
		}
		fmt.Fprintf(sb, "%s}\n", pad)
	case *ast.AssignStmt:
		fmt.Fprintf(sb, "%s%s = %s;\n", pad, exprText(n.Lhs), exprText(n.Rhs))
	case *ast.IfStmt:
		fmt.Fprintf(sb, "%sif %s {\n", pad, exprText(n.Cond))
		writeBlock(sb, n.Body, depth+1)
		if n.Else != nil {
			fmt.Fprintf(sb, "%s} else ", pad)
			switch e := n.Else.(type) {
			case *ast.Block:
				sb.WriteString("{\n")
				writeBlock(sb, e, depth+1)
				fmt.Fprintf(sb, "%s}\n", pad)
			case *ast.IfStmt:
				sb.WriteByte('\n')
				writeNode(sb, e, depth)
			}
		} else {
			fmt.Fprintf(sb, "%s}\n", pad)
		}
	case *ast.WhileStmt:
		fmt.Fprintf(sb, "%swhile %s {\n", pad, exprText(n.Cond))
		writeBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s}\n", pad)
	case *ast.ForStmt:
		fmt.Fprintf(sb, "%sfor %s in %s {\n", pad, n.Var.Name, exprText(n.Range))
		writeBlock(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s}\n", pad)
	case *ast.PrintStmt:
		fmt.Fprintf(sb, "%sprint %s;\n", pad, exprText(n.X))
	case *ast.ReturnStmt:
		if n.Result != nil {
			fmt.Fprintf(sb, "%sreturn %s;\n", pad, exprText(n.Result))
		} else {
			fmt.Fprintf(sb, "%sreturn;\n", pad)
		}
	case *ast.ExprStmt:
		fmt.Fprintf(sb, "%s%s;\n", pad, exprText(n.X))
	case *ast.Block:
		fmt.Fprintf(sb, "%s{\n", pad)
		writeBlock(sb, n, depth+1)
		fmt.Fprintf(sb, "%s}\n", pad)
	}
}

func writeBlock(sb *strings.Builder, blk *ast.Block, depth int) {
	if blk == nil {
		return
	}
	for _, node := range blk.Nodes {
		writeNode(sb, node, depth)
	}
}

// exprText renders an expression fully parenthesized so operator structure
// is unambiguous in the canonical text.
func exprText(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == ast.STRING {
			return fmt.Sprintf("%q", e.Value)
		}
		return e.Value
	case *ast.IdentifierExpr:
		return e.Name
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", exprText(e.X), e.Op.Value, exprText(e.Y))
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s%s)", e.Op.Value, exprText(e.X))
	case *ast.RangeExpr:
		return fmt.Sprintf("(%s..%s)", exprText(e.Start), exprText(e.End))
	case *ast.CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprText(a)
		}
		return fmt.Sprintf("%s(%s)", exprText(e.Fun), strings.Join(args, ", "))
	case *ast.FieldAccessExpr:
		return fmt.Sprintf("%s.%s", exprText(e.Object), e.Field.Name)
	case *ast.IndexExpr:
		return fmt.Sprintf("%s[%s]", exprText(e.X), exprText(e.Index))
	case *ast.ArrayLitExpr:
		elts := make([]string, len(e.Elts))
		for i, el := range e.Elts {
			elts[i] = exprText(el)
		}
		return fmt.Sprintf("[%s]", strings.Join(elts, ", "))
	case *ast.StructLitExpr:
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = fmt.Sprintf("%s: %s", f.Name.Name, exprText(f.Value))
		}
		return fmt.Sprintf("%s { %s }", e.Name.Name, strings.Join(fields, ", "))
	case *ast.EnumVariantExpr:
		if e.Data != nil {
			return fmt.Sprintf("%s.%s(%s)", e.EnumName, e.VariantName, exprText(e.Data))
		}
		return fmt.Sprintf("%s.%s", e.EnumName, e.VariantName)
	default:
		return "<expr>"
	}
}
